// Package main hosts the providersync batch entrypoint.
//
// One invocation performs one sync of the embed.ly provider directory:
//   - Fetch: the listing page and every provider page are fetched through a Colly-based fetcher behind a shared
//     gate (http.concurrency slots, FIFO). Each URL gets http.max_attempts attempts with a fixed
//     http.retry_delay_ms pause; the slot is held across retries.
//   - Merge: providers no longer listed are pruned, then every successfully fetched page overwrites its record in
//     listing order. Failed pages keep whatever the store already had.
//   - Persist: providers.json is written atomically with a 4-space indent. The optional domain index, Postgres,
//     GCS and Pub/Sub mirrors run only after that save succeeds, and their failures are logged, never fatal.
//   - Observe: zap logs carry the run id; progress events feed a log sink and Prometheus collectors, which are
//     written to a node-exporter textfile and/or pushed to a Pushgateway once the run ends.
//
// Exit status: 0 on success, 1 on configuration errors or a fatal run failure (listing unavailable or unparseable,
// interrupted), 2 when the run completed but providers.json could not be written.
//
// Configure with a YAML file (-config) or PROVIDERSYNC_* environment variables, e.g.
// PROVIDERSYNC_HTTP_CONCURRENCY=4 or PROVIDERSYNC_STORE_PATH=/data/providers.json. A .env file in the working
// directory is loaded first.
package main

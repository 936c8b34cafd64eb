// Package progress carries per-provider completion events from the sync run to
// pluggable sinks. Events are buffered by a non-blocking Hub and delivered in
// batches on a background goroutine, so fetch goroutines never wait on logging
// or metrics.
package progress

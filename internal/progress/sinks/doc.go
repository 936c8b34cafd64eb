// Package sinks holds the progress consumers used by providersync: a zap sink
// that reports fan-out progress and a Prometheus sink for run-level counters.
package sinks

// Package progress carries run and per-file download events from the
// dispatcher to pluggable sinks. Emit never blocks a worker: events are
// buffered, batched on a background goroutine and fanned out to sinks such as
// the log, Prometheus metrics, the download ledger or Pub/Sub.
package progress

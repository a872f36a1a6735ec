// Package sinks implements progress consumers: structured logging, Prometheus
// metrics, the download ledger and Pub/Sub notifications. Each satisfies
// progress.Sink.
package sinks

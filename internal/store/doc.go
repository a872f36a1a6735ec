// Package store defines the download ledger: one row per run and one per file
// outcome. Implementations live in storage/postgres and storage/memory; this
// package must not import database drivers.
package store

// Package main hosts the grabber command.
//
// Architecture overview:
//   - Discovery: the mode picks a source. Mode v drives Chrome through chromedp over the target gallery and
//     collects thumbnail links; mode f reads input.txt from the output directory and resolves each watch page
//     through Colly and goquery; mode s rebuilds identifiers from file names already in the output directory.
//     Mode p is recognised but not supported.
//   - Download: links are deduplicated, split into at most grabber.threads batches and handed to one goroutine
//     per batch. Each batch runs in order; files that already exist are skipped before any request is made.
//     Media requests are retried on transport failures only, up to grabber.max_request_retries attempts.
//   - Persistence & fanout: files are written atomically under <output>/<identifier>. Optional sinks record the
//     run in Postgres (db.dsn), publish a Pub/Sub message per saved file (pubsub.*) and mirror each saved file
//     to GCS (storage.gcs_bucket).
//   - Observability: zap logs carry worker index, file name and url; progress events feed a Prometheus
//     registry served on metrics.addr together with /healthz and /readyz.
//
// Quick checklist:
//   - Flags: --target/-t, --output/-o (required), --mode/-m, --headless (--hl), --config/-c.
//   - Env overrides use the GRABBER_ prefix, e.g. GRABBER_GRABBER_THREADS=4 or GRABBER_DB_DSN.
//   - Run locally: go run ./cmd/grabber -t https://www.redgifs.com/users/someone -o ./output --hl
//   - SIGINT/SIGTERM stop the workers after their current file; the summary line is still logged.
package main

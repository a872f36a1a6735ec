// Package api hosts the optional status server that runs beside a grab.
// Routes:
//   - GET /healthz always answers ok while the process is alive.
//   - GET /readyz answers ok once downloads have started.
//   - GET /metrics exposes the Prometheus registry.
package api

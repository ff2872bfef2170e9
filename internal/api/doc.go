// Package api hosts the read-only HTTP server over the stored collections.
// Routes:
//   - GET /healthz and /readyz for Kubernetes health checks.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/events and /v1/jobs list a JSON store, optionally capped with
//     ?limit=N.
//   - GET /v1/events/{id} and /v1/jobs/{id} return one record by id.
package api

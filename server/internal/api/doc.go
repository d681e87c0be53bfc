// Package api implements the HTTP boundary of regionstat-server.
//
// New(service, regions, metrics, opts) returns an http.Handler that serves:
//
//	GET  /                liveness, {"status":"ok"}
//	POST /api             {"regions":[...],"threshold_ms":N} → region → summary
//	GET  /api/v1/regions  loaded regions with record counts
//	GET  /metrics         Prometheus text exposition
//
// POST /api bodies are validated against the embedded JSON Schema before
// decoding; malformed or mistyped bodies get 400 and never reach aggregation.
// Oversized bodies get 413, wrong methods 405 and, when configured, requests
// over the rate limit 429. Errors are JSON {"error": "..."}.
//
// Every response carries X-Request-ID. CORS preflight and response headers
// come from the configured origins/methods/headers (default: POST from any
// origin, any header).
package api

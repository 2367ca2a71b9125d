// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Synchronous and batch analysis
//   - Asynchronous run submission, status, results and cancellation
//   - Health checks
//   - Prometheus metrics
//
// Everything under /api/v1 requires the X-API-Key header when an API key is
// configured.
package http

// Package server is the status HTTP server: a Gin engine behind an h2c
// handler, run as a lifecycle component.
//
// Endpoints:
//
//   - GET /health: component health, 503 when any component is unhealthy
//   - GET /latest: the most recent value seen by the pipeline sink
//   - GET /info: build version information
//
// Middleware (server/middleware): panic recovery, request IDs and request
// logging.
package server

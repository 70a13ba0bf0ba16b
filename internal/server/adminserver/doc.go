// Package adminserver exposes an HTTP endpoint for operations:
// health, store statistics, and Prometheus metrics. It is separate
// from the client-facing protocol port and disabled by default.
package adminserver

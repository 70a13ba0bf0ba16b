// Package shutdown provides graceful shutdown handling.
//
// Hooks registered with OnShutdown run in reverse registration order
// when SIGINT or SIGTERM arrives, each bounded by a shared timeout.
// SIGPIPE is ignored process-wide so a dropped client never kills the
// server.
package shutdown

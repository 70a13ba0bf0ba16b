// Package logger provides structured logging for kvmesh.
//
// It wraps the standard library log/slog behind a small interface and
// feeds an asynchronous file sink: callers enqueue records onto a
// bounded in-memory queue and a dedicated writer goroutine performs
// batched writes to hourly-rotated log files. Errors in the sink never
// reach callers, and Close drains everything still queued.
package logger

// Package redisserver implements the client-facing TCP server.
//
// It speaks a subset of the Redis RESP protocol: a framer slices the
// per-connection input buffer into complete request frames (tolerating
// arbitrary TCP fragmentation and pipelining), a parser turns a frame
// into argument tokens, and a command handler executes them against
// the shared store, writing canonical RESP replies in request order.
package redisserver

// Package main provides the entry point for kvmesh-server.
//
// kvmesh-server is an in-memory key-value store speaking a subset of
// the Redis RESP protocol, with per-key expiration and periodic
// snapshots to a local file.
package main

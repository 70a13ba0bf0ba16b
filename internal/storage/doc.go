// Package storage combines the in-memory store with periodic
// snapshotting to a local file.
package storage

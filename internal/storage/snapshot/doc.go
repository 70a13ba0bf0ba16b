// Package snapshot reads and writes kvmesh snapshot files.
//
// A snapshot is a flat sequence of records, each introduced by a
// single ASCII tag byte: K (string), L (list), H (hash), E (expiry
// deadline). Lengths are decimal ASCII; payloads are raw bytes, so
// keys and values may contain any byte including newlines. Records
// with an unknown tag are skipped up to the next newline, which lets
// newer files load on older builds.
package snapshot

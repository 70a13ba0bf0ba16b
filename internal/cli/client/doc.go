// Package client provides a minimal RESP client for kvmesh-cli.
//
// Commands are encoded as multi-bulk arrays; replies are decoded into
// Go values (string, int64, []byte, []any, nil, or an error).
package client

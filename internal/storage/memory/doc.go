// Package memory provides the in-memory keyed store for kvmesh.
//
// Keys are distributed over a fixed set of shards by a murmur3 hash;
// each shard owns its slice of the key space and the matching expiry
// deadlines under its own mutex. Operations that need a globally
// consistent view (FlushAll, Keys, Dump, Load, the periodic sweep)
// acquire every shard lock in index order.
//
// Expired keys are removed lazily on access and by a rate-limited
// full sweep.
package memory

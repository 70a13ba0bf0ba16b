// Package workerpool provides a fixed-size pool of worker goroutines.
//
// Tasks submitted after shutdown begins are dropped. A worker that is
// stopping finishes its current task; panicking tasks are recovered
// and logged so a bad task never takes a worker down.
package workerpool

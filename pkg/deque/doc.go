// Package deque provides a generic double-ended queue.
//
// It is backed by a growable ring buffer, giving O(1) push and pop
// at both ends and O(1) random access. It is not safe for concurrent
// use; callers synchronize externally.
package deque

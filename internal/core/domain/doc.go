// Package domain defines the core data model for kvmesh.
//
// A keyed Value is a tagged variant holding exactly one of a string,
// a list, or a hash at any time. The package also defines the sentinel
// errors the storage layer reports and the server maps onto protocol
// replies.
package domain

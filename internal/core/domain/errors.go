package domain

import "errors"

var (
	// ErrWrongType indicates an operation incompatible with the key's
	// current type.
	ErrWrongType = errors.New("wrong type for operation")

	// ErrNotInteger indicates a stored string could not be parsed as a
	// signed 64-bit integer.
	ErrNotInteger = errors.New("value is not an integer")

	// ErrIndexOutOfRange indicates a list index outside the current
	// bounds of the list.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrKeyNotFound indicates the key does not exist or has expired.
	ErrKeyNotFound = errors.New("key not found")
)

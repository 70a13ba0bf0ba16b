package domain

import "github.com/yndnr/kvmesh-go/pkg/deque"

// ValueType identifies the shape a Value currently holds.
type ValueType uint8

const (
	TypeNone ValueType = iota
	TypeString
	TypeList
	TypeHash
)

// String returns the type name as reported by the TYPE command.
func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeList:
		return "list"
	case TypeHash:
		return "hash"
	default:
		return "none"
	}
}

// MaxStringLen bounds a single string value (512 MiB).
const MaxStringLen = 512 << 20

// Value is a tagged variant: exactly one of Str, List, or Hash is
// populated, selected by Type.
type Value struct {
	Type ValueType

	Str  []byte
	List *deque.Deque[[]byte]
	Hash map[string][]byte
}

// NewString creates a string value.
func NewString(b []byte) *Value {
	return &Value{Type: TypeString, Str: b}
}

// NewList creates an empty list value.
func NewList() *Value {
	return &Value{Type: TypeList, List: deque.New[[]byte]()}
}

// NewHash creates an empty hash value.
func NewHash() *Value {
	return &Value{Type: TypeHash, Hash: make(map[string][]byte)}
}

// Empty reports whether a container value has no elements.
// String values are never empty in this sense.
func (v *Value) Empty() bool {
	switch v.Type {
	case TypeList:
		return v.List.Len() == 0
	case TypeHash:
		return len(v.Hash) == 0
	default:
		return false
	}
}

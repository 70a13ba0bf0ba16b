package memory

import (
	"bytes"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
)

// list returns the list at key, creating it when create is set.
// Caller holds sh.mu. Returns domain.ErrKeyNotFound when absent and
// not creating, domain.ErrWrongType for a non-list value.
func (s *Store) list(sh *shard, key string, create bool) (*domain.Value, error) {
	s.expireKey(sh, key, s.nowMs())

	v, ok := sh.items[key]
	if !ok {
		if !create {
			return nil, domain.ErrKeyNotFound
		}
		v = domain.NewList()
		sh.items[key] = v
		return v, nil
	}
	if v.Type != domain.TypeList {
		return nil, domain.ErrWrongType
	}
	return v, nil
}

// dropIfEmpty removes an emptied container in the same operation.
// Caller holds sh.mu.
func dropIfEmpty(sh *shard, key string, v *domain.Value) {
	if v.Empty() {
		delete(sh.items, key)
		delete(sh.expires, key)
	}
}

// LPush prepends values to the list at key, creating it if missing.
// Values are pushed left to right, so the last value ends up at the
// head. Returns the resulting length.
func (s *Store) LPush(key string, values ...[]byte) (int64, error) {
	s.maybeSweep()
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, err := s.list(sh, key, true)
	if err != nil {
		return 0, err
	}
	for _, val := range values {
		v.List.PushFront(bytes.Clone(val))
	}
	return int64(v.List.Len()), nil
}

// RPush appends values to the list at key, creating it if missing.
// Returns the resulting length.
func (s *Store) RPush(key string, values ...[]byte) (int64, error) {
	s.maybeSweep()
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, err := s.list(sh, key, true)
	if err != nil {
		return 0, err
	}
	for _, val := range values {
		v.List.PushBack(bytes.Clone(val))
	}
	return int64(v.List.Len()), nil
}

// LPop removes and returns the head element.
func (s *Store) LPop(key string) ([]byte, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, err := s.list(sh, key, false)
	if err != nil {
		return nil, err
	}
	val, ok := v.List.PopFront()
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	dropIfEmpty(sh, key, v)
	return val, nil
}

// RPop removes and returns the tail element.
func (s *Store) RPop(key string) ([]byte, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, err := s.list(sh, key, false)
	if err != nil {
		return nil, err
	}
	val, ok := v.List.PopBack()
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	dropIfEmpty(sh, key, v)
	return val, nil
}

// LLen returns the list length; a missing key counts as zero.
func (s *Store) LLen(key string) (int64, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, err := s.list(sh, key, false)
	if err != nil {
		if err == domain.ErrKeyNotFound {
			return 0, nil
		}
		return 0, err
	}
	return int64(v.List.Len()), nil
}

// normalizeIndex resolves a possibly negative index against length n.
// Reports false when the result is out of range.
func normalizeIndex(i, n int64) (int64, bool) {
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

// LIndex returns the element at index i; negative i counts from the
// tail. Out-of-range yields domain.ErrKeyNotFound.
func (s *Store) LIndex(key string, i int64) ([]byte, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, err := s.list(sh, key, false)
	if err != nil {
		return nil, err
	}
	idx, ok := normalizeIndex(i, int64(v.List.Len()))
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	return v.List.At(int(idx)), nil
}

// LSet replaces the element at index i.
func (s *Store) LSet(key string, i int64, value []byte) error {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, err := s.list(sh, key, false)
	if err != nil {
		return err
	}
	idx, ok := normalizeIndex(i, int64(v.List.Len()))
	if !ok {
		return domain.ErrIndexOutOfRange
	}
	v.List.Set(int(idx), bytes.Clone(value))
	return nil
}

// LRange returns elements from start to stop inclusive; negative
// indices count from the tail. Bounds are clamped; an inverted range
// yields an empty result.
func (s *Store) LRange(key string, start, stop int64) ([][]byte, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, err := s.list(sh, key, false)
	if err != nil {
		if err == domain.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	n := int64(v.List.Len())
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return nil, nil
	}

	out := make([][]byte, 0, stop-start+1)
	for i := start; i <= stop; i++ {
		out = append(out, v.List.At(int(i)))
	}
	return out, nil
}

// LGet returns the full list contents.
func (s *Store) LGet(key string) ([][]byte, error) {
	return s.LRange(key, 0, -1)
}

// LRem removes occurrences of value: the first count from the head
// when count > 0, the last |count| from the tail when count < 0, and
// all when count == 0. Returns the number removed.
func (s *Store) LRem(key string, count int64, value []byte) (int64, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, err := s.list(sh, key, false)
	if err != nil {
		if err == domain.ErrKeyNotFound {
			return 0, nil
		}
		return 0, err
	}

	var removed int64
	switch {
	case count >= 0:
		limit := count
		for i := 0; i < v.List.Len(); {
			if (limit == 0 || removed < limit) && bytes.Equal(v.List.At(i), value) {
				v.List.Remove(i)
				removed++
				continue
			}
			i++
		}
	default:
		limit := -count
		for i := v.List.Len() - 1; i >= 0 && removed < limit; i-- {
			if bytes.Equal(v.List.At(i), value) {
				v.List.Remove(i)
				removed++
			}
		}
	}

	dropIfEmpty(sh, key, v)
	return removed, nil
}

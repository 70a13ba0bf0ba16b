package memory

import (
	"bytes"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
)

// hash returns the hash at key, creating it when create is set.
// Caller holds sh.mu.
func (s *Store) hash(sh *shard, key string, create bool) (*domain.Value, error) {
	s.expireKey(sh, key, s.nowMs())

	v, ok := sh.items[key]
	if !ok {
		if !create {
			return nil, domain.ErrKeyNotFound
		}
		v = domain.NewHash()
		sh.items[key] = v
		return v, nil
	}
	if v.Type != domain.TypeHash {
		return nil, domain.ErrWrongType
	}
	return v, nil
}

// HSet stores field=value in the hash at key, creating the hash if
// missing. Reports whether the field was newly created.
func (s *Store) HSet(key, field string, value []byte) (bool, error) {
	s.maybeSweep()
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, err := s.hash(sh, key, true)
	if err != nil {
		return false, err
	}
	_, existed := v.Hash[field]
	v.Hash[field] = bytes.Clone(value)
	return !existed, nil
}

// HGet returns the value stored at field.
func (s *Store) HGet(key, field string) ([]byte, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, err := s.hash(sh, key, false)
	if err != nil {
		return nil, err
	}
	val, ok := v.Hash[field]
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	return val, nil
}

// HExists reports whether field exists in the hash at key.
func (s *Store) HExists(key, field string) (bool, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, err := s.hash(sh, key, false)
	if err != nil {
		if err == domain.ErrKeyNotFound {
			return false, nil
		}
		return false, err
	}
	_, ok := v.Hash[field]
	return ok, nil
}

// HDel removes field from the hash at key, deleting the hash when it
// empties. Reports whether the field was removed.
func (s *Store) HDel(key, field string) (bool, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, err := s.hash(sh, key, false)
	if err != nil {
		if err == domain.ErrKeyNotFound {
			return false, nil
		}
		return false, err
	}
	_, ok := v.Hash[field]
	if !ok {
		return false, nil
	}
	delete(v.Hash, field)
	dropIfEmpty(sh, key, v)
	return true, nil
}

// HGetAll returns a copy of the field map at key.
func (s *Store) HGetAll(key string) (map[string][]byte, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, err := s.hash(sh, key, false)
	if err != nil {
		if err == domain.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	out := make(map[string][]byte, len(v.Hash))
	for f, val := range v.Hash {
		out[f] = val
	}
	return out, nil
}

// HKeys returns the field names at key.
func (s *Store) HKeys(key string) ([]string, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, err := s.hash(sh, key, false)
	if err != nil {
		if err == domain.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	out := make([]string, 0, len(v.Hash))
	for f := range v.Hash {
		out = append(out, f)
	}
	return out, nil
}

// HVals returns the field values at key.
func (s *Store) HVals(key string) ([][]byte, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, err := s.hash(sh, key, false)
	if err != nil {
		if err == domain.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	out := make([][]byte, 0, len(v.Hash))
	for _, val := range v.Hash {
		out = append(out, val)
	}
	return out, nil
}

// HLen returns the number of fields at key; a missing key counts as zero.
func (s *Store) HLen(key string) (int64, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, err := s.hash(sh, key, false)
	if err != nil {
		if err == domain.ErrKeyNotFound {
			return 0, nil
		}
		return 0, err
	}
	return int64(len(v.Hash)), nil
}

// HMSet stores every field/value pair in one atomic operation,
// creating the hash if missing. fields and values must be the same
// length.
func (s *Store) HMSet(key string, fields []string, values [][]byte) error {
	s.maybeSweep()
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, err := s.hash(sh, key, true)
	if err != nil {
		return err
	}
	for i, f := range fields {
		v.Hash[f] = bytes.Clone(values[i])
	}
	return nil
}

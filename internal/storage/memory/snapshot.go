package memory

import (
	"bytes"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
	"github.com/yndnr/kvmesh-go/internal/storage/snapshot"
)

// Export copies the full key space and expiry table under a globally
// consistent view.
func (s *Store) Export() *snapshot.State {
	s.lockAll()
	defer s.unlockAll()

	st := snapshot.NewState()
	for _, sh := range s.shards {
		for key, v := range sh.items {
			switch v.Type {
			case domain.TypeString:
				st.Strings[key] = bytes.Clone(v.Str)
			case domain.TypeList:
				items := make([][]byte, 0, v.List.Len())
				for i := 0; i < v.List.Len(); i++ {
					items = append(items, bytes.Clone(v.List.At(i)))
				}
				st.Lists[key] = items
			case domain.TypeHash:
				fields := make(map[string][]byte, len(v.Hash))
				for f, val := range v.Hash {
					fields[f] = bytes.Clone(val)
				}
				st.Hashes[key] = fields
			}
		}
		for key, deadline := range sh.expires {
			st.Expires[key] = deadline
		}
	}
	return st
}

// Import replaces the entire store contents with st and purges any
// key already past its deadline.
func (s *Store) Import(st *snapshot.State) {
	s.lockAll()
	defer s.unlockAll()

	for _, sh := range s.shards {
		sh.items = make(map[string]*domain.Value)
		sh.expires = make(map[string]int64)
	}

	for key, val := range st.Strings {
		sh := s.shardFor(key)
		sh.items[key] = domain.NewString(bytes.Clone(val))
	}
	for key, items := range st.Lists {
		if len(items) == 0 {
			continue
		}
		v := domain.NewList()
		for _, item := range items {
			v.List.PushBack(bytes.Clone(item))
		}
		s.shardFor(key).items[key] = v
	}
	for key, fields := range st.Hashes {
		if len(fields) == 0 {
			continue
		}
		v := domain.NewHash()
		for f, val := range fields {
			v.Hash[f] = bytes.Clone(val)
		}
		s.shardFor(key).items[key] = v
	}
	for key, deadline := range st.Expires {
		sh := s.shardFor(key)
		// A deadline without a live key is stale; drop it here rather
		// than carrying it into the expiry table.
		if _, ok := sh.items[key]; !ok {
			continue
		}
		sh.expires[key] = deadline
	}

	s.sweepLocked()
}

// Dump writes a snapshot of the store to path. The copy is taken
// under the store's locks; file I/O happens after they are released.
func (s *Store) Dump(path string) error {
	return snapshot.Write(path, s.Export())
}

// Load clears the store and restores it from the snapshot at path.
func (s *Store) Load(path string) error {
	st, err := snapshot.Read(path)
	if err != nil {
		return err
	}
	s.Import(st)
	return nil
}

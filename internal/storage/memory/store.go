package memory

import (
	"bytes"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spaolacci/murmur3"
	"golang.org/x/time/rate"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
)

// ShardCount is the number of key-space shards. Must be a power of 2.
const ShardCount = 32

// SweepInterval bounds how often a full expiry sweep may run.
const SweepInterval = time.Second

type shard struct {
	mu      sync.Mutex
	items   map[string]*domain.Value
	expires map[string]int64 // key -> deadline, ms since epoch
}

// Store is the sharded keyed container.
type Store struct {
	shards [ShardCount]*shard

	sweepLimit *rate.Limiter
	now        func() time.Time

	expiredTotal atomic.Int64
}

// Option configures the Store.
type Option func(*Store)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		sweepLimit: rate.NewLimiter(rate.Every(SweepInterval), 1),
		now:        time.Now,
	}
	for i := range s.shards {
		s.shards[i] = &shard{
			items:   make(map[string]*domain.Value),
			expires: make(map[string]int64),
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func shardIndexFor(key string) int {
	return int(murmur3.Sum32([]byte(key)) & (ShardCount - 1))
}

func (s *Store) shardFor(key string) *shard {
	return s.shards[shardIndexFor(key)]
}

func (s *Store) nowMs() int64 {
	return s.now().UnixMilli()
}

// lockAll acquires every shard lock in index order.
func (s *Store) lockAll() {
	for _, sh := range s.shards {
		sh.mu.Lock()
	}
}

func (s *Store) unlockAll() {
	for i := len(s.shards) - 1; i >= 0; i-- {
		s.shards[i].mu.Unlock()
	}
}

// expireKey removes key from sh if its deadline has passed.
// Caller holds sh.mu. Reports whether the key was removed.
func (s *Store) expireKey(sh *shard, key string, nowMs int64) bool {
	deadline, ok := sh.expires[key]
	if !ok || nowMs < deadline {
		return false
	}
	delete(sh.items, key)
	delete(sh.expires, key)
	s.expiredTotal.Add(1)
	return true
}

// maybeSweep runs a full sweep at most once per SweepInterval.
func (s *Store) maybeSweep() {
	if !s.sweepLimit.Allow() {
		return
	}
	s.lockAll()
	s.sweepLocked()
	s.unlockAll()
}

// sweepLocked removes every key past its deadline. Caller holds all
// shard locks.
func (s *Store) sweepLocked() int {
	nowMs := s.nowMs()
	removed := 0
	for _, sh := range s.shards {
		for key, deadline := range sh.expires {
			if nowMs >= deadline {
				delete(sh.items, key)
				delete(sh.expires, key)
				removed++
			}
		}
	}
	s.expiredTotal.Add(int64(removed))
	return removed
}

// Sweep forces a full expiry sweep and returns the number of keys removed.
func (s *Store) Sweep() int {
	s.lockAll()
	defer s.unlockAll()
	return s.sweepLocked()
}

// FlushAll drops all keys and expiries.
func (s *Store) FlushAll() {
	s.lockAll()
	defer s.unlockAll()
	for _, sh := range s.shards {
		sh.items = make(map[string]*domain.Value)
		sh.expires = make(map[string]int64)
	}
}

// Set writes a string value, replacing any prior value of any type
// and clearing any expiry on the key.
func (s *Store) Set(key string, value []byte) {
	s.maybeSweep()
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.items[key] = domain.NewString(bytes.Clone(value))
	delete(sh.expires, key)
}

// Get returns the string value at key.
// Returns domain.ErrKeyNotFound when absent or expired and
// domain.ErrWrongType when the key holds a non-string value.
func (s *Store) Get(key string) ([]byte, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s.expireKey(sh, key, s.nowMs())

	v, ok := sh.items[key]
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	if v.Type != domain.TypeString {
		return nil, domain.ErrWrongType
	}
	return v.Str, nil
}

// Del removes key across the value store and the expiry table.
func (s *Store) Del(key string) bool {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if s.expireKey(sh, key, s.nowMs()) {
		return false
	}
	_, ok := sh.items[key]
	delete(sh.items, key)
	delete(sh.expires, key)
	return ok
}

// Keys returns all live keys. It forces a full sweep first so the
// result contains no expired entries.
func (s *Store) Keys() []string {
	s.lockAll()
	defer s.unlockAll()
	s.sweepLocked()

	var out []string
	for _, sh := range s.shards {
		for key := range sh.items {
			out = append(out, key)
		}
	}
	return out
}

// Type returns the type name at key: "string", "list", "hash", or "none".
func (s *Store) Type(key string) string {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s.expireKey(sh, key, s.nowMs())

	v, ok := sh.items[key]
	if !ok {
		return domain.TypeNone.String()
	}
	return v.Type.String()
}

// Rename moves the value and any expiry from old to new, overwriting
// anything stored under new. Returns false when old does not exist.
func (s *Store) Rename(oldKey, newKey string) bool {
	si, di := shardIndexFor(oldKey), shardIndexFor(newKey)
	src, dst := s.shards[si], s.shards[di]

	// Lock in index order so concurrent renames cannot deadlock.
	if si == di {
		src.mu.Lock()
		defer src.mu.Unlock()
	} else {
		first, second := src, dst
		if di < si {
			first, second = dst, src
		}
		first.mu.Lock()
		defer first.mu.Unlock()
		second.mu.Lock()
		defer second.mu.Unlock()
	}

	nowMs := s.nowMs()
	s.expireKey(src, oldKey, nowMs)

	v, ok := src.items[oldKey]
	if !ok {
		return false
	}

	deadline, hasExpiry := src.expires[oldKey]
	delete(src.items, oldKey)
	delete(src.expires, oldKey)

	dst.items[newKey] = v
	if hasExpiry {
		dst.expires[newKey] = deadline
	} else {
		delete(dst.expires, newKey)
	}
	return true
}

// Expire sets the deadline for key to now+seconds.
// Returns false when the key does not exist.
func (s *Store) Expire(key string, seconds int64) bool {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	nowMs := s.nowMs()
	s.expireKey(sh, key, nowMs)

	if _, ok := sh.items[key]; !ok {
		return false
	}
	sh.expires[key] = nowMs + seconds*1000
	return true
}

// TTL returns the remaining time to live in whole seconds, rounded up.
// Returns -1 when the key has no expiry and -2 when the key is absent
// or already expired.
func (s *Store) TTL(key string) int64 {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	nowMs := s.nowMs()
	s.expireKey(sh, key, nowMs)

	if _, ok := sh.items[key]; !ok {
		return -2
	}
	deadline, ok := sh.expires[key]
	if !ok {
		return -1
	}
	return (deadline - nowMs + 999) / 1000
}

// Incr parses the string at key as a signed 64-bit integer, adds one,
// writes the result back, and returns it. A missing key is treated as
// "0". Returns domain.ErrWrongType for non-string values and
// domain.ErrNotInteger when the stored string does not parse; the
// stored value is left untouched in both cases.
func (s *Store) Incr(key string) (int64, error) {
	s.maybeSweep()
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s.expireKey(sh, key, s.nowMs())

	cur := []byte("0")
	if v, ok := sh.items[key]; ok {
		if v.Type != domain.TypeString {
			return 0, domain.ErrWrongType
		}
		cur = v.Str
	}

	n, err := strconv.ParseInt(string(bytes.TrimSpace(cur)), 10, 64)
	if err != nil {
		return 0, domain.ErrNotInteger
	}
	n++
	sh.items[key] = domain.NewString([]byte(strconv.FormatInt(n, 10)))
	return n, nil
}

// Stats is a point-in-time view of store counters.
type Stats struct {
	Keys         int
	Expiries     int
	ExpiredTotal int64
}

// Stats returns current store counters.
func (s *Store) Stats() Stats {
	s.lockAll()
	defer s.unlockAll()
	st := Stats{ExpiredTotal: s.expiredTotal.Load()}
	for _, sh := range s.shards {
		st.Keys += len(sh.items)
		st.Expiries += len(sh.expires)
	}
	return st
}

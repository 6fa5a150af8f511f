package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"oosc/internal/core"
	"oosc/internal/entries"
)

const snapshotKey = "entries"

// Snapshot caches the full entry list of a backend. Concurrent misses
// share one backend call, and callers always get their own copy.
type Snapshot struct {
	source entries.EntryLister
	cache  *LRUCache[[]core.Entry]
	group  singleflight.Group

	// mu orders Invalidate against storing a fetched snapshot.
	mu  sync.Mutex
	gen atomic.Uint64
}

// NewSnapshot caches source for ttl. A ttl of zero or less disables
// caching but keeps the shared fetch.
func NewSnapshot(source entries.EntryLister, ttl time.Duration) *Snapshot {
	return &Snapshot{
		source: source,
		cache:  NewLRUCache[[]core.Entry](1, ttl),
	}
}

// Entries returns the current snapshot.
func (s *Snapshot) Entries(ctx context.Context) ([]*core.Entry, error) {
	if cached, ok := s.cache.Get(snapshotKey); ok {
		return pointers(cached), nil
	}

	gen := s.gen.Load()
	v, err, _ := s.group.Do(fmt.Sprintf("%s/%d", snapshotKey, gen), func() (any, error) {
		// shared by every waiter, so one caller's cancellation must not fail the rest
		list, err := s.source.ListEntries(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		vals := values(list)
		s.storeIfCurrent(gen, vals)
		return vals, nil
	})
	if err != nil {
		return nil, err
	}
	return pointers(v.([]core.Entry)), nil
}

// storeIfCurrent caches vals unless a write happened since generation gen
// was read.
func (s *Snapshot) storeIfCurrent(gen uint64, vals []core.Entry) bool {
	if s.cache.ttl <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen.Load() != gen {
		return false
	}
	s.cache.Set(snapshotKey, vals)
	return true
}

// Invalidate drops the cached snapshot. Call it after every write.
func (s *Snapshot) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen.Add(1)
	s.cache.Delete(snapshotKey)
}

// Cleaner exposes the underlying cache to a Manager.
func (s *Snapshot) Cleaner() Cleaner { return s.cache }

func (s *Snapshot) Stats() Stats { return s.cache.Stats() }

// values copies the non-nil entries.
func values(list []*core.Entry) []core.Entry {
	out := make([]core.Entry, 0, len(list))
	for _, e := range list {
		if e != nil {
			out = append(out, *e)
		}
	}
	return out
}

func pointers(vals []core.Entry) []*core.Entry {
	out := make([]*core.Entry, len(vals))
	for i := range vals {
		e := vals[i]
		out[i] = &e
	}
	return out
}

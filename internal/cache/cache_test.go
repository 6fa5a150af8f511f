package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"oosc/internal/core"
)

func TestLRUCache_EvictionAndTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](2, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Set("c", 3) // evicts b, the least recently used
	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("c = %v, %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatal("a should have expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired removed %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Fatalf("size = %d, want 0", c.Size())
	}

	st := c.Stats()
	if st.Hits != 2 || st.Misses != 2 || st.Evictions != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestLRUCache_DeleteAndClear(t *testing.T) {
	c := NewLRUCache[string](4, time.Minute)
	c.Set("a", "x")
	c.Set("b", "y")
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("a should be deleted")
	}
	c.Clear()
	if c.Size() != 0 {
		t.Fatalf("size after clear = %d", c.Size())
	}
}

func TestManager_CleanNowAndStop(t *testing.T) {
	c := NewLRUCache[int](4, -time.Second)
	c.Set("a", 1)
	m := NewManager()
	m.Register(c)
	if n := m.CleanNow(); n != 1 {
		t.Fatalf("CleanNow = %d, want 1", n)
	}
	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()

	NewManager().Stop() // never started
}

type countingLister struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
	list    []*core.Entry
}

func (l *countingLister) ListEntries(context.Context) ([]*core.Entry, error) {
	l.calls.Add(1)
	if l.release != nil {
		<-l.release
	}
	return l.list, l.err
}

func TestSnapshot_CachesAndCopies(t *testing.T) {
	src := &countingLister{list: []*core.Entry{{ID: "1", District: "Mardan"}, nil}}
	s := NewSnapshot(src, time.Minute)

	first, err := s.Entries(context.Background())
	if err != nil || len(first) != 1 {
		t.Fatalf("first read: %+v %v", first, err)
	}
	first[0].District = "changed"

	second, _ := s.Entries(context.Background())
	if second[0].District != "Mardan" {
		t.Fatal("snapshot mutated through a returned entry")
	}
	if src.calls.Load() != 1 {
		t.Fatalf("backend called %d times, want 1", src.calls.Load())
	}

	s.Invalidate()
	if _, err := s.Entries(context.Background()); err != nil {
		t.Fatal(err)
	}
	if src.calls.Load() != 2 {
		t.Fatalf("invalidate did not force a refetch")
	}
}

func TestSnapshot_SharedFetch(t *testing.T) {
	src := &countingLister{release: make(chan struct{}), list: []*core.Entry{{ID: "1"}}}
	s := NewSnapshot(src, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Entries(context.Background()); err != nil {
				t.Error(err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(src.release)
	wg.Wait()

	if n := src.calls.Load(); n != 1 {
		t.Fatalf("backend called %d times, want 1", n)
	}
}

func TestSnapshot_ErrorsAreNotCached(t *testing.T) {
	src := &countingLister{err: errors.New("backend down")}
	s := NewSnapshot(src, time.Minute)
	if _, err := s.Entries(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	src.err = nil
	if _, err := s.Entries(context.Background()); err != nil {
		t.Fatalf("second read: %v", err)
	}
	if src.calls.Load() != 2 {
		t.Fatalf("error result was cached")
	}
}

func TestSnapshot_ZeroTTLAlwaysFetches(t *testing.T) {
	src := &countingLister{}
	s := NewSnapshot(src, 0)
	s.Entries(context.Background())
	s.Entries(context.Background())
	if src.calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", src.calls.Load())
	}
}

// invalidatingLister simulates a write landing while the fetch is running.
type invalidatingLister struct {
	snap  *Snapshot
	calls atomic.Int32
}

func (l *invalidatingLister) ListEntries(context.Context) ([]*core.Entry, error) {
	if l.calls.Add(1) == 1 {
		l.snap.Invalidate()
	}
	return []*core.Entry{{ID: "1"}}, nil
}

func TestSnapshot_WriteDuringFetchIsNotCached(t *testing.T) {
	src := &invalidatingLister{}
	s := NewSnapshot(src, time.Minute)
	src.snap = s

	if _, err := s.Entries(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.cache.Get(snapshotKey); ok {
		t.Fatal("stale snapshot was cached")
	}
	if _, err := s.Entries(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := src.calls.Load(); n != 2 {
		t.Fatalf("backend called %d times, want 2", n)
	}
}

func TestSnapshot_StoreIfCurrent(t *testing.T) {
	s := NewSnapshot(&countingLister{}, time.Minute)
	gen := s.gen.Load()
	s.Invalidate()
	if s.storeIfCurrent(gen, []core.Entry{{ID: "old"}}) {
		t.Fatal("stored a snapshot from an older generation")
	}
	if !s.storeIfCurrent(s.gen.Load(), []core.Entry{{ID: "new"}}) {
		t.Fatal("current generation not stored")
	}
	if got, ok := s.cache.Get(snapshotKey); !ok || got[0].ID != "new" {
		t.Fatalf("cached = %+v, %v", got, ok)
	}
}

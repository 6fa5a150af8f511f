// Package memory keeps entries in process memory. It backs local
// development and tests.
package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"oosc/internal/core"
	"oosc/internal/entries"
)

var _ entries.Store = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	items []core.Entry
	newID func() string
}

// New returns a store holding copies of seed. Seed entries without an id
// get one.
func New(seed []*core.Entry) *Store {
	s := &Store{newID: func() string { return uuid.NewString() }}
	for _, e := range seed {
		if e == nil {
			continue
		}
		item := *e
		if item.ID == "" {
			item.ID = s.newID()
		}
		s.items = append(s.items, item)
	}
	return s
}

// NewFromFiles seeds the store from base/seed_entries.json when present.
// The file may use any envelope the entries API uses.
func NewFromFiles(base string) (*Store, error) {
	data, err := os.ReadFile(filepath.Join(base, "seed_entries.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return New(nil), nil
		}
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	seed, err := entries.DecodeEntries(data)
	if err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return New(seed), nil
}

// ListEntries returns a copy of every stored entry in insertion order.
func (s *Store) ListEntries(_ context.Context) ([]*core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*core.Entry, len(s.items))
	for i := range s.items {
		e := s.items[i]
		out[i] = &e
	}
	return out, nil
}

func (s *Store) GetEntry(_ context.Context, id string) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Entry{}, entries.ErrNotFound
	}
	return s.items[i], nil
}

// CreateEntry stores e under a fresh id.
func (s *Store) CreateEntry(_ context.Context, e core.Entry) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.newID()
	s.items = append(s.items, e)
	return e, nil
}

func (s *Store) UpdateEntry(_ context.Context, id string, e core.Entry) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Entry{}, entries.ErrNotFound
	}
	e.ID = id
	s.items[i] = e
	return e, nil
}

func (s *Store) DeleteEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return entries.ErrNotFound
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return nil
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

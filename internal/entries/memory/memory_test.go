package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"oosc/internal/core"
	"oosc/internal/entries"
)

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := New([]*core.Entry{{ID: "seed", District: "Mardan"}, nil})

	list, err := s.ListEntries(ctx)
	if err != nil || len(list) != 1 || list[0].ID != "seed" {
		t.Fatalf("unexpected seed list: %v %+v", err, list)
	}

	created, err := s.CreateEntry(ctx, core.Entry{ID: "ignored", District: "Swabi", TotalChildren: 200})
	if err != nil || created.ID == "" || created.ID == "ignored" {
		t.Fatalf("unexpected create: %+v %v", created, err)
	}

	updated, err := s.UpdateEntry(ctx, created.ID, core.Entry{District: "Swabi", TotalChildren: 250})
	if err != nil || updated.ID != created.ID || updated.TotalChildren != 250 {
		t.Fatalf("unexpected update: %+v %v", updated, err)
	}

	got, err := s.GetEntry(ctx, created.ID)
	if err != nil || got.TotalChildren != 250 {
		t.Fatalf("unexpected get: %+v %v", got, err)
	}

	if err := s.DeleteEntry(ctx, "seed"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteEntry(ctx, "seed"); !errors.Is(err, entries.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.UpdateEntry(ctx, "missing", core.Entry{}); !errors.Is(err, entries.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}

	list, _ = s.ListEntries(ctx)
	if len(list) != 1 || list[0].District != "Swabi" {
		t.Fatalf("unexpected final list: %+v", list)
	}
}

func TestListReturnsCopies(t *testing.T) {
	s := New([]*core.Entry{{ID: "a", District: "Mardan"}})
	list, _ := s.ListEntries(context.Background())
	list[0].District = "changed"
	got, _ := s.GetEntry(context.Background(), "a")
	if got.District != "Mardan" {
		t.Fatalf("store mutated through listed entry")
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFromFiles(dir)
	if err != nil {
		t.Fatalf("missing seed should not fail: %v", err)
	}
	if list, _ := s.ListEntries(context.Background()); len(list) != 0 {
		t.Fatalf("expected empty store")
	}

	seed := `{"entries":[{"district":"Mardan","totalChildren":100},null,{"_id":"x","district":"Swabi"}]}`
	if err := os.WriteFile(filepath.Join(dir, "seed_entries.json"), []byte(seed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s, err = NewFromFiles(dir)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	list, _ := s.ListEntries(context.Background())
	if len(list) != 2 || list[0].ID == "" || list[1].ID != "x" {
		t.Fatalf("unexpected seeded entries: %+v", list)
	}

	if err := os.WriteFile(filepath.Join(dir, "seed_entries.json"), []byte(`{"entries":[`), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if _, err := NewFromFiles(dir); err == nil {
		t.Fatalf("expected error for malformed seed")
	}
}

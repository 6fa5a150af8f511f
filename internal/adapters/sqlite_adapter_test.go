package adapters

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"oosc/internal/core"
	"oosc/internal/entries"
	"oosc/internal/services"
	"oosc/internal/storage"
)

func TestSQLiteAdapterCRUD(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "oosc.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	a := NewSQLiteAdapter(repo, services.NewEntryService(repo, nil))
	t.Cleanup(func() { a.Close() })

	created, err := a.CreateEntry(ctx, core.Entry{District: "Mardan", TotalChildren: 100, GirlsPercentage: 60})
	if err != nil || created.ID == "" {
		t.Fatalf("create: %+v %v", created, err)
	}
	if _, err := a.UpdateEntry(ctx, created.ID, core.Entry{District: "Mardan", TotalChildren: 120}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := a.GetEntry(ctx, created.ID)
	if err != nil || got.TotalChildren != 120 || got.ID != created.ID {
		t.Fatalf("get: %+v %v", got, err)
	}

	list, err := a.ListEntries(ctx)
	if err != nil || len(list) != 1 || list[0].District != "Mardan" {
		t.Fatalf("list: %+v %v", list, err)
	}

	if err := a.DeleteEntry(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := a.GetEntry(ctx, created.ID); !errors.Is(err, entries.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := a.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

package adapters

import (
	"context"

	"oosc/internal/core"
	"oosc/internal/entries"
	"oosc/internal/services"
	"oosc/internal/storage"
)

var _ entries.Store = (*SQLiteAdapter)(nil)

// SQLiteAdapter exposes SQLiteRepository and EntryService as an
// entries.Store, so the HTTP handlers work unchanged on the SQLite + AMQP
// backend. Reads come from the repository, writes go through the service.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	service *services.EntryService
}

func NewSQLiteAdapter(storage *storage.SQLiteRepository, service *services.EntryService) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: storage,
		service: service,
	}
}

func (a *SQLiteAdapter) ListEntries(ctx context.Context) ([]*core.Entry, error) {
	recs, err := a.storage.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*core.Entry, len(recs))
	for i := range recs {
		out[i] = &recs[i].Entry
	}
	return out, nil
}

func (a *SQLiteAdapter) GetEntry(ctx context.Context, id string) (core.Entry, error) {
	rec, err := a.storage.GetEntry(ctx, id)
	if err != nil {
		return core.Entry{}, err
	}
	return rec.Entry, nil
}

func (a *SQLiteAdapter) CreateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	rec, err := a.service.CreateEntry(ctx, e)
	if err != nil {
		return core.Entry{}, err
	}
	return rec.Entry, nil
}

func (a *SQLiteAdapter) UpdateEntry(ctx context.Context, id string, e core.Entry) (core.Entry, error) {
	rec, err := a.service.UpdateEntry(ctx, id, e)
	if err != nil {
		return core.Entry{}, err
	}
	return rec.Entry, nil
}

func (a *SQLiteAdapter) DeleteEntry(ctx context.Context, id string) error {
	return a.service.DeleteEntry(ctx, id)
}

// Ping checks the database, for readiness probes.
func (a *SQLiteAdapter) Ping(ctx context.Context) error {
	return a.storage.Ping(ctx)
}

func (a *SQLiteAdapter) Close() error {
	return a.service.Close()
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"oosc/internal/core"
	"oosc/internal/entries"

	_ "modernc.org/sqlite"
)

// Record is a stored entry plus its sync bookkeeping. Entry.ID is the
// local id.
type Record struct {
	Entry      core.Entry
	RemoteID   string
	Version    int64
	SyncStatus SyncStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Deleted    bool
}

// timeLayout keeps stamps fixed width so they sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// PendingSync is the minimal data needed to queue a sync message.
type PendingSync struct {
	ID       string
	RemoteID string
	Version  int64
	Deleted  bool
}

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
	newID   func() string
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.NewString() },
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) stamp() string {
	return r.now().Format(timeLayout)
}

// CreateEntry stores e under a new local id as pending sync.
func (r *SQLiteRepository) CreateEntry(ctx context.Context, e core.Entry) (Record, error) {
	row, err := r.queries.CreateEntry(ctx, createParams(r.newID(), "", e, SyncPending, r.stamp()))
	if err != nil {
		return Record{}, fmt.Errorf("create entry: %w", err)
	}
	slog.InfoContext(ctx, "Entry saved to SQLite",
		"entry_id", row.ID,
		"district", row.District,
		"version", row.Version)
	return toRecord(row), nil
}

// UpdateEntry overwrites the entry fields, bumps the version and marks the
// row pending.
func (r *SQLiteRepository) UpdateEntry(ctx context.Context, id string, e core.Entry) (Record, error) {
	p := updateParams(id, e, r.stamp())
	p.SyncStatus = SyncPending
	row, err := r.queries.UpdateEntry(ctx, p)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, entries.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("update entry %s: %w", id, err)
	}
	return toRecord(row), nil
}

// GetEntry returns a live entry.
func (r *SQLiteRepository) GetEntry(ctx context.Context, id string) (Record, error) {
	rec, err := r.GetRecord(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if rec.Deleted {
		return Record{}, entries.ErrNotFound
	}
	return rec, nil
}

// GetRecord returns the row even when soft deleted.
func (r *SQLiteRepository) GetRecord(ctx context.Context, id string) (Record, error) {
	row, err := r.queries.GetEntry(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, entries.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get entry %s: %w", id, err)
	}
	return toRecord(row), nil
}

func (r *SQLiteRepository) ListEntries(ctx context.Context) ([]Record, error) {
	rows, err := r.queries.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = toRecord(row)
	}
	return out, nil
}

// DeleteEntry removes the entry from the live set. Entries never pushed to
// the remote API are purged right away; the others are soft deleted until
// the remote delete succeeds.
func (r *SQLiteRepository) DeleteEntry(ctx context.Context, id string) (Record, error) {
	rec, err := r.GetEntry(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if rec.RemoteID == "" {
		if err := r.queries.PurgeEntry(ctx, id); err != nil {
			return Record{}, fmt.Errorf("purge entry %s: %w", id, err)
		}
		rec.Deleted = true
		return rec, nil
	}
	row, err := r.queries.SoftDeleteEntry(ctx, id, r.stamp())
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, entries.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("delete entry %s: %w", id, err)
	}
	return toRecord(row), nil
}

// PurgeEntry drops the row for good.
func (r *SQLiteRepository) PurgeEntry(ctx context.Context, id string) error {
	if err := r.queries.PurgeEntry(ctx, id); err != nil {
		return fmt.Errorf("purge entry %s: %w", id, err)
	}
	return nil
}

// GetPendingSync returns rows waiting for the sync worker, oldest first.
func (r *SQLiteRepository) GetPendingSync(ctx context.Context, limit int) ([]PendingSync, error) {
	rows, err := r.queries.GetPendingSyncEntries(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync entries: %w", err)
	}
	out := make([]PendingSync, len(rows))
	for i, row := range rows {
		out[i] = PendingSync{
			ID:       row.ID,
			RemoteID: row.RemoteID.String,
			Version:  row.Version,
			Deleted:  row.DeletedAt.Valid,
		}
	}
	return out, nil
}

// MarkSynced records a successful push of the given version. It reports
// false when the row changed in the meantime and stays pending.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, version int64, remoteID string) (bool, error) {
	n, err := r.queries.MarkEntrySynced(ctx, MarkEntrySyncedParams{
		ID:       id,
		Version:  version,
		RemoteID: sql.NullString{String: remoteID, Valid: remoteID != ""},
		Now:      r.stamp(),
	})
	if err != nil {
		return false, fmt.Errorf("mark entry synced: %w", err)
	}
	if n == 0 {
		slog.InfoContext(ctx, "Entry changed during sync, left pending", "entry_id", id, "version", version)
		return false, nil
	}
	slog.InfoContext(ctx, "Entry marked as synced", "entry_id", id, "remote_id", remoteID)
	return true, nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	if err := r.queries.MarkEntrySyncError(ctx, id); err != nil {
		return fmt.Errorf("mark entry sync error: %w", err)
	}
	slog.WarnContext(ctx, "Entry marked with sync error", "entry_id", id)
	return nil
}

// UpsertRemote mirrors an entry read from the remote API. Rows with local
// changes are left alone. It reports whether anything was written.
func (r *SQLiteRepository) UpsertRemote(ctx context.Context, e core.Entry) (bool, error) {
	if e.ID == "" {
		return false, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)
	now := r.stamp()

	existing, err := q.GetEntryByRemoteID(ctx, e.ID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := q.CreateEntry(ctx, createParams(r.newID(), e.ID, e, SyncSynced, now)); err != nil {
			return false, fmt.Errorf("insert remote entry %s: %w", e.ID, err)
		}
	case err != nil:
		return false, fmt.Errorf("get entry by remote id %s: %w", e.ID, err)
	case existing.SyncStatus != SyncSynced || existing.DeletedAt.Valid:
		return false, nil
	default:
		if err := q.RefreshFromRemote(ctx, updateParams(existing.ID, e, now)); err != nil {
			return false, fmt.Errorf("refresh entry %s: %w", existing.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func createParams(id, remoteID string, e core.Entry, status SyncStatus, now string) CreateEntryParams {
	return CreateEntryParams{
		ID:                   id,
		RemoteID:             sql.NullString{String: remoteID, Valid: remoteID != ""},
		District:             e.District.String(),
		TotalChildren:        e.TotalChildren.Float(),
		OutOfSchoolChildren:  e.OutOfSchoolChildren.Float(),
		GirlsPercentage:      e.GirlsPercentage.Float(),
		BoysPercentage:       e.BoysPercentage.Float(),
		PovertyPercentage:    e.PovertyPercentage.Float(),
		DisabilityPercentage: e.DisabilityPercentage.Float(),
		OtherPercentage:      e.OtherPercentage.Float(),
		ProgramType:          e.ProgramType.String(),
		Date:                 e.Date.String(),
		SyncStatus:           status,
		Now:                  now,
	}
}

func updateParams(id string, e core.Entry, now string) UpdateEntryParams {
	return UpdateEntryParams{
		ID:                   id,
		District:             e.District.String(),
		TotalChildren:        e.TotalChildren.Float(),
		OutOfSchoolChildren:  e.OutOfSchoolChildren.Float(),
		GirlsPercentage:      e.GirlsPercentage.Float(),
		BoysPercentage:       e.BoysPercentage.Float(),
		PovertyPercentage:    e.PovertyPercentage.Float(),
		DisabilityPercentage: e.DisabilityPercentage.Float(),
		OtherPercentage:      e.OtherPercentage.Float(),
		ProgramType:          e.ProgramType.String(),
		Date:                 e.Date.String(),
		Now:                  now,
	}
}

func toRecord(row EntryRow) Record {
	created := parseStamp(row.ID, "created_at", row.CreatedAt)
	updated := parseStamp(row.ID, "updated_at", row.UpdatedAt)
	return Record{
		Entry: core.Entry{
			ID:                   row.ID,
			District:             core.Text(row.District),
			TotalChildren:        core.Number(row.TotalChildren),
			OutOfSchoolChildren:  core.Number(row.OutOfSchoolChildren),
			GirlsPercentage:      core.Number(row.GirlsPercentage),
			BoysPercentage:       core.Number(row.BoysPercentage),
			PovertyPercentage:    core.Number(row.PovertyPercentage),
			DisabilityPercentage: core.Number(row.DisabilityPercentage),
			OtherPercentage:      core.Number(row.OtherPercentage),
			ProgramType:          core.Text(row.ProgramType),
			Date:                 core.Text(row.Date),
		},
		RemoteID:   row.RemoteID.String,
		Version:    row.Version,
		SyncStatus: row.SyncStatus,
		CreatedAt:  created,
		UpdatedAt:  updated,
		Deleted:    row.DeletedAt.Valid,
	}
}

// parseStamp reads a stored timestamp. Unreadable stamps are logged and
// read as the zero time.
func parseStamp(id, column, value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		slog.Warn("Unreadable timestamp in entries table",
			"entry_id", id,
			"column", column,
			"value", value,
			"error", err)
		return time.Time{}
	}
	return t
}

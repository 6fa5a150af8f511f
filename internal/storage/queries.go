package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const entryColumns = `id, remote_id, district, total_children, out_of_school_children,
    girls_percentage, boys_percentage, poverty_percentage, disability_percentage,
    other_percentage, program_type, date, version, sync_status, created_at,
    updated_at, synced_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (EntryRow, error) {
	var i EntryRow
	err := row.Scan(
		&i.ID,
		&i.RemoteID,
		&i.District,
		&i.TotalChildren,
		&i.OutOfSchoolChildren,
		&i.GirlsPercentage,
		&i.BoysPercentage,
		&i.PovertyPercentage,
		&i.DisabilityPercentage,
		&i.OtherPercentage,
		&i.ProgramType,
		&i.Date,
		&i.Version,
		&i.SyncStatus,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.SyncedAt,
		&i.DeletedAt,
	)
	return i, err
}

func scanEntries(rows *sql.Rows) ([]EntryRow, error) {
	defer rows.Close()
	var items []EntryRow
	for rows.Next() {
		i, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createEntry = `-- name: CreateEntry :one
INSERT INTO entries (
    id, remote_id, district, total_children, out_of_school_children,
    girls_percentage, boys_percentage, poverty_percentage, disability_percentage,
    other_percentage, program_type, date, version, sync_status, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
RETURNING ` + entryColumns

func (q *Queries) CreateEntry(ctx context.Context, arg CreateEntryParams) (EntryRow, error) {
	row := q.db.QueryRowContext(ctx, createEntry,
		arg.ID,
		arg.RemoteID,
		arg.District,
		arg.TotalChildren,
		arg.OutOfSchoolChildren,
		arg.GirlsPercentage,
		arg.BoysPercentage,
		arg.PovertyPercentage,
		arg.DisabilityPercentage,
		arg.OtherPercentage,
		arg.ProgramType,
		arg.Date,
		arg.SyncStatus,
		arg.Now,
		arg.Now,
	)
	return scanEntry(row)
}

const updateEntry = `-- name: UpdateEntry :one
UPDATE entries SET
    district = ?, total_children = ?, out_of_school_children = ?,
    girls_percentage = ?, boys_percentage = ?, poverty_percentage = ?,
    disability_percentage = ?, other_percentage = ?, program_type = ?, date = ?,
    version = version + 1, sync_status = ?, updated_at = ?
WHERE id = ? AND deleted_at IS NULL
RETURNING ` + entryColumns

func (q *Queries) UpdateEntry(ctx context.Context, arg UpdateEntryParams) (EntryRow, error) {
	row := q.db.QueryRowContext(ctx, updateEntry,
		arg.District,
		arg.TotalChildren,
		arg.OutOfSchoolChildren,
		arg.GirlsPercentage,
		arg.BoysPercentage,
		arg.PovertyPercentage,
		arg.DisabilityPercentage,
		arg.OtherPercentage,
		arg.ProgramType,
		arg.Date,
		arg.SyncStatus,
		arg.Now,
		arg.ID,
	)
	return scanEntry(row)
}

const getEntry = `-- name: GetEntry :one
SELECT ` + entryColumns + ` FROM entries WHERE id = ?`

// GetEntry returns the row whether or not it is soft deleted.
func (q *Queries) GetEntry(ctx context.Context, id string) (EntryRow, error) {
	return scanEntry(q.db.QueryRowContext(ctx, getEntry, id))
}

const getEntryByRemoteID = `-- name: GetEntryByRemoteID :one
SELECT ` + entryColumns + ` FROM entries WHERE remote_id = ?`

func (q *Queries) GetEntryByRemoteID(ctx context.Context, remoteID string) (EntryRow, error) {
	return scanEntry(q.db.QueryRowContext(ctx, getEntryByRemoteID, remoteID))
}

const listEntries = `-- name: ListEntries :many
SELECT ` + entryColumns + ` FROM entries
WHERE deleted_at IS NULL
ORDER BY created_at, rowid`

func (q *Queries) ListEntries(ctx context.Context) ([]EntryRow, error) {
	rows, err := q.db.QueryContext(ctx, listEntries)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

const getPendingSyncEntries = `-- name: GetPendingSyncEntries :many
SELECT ` + entryColumns + ` FROM entries
WHERE sync_status IN ('pending', 'error')
ORDER BY created_at, rowid
LIMIT ?`

func (q *Queries) GetPendingSyncEntries(ctx context.Context, limit int64) ([]EntryRow, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSyncEntries, limit)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

const softDeleteEntry = `-- name: SoftDeleteEntry :one
UPDATE entries SET
    deleted_at = ?, updated_at = ?, version = version + 1, sync_status = 'pending'
WHERE id = ? AND deleted_at IS NULL
RETURNING ` + entryColumns

func (q *Queries) SoftDeleteEntry(ctx context.Context, id, now string) (EntryRow, error) {
	return scanEntry(q.db.QueryRowContext(ctx, softDeleteEntry, now, now, id))
}

const purgeEntry = `-- name: PurgeEntry :exec
DELETE FROM entries WHERE id = ?`

func (q *Queries) PurgeEntry(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, purgeEntry, id)
	return err
}

const markEntrySynced = `-- name: MarkEntrySynced :execrows
UPDATE entries SET
    sync_status = 'synced', synced_at = ?, remote_id = COALESCE(?, remote_id)
WHERE id = ? AND version = ?`

func (q *Queries) MarkEntrySynced(ctx context.Context, arg MarkEntrySyncedParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, markEntrySynced, arg.Now, arg.RemoteID, arg.ID, arg.Version)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const markEntrySyncError = `-- name: MarkEntrySyncError :exec
UPDATE entries SET sync_status = 'error' WHERE id = ? AND sync_status = 'pending'`

func (q *Queries) MarkEntrySyncError(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, markEntrySyncError, id)
	return err
}

const refreshFromRemote = `-- name: RefreshFromRemote :exec
UPDATE entries SET
    district = ?, total_children = ?, out_of_school_children = ?,
    girls_percentage = ?, boys_percentage = ?, poverty_percentage = ?,
    disability_percentage = ?, other_percentage = ?, program_type = ?, date = ?,
    updated_at = ?, synced_at = ?
WHERE id = ? AND sync_status = 'synced' AND deleted_at IS NULL`

func (q *Queries) RefreshFromRemote(ctx context.Context, arg UpdateEntryParams) error {
	_, err := q.db.ExecContext(ctx, refreshFromRemote,
		arg.District,
		arg.TotalChildren,
		arg.OutOfSchoolChildren,
		arg.GirlsPercentage,
		arg.BoysPercentage,
		arg.PovertyPercentage,
		arg.DisabilityPercentage,
		arg.OtherPercentage,
		arg.ProgramType,
		arg.Date,
		arg.Now,
		arg.Now,
		arg.ID,
	)
	return err
}

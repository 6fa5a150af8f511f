package storage

import "database/sql"

type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncError   SyncStatus = "error"
)

// EntryRow is one row of the entries table.
type EntryRow struct {
	ID                   string
	RemoteID             sql.NullString
	District             string
	TotalChildren        float64
	OutOfSchoolChildren  float64
	GirlsPercentage      float64
	BoysPercentage       float64
	PovertyPercentage    float64
	DisabilityPercentage float64
	OtherPercentage      float64
	ProgramType          string
	Date                 string
	Version              int64
	SyncStatus           SyncStatus
	CreatedAt            string
	UpdatedAt            string
	SyncedAt             sql.NullString
	DeletedAt            sql.NullString
}

type CreateEntryParams struct {
	ID                   string
	RemoteID             sql.NullString
	District             string
	TotalChildren        float64
	OutOfSchoolChildren  float64
	GirlsPercentage      float64
	BoysPercentage       float64
	PovertyPercentage    float64
	DisabilityPercentage float64
	OtherPercentage      float64
	ProgramType          string
	Date                 string
	SyncStatus           SyncStatus
	Now                  string
}

type UpdateEntryParams struct {
	ID                   string
	District             string
	TotalChildren        float64
	OutOfSchoolChildren  float64
	GirlsPercentage      float64
	BoysPercentage       float64
	PovertyPercentage    float64
	DisabilityPercentage float64
	OtherPercentage      float64
	ProgramType          string
	Date                 string
	SyncStatus           SyncStatus
	Now                  string
}

type MarkEntrySyncedParams struct {
	ID       string
	Version  int64
	RemoteID sql.NullString
	Now      string
}

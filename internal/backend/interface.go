// Package backend builds the entries store selected by DATA_BACKEND.
package backend

import (
	"context"
	"time"

	"oosc/internal/entries"
)

// BackendType names a storage backend.
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	RemoteBackend BackendType = "remote"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
)

func (t BackendType) String() string { return string(t) }

func (t BackendType) IsValid() bool {
	switch t {
	case MemoryBackend, RemoteBackend, SQLiteBackend, SheetsBackend:
		return true
	}
	return false
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Pinger is implemented by backends that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendResult holds the store plus what the caller must release.
type BackendResult struct {
	Type    BackendType
	Store   entries.Store
	Cleanup CleanupFunc
}

// Ping checks the store when it supports it and succeeds otherwise.
func (r *BackendResult) Ping(ctx context.Context) error {
	if p, ok := r.Store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close runs Cleanup if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Memory
	DataDirectory string

	// Remote entries API
	EntriesAPIURL     string
	EntriesAPIToken   string
	EntriesAPITimeout time.Duration

	// SQLite + AMQP
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

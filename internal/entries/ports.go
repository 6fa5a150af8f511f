package entries

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"oosc/internal/core"
)

// ErrNotFound is returned when no entry has the requested id.
var ErrNotFound = errors.New("entry not found")

// ErrInvalidID is returned for ids that cannot name a single entry.
var ErrInvalidID = errors.New("invalid entry id")

// CheckID rejects ids that are empty, dot segments or contain a path
// separator, so an id always stays one path segment.
func CheckID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, "/\\") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Ports for outbound adapters.
type (
	// EntryLister returns the current snapshot of all entries.
	EntryLister interface {
		ListEntries(ctx context.Context) ([]*core.Entry, error)
	}

	EntryReader interface {
		GetEntry(ctx context.Context, id string) (core.Entry, error)
	}

	// EntryWriter creates and replaces entries. Both return the stored
	// entry with its id populated.
	EntryWriter interface {
		CreateEntry(ctx context.Context, e core.Entry) (core.Entry, error)
		UpdateEntry(ctx context.Context, id string, e core.Entry) (core.Entry, error)
	}

	EntryDeleter interface {
		DeleteEntry(ctx context.Context, id string) error
	}

	// Store is everything the dashboard needs from a backend.
	Store interface {
		EntryLister
		EntryReader
		EntryWriter
		EntryDeleter
	}
)

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"oosc/internal/core"
	"oosc/internal/storage"
)

// EntryRepository is the local store the service writes to first.
type EntryRepository interface {
	CreateEntry(ctx context.Context, e core.Entry) (storage.Record, error)
	UpdateEntry(ctx context.Context, id string, e core.Entry) (storage.Record, error)
	DeleteEntry(ctx context.Context, id string) (storage.Record, error)
}

// SyncPublisher queues work for the sync worker.
type SyncPublisher interface {
	PublishEntrySync(ctx context.Context, id string, version int64) error
	PublishEntryDelete(ctx context.Context, id, remoteID string, version int64) error
}

// EntryService orchestrates entry writes across SQLite and AMQP.
type EntryService struct {
	storage   EntryRepository
	publisher SyncPublisher
}

// NewEntryService wires the repository and publisher. A nil publisher
// leaves rows pending for the worker's periodic sweep.
func NewEntryService(storage EntryRepository, publisher SyncPublisher) *EntryService {
	return &EntryService{
		storage:   storage,
		publisher: publisher,
	}
}

// CreateEntry saves the entry locally and publishes a sync message.
func (s *EntryService) CreateEntry(ctx context.Context, e core.Entry) (storage.Record, error) {
	rec, err := s.storage.CreateEntry(ctx, e)
	if err != nil {
		return storage.Record{}, fmt.Errorf("save entry: %w", err)
	}
	s.publishSync(ctx, rec)
	return rec, nil
}

func (s *EntryService) UpdateEntry(ctx context.Context, id string, e core.Entry) (storage.Record, error) {
	rec, err := s.storage.UpdateEntry(ctx, id, e)
	if err != nil {
		return storage.Record{}, fmt.Errorf("update entry: %w", err)
	}
	s.publishSync(ctx, rec)
	return rec, nil
}

// DeleteEntry removes the entry locally and, when it exists remotely,
// publishes a delete message.
func (s *EntryService) DeleteEntry(ctx context.Context, id string) error {
	rec, err := s.storage.DeleteEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if rec.RemoteID == "" {
		return nil
	}
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message", "entry_id", id)
		return nil
	}
	// the row stays pending, so a lost message is retried by the sweep
	if err := s.publisher.PublishEntryDelete(ctx, rec.Entry.ID, rec.RemoteID, rec.Version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message", "entry_id", id, "error", err)
	}
	return nil
}

func (s *EntryService) publishSync(ctx context.Context, rec storage.Record) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message", "entry_id", rec.Entry.ID)
		return
	}
	if err := s.publisher.PublishEntrySync(ctx, rec.Entry.ID, rec.Version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"entry_id", rec.Entry.ID, "version", rec.Version, "error", err)
	}
}

// Close closes the storage and the publisher when they support it.
func (s *EntryService) Close() error {
	var errs []error
	if c, ok := s.storage.(interface{ Close() error }); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(interface{ Close() error }); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close entry service: %w", errors.Join(errs...))
	}
	return nil
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"oosc/internal/amqp"
	"oosc/internal/core"
	"oosc/internal/entries"
	"oosc/internal/storage"
)

// LocalStore is the SQLite side of the sync.
type LocalStore interface {
	GetRecord(ctx context.Context, id string) (storage.Record, error)
	GetPendingSync(ctx context.Context, limit int) ([]storage.PendingSync, error)
	MarkSynced(ctx context.Context, id string, version int64, remoteID string) (bool, error)
	MarkSyncError(ctx context.Context, id string) error
	PurgeEntry(ctx context.Context, id string) error
	UpsertRemote(ctx context.Context, e core.Entry) (bool, error)
}

type Config struct {
	BatchSize    int
	Concurrency  int
	PollInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:    10,
		Concurrency:  4,
		PollInterval: 30 * time.Second,
	}
}

// SyncWorker pushes local entries to the remote entries API.
type SyncWorker struct {
	local  LocalStore
	remote entries.Store
	config Config
	locks  entryLocks

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncWorker(local LocalStore, remote entries.Store, cfg Config) *SyncWorker {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	return &SyncWorker{local: local, remote: remote, config: cfg}
}

// HandleMessage processes one AMQP message. A returned error requeues it.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.SyncMessage) error {
	slog.InfoContext(ctx, "Processing entry message",
		"type", msg.Type,
		"entry_id", msg.ID,
		"version", msg.Version)

	unlock := w.locks.lock(msg.ID)
	defer unlock()

	switch msg.Type {
	case amqp.EntrySync:
		return w.syncEntry(ctx, msg.ID)
	case amqp.EntryDelete:
		return w.handleDelete(ctx, msg)
	default:
		slog.WarnContext(ctx, "Dropping message of unknown type", "type", msg.Type)
		return nil
	}
}

// syncEntry pushes the current state of the local row, whatever version
// the message carried. Callers hold the entry lock.
func (w *SyncWorker) syncEntry(ctx context.Context, id string) error {
	rec, err := w.local.GetRecord(ctx, id)
	if errors.Is(err, entries.ErrNotFound) {
		slog.InfoContext(ctx, "Entry no longer stored, nothing to sync", "entry_id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get entry from storage: %w", err)
	}
	if rec.Deleted {
		return w.deleteRemote(ctx, rec.Entry.ID, rec.RemoteID)
	}
	if rec.SyncStatus == storage.SyncSynced && rec.RemoteID != "" {
		slog.DebugContext(ctx, "Entry already synced", "entry_id", id, "version", rec.Version)
		return nil
	}
	return w.push(ctx, rec)
}

func (w *SyncWorker) push(ctx context.Context, rec storage.Record) error {
	var (
		written core.Entry
		err     error
	)
	if rec.RemoteID != "" {
		written, err = w.remote.UpdateEntry(ctx, rec.RemoteID, rec.Entry)
		if errors.Is(err, entries.ErrNotFound) {
			slog.WarnContext(ctx, "Remote entry vanished, recreating",
				"entry_id", rec.Entry.ID, "remote_id", rec.RemoteID)
			rec.RemoteID = ""
		}
	}
	if rec.RemoteID == "" {
		written, err = w.remote.CreateEntry(ctx, rec.Entry)
	}
	if err != nil {
		if markErr := w.local.MarkSyncError(ctx, rec.Entry.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "entry_id", rec.Entry.ID, "error", markErr)
		}
		return fmt.Errorf("push entry %s: %w", rec.Entry.ID, err)
	}

	remoteID := rec.RemoteID
	if remoteID == "" {
		remoteID = written.ID
	}
	if _, err := w.local.MarkSynced(ctx, rec.Entry.ID, rec.Version, remoteID); err != nil {
		// remote write worked; the row is pushed again on the next sweep
		slog.ErrorContext(ctx, "Failed to mark as synced", "entry_id", rec.Entry.ID, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced entry",
		"entry_id", rec.Entry.ID,
		"remote_id", remoteID,
		"version", rec.Version)
	return nil
}

func (w *SyncWorker) handleDelete(ctx context.Context, msg *amqp.SyncMessage) error {
	remoteID := msg.RemoteID
	rec, err := w.local.GetRecord(ctx, msg.ID)
	switch {
	case errors.Is(err, entries.ErrNotFound):
	case err != nil:
		return fmt.Errorf("get entry from storage: %w", err)
	case !rec.Deleted:
		slog.WarnContext(ctx, "Delete message for a live entry, ignoring", "entry_id", msg.ID)
		return nil
	case rec.RemoteID != "":
		remoteID = rec.RemoteID
	}
	return w.deleteRemote(ctx, msg.ID, remoteID)
}

// deleteRemote removes the remote copy and then the local tombstone. A
// missing remote entry counts as deleted.
func (w *SyncWorker) deleteRemote(ctx context.Context, id, remoteID string) error {
	if remoteID != "" {
		err := w.remote.DeleteEntry(ctx, remoteID)
		if err != nil && !errors.Is(err, entries.ErrNotFound) {
			if markErr := w.local.MarkSyncError(ctx, id); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "entry_id", id, "error", markErr)
			}
			return fmt.Errorf("delete remote entry %s: %w", remoteID, err)
		}
	}
	if err := w.local.PurgeEntry(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Successfully deleted entry", "entry_id", id, "remote_id", remoteID)
	return nil
}

// ProcessPending re-syncs rows the message queue missed. It returns how
// many rows were handled successfully.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.config.BatchSize)
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.local.GetPendingSync(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending entries: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending entries", "count", len(pending))

	var synced atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.Concurrency)
	for _, p := range pending {
		g.Go(func() error {
			// re-read under the lock: a message may have handled the row
			// since it was listed
			unlock := w.locks.lock(p.ID)
			err := w.syncEntry(gctx, p.ID)
			unlock()
			if err != nil {
				slog.ErrorContext(gctx, "Failed to sync pending entry", "entry_id", p.ID, "error", err)
				return nil
			}
			synced.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(synced.Load()), err
	}
	return int(synced.Load()), ctx.Err()
}

// PullRemote mirrors the remote entries into the local store, leaving rows
// with unsynced local changes alone.
func (w *SyncWorker) PullRemote(ctx context.Context) (int, error) {
	list, err := w.remote.ListEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("list remote entries: %w", err)
	}
	written := 0
	for _, e := range list {
		if e == nil {
			continue
		}
		ok, err := w.local.UpsertRemote(ctx, *e)
		if err != nil {
			return written, err
		}
		if ok {
			written++
		}
	}
	slog.InfoContext(ctx, "Pulled remote entries", "remote", len(list), "written", written)
	return written, nil
}

// StartupSyncCheck pushes a larger backlog and then pulls the remote state.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	n, err := w.processPending(ctx, w.config.BatchSize*5)
	if err != nil {
		return fmt.Errorf("startup push: %w", err)
	}
	slog.InfoContext(ctx, "Startup push completed", "synced", n)

	if _, err := w.PullRemote(ctx); err != nil {
		return fmt.Errorf("startup pull: %w", err)
	}
	return nil
}

// Start runs the periodic pending sweep until Stop or ctx is done.
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("sync worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stop, done := w.stopCh, w.doneCh
	w.mu.Unlock()

	go w.runLoop(ctx, stop, done)

	slog.InfoContext(ctx, "Sync worker started",
		"poll_interval", w.config.PollInterval,
		"batch_size", w.config.BatchSize,
		"concurrency", w.config.Concurrency)
	return nil
}

// Stop signals the loop and waits for it to finish.
func (w *SyncWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	select {
	case <-done:
		slog.InfoContext(ctx, "Sync worker stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync worker stop timed out")
		return ctx.Err()
	}
}

func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *SyncWorker) runLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.ProcessPending(ctx); err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		}
	}
}

// entryLocks hands out one mutex per entry id. Idle ids are dropped.
type entryLocks struct {
	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	sync.Mutex
	refs int
}

func (l *entryLocks) lock(id string) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*entryLock)
	}
	el, ok := l.locks[id]
	if !ok {
		el = &entryLock{}
		l.locks[id] = el
	}
	el.refs++
	l.mu.Unlock()

	el.Lock()
	return func() {
		el.Unlock()
		l.mu.Lock()
		el.refs--
		if el.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

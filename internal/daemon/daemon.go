package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"fauna/internal/config"
	"fauna/internal/intake"
	"fauna/internal/logging"
	"fauna/internal/queue"
	"fauna/internal/worker"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *queue.Store
	worker *worker.Manager
	intake *intake.Service

	lockPath string
	lock     *flock.Flock

	api *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Worker       worker.StatusSummary
	QueueDBPath  string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, mgr *worker.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || mgr == nil {
		return nil, errors.New("daemon requires config, store, logger, and worker manager")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "faunad.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		worker:   mgr,
		intake:   intake.NewService(store, cfg.Paths.UploadDir, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock, recovers interrupted work, and launches
// the worker pool and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another fauna daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	// Items left processing by a crashed run can never heartbeat again.
	reset, err := d.store.ResetStuckProcessing(d.ctx)
	if err != nil {
		d.releaseLock()
		return fmt.Errorf("reset stuck processing: %w", err)
	}
	if reset > 0 {
		d.logger.Info("recovered interrupted items", logging.Int64("count", reset))
	}

	if err := d.worker.Start(d.ctx); err != nil {
		d.releaseLock()
		return fmt.Errorf("start workers: %w", err)
	}

	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			d.worker.Stop()
			d.releaseLock()
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("fauna daemon started", logging.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) releaseLock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ctx = nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.worker.Stop()
	if d.api != nil {
		d.api.stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("fauna daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns daemon runtime information.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Worker:       d.worker.Status(ctx),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
	}
}

// APIAddr returns the bound API address, or empty when the API is disabled
// or not started.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// RetryFailed resets failed items (optionally a subset) back to pending.
func (d *Daemon) RetryFailed(ctx context.Context, ids []string) (int64, error) {
	return d.store.RetryFailed(ctx, ids...)
}

// RemoveItem deletes a single queue item regardless of status.
func (d *Daemon) RemoveItem(ctx context.Context, id string) (bool, error) {
	return d.store.Remove(ctx, id)
}

// ClearDone removes finished queue items.
func (d *Daemon) ClearDone(ctx context.Context) (int64, error) {
	return d.store.ClearDone(ctx)
}

// ClearFailed removes failed queue items.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	return d.store.ClearFailed(ctx)
}

// ClearQueue removes all queue items.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	return d.store.Clear(ctx)
}

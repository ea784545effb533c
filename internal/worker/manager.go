package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"fauna/internal/classifier"
	"fauna/internal/config"
	"fauna/internal/logging"
	"fauna/internal/payload"
	"fauna/internal/queue"
)

// Manager owns the worker pool and the stale-claim reclaimer.
type Manager struct {
	cfg        *config.Config
	store      *queue.Store
	fetcher    payload.Fetcher
	classifier classifier.Classifier
	logger     *slog.Logger

	pollInterval time.Duration

	mu          sync.RWMutex
	running     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	lastErr     error
	lastItem    *queue.Item
	lastReclaim time.Time
}

// NewManager constructs a worker manager with the default payload fetcher
// and HTTP classifier client.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	return NewManagerWith(cfg, store, logger,
		payload.NewDirFetcher(cfg.Paths.UploadDir),
		classifier.NewClient(cfg.Classifier),
	)
}

// NewManagerWith constructs a worker manager with explicit collaborators
// (used in tests).
func NewManagerWith(cfg *config.Config, store *queue.Store, logger *slog.Logger, fetcher payload.Fetcher, cls classifier.Classifier) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		fetcher:      fetcher,
		classifier:   cls,
		logger:       logger,
		pollInterval: cfg.QueuePollInterval(),
	}
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("worker manager already running")
	}
	workers := m.cfg.Workflow.WorkerCount
	if workers <= 0 {
		workers = 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(workers)
	m.mu.Unlock()

	for i := 0; i < workers; i++ {
		go m.runWorker(runCtx, i)
	}
	return nil
}

// Stop terminates background processing and waits for in-flight items to
// settle.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// StatusSummary represents lightweight worker diagnostics.
type StatusSummary struct {
	Running    bool
	LastError  string
	LastItem   *queue.Item
	QueueStats map[queue.Status]int
}

// Status returns the latest worker information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastItem := m.lastItem
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}

	summary := StatusSummary{Running: running, QueueStats: stats}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastItem != nil {
		copy := *lastItem
		summary.LastItem = &copy
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastItem(item *queue.Item) {
	m.mu.Lock()
	if item != nil {
		copy := *item
		m.lastItem = &copy
	} else {
		m.lastItem = nil
	}
	m.mu.Unlock()
}

// reclaimDue reports whether the stale-claim sweep should run now, and if
// so records the sweep time. Gating lives on the manager so a pool of
// workers shares one sweep cadence.
func (m *Manager) reclaimDue(now time.Time) bool {
	interval := m.cfg.ReclaimInterval()
	if interval <= 0 {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.lastReclaim.IsZero() && now.Sub(m.lastReclaim) < interval {
		return false
	}
	m.lastReclaim = now
	return true
}

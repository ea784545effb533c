package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fauna/internal/logging"
	"fauna/internal/queue"
)

func (m *Manager) runWorker(ctx context.Context, index int) {
	defer m.wg.Done()

	token := uuid.NewString()
	logger := m.logger.With(
		logging.String(logging.FieldComponent, "worker"),
		logging.Int(logging.FieldWorker, index),
	)
	logger.Info("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker stopped")
			return
		default:
		}

		if m.reclaimDue(time.Now()) {
			m.reclaimStale(ctx, logger)
		}

		processed, err := m.claimPass(ctx, logger, token)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info("worker stopped")
				return
			}
			m.setLastError(err)
			logger.Error("claim pass failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			m.sleep(ctx, m.cfg.ErrorRetryInterval())
			continue
		}
		if processed == 0 {
			m.sleep(ctx, m.pollInterval)
		}
	}
}

// claimPass fetches a batch of pending items and processes every one this
// worker wins. Losing a claim race is normal when several workers poll the
// same store.
func (m *Manager) claimPass(ctx context.Context, logger *slog.Logger, token string) (int, error) {
	batch := m.cfg.Workflow.BatchSize
	if batch <= 0 {
		batch = 1
	}
	items, err := m.store.ListPending(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}

	processed := 0
	for _, item := range items {
		select {
		case <-ctx.Done():
			return processed, ctx.Err()
		default:
		}

		err := m.store.TryClaim(ctx, item.ID, token, time.Now().UTC())
		switch {
		case errors.Is(err, queue.ErrAlreadyClaimed), errors.Is(err, queue.ErrNotFound):
			continue
		case err != nil:
			return processed, fmt.Errorf("claim %s: %w", item.ID, err)
		}

		processed++
		if err := m.processItem(ctx, logger, token, item.ID); err != nil {
			if errors.Is(err, context.Canceled) {
				return processed, err
			}
			m.setLastError(err)
			logger.Error("item processing failed",
				logging.String(logging.FieldItemID, item.ID),
				logging.Error(err),
			)
		}
	}
	return processed, nil
}

func (m *Manager) reclaimStale(ctx context.Context, logger *slog.Logger) {
	timeout := m.cfg.ClaimTimeout()
	if timeout <= 0 {
		return
	}
	reclaimed, err := m.store.ReclaimStale(ctx, timeout, time.Now().UTC())
	if err != nil {
		logger.Warn("stale claim sweep failed; stuck items may remain",
			logging.Error(err),
			logging.String(logging.FieldEventType, "reclaim_failed"),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
		return
	}
	if reclaimed > 0 {
		logger.Info("reclaimed stale claims",
			logging.Int64("count", reclaimed),
			logging.String(logging.FieldEventType, "claims_reclaimed"),
		)
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

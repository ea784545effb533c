package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fauna/internal/classifier"
	"fauna/internal/logging"
	"fauna/internal/payload"
	"fauna/internal/queue"
)

// processItem drives one claimed item from payload fetch through commit.
// The claim already belongs to this worker's token when it is called.
func (m *Manager) processItem(ctx context.Context, logger *slog.Logger, token, id string) error {
	item, err := m.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load claimed item: %w", err)
	}
	m.setLastItem(item)

	itemLogger := logger.With(logging.String(logging.FieldItemID, item.ID))

	image, err := m.fetcher.Fetch(item.PayloadRef)
	if err != nil {
		return m.handlePayloadError(ctx, itemLogger, token, item, err)
	}

	itemLogger.Info("classifying image",
		logging.String("payload_ref", item.PayloadRef),
		logging.Int("payload_bytes", len(image)),
	)

	start := time.Now()
	prediction, err := m.classify(ctx, token, item.ID, image)
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			// Shutdown, not a model failure. Leave the claim for the
			// stale sweep or the startup reset to recover.
			return context.Canceled
		}
		reason := queue.FailureReason{Kind: queue.FailureAdapterError, Detail: err.Error()}
		if classifier.IsTimeout(err) {
			reason.Kind = queue.FailureTimeout
			reason.Detail = fmt.Sprintf("classification exceeded %s", m.cfg.ClassifyTimeout())
		}
		return m.commitFailure(ctx, itemLogger, token, item.ID, reason)
	}

	result := queue.Result{
		Label:            prediction.Label,
		Confidence:       prediction.Confidence,
		Scores:           prediction.Scores,
		ModelVersion:     prediction.ModelVersion,
		ProcessingTimeMs: elapsed.Milliseconds(),
	}
	if err := result.Validate(); err != nil {
		// The model answered but the answer is out of contract. Fail the
		// item terminally instead of stranding it in processing.
		reason := queue.FailureReason{
			Kind:   queue.FailureAdapterError,
			Detail: fmt.Sprintf("invalid prediction: %v", err),
		}
		return m.commitFailure(ctx, itemLogger, token, item.ID, reason)
	}
	if err := m.store.CommitResult(ctx, item.ID, token, result, time.Now().UTC()); err != nil {
		if errors.Is(err, queue.ErrStaleClaim) || errors.Is(err, queue.ErrNotFound) {
			itemLogger.Warn("discarding result for lost claim",
				logging.String(logging.FieldEventType, "stale_claim_discard"),
			)
			return nil
		}
		return fmt.Errorf("commit result: %w", err)
	}

	itemLogger.Info("image classified",
		logging.String("label", result.Label),
		logging.Float64("confidence", result.Confidence),
		logging.Duration("took", elapsed),
		logging.String(logging.FieldEventType, "item_done"),
	)
	return nil
}

// classify runs the model call under the configured deadline while a
// heartbeat goroutine keeps the claim fresh.
func (m *Manager) classify(ctx context.Context, token, id string, image []byte) (classifier.Prediction, error) {
	classifyCtx := ctx
	var cancel context.CancelFunc
	if timeout := m.cfg.ClassifyTimeout(); timeout > 0 {
		classifyCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		classifyCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go m.heartbeatLoop(classifyCtx, &wg, token, id)

	prediction, err := m.classifier.Classify(classifyCtx, image)
	cancel()
	wg.Wait()
	return prediction, err
}

// heartbeatLoop touches the claim until ctx is cancelled.
func (m *Manager) heartbeatLoop(ctx context.Context, wg *sync.WaitGroup, token, id string) {
	defer wg.Done()
	interval := m.cfg.HeartbeatInterval()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := m.store.Touch(ctx, id, token, time.Now().UTC())
			if err == nil || errors.Is(err, context.Canceled) {
				continue
			}
			if errors.Is(err, queue.ErrStaleClaim) || errors.Is(err, queue.ErrNotFound) {
				// The claim was reclaimed out from under us. Processing
				// continues; the commit will notice and discard.
				return
			}
			m.logger.Warn("heartbeat update failed",
				logging.String(logging.FieldItemID, id),
				logging.Error(err),
			)
		}
	}
}

// handlePayloadError releases the item for another attempt or fails it
// terminally once the attempt budget is spent.
func (m *Manager) handlePayloadError(ctx context.Context, logger *slog.Logger, token string, item *queue.Item, fetchErr error) error {
	maxAttempts := m.cfg.Workflow.MaxPayloadAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	attempt := item.Attempts + 1

	if errors.Is(fetchErr, payload.ErrUnavailable) && attempt < maxAttempts {
		if err := m.store.Release(ctx, item.ID, token, time.Now().UTC()); err != nil {
			if errors.Is(err, queue.ErrStaleClaim) || errors.Is(err, queue.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("release after payload error: %w", err)
		}
		logger.Warn("payload unavailable, returned to queue",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", maxAttempts),
			logging.Error(fetchErr),
			logging.String(logging.FieldEventType, "payload_retry"),
		)
		return nil
	}

	reason := queue.FailureReason{Kind: queue.FailurePayloadUnavailable, Detail: fetchErr.Error()}
	return m.commitFailure(ctx, logger, token, item.ID, reason)
}

func (m *Manager) commitFailure(ctx context.Context, logger *slog.Logger, token, id string, reason queue.FailureReason) error {
	if err := m.store.CommitFailure(ctx, id, token, reason, time.Now().UTC()); err != nil {
		if errors.Is(err, queue.ErrStaleClaim) || errors.Is(err, queue.ErrNotFound) {
			logger.Warn("discarding failure for lost claim",
				logging.String(logging.FieldEventType, "stale_claim_discard"),
			)
			return nil
		}
		return fmt.Errorf("commit failure: %w", err)
	}
	logger.Warn("item failed",
		logging.String("failure_kind", string(reason.Kind)),
		logging.String("failure_detail", reason.Detail),
		logging.String(logging.FieldEventType, "item_failed"),
	)
	return nil
}

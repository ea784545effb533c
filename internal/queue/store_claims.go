package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TryClaim atomically moves a pending item to processing under the given
// worker token. A single conditional UPDATE enforces the mutual-exclusion
// invariant: concurrent claims on the same item resolve to exactly one
// winner, and losers observe ErrAlreadyClaimed with no mutation.
func (s *Store) TryClaim(ctx context.Context, id, workerToken string, now time.Time) error {
	if strings.TrimSpace(workerToken) == "" {
		return errors.New("worker token is required")
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE work_items
         SET status = ?, claim_token = ?, updated_at = ?
         WHERE id = ? AND status = ? AND claim_token IS NULL`,
		StatusProcessing,
		workerToken,
		now.UTC().Format(time.RFC3339Nano),
		id,
		StatusPending,
	)
	if err != nil {
		return fmt.Errorf("claim item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return ErrAlreadyClaimed
	}
	return nil
}

// Touch refreshes updated_at for an in-flight item while the holder's
// classification runs, keeping it ahead of the stale-claim sweep. The
// update is token-gated; a stale holder gets ErrStaleClaim.
func (s *Store) Touch(ctx context.Context, id, workerToken string, now time.Time) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE work_items SET updated_at = ?
         WHERE id = ? AND status = ? AND claim_token = ?`,
		now.UTC().Format(time.RFC3339Nano),
		id,
		StatusProcessing,
		workerToken,
	)
	if err != nil {
		return fmt.Errorf("touch item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch rows affected: %w", err)
	}
	if affected == 0 {
		return ErrStaleClaim
	}
	return nil
}

// CommitResult records a successful classification and transitions the
// item to done, clearing the claim. Requires the caller to still hold the
// claim; otherwise ErrStaleClaim and the stored item is left unchanged.
func (s *Store) CommitResult(ctx context.Context, id, workerToken string, result Result, now time.Time) error {
	if err := result.Validate(); err != nil {
		return fmt.Errorf("commit result: %w", err)
	}
	var scoresJSON any
	if len(result.Scores) > 0 {
		encoded, err := json.Marshal(result.Scores)
		if err != nil {
			return fmt.Errorf("encode scores: %w", err)
		}
		scoresJSON = string(encoded)
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE work_items
         SET status = ?, label = ?, confidence = ?, scores_json = ?,
             model_version = ?, processing_time_ms = ?,
             failure_kind = NULL, failure_detail = NULL,
             claim_token = NULL, updated_at = ?
         WHERE id = ? AND status = ? AND claim_token = ?`,
		StatusDone,
		result.Label,
		result.Confidence,
		scoresJSON,
		nullableString(result.ModelVersion),
		result.ProcessingTimeMs,
		now.UTC().Format(time.RFC3339Nano),
		id,
		StatusProcessing,
		workerToken,
	)
	if err != nil {
		return fmt.Errorf("commit result: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	return s.checkCommitOutcome(ctx, id, affected)
}

// CommitFailure records a classified failure and transitions the item to
// failed, clearing the claim. Same preconditions as CommitResult.
func (s *Store) CommitFailure(ctx context.Context, id, workerToken string, reason FailureReason, now time.Time) error {
	if strings.TrimSpace(string(reason.Kind)) == "" {
		return errors.New("failure kind is required")
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE work_items
         SET status = ?, failure_kind = ?, failure_detail = ?,
             label = NULL, confidence = NULL, scores_json = NULL,
             model_version = NULL, processing_time_ms = NULL,
             claim_token = NULL, updated_at = ?
         WHERE id = ? AND status = ? AND claim_token = ?`,
		StatusFailed,
		string(reason.Kind),
		nullableString(reason.Detail),
		now.UTC().Format(time.RFC3339Nano),
		id,
		StatusProcessing,
		workerToken,
	)
	if err != nil {
		return fmt.Errorf("commit failure: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	return s.checkCommitOutcome(ctx, id, affected)
}

// Release returns a claimed item to pending and bumps its attempt
// counter. Workers use this for transient payload errors so the item is
// retried on a later cycle without waiting for the stale sweep.
func (s *Store) Release(ctx context.Context, id, workerToken string, now time.Time) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE work_items
         SET status = ?, claim_token = NULL, attempts = attempts + 1, updated_at = ?
         WHERE id = ? AND status = ? AND claim_token = ?`,
		StatusPending,
		now.UTC().Format(time.RFC3339Nano),
		id,
		StatusProcessing,
		workerToken,
	)
	if err != nil {
		return fmt.Errorf("release item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	return s.checkCommitOutcome(ctx, id, affected)
}

// ReclaimStale returns processing items whose updated_at is older than
// the cutoff back to pending and clears their claims. This is the
// recovery path for crashed workers: a liveness guarantee that trades a
// small duplicate-processing risk for bounded-time forward progress.
func (s *Store) ReclaimStale(ctx context.Context, olderThan time.Duration, now time.Time) (int64, error) {
	if olderThan <= 0 {
		return 0, nil
	}
	cutoff := now.Add(-olderThan)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE work_items
         SET status = ?, claim_token = NULL, updated_at = ?
         WHERE status = ? AND updated_at < ?`,
		StatusPending,
		now.UTC().Format(time.RFC3339Nano),
		StatusProcessing,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale items: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed items back to pending for reprocessing. With
// no ids, all failed items are retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE work_items
            SET status = ?, failure_kind = NULL, failure_detail = NULL,
                attempts = 0, updated_at = ?
            WHERE status = ?`,
			StatusPending,
			timestamp,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed items: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+3)
	args = append(args, StatusPending, timestamp)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, StatusFailed)
	query := `UPDATE work_items
        SET status = ?, failure_kind = NULL, failure_detail = NULL,
            attempts = 0, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = ?`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected items: %w", err)
	}
	return res.RowsAffected()
}

// ResetStuckProcessing returns every processing item to pending,
// regardless of age. Used on daemon startup before workers launch, when
// any surviving claim is known to be orphaned.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE work_items
         SET status = ?, claim_token = NULL, updated_at = ?
         WHERE status = ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck items: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) checkCommitOutcome(ctx context.Context, id string, affected int64) error {
	if affected == 0 {
		if _, getErr := s.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return ErrStaleClaim
	}
	return nil
}

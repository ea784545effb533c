package queue_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"fauna/internal/queue"
	"fauna/internal/testsupport"
)

func TestTryClaimMovesToProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewPhoto(t, store, "photo-1", "", "a.jpg")
	if err := store.TryClaim(ctx, item.ID, "worker-1", time.Now()); err != nil {
		t.Fatalf("TryClaim: %v", err)
	}

	claimed, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if claimed.Status != queue.StatusProcessing {
		t.Errorf("status = %s, want processing", claimed.Status)
	}
	if claimed.ClaimToken != "worker-1" {
		t.Errorf("claim token = %q", claimed.ClaimToken)
	}
}

func TestTryClaimLoserSeesNoMutation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewPhoto(t, store, "photo-1", "", "a.jpg")
	if err := store.TryClaim(ctx, item.ID, "worker-1", time.Now()); err != nil {
		t.Fatalf("TryClaim winner: %v", err)
	}

	err := store.TryClaim(ctx, item.ID, "worker-2", time.Now())
	if !errors.Is(err, queue.ErrAlreadyClaimed) {
		t.Fatalf("error = %v, want ErrAlreadyClaimed", err)
	}

	unchanged, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if unchanged.ClaimToken != "worker-1" {
		t.Errorf("claim token = %q, loser must not mutate", unchanged.ClaimToken)
	}
}

func TestTryClaimMissingItem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	err := store.TryClaim(context.Background(), "missing", "worker-1", time.Now())
	if !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestTryClaimMutualExclusion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewPhoto(t, store, "contested", "", "a.jpg")

	const workers = 8
	var wg sync.WaitGroup
	wins := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			if err := store.TryClaim(ctx, item.ID, token, time.Now()); err == nil {
				wins <- token
			}
		}(fmt.Sprintf("worker-%d", i))
	}
	wg.Wait()
	close(wins)

	var winners []string
	for token := range wins {
		winners = append(winners, token)
	}
	if len(winners) != 1 {
		t.Fatalf("winners = %v, want exactly one", winners)
	}

	claimed, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if claimed.ClaimToken != winners[0] {
		t.Errorf("claim token = %q, want winner %q", claimed.ClaimToken, winners[0])
	}
}

func TestCommitResultTransitionsToDone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewPhoto(t, store, "photo-1", "", "a.jpg")
	if err := store.TryClaim(ctx, item.ID, "worker-1", time.Now()); err != nil {
		t.Fatalf("TryClaim: %v", err)
	}

	result := queue.Result{
		Label:            "red fox",
		Confidence:       0.93,
		Scores:           map[string]float64{"red fox": 0.93, "coyote": 0.05},
		ModelVersion:     "v2.1",
		ProcessingTimeMs: 412,
	}
	if err := store.CommitResult(ctx, item.ID, "worker-1", result, time.Now()); err != nil {
		t.Fatalf("CommitResult: %v", err)
	}

	done, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if done.Status != queue.StatusDone {
		t.Errorf("status = %s", done.Status)
	}
	if done.ClaimToken != "" {
		t.Errorf("claim token = %q, want cleared", done.ClaimToken)
	}
	if done.Result == nil || done.Result.Label != "red fox" || done.Result.Confidence != 0.93 {
		t.Fatalf("result = %+v", done.Result)
	}
	if done.Result.Scores["coyote"] != 0.05 {
		t.Errorf("scores = %v", done.Result.Scores)
	}
	if done.FailureReason != nil {
		t.Errorf("failure reason = %+v, want nil", done.FailureReason)
	}
}

func TestCommitResultValidatesResult(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewPhoto(t, store, "photo-1", "", "a.jpg")
	if err := store.TryClaim(ctx, item.ID, "worker-1", time.Now()); err != nil {
		t.Fatalf("TryClaim: %v", err)
	}

	bad := queue.Result{Label: "fox", Confidence: 1.5}
	if err := store.CommitResult(ctx, item.ID, "worker-1", bad, time.Now()); err == nil {
		t.Fatal("expected validation error for confidence > 1")
	}
	if err := store.CommitResult(ctx, item.ID, "worker-1", queue.Result{Confidence: 0.5}, time.Now()); err == nil {
		t.Fatal("expected validation error for empty label")
	}
}

func TestCommitFailureRecordsReason(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewPhoto(t, store, "photo-1", "", "a.jpg")
	if err := store.TryClaim(ctx, item.ID, "worker-1", time.Now()); err != nil {
		t.Fatalf("TryClaim: %v", err)
	}

	reason := queue.FailureReason{Kind: queue.FailureAdapterError, Detail: "model exploded"}
	if err := store.CommitFailure(ctx, item.ID, "worker-1", reason, time.Now()); err != nil {
		t.Fatalf("CommitFailure: %v", err)
	}

	failed, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if failed.Status != queue.StatusFailed {
		t.Errorf("status = %s", failed.Status)
	}
	if failed.FailureReason == nil || failed.FailureReason.Kind != queue.FailureAdapterError {
		t.Fatalf("failure reason = %+v", failed.FailureReason)
	}
	if failed.Result != nil {
		t.Errorf("result = %+v, want nil", failed.Result)
	}
	if failed.ClaimToken != "" {
		t.Errorf("claim token = %q, want cleared", failed.ClaimToken)
	}
}

func TestStaleCommitIsDiscardedWithoutMutation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewPhoto(t, store, "photo-1", "", "a.jpg")

	// First worker claims, then stalls long enough to be reclaimed.
	staleStart := time.Now().Add(-10 * time.Minute)
	if err := store.TryClaim(ctx, item.ID, "stale-worker", staleStart); err != nil {
		t.Fatalf("TryClaim: %v", err)
	}
	reclaimed, err := store.ReclaimStale(ctx, 5*time.Minute, time.Now())
	if err != nil {
		t.Fatalf("ReclaimStale: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("reclaimed = %d, want 1", reclaimed)
	}

	// A second worker claims and finishes the item.
	if err := store.TryClaim(ctx, item.ID, "fresh-worker", time.Now()); err != nil {
		t.Fatalf("TryClaim fresh: %v", err)
	}
	fresh := queue.Result{Label: "raccoon", Confidence: 0.7}
	if err := store.CommitResult(ctx, item.ID, "fresh-worker", fresh, time.Now()); err != nil {
		t.Fatalf("CommitResult fresh: %v", err)
	}

	// The stale worker's late commit must fail and change nothing.
	late := queue.Result{Label: "red fox", Confidence: 0.9}
	err = store.CommitResult(ctx, item.ID, "stale-worker", late, time.Now())
	if !errors.Is(err, queue.ErrStaleClaim) {
		t.Fatalf("error = %v, want ErrStaleClaim", err)
	}

	final, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if final.Result == nil || final.Result.Label != "raccoon" {
		t.Fatalf("result = %+v, stale commit must not overwrite", final.Result)
	}

	// Same for a stale failure commit.
	reason := queue.FailureReason{Kind: queue.FailureTimeout}
	err = store.CommitFailure(ctx, item.ID, "stale-worker", reason, time.Now())
	if !errors.Is(err, queue.ErrStaleClaim) {
		t.Fatalf("failure error = %v, want ErrStaleClaim", err)
	}
}

func TestTouchKeepsClaimFresh(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewPhoto(t, store, "photo-1", "", "a.jpg")

	claimTime := time.Now().Add(-10 * time.Minute)
	if err := store.TryClaim(ctx, item.ID, "worker-1", claimTime); err != nil {
		t.Fatalf("TryClaim: %v", err)
	}

	// Heartbeat moves updated_at forward, so the sweep passes it over.
	if err := store.Touch(ctx, item.ID, "worker-1", time.Now()); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	reclaimed, err := store.ReclaimStale(ctx, 5*time.Minute, time.Now())
	if err != nil {
		t.Fatalf("ReclaimStale: %v", err)
	}
	if reclaimed != 0 {
		t.Errorf("reclaimed = %d, want 0 after heartbeat", reclaimed)
	}
}

func TestTouchWithWrongTokenFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewPhoto(t, store, "photo-1", "", "a.jpg")
	if err := store.TryClaim(ctx, item.ID, "worker-1", time.Now()); err != nil {
		t.Fatalf("TryClaim: %v", err)
	}

	err := store.Touch(ctx, item.ID, "worker-2", time.Now())
	if !errors.Is(err, queue.ErrStaleClaim) {
		t.Fatalf("error = %v, want ErrStaleClaim", err)
	}
}

func TestReleaseReturnsToPendingWithAttempt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewPhoto(t, store, "photo-1", "", "a.jpg")
	if err := store.TryClaim(ctx, item.ID, "worker-1", time.Now()); err != nil {
		t.Fatalf("TryClaim: %v", err)
	}
	if err := store.Release(ctx, item.ID, "worker-1", time.Now()); err != nil {
		t.Fatalf("Release: %v", err)
	}

	released, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if released.Status != queue.StatusPending {
		t.Errorf("status = %s, want pending", released.Status)
	}
	if released.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", released.Attempts)
	}
	if released.ClaimToken != "" {
		t.Errorf("claim token = %q, want cleared", released.ClaimToken)
	}
}

func TestReclaimStaleLeavesFreshClaims(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	stale := testsupport.NewPhoto(t, store, "stale", "", "a.jpg")
	fresh := testsupport.NewPhoto(t, store, "fresh", "", "b.jpg")

	if err := store.TryClaim(ctx, stale.ID, "w1", time.Now().Add(-10*time.Minute)); err != nil {
		t.Fatalf("TryClaim stale: %v", err)
	}
	if err := store.TryClaim(ctx, fresh.ID, "w2", time.Now()); err != nil {
		t.Fatalf("TryClaim fresh: %v", err)
	}

	reclaimed, err := store.ReclaimStale(ctx, 5*time.Minute, time.Now())
	if err != nil {
		t.Fatalf("ReclaimStale: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("reclaimed = %d, want 1", reclaimed)
	}

	staleItem, _ := store.GetByID(ctx, stale.ID)
	freshItem, _ := store.GetByID(ctx, fresh.ID)
	if staleItem.Status != queue.StatusPending || staleItem.ClaimToken != "" {
		t.Errorf("stale item = %+v, want pending and unclaimed", staleItem)
	}
	if freshItem.Status != queue.StatusProcessing || freshItem.ClaimToken != "w2" {
		t.Errorf("fresh item = %+v, want untouched", freshItem)
	}
}

func TestRetryFailedResetsAttempts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewPhoto(t, store, "photo-1", "", "a.jpg")
	if err := store.TryClaim(ctx, item.ID, "w", time.Now()); err != nil {
		t.Fatalf("TryClaim: %v", err)
	}
	if err := store.Release(ctx, item.ID, "w", time.Now()); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := store.TryClaim(ctx, item.ID, "w", time.Now()); err != nil {
		t.Fatalf("TryClaim again: %v", err)
	}
	reason := queue.FailureReason{Kind: queue.FailurePayloadUnavailable}
	if err := store.CommitFailure(ctx, item.ID, "w", reason, time.Now()); err != nil {
		t.Fatalf("CommitFailure: %v", err)
	}

	retried, err := store.RetryFailed(ctx, item.ID)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if retried != 1 {
		t.Fatalf("retried = %d, want 1", retried)
	}

	reset, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reset.Status != queue.StatusPending {
		t.Errorf("status = %s, want pending", reset.Status)
	}
	if reset.Attempts != 0 {
		t.Errorf("attempts = %d, want reset to 0", reset.Attempts)
	}
	if reset.FailureReason != nil {
		t.Errorf("failure reason = %+v, want cleared", reset.FailureReason)
	}
}

func TestRetryFailedIgnoresNonFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewPhoto(t, store, "pending-1", "", "a.jpg")

	retried, err := store.RetryFailed(ctx, "pending-1")
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if retried != 0 {
		t.Errorf("retried = %d, want 0 for a pending item", retried)
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("photo-%d", i)
		testsupport.NewPhoto(t, store, id, "", "a.jpg")
		if err := store.TryClaim(ctx, id, "dead", time.Now()); err != nil {
			t.Fatalf("TryClaim: %v", err)
		}
	}
	testsupport.NewPhoto(t, store, "untouched", "", "b.jpg")

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[queue.StatusPending] != 4 || stats[queue.StatusProcessing] != 0 {
		t.Errorf("stats = %v", stats)
	}
}

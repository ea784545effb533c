package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fauna/internal/classifier"
	"fauna/internal/config"
	"fauna/internal/logging"
	"fauna/internal/payload"
	"fauna/internal/queue"
	"fauna/internal/testsupport"
	"fauna/internal/worker"
)

type fakeClassifier struct {
	mu      sync.Mutex
	calls   int
	predict func(ctx context.Context, image []byte) (classifier.Prediction, error)
}

func (f *fakeClassifier) Classify(ctx context.Context, image []byte) (classifier.Prediction, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.predict != nil {
		return f.predict(ctx, image)
	}
	return classifier.Prediction{Label: "red fox", Confidence: 0.9, ModelVersion: "test"}, nil
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fastConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 0
	cfg.Workflow.ErrorRetryInterval = 0
	cfg.Workflow.ReclaimInterval = 0
	return cfg
}

func newManager(t *testing.T, cfg *config.Config, store *queue.Store, cls classifier.Classifier) *worker.Manager {
	t.Helper()
	fetcher := payload.NewDirFetcher(cfg.Paths.UploadDir)
	return worker.NewManagerWith(cfg, store, logging.NewNop(), fetcher, cls)
}

func startManager(t *testing.T, mgr *worker.Manager) {
	t.Helper()
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(mgr.Stop)
}

func waitForTerminal(t *testing.T, store *queue.Store, id string) *queue.Item {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		item, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if item.Status.IsTerminal() {
			return item
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("item %s never reached a terminal status", id)
	return nil
}

func TestManagerClassifiesPendingItem(t *testing.T) {
	t.Parallel()

	cfg := fastConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ref := testsupport.WritePayload(t, cfg.Paths.UploadDir, "fox.jpg", nil)
	testsupport.NewPhoto(t, store, "item-1", "session-a", ref)

	cls := &fakeClassifier{predict: func(context.Context, []byte) (classifier.Prediction, error) {
		return classifier.Prediction{
			Label:        "red fox",
			Confidence:   0.93,
			Scores:       map[string]float64{"red fox": 0.93, "coyote": 0.05},
			ModelVersion: "v2.1",
		}, nil
	}}
	mgr := newManager(t, cfg, store, cls)
	startManager(t, mgr)

	item := waitForTerminal(t, store, "item-1")
	if item.Status != queue.StatusDone {
		t.Fatalf("status = %s, want done (failure: %v)", item.Status, item.FailureReason)
	}
	if item.Result == nil {
		t.Fatal("expected result on done item")
	}
	if item.Result.Label != "red fox" || item.Result.Confidence != 0.93 {
		t.Errorf("result = %+v", item.Result)
	}
	if item.Result.ModelVersion != "v2.1" {
		t.Errorf("model version = %q, want v2.1", item.Result.ModelVersion)
	}
	if item.ClaimToken != "" {
		t.Errorf("claim token = %q, want cleared", item.ClaimToken)
	}
	if item.FailureReason != nil {
		t.Errorf("failure reason = %v, want nil", item.FailureReason)
	}
}

func TestManagerRecordsAdapterFailure(t *testing.T) {
	t.Parallel()

	cfg := fastConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ref := testsupport.WritePayload(t, cfg.Paths.UploadDir, "blurry.jpg", nil)
	testsupport.NewPhoto(t, store, "item-1", "", ref)

	cls := &fakeClassifier{predict: func(context.Context, []byte) (classifier.Prediction, error) {
		return classifier.Prediction{}, errors.New("model exploded")
	}}
	mgr := newManager(t, cfg, store, cls)
	startManager(t, mgr)

	item := waitForTerminal(t, store, "item-1")
	if item.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed", item.Status)
	}
	if item.FailureReason == nil || item.FailureReason.Kind != queue.FailureAdapterError {
		t.Fatalf("failure reason = %v, want adapter_error", item.FailureReason)
	}
	if item.Result != nil {
		t.Errorf("result = %+v, want nil on failed item", item.Result)
	}
}

func TestManagerFailsOutOfRangePrediction(t *testing.T) {
	t.Parallel()

	cfg := fastConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ref := testsupport.WritePayload(t, cfg.Paths.UploadDir, "odd.jpg", nil)
	testsupport.NewPhoto(t, store, "item-1", "", ref)

	cls := &fakeClassifier{predict: func(context.Context, []byte) (classifier.Prediction, error) {
		return classifier.Prediction{Label: "red fox", Confidence: 1.5}, nil
	}}
	mgr := newManager(t, cfg, store, cls)
	startManager(t, mgr)

	// A nil-error prediction outside the result contract must still land
	// the item in a terminal state, not strand it in processing.
	item := waitForTerminal(t, store, "item-1")
	if item.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed", item.Status)
	}
	if item.FailureReason == nil || item.FailureReason.Kind != queue.FailureAdapterError {
		t.Fatalf("failure reason = %v, want adapter_error", item.FailureReason)
	}
	if item.Result != nil {
		t.Errorf("result = %+v, want nil on failed item", item.Result)
	}
	if item.ClaimToken != "" {
		t.Errorf("claim token = %q, want cleared", item.ClaimToken)
	}
}

func TestManagerFailsTimedOutClassification(t *testing.T) {
	t.Parallel()

	cfg := fastConfig(t)
	cfg.Classifier.TimeoutSeconds = 1
	store := testsupport.MustOpenStore(t, cfg)
	ref := testsupport.WritePayload(t, cfg.Paths.UploadDir, "slow.jpg", nil)
	testsupport.NewPhoto(t, store, "item-1", "", ref)

	cls := &fakeClassifier{predict: func(ctx context.Context, _ []byte) (classifier.Prediction, error) {
		<-ctx.Done()
		return classifier.Prediction{}, ctx.Err()
	}}
	mgr := newManager(t, cfg, store, cls)
	startManager(t, mgr)

	item := waitForTerminal(t, store, "item-1")
	if item.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed", item.Status)
	}
	if item.FailureReason == nil || item.FailureReason.Kind != queue.FailureTimeout {
		t.Fatalf("failure reason = %v, want timeout", item.FailureReason)
	}
}

func TestManagerRetriesThenFailsMissingPayload(t *testing.T) {
	t.Parallel()

	cfg := fastConfig(t)
	cfg.Workflow.MaxPayloadAttempts = 3
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewPhoto(t, store, "item-1", "", "never-uploaded.jpg")

	cls := &fakeClassifier{}
	mgr := newManager(t, cfg, store, cls)
	startManager(t, mgr)

	item := waitForTerminal(t, store, "item-1")
	if item.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed", item.Status)
	}
	if item.FailureReason == nil || item.FailureReason.Kind != queue.FailurePayloadUnavailable {
		t.Fatalf("failure reason = %v, want payload_unavailable", item.FailureReason)
	}
	if item.Attempts != cfg.Workflow.MaxPayloadAttempts-1 {
		t.Errorf("attempts = %d, want %d releases before the terminal failure",
			item.Attempts, cfg.Workflow.MaxPayloadAttempts-1)
	}
	if cls.callCount() != 0 {
		t.Errorf("classifier ran %d times for an unavailable payload", cls.callCount())
	}
}

func TestManagerProcessesEveryItemOnce(t *testing.T) {
	t.Parallel()

	cfg := fastConfig(t)
	cfg.Workflow.WorkerCount = 4
	cfg.Workflow.BatchSize = 2
	store := testsupport.MustOpenStore(t, cfg)

	const total = 12
	ids := make([]string, 0, total)
	for i := 0; i < total; i++ {
		id := "item-" + string(rune('a'+i))
		ref := testsupport.WritePayload(t, cfg.Paths.UploadDir, id+".jpg", nil)
		testsupport.NewPhoto(t, store, id, "bulk", ref)
		ids = append(ids, id)
	}

	cls := &fakeClassifier{}
	mgr := newManager(t, cfg, store, cls)
	startManager(t, mgr)

	for _, id := range ids {
		item := waitForTerminal(t, store, id)
		if item.Status != queue.StatusDone {
			t.Fatalf("item %s status = %s, want done", id, item.Status)
		}
	}

	// Every item classified exactly once: claims are exclusive, so the
	// call count must match the item count.
	if got := cls.callCount(); got != total {
		t.Errorf("classifier calls = %d, want %d", got, total)
	}
}

func TestManagerStatus(t *testing.T) {
	t.Parallel()

	cfg := fastConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := newManager(t, cfg, store, &fakeClassifier{})

	status := mgr.Status(context.Background())
	if status.Running {
		t.Error("manager should not report running before Start")
	}

	startManager(t, mgr)
	status = mgr.Status(context.Background())
	if !status.Running {
		t.Error("manager should report running after Start")
	}
	if status.QueueStats == nil {
		t.Error("expected queue stats in status summary")
	}

	mgr.Stop()
	status = mgr.Status(context.Background())
	if status.Running {
		t.Error("manager should not report running after Stop")
	}
}

func TestManagerStartTwice(t *testing.T) {
	t.Parallel()

	cfg := fastConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := newManager(t, cfg, store, &fakeClassifier{})
	startManager(t, mgr)

	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("second Start should fail while running")
	}
}

package classifier_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fauna/internal/classifier"
	"fauna/internal/config"
)

func TestClientClassify(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			t.Errorf("image part missing: %v", err)
		} else {
			file.Close()
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"label":"red fox","confidence":0.93,"scores":{"red fox":0.93,"coyote":0.05},"model_version":"v2.1"}`))
	}))
	defer server.Close()

	client := classifier.NewClient(config.Classifier{Endpoint: server.URL, ModelVersion: "v1.0"})
	pred, err := client.Classify(context.Background(), []byte("fake-image"))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if pred.Label != "red fox" {
		t.Errorf("label = %q, want %q", pred.Label, "red fox")
	}
	if pred.Confidence != 0.93 {
		t.Errorf("confidence = %v, want 0.93", pred.Confidence)
	}
	if pred.ModelVersion != "v2.1" {
		t.Errorf("model version = %q, want server-reported v2.1", pred.ModelVersion)
	}
	if len(pred.Scores) != 2 {
		t.Errorf("scores = %v, want two entries", pred.Scores)
	}
}

func TestClientClassifyFallsBackToConfiguredModelVersion(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"label":"raccoon","confidence":0.71}`))
	}))
	defer server.Close()

	client := classifier.NewClient(config.Classifier{Endpoint: server.URL, ModelVersion: "v1.0"})
	pred, err := client.Classify(context.Background(), []byte("fake-image"))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if pred.ModelVersion != "v1.0" {
		t.Errorf("model version = %q, want configured v1.0", pred.ModelVersion)
	}
}

func TestClientClassifyStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := classifier.NewClient(config.Classifier{Endpoint: server.URL})
	_, err := client.Classify(context.Background(), []byte("fake-image"))
	var statusErr *classifier.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want StatusError", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", statusErr.StatusCode)
	}
	if classifier.IsTimeout(err) {
		t.Error("status error should not classify as timeout")
	}
}

func TestClientClassifyModelError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"unsupported image format"}`))
	}))
	defer server.Close()

	client := classifier.NewClient(config.Classifier{Endpoint: server.URL})
	_, err := client.Classify(context.Background(), []byte("fake-image"))
	if err == nil {
		t.Fatal("expected error for model-reported failure")
	}
}

func TestClientClassifyTimeout(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		// Drain the body so the server watches for the client disconnect;
		// otherwise r.Context() is never canceled and Close deadlocks.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := classifier.NewClient(config.Classifier{Endpoint: server.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Classify(ctx, []byte("fake-image"))
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !classifier.IsTimeout(err) {
		t.Errorf("IsTimeout(%v) = false, want true", err)
	}
	select {
	case <-started:
	default:
		t.Error("server handler never ran")
	}
}

func TestClientClassifyEmptyPayload(t *testing.T) {
	t.Parallel()

	client := classifier.NewClient(config.Classifier{Endpoint: "http://127.0.0.1:1"})
	if _, err := client.Classify(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

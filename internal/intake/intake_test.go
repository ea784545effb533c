package intake_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fauna/internal/intake"
	"fauna/internal/logging"
	"fauna/internal/queue"
	"fauna/internal/testsupport"
)

func TestAcceptEnqueuesPendingItem(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := intake.NewService(store, cfg.Paths.UploadDir, logging.NewNop())

	item, err := svc.Accept(context.Background(), "session-a", "My Fox Photo.JPG", []byte("image-bytes"))
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if item.Status != queue.StatusPending {
		t.Errorf("status = %s, want pending", item.Status)
	}
	if item.ID == "" {
		t.Error("expected generated id")
	}
	if item.OwnerRef != "session-a" {
		t.Errorf("owner = %q", item.OwnerRef)
	}

	data, err := os.ReadFile(filepath.Join(cfg.Paths.UploadDir, item.PayloadRef))
	if err != nil {
		t.Fatalf("read stored payload: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Errorf("stored payload = %q", data)
	}

	loaded, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded.PayloadRef != item.PayloadRef {
		t.Errorf("payload ref = %q, want %q", loaded.PayloadRef, item.PayloadRef)
	}
}

func TestAcceptRejectsEmptyUpload(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := intake.NewService(store, cfg.Paths.UploadDir, logging.NewNop())

	_, err := svc.Accept(context.Background(), "", "fox.jpg", nil)
	if !errors.Is(err, intake.ErrEmptyUpload) {
		t.Fatalf("error = %v, want ErrEmptyUpload", err)
	}
}

func TestAcceptSanitizesHostileFilename(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := intake.NewService(store, cfg.Paths.UploadDir, logging.NewNop())

	item, err := svc.Accept(context.Background(), "", "../../etc/passwd", []byte("x"))
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	full := filepath.Join(cfg.Paths.UploadDir, item.PayloadRef)
	rel, err := filepath.Rel(cfg.Paths.UploadDir, full)
	if err != nil || rel != item.PayloadRef {
		t.Fatalf("payload ref %q escapes upload dir", item.PayloadRef)
	}
	if _, err := os.Stat(full); err != nil {
		t.Fatalf("stored payload missing: %v", err)
	}
}

func TestAcceptGeneratesUniqueNames(t *testing.T) {
	t.Parallel()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := intake.NewService(store, cfg.Paths.UploadDir, logging.NewNop())

	first, err := svc.Accept(context.Background(), "", "fox.jpg", []byte("a"))
	if err != nil {
		t.Fatalf("Accept first: %v", err)
	}
	second, err := svc.Accept(context.Background(), "", "fox.jpg", []byte("b"))
	if err != nil {
		t.Fatalf("Accept second: %v", err)
	}
	if first.PayloadRef == second.PayloadRef {
		t.Errorf("payload refs collided: %q", first.PayloadRef)
	}
}

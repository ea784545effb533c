// Package intake accepts uploaded images, stores them under the upload
// directory, and enqueues a pending work item for classification.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"fauna/internal/logging"
	"fauna/internal/queue"
)

// ErrEmptyUpload indicates the submitted image had no content.
var ErrEmptyUpload = errors.New("uploaded image is empty")

// Service persists uploads and creates their queue entries.
type Service struct {
	store     *queue.Store
	uploadDir string
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs an intake service writing into uploadDir.
func NewService(store *queue.Store, uploadDir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		store:     store,
		uploadDir: filepath.Clean(uploadDir),
		logger:    logger.With(logging.String(logging.FieldComponent, "intake")),
		now:       time.Now,
	}
}

// Accept stores the image bytes and enqueues a pending item. The returned
// item carries the generated id callers poll with.
func (s *Service) Accept(ctx context.Context, ownerRef, filename string, data []byte) (*queue.Item, error) {
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}

	name := uploadName(s.now().UTC(), filename)
	path := filepath.Join(s.uploadDir, name)
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure upload directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	item, err := s.store.Create(ctx, &queue.Item{
		ID:         uuid.NewString(),
		OwnerRef:   strings.TrimSpace(ownerRef),
		PayloadRef: name,
	})
	if err != nil {
		// The orphaned file is harmless but pointless without an item.
		_ = os.Remove(path)
		return nil, fmt.Errorf("enqueue upload: %w", err)
	}

	s.logger.Info("photo accepted",
		logging.String(logging.FieldItemID, item.ID),
		logging.String("payload_ref", name),
		logging.Int("payload_bytes", len(data)),
	)
	return item, nil
}

// uploadName builds a collision-resistant on-disk name: a UTC timestamp
// prefix plus a sanitized version of the client filename.
func uploadName(now time.Time, filename string) string {
	base := sanitizeFilename(filename)
	if base == "" {
		base = "upload"
	}
	return now.Format("20060102T150405.000000000") + "_" + base
}

func sanitizeFilename(filename string) string {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "._")
}

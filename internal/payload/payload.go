// Package payload resolves work-item payload references to image bytes
// stored under the configured upload directory.
package payload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnavailable indicates the referenced payload could not be read. The
// condition may be transient (slow filesystem, partially written upload), so
// callers typically retry a bounded number of times before failing the item.
var ErrUnavailable = errors.New("payload unavailable")

// Fetcher reads payload bytes for a work item.
type Fetcher interface {
	Fetch(ref string) ([]byte, error)
}

// DirFetcher resolves payload references as file names inside a base
// directory. References that escape the directory are rejected.
type DirFetcher struct {
	baseDir string
}

// NewDirFetcher returns a fetcher rooted at baseDir.
func NewDirFetcher(baseDir string) *DirFetcher {
	return &DirFetcher{baseDir: filepath.Clean(baseDir)}
}

// Resolve maps a payload reference to an absolute path under the base
// directory without touching the filesystem.
func (f *DirFetcher) Resolve(ref string) (string, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return "", fmt.Errorf("resolve payload: %w: empty reference", ErrUnavailable)
	}
	path := trimmed
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.baseDir, trimmed)
	}
	path = filepath.Clean(path)
	rel, err := filepath.Rel(f.baseDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("resolve payload: reference %q escapes upload directory", ref)
	}
	return path, nil
}

// Fetch reads the referenced payload. Missing or unreadable files are
// reported as ErrUnavailable.
func (f *DirFetcher) Fetch(ref string) ([]byte, error) {
	path, err := f.Resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload %s: %w: %v", ref, ErrUnavailable, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("read payload %s: %w: file is empty", ref, ErrUnavailable)
	}
	return data, nil
}

package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WritePayload drops an image payload file under the config upload directory
// and returns the reference a work item would carry.
func WritePayload(t testing.TB, uploadDir, name string, contents []byte) string {
	t.Helper()

	if len(contents) == 0 {
		contents = []byte("test-image")
	}
	path := filepath.Join(uploadDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return name
}

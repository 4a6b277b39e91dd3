// Package testsupport holds file-oriented helpers shared by package
// tests: BOM-aware readers, fixture tree construction and golden-file
// comparison.
package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadText reads a generated artifact as text, stripping the UTF-8 BOM
// and normalizing line endings.
func ReadText(t *testing.T, path string) string {
	t.Helper()
	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	payload = bytes.TrimPrefix(payload, utf8BOM)
	return string(bytes.ReplaceAll(payload, []byte("\r\n"), []byte("\n")))
}

// WriteTree materializes a file tree under dir. Keys are slash-separated
// relative paths; intermediate directories are created.
func WriteTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

// Golden compares got against the golden file at path. Running the tests
// with UPDATE_GOLDENS=1 rewrites the file instead of failing.
func Golden(t *testing.T, path, got string) {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(got), 0o644); err != nil {
			t.Fatalf("update golden %s: %v", path, err)
		}
		return
	}
	want, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden %s (run with UPDATE_GOLDENS=1 to create): %v", path, err)
	}
	if diff := cmp.Diff(string(want), got); diff != "" {
		t.Errorf("golden mismatch for %s (-want +got):\n%s", path, diff)
	}
}

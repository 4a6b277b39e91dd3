package generate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ModuleExtension is the file extension of emitted handler modules.
const ModuleExtension = "bsl"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Artifact is one file of the output tree. Path is relative to the output
// directory and always slash-separated. XML artifacts get the whitespace
// normalization pass; every text artifact gets a BOM.
type Artifact struct {
	Path    string
	Content []byte
	Binary  bool
	XML     bool
}

// TextArtifact builds a BOM-prefixed text artifact.
func TextArtifact(path, content string, xml bool) Artifact {
	return Artifact{Path: path, Content: []byte(content), XML: xml}
}

var (
	tagBreakRe = regexp.MustCompile(`>(\t|<)`)
	blankRunRe = regexp.MustCompile(`\n{3,}`)
	trailingWS = regexp.MustCompile(`[ \t]+\n`)
)

// NormalizeXML reflows rendered XML the way the designer's own export
// does: every tag starts on its own line and runs of blank lines collapse.
func NormalizeXML(s string) string {
	s = tagBreakRe.ReplaceAllString(s, ">\n$1")
	s = trailingWS.ReplaceAllString(s, "\n")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return s
}

// Writer materializes an artifact list under the output directory. The
// tree is built in a temporary sibling directory first and swapped into
// place only when every file wrote cleanly.
type Writer struct {
	logger *slog.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWriterLogger sets the writer's logger.
func WithWriterLogger(l *slog.Logger) WriterOption {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWriter returns a Writer with defaults applied.
func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w
}

// Write places the artifacts under outDir atomically: a partial failure
// leaves any previous output untouched.
func (w *Writer) Write(ctx context.Context, outDir string, artifacts []Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	parent := filepath.Dir(outDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("generate: create output parent: %w", err)
	}
	tmp, err := os.MkdirTemp(parent, ".procgen-*")
	if err != nil {
		return fmt.Errorf("generate: create staging dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.writeOne(tmp, a); err != nil {
			return err
		}
	}
	return w.swap(tmp, outDir)
}

func (w *Writer) writeOne(root string, a Artifact) error {
	target := filepath.Join(root, filepath.FromSlash(a.Path))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("generate: create dir for %s: %w", a.Path, err)
	}
	content := a.Content
	if !a.Binary {
		text := string(content)
		if a.XML {
			text = NormalizeXML(text)
		}
		content = append(append([]byte{}, utf8BOM...), []byte(text)...)
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return fmt.Errorf("generate: write %s: %w", a.Path, err)
	}
	w.logger.Debug("artifact written", "path", a.Path, "bytes", len(content))
	return nil
}

// swap replaces dst with src, keeping the old tree until the new one is in
// place.
func (w *Writer) swap(src, dst string) error {
	backup := dst + ".previous"
	_ = os.RemoveAll(backup)
	if _, err := os.Stat(dst); err == nil {
		if err := os.Rename(dst, backup); err != nil {
			return fmt.Errorf("generate: stash previous output: %w", err)
		}
	}
	if err := os.Rename(src, dst); err != nil {
		// Put the old tree back, the failed staging dir is cleaned by the
		// caller's defer.
		_ = os.Rename(backup, dst)
		return fmt.Errorf("generate: move output into place: %w", err)
	}
	_ = os.RemoveAll(backup)
	return nil
}

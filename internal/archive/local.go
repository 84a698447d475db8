package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/haeun-dev/knitcrawl/internal/pipeline"
)

// Local writes raw documents to the local filesystem.
type Local struct {
	baseDir string
	prefix  string
}

// NewLocal creates a filesystem-backed archiver rooted at baseDir.
func NewLocal(baseDir, prefix string) (*Local, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("archive base directory is required")
	}
	info, err := os.Stat(baseDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(baseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create archive directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat archive directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("archive path %q is not a directory", baseDir)
	}
	return &Local{baseDir: baseDir, prefix: prefix}, nil
}

// Archive writes the document text and returns a file:// URI.
func (l *Local) Archive(_ context.Context, runID string, doc pipeline.RawDocument) (string, error) {
	rel := objectPath(l.prefix, runID, doc.URL)
	full := filepath.Join(l.baseDir, filepath.FromSlash(rel))

	// The key is hash-derived, but keep the traversal check anyway.
	cleanBase := filepath.Clean(l.baseDir)
	if !strings.HasPrefix(filepath.Clean(full), cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("archive path %q escapes base directory", rel)
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", fmt.Errorf("create archive subdirectory: %w", err)
	}
	if err := os.WriteFile(full, []byte(doc.Text), 0o640); err != nil {
		return "", fmt.Errorf("write archive file: %w", err)
	}
	return "file://" + full, nil
}

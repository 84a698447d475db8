package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haeun-dev/knitcrawl/internal/pipeline"
)

func TestLocalArchiveWritesDocument(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	local, err := NewLocal(dir, "raw")
	require.NoError(t, err)

	doc := pipeline.RawDocument{
		URL:  "https://blog.naver.com/alpha/100",
		Text: "라라뜨개 (연분홍) 4mm 바늘",
	}
	uri, err := local.Archive(context.Background(), "run-1", doc)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "file://"))

	path := strings.TrimPrefix(uri, "file://")
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, doc.Text, string(body))

	// The key is prefix/runID/<sha256 of url>.txt.
	rel, err := filepath.Rel(dir, path)
	require.NoError(t, err)
	parts := strings.Split(filepath.ToSlash(rel), "/")
	require.Len(t, parts, 3)
	require.Equal(t, "raw", parts[0])
	require.Equal(t, "run-1", parts[1])
	require.True(t, strings.HasSuffix(parts[2], ".txt"))
}

func TestLocalArchiveStableKeyPerURL(t *testing.T) {
	t.Parallel()

	local, err := NewLocal(t.TempDir(), "")
	require.NoError(t, err)

	doc := pipeline.RawDocument{URL: "https://blog.naver.com/alpha/100", Text: "v1"}
	first, err := local.Archive(context.Background(), "run-1", doc)
	require.NoError(t, err)

	doc.Text = "v2"
	second, err := local.Archive(context.Background(), "run-1", doc)
	require.NoError(t, err)
	require.Equal(t, first, second)

	body, err := os.ReadFile(strings.TrimPrefix(second, "file://"))
	require.NoError(t, err)
	require.Equal(t, "v2", string(body))
}

func TestNewLocalCreatesMissingDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "archive")
	_, err := NewLocal(dir, "raw")
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestNewLocalRejectsEmptyAndFilePaths(t *testing.T) {
	t.Parallel()

	_, err := NewLocal("  ", "raw")
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	_, err = NewLocal(file, "raw")
	require.Error(t, err)
}

func TestObjectPath(t *testing.T) {
	t.Parallel()

	withPrefix := objectPath("raw", "run-1", "https://blog.naver.com/alpha/100")
	require.True(t, strings.HasPrefix(withPrefix, "raw/run-1/"))
	require.True(t, strings.HasSuffix(withPrefix, ".txt"))

	noPrefix := objectPath("", "run-1", "https://blog.naver.com/alpha/100")
	require.True(t, strings.HasPrefix(noPrefix, "run-1/"))

	// Same URL, same key; different URL, different key.
	require.Equal(t, withPrefix, objectPath("raw", "run-1", "https://blog.naver.com/alpha/100"))
	require.NotEqual(t, withPrefix, objectPath("raw", "run-1", "https://blog.naver.com/beta/200"))
}

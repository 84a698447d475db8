package archive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/haeun-dev/knitcrawl/internal/pipeline"
)

// GCS writes raw documents to a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS creates a GCS-backed archiver.
func NewGCS(client *storage.Client, bucket, prefix string) (*GCS, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

// Archive uploads the document text and returns a gs:// URI.
func (g *GCS) Archive(ctx context.Context, runID string, doc pipeline.RawDocument) (string, error) {
	key := objectPath(g.prefix, runID, doc.URL)

	writer := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	writer.ContentType = "text/plain; charset=utf-8"
	if _, err := io.Copy(writer, strings.NewReader(doc.Text)); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return "", fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", g.bucket, key), nil
}

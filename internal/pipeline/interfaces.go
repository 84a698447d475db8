package pipeline

import (
	"context"
	"time"
)

// Collector discovers candidate post URLs for a query, deduplicated and in
// first-seen order.
type Collector interface {
	Collect(ctx context.Context, query SearchQuery) ([]string, error)
}

// Fetcher resolves the authoritative text content of one post URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (RawDocument, error)
}

// Extractor turns raw text into a fixed-shape record. It never fails;
// absent fields stay empty.
type Extractor func(text string) ExtractedRecord

// Store is the idempotent persistence gateway keyed by URL.
type Store interface {
	Exists(ctx context.Context, url string) (bool, error)
	Upsert(ctx context.Context, url, keyword string, record ExtractedRecord) (int64, error)
}

// Archiver optionally keeps raw documents around for later inspection.
type Archiver interface {
	Archive(ctx context.Context, runID string, doc RawDocument) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Package postgres provides the Postgres-backed extraction store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/haeun-dev/knitcrawl/internal/pipeline"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ExtractionStoreConfig controls the Postgres connection pool.
type ExtractionStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// ExtractionStore persists extraction rows keyed uniquely by URL.
//
// Expected schema:
//
//	CREATE TABLE extractions (
//	    id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//	    url TEXT NOT NULL UNIQUE,
//	    keyword TEXT NOT NULL,
//	    extracted_sentence JSONB NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type ExtractionStore struct {
	pool  pgxPool
	table string
}

// NewExtractionStore connects a pool and returns the store.
func NewExtractionStore(ctx context.Context, cfg ExtractionStoreConfig) (*ExtractionStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "extractions"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ExtractionStore{pool: pool, table: table}, nil
}

// NewExtractionStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewExtractionStoreWithPool(pool pgxPool, table string) (*ExtractionStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "extractions"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ExtractionStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *ExtractionStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Exists reports whether a row for the exact URL is already stored.
func (s *ExtractionStore) Exists(ctx context.Context, url string) (bool, error) {
	if s == nil || s.pool == nil {
		return false, fmt.Errorf("extraction store is not configured")
	}
	query := fmt.Sprintf(`SELECT id FROM %s WHERE url = $1`, s.table)

	var id int64
	err := s.pool.QueryRow(ctx, query, url).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("query url: %w", err)
	default:
		return true, nil
	}
}

// storedPayload is the JSONB shape written for each row. Project is a
// keyword/label dimension, not extracted content, and is deliberately
// excluded.
type storedPayload struct {
	Yarn   string `json:"yarn"`
	Needle string `json:"needle"`
}

// Upsert writes a row keyed by URL. A second upsert for the same URL
// replaces the stored fields rather than erroring or duplicating.
func (s *ExtractionStore) Upsert(ctx context.Context, url, keyword string, record pipeline.ExtractedRecord) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("extraction store is not configured")
	}
	payload, err := json.Marshal(storedPayload{Yarn: record.Yarn, Needle: record.Needle})
	if err != nil {
		return 0, fmt.Errorf("marshal payload: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (url, keyword, extracted_sentence)
VALUES ($1, $2, $3)
ON CONFLICT (url) DO UPDATE SET
	keyword = EXCLUDED.keyword,
	extracted_sentence = EXCLUDED.extracted_sentence,
	updated_at = NOW()
RETURNING id`, s.table)

	var id int64
	if err := s.pool.QueryRow(ctx, query, url, keyword, payload).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert extraction: %w", err)
	}
	return id, nil
}

// StoredExtraction is one row read back from the store.
type StoredExtraction struct {
	ID        int64
	URL       string
	Keyword   string
	Yarn      string
	Needle    string
	CreatedAt time.Time
}

// ListByKeyword returns stored rows, newest first. An empty keyword returns
// rows for all keywords.
func (s *ExtractionStore) ListByKeyword(ctx context.Context, keyword string, limit int) ([]StoredExtraction, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("extraction store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}

	var (
		rows pgx.Rows
		err  error
	)
	if keyword == "" {
		query := fmt.Sprintf(`
SELECT id, url, keyword, extracted_sentence, created_at
FROM %s ORDER BY id DESC LIMIT $1`, s.table)
		rows, err = s.pool.Query(ctx, query, limit)
	} else {
		query := fmt.Sprintf(`
SELECT id, url, keyword, extracted_sentence, created_at
FROM %s WHERE keyword = $1 ORDER BY id DESC LIMIT $2`, s.table)
		rows, err = s.pool.Query(ctx, query, keyword, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list extractions: %w", err)
	}
	defer rows.Close()

	var out []StoredExtraction
	for rows.Next() {
		var (
			row     StoredExtraction
			payload []byte
		)
		if err := rows.Scan(&row.ID, &row.URL, &row.Keyword, &payload, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan extraction: %w", err)
		}
		var fields storedPayload
		if err := json.Unmarshal(payload, &fields); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		row.Yarn = fields.Yarn
		row.Needle = fields.Needle
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate extractions: %w", err)
	}
	return out, nil
}

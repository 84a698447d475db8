// Package pipeline defines core types shared across subsystems.
package pipeline

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// SearchQuery captures the parameters of one collection run. It is built
// once per invocation and never mutated.
type SearchQuery struct {
	Keyword    string
	MaxResults int
	MaxPages   int
}

// Validate enforces the query invariants before any network activity.
func (q SearchQuery) Validate() error {
	if strings.TrimSpace(q.Keyword) == "" {
		return fmt.Errorf("keyword is required")
	}
	if q.MaxResults <= 0 {
		return fmt.Errorf("max results must be > 0")
	}
	if q.MaxPages <= 0 {
		return fmt.Errorf("max pages must be > 0")
	}
	return nil
}

// RawDocument is the plain-text content resolved from one fetch, paired
// with the URL it came from and the frame URLs inspected on the way.
type RawDocument struct {
	URL           string
	Text          string
	FramesVisited []string
	UsedFrame     bool
	FetchedAt     time.Time
	Duration      time.Duration
}

// ExtractedRecord is the fixed-shape extraction result. Empty string means
// the field was not found; extraction itself never fails.
type ExtractedRecord struct {
	Yarn    string `json:"yarn,omitempty"`
	Needle  string `json:"needle,omitempty"`
	Project string `json:"project,omitempty"`
}

// Valid reports whether the record may be persisted: yarn and needle must
// both be present with more than one character. Project is never required.
func (r ExtractedRecord) Valid() bool {
	return utf8.RuneCountInString(r.Yarn) > 1 && utf8.RuneCountInString(r.Needle) > 1
}

// Outcome is the terminal state of one candidate URL.
type Outcome string

// Terminal candidate outcomes.
const (
	OutcomePersisted Outcome = "persisted"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

// RunSummary aggregates candidate outcomes for one pipeline invocation.
type RunSummary struct {
	RunID     string
	Keyword   string
	Total     int
	Persisted int
	Skipped   int
	Rejected  int
	Failed    int
}

// Count records one terminal outcome.
func (s *RunSummary) Count(o Outcome) {
	switch o {
	case OutcomePersisted:
		s.Persisted++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeRejected:
		s.Rejected++
	case OutcomeFailed:
		s.Failed++
	}
}

func (s RunSummary) String() string {
	return fmt.Sprintf("total=%d persisted=%d skipped=%d rejected=%d failed=%d",
		s.Total, s.Persisted, s.Skipped, s.Rejected, s.Failed)
}

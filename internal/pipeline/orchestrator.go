package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/haeun-dev/knitcrawl/internal/metrics"
)

// Config controls Orchestrator behavior.
type Config struct {
	// CandidateDelay paces fetches of individual posts. Values below one
	// second are raised to one second to stay polite with the provider.
	CandidateDelay time.Duration
}

// Orchestrator drives one collect-fetch-extract-persist run. Candidates are
// processed strictly one at a time; the only state crossing candidate
// boundaries is the accumulating RunSummary.
type Orchestrator struct {
	collector Collector
	fetcher   Fetcher
	extract   Extractor
	store     Store
	archiver  Archiver
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// New constructs an Orchestrator. The archiver may be nil.
func New(
	collector Collector,
	fetcher Fetcher,
	extract Extractor,
	store Store,
	archiver Archiver,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.CandidateDelay < time.Second {
		cfg.CandidateDelay = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		collector: collector,
		fetcher:   fetcher,
		extract:   extract,
		store:     store,
		archiver:  archiver,
		limiter:   rate.NewLimiter(rate.Every(cfg.CandidateDelay), 1),
		logger:    logger,
	}
}

// Run executes the pipeline for one query and returns the summary. The
// summary is valid even when Run returns a cancellation error: whatever was
// counted before the interrupt is preserved.
func (o *Orchestrator) Run(ctx context.Context, query SearchQuery) (RunSummary, error) {
	summary := RunSummary{RunID: uuid.NewString(), Keyword: query.Keyword}
	if err := query.Validate(); err != nil {
		return summary, fmt.Errorf("invalid query: %w", err)
	}

	log := o.logger.With(zap.String("run_id", summary.RunID), zap.String("keyword", query.Keyword))
	log.Info("collecting candidates",
		zap.Int("max_results", query.MaxResults),
		zap.Int("max_pages", query.MaxPages),
	)

	urls, err := o.collector.Collect(ctx, query)
	if err != nil {
		return summary, fmt.Errorf("collect candidates: %w", err)
	}
	summary.Total = len(urls)
	if len(urls) == 0 {
		log.Warn("search returned no candidates")
		return summary, nil
	}
	log.Info("candidates collected", zap.Int("count", len(urls)))

	for i, url := range urls {
		// Stop before the next candidate on interrupt; mid-candidate work
		// is allowed to finish.
		if err := o.limiter.Wait(ctx); err != nil {
			return summary, fmt.Errorf("pacing wait: %w", err)
		}
		outcome := o.processCandidate(ctx, summary.RunID, query.Keyword, url)
		summary.Count(outcome)
		metrics.CandidateFinished(string(outcome))
		log.Info("candidate finished",
			zap.Int("index", i+1),
			zap.Int("total", len(urls)),
			zap.String("url", url),
			zap.String("outcome", string(outcome)),
		)
	}

	return summary, nil
}

func (o *Orchestrator) processCandidate(ctx context.Context, runID, keyword, url string) Outcome {
	log := o.logger.With(zap.String("run_id", runID), zap.String("url", url))

	known, err := o.store.Exists(ctx, url)
	if err != nil {
		// A failed point query degrades to re-fetching; the upsert keeps
		// that harmless.
		log.Warn("existence check failed, treating as new", zap.Error(err))
	} else if known {
		return OutcomeSkipped
	}

	doc, err := o.fetcher.Fetch(ctx, url)
	if err != nil {
		log.Error("fetch failed", zap.Error(err))
		return OutcomeFailed
	}
	metrics.FetchObserved(doc.Duration.Seconds())
	o.archiveDoc(ctx, runID, doc, log)

	record := o.extract(doc.Text)
	if !record.Valid() {
		log.Info("record rejected, yarn and needle are both required",
			zap.Bool("has_yarn", record.Yarn != ""),
			zap.Bool("has_needle", record.Needle != ""),
		)
		return OutcomeRejected
	}

	id, err := o.store.Upsert(ctx, url, keyword, record)
	if err != nil {
		log.Error("persist failed", zap.Error(err))
		return OutcomeFailed
	}
	log.Info("persisted",
		zap.Int64("id", id),
		zap.String("yarn", preview(record.Yarn, 30)),
		zap.String("needle", preview(record.Needle, 30)),
	)
	return OutcomePersisted
}

func (o *Orchestrator) archiveDoc(ctx context.Context, runID string, doc RawDocument, log *zap.Logger) {
	if o.archiver == nil {
		return
	}
	uri, err := o.archiver.Archive(ctx, runID, doc)
	if err != nil {
		log.Warn("archive failed", zap.Error(err))
		return
	}
	log.Debug("raw document archived", zap.String("uri", uri))
}

func preview(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

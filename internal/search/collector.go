// Package search collects candidate post URLs from Naver blog search.
package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/haeun-dev/knitcrawl/internal/metrics"
	"github.com/haeun-dev/knitcrawl/internal/pipeline"
)

// PageLoader renders one URL and returns its HTML. The search pages are
// loaded through the same headless browser as post content.
type PageLoader interface {
	LoadHTML(ctx context.Context, url string) (string, error)
}

// Config controls the Collector.
type Config struct {
	// BaseURL is the search endpoint. Defaults to Naver blog search.
	BaseURL string
	// PageSize is the provider's pagination unit, used for the start
	// offset arithmetic. Defaults to 10.
	PageSize int
	// PageDelay paces successive search page loads. Values below one
	// second are raised to one second.
	PageDelay time.Duration
}

const defaultBaseURL = "https://search.naver.com/search.naver"

// Collector walks paginated search results and returns candidate post URLs,
// deduplicated in first-seen order.
type Collector struct {
	loader  PageLoader
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New constructs a Collector.
func New(loader PageLoader, cfg Config, logger *zap.Logger) *Collector {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	if cfg.PageDelay < time.Second {
		cfg.PageDelay = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		loader:  loader,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.PageDelay), 1),
		logger:  logger,
	}
}

// Collect scans up to query.MaxPages result pages and stops early once
// query.MaxResults candidates are found. A page that fails to load counts
// as zero results; only cancellation aborts the scan.
func (c *Collector) Collect(ctx context.Context, query pipeline.SearchQuery) ([]string, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	urls := make([]string, 0, query.MaxResults)

	for page := 1; page <= query.MaxPages && len(urls) < query.MaxResults; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return urls, fmt.Errorf("pacing wait: %w", err)
		}

		start := (page-1)*c.cfg.PageSize + 1
		pageURL := c.searchURL(query.Keyword, start)
		html, err := c.loader.LoadHTML(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return urls, ctx.Err()
			}
			c.logger.Warn("search page load failed",
				zap.Int("page", page),
				zap.Int("start", start),
				zap.Error(err),
			)
			continue
		}
		metrics.SearchPageScanned()

		added := c.scanLinks(html, seen, &urls, query.MaxResults)
		c.logger.Debug("search page scanned",
			zap.Int("page", page),
			zap.Int("start", start),
			zap.Int("new_candidates", added),
		)
	}

	return urls, nil
}

func (c *Collector) searchURL(keyword string, start int) string {
	v := url.Values{}
	v.Set("where", "blog")
	v.Set("query", keyword)
	v.Set("start", strconv.Itoa(start))
	return c.cfg.BaseURL + "?" + v.Encode()
}

func (c *Collector) scanLinks(html string, seen map[string]struct{}, urls *[]string, max int) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		c.logger.Warn("parse search page failed", zap.Error(err))
		return 0
	}

	added := 0
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		canon, ok := Canonicalize(href)
		if !ok {
			return true
		}
		if _, dup := seen[canon]; dup {
			return true
		}
		seen[canon] = struct{}{}
		*urls = append(*urls, canon)
		added++
		return len(*urls) < max
	})
	return added
}

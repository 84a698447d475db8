// Package content loads post pages with a headless browser and resolves
// their authoritative text, whether it lives in the root document or a
// nested frame.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/haeun-dev/knitcrawl/internal/pipeline"
)

// Config controls the behavior of the headless browser.
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
	// FrameMarkers identify the sub-frame hosting article bodies.
	FrameMarkers []string
}

var defaultFrameMarkers = []string{"mainFrame", "PostView"}

// Browser drives headless Chrome via chromedp. One Browser owns one exec
// allocator; every fetch runs in its own tab with its own timeout.
type Browser struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
	clock       pipeline.Clock
	logger      *zap.Logger
}

// New creates a Browser backed by a fresh chromedp exec allocator.
func New(cfg Config, clock pipeline.Clock, logger *zap.Logger) (*Browser, error) {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	if len(cfg.FrameMarkers) == 0 {
		cfg.FrameMarkers = defaultFrameMarkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Browser{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		clock:       clock,
		logger:      logger,
	}, nil
}

// Close cancels the allocator context.
func (b *Browser) Close() {
	b.allocCancel()
}

// Fetch navigates to url and resolves the post's text content. The frame
// source is probed first; the root body is the fallback, because provider
// pages may or may not use the nested layout depending on template version.
func (b *Browser) Fetch(ctx context.Context, url string) (pipeline.RawDocument, error) {
	start := b.clock.Now()

	var res resolved
	err := b.run(ctx, url, chromedp.ActionFunc(func(taskCtx context.Context) error {
		sources := []ContentSource{
			frameSource{markers: b.cfg.FrameMarkers},
			rootSource{},
		}
		var frames []string
		for _, src := range sources {
			r, err := src.Resolve(taskCtx)
			if err != nil {
				b.logger.Debug("content source failed",
					zap.String("source", src.Name()),
					zap.String("url", url),
					zap.Error(err),
				)
				continue
			}
			if len(r.frames) > 0 {
				frames = r.frames
			}
			if strings.TrimSpace(r.text) != "" {
				r.frames = frames
				res = r
				return nil
			}
		}
		res.frames = frames
		return nil
	}))
	if err != nil {
		return pipeline.RawDocument{}, b.classify(url, err)
	}
	if strings.TrimSpace(res.text) == "" {
		return pipeline.RawDocument{}, &FetchError{URL: url, Reason: ReasonNoContent}
	}

	return pipeline.RawDocument{
		URL:           url,
		Text:          res.text,
		FramesVisited: res.frames,
		UsedFrame:     res.frame,
		FetchedAt:     start,
		Duration:      b.clock.Now().Sub(start),
	}, nil
}

// LoadHTML navigates to url and returns the rendered document HTML. The
// search collector uses this to scan result pages.
func (b *Browser) LoadHTML(ctx context.Context, url string) (string, error) {
	var html string
	err := b.run(ctx, url, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if err != nil {
		return "", b.classify(url, err)
	}
	return html, nil
}

// run opens a fresh tab, navigates, waits for DOM readiness plus a short
// settle window, then executes extra actions. Waiting on full network idle
// is unreliable on pages with long-polling widgets, so readiness plus the
// settle sleep stands in for it.
func (b *Browser) run(ctx context.Context, url string, extra ...chromedp.Action) error {
	tabCtx, cancelTab := chromedp.NewContext(b.allocator)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, b.cfg.NavigationTimeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	actions := []chromedp.Action{
		b.networkSetupAction(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
	}
	actions = append(actions, extra...)

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

func (b *Browser) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if b.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(b.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

func (b *Browser) classify(url string, err error) error {
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{URL: url, Reason: ReasonTimeout, Err: err}
	}
	return &FetchError{URL: url, Reason: ReasonNavigation, Err: err}
}

// forwardCancel propagates cancellation of the caller's context into the
// chromedp task context.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

package content

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// ContentSource resolves the body text of the page currently loaded in a
// tab. Implementations differ in where they look; Resolve runs inside a
// chromedp action context.
type ContentSource interface {
	Name() string
	Resolve(ctx context.Context) (resolved, error)
}

type resolved struct {
	text   string
	frames []string
	frame  bool
}

// frameSource extracts text from the sub-frame hosting the article body.
// Naver blog posts render the post inside an iframe whose URL carries a
// mainFrame/PostView marker; older templates render directly into the root
// document, so callers fall back to rootSource when no marker frame exists.
type frameSource struct {
	markers []string
}

func (s frameSource) Name() string { return "frame" }

func (s frameSource) Resolve(ctx context.Context) (resolved, error) {
	tree, err := page.GetFrameTree().Do(ctx)
	if err != nil {
		return resolved{}, fmt.Errorf("frame tree: %w", err)
	}

	frames := flattenFrames(tree)
	visited := make([]string, 0, len(frames))
	for _, f := range frames {
		visited = append(visited, f.URL)
	}

	for _, f := range frames {
		if !s.matches(f.URL) {
			continue
		}
		text, err := frameInnerText(ctx, f.ID)
		if err != nil {
			// Another frame may still match; the root body remains the
			// final fallback.
			continue
		}
		if strings.TrimSpace(text) != "" {
			return resolved{text: text, frames: visited, frame: true}, nil
		}
	}
	return resolved{frames: visited}, nil
}

func (s frameSource) matches(frameURL string) bool {
	for _, marker := range s.markers {
		if strings.Contains(frameURL, marker) {
			return true
		}
	}
	return false
}

// rootSource extracts the visible text of the root document body.
type rootSource struct{}

func (rootSource) Name() string { return "root" }

func (rootSource) Resolve(ctx context.Context) (resolved, error) {
	var text string
	if err := chromedp.Text("body", &text, chromedp.ByQuery).Do(ctx); err != nil {
		return resolved{}, fmt.Errorf("root body text: %w", err)
	}
	return resolved{text: text}, nil
}

func flattenFrames(tree *page.FrameTree) []*cdp.Frame {
	if tree == nil {
		return nil
	}
	var frames []*cdp.Frame
	var walk func(t *page.FrameTree)
	walk = func(t *page.FrameTree) {
		if t.Frame != nil {
			frames = append(frames, t.Frame)
		}
		for _, child := range t.ChildFrames {
			walk(child)
		}
	}
	walk(tree)
	return frames
}

// frameInnerText evaluates document.body.innerText inside the given frame
// via an isolated world, which works for same-origin iframes without
// touching the page's own scripts.
func frameInnerText(ctx context.Context, frameID cdp.FrameID) (string, error) {
	execID, err := page.CreateIsolatedWorld(frameID).Do(ctx)
	if err != nil {
		return "", fmt.Errorf("isolated world: %w", err)
	}
	obj, exc, err := runtime.Evaluate(`document.body ? document.body.innerText : ""`).
		WithContextID(execID).
		WithReturnByValue(true).
		Do(ctx)
	if err != nil {
		return "", fmt.Errorf("evaluate frame text: %w", err)
	}
	if exc != nil {
		return "", fmt.Errorf("evaluate frame text: %s", exc.Text)
	}
	if obj == nil || obj.Value == nil {
		return "", nil
	}
	var text string
	if err := json.Unmarshal(obj.Value, &text); err != nil {
		return "", fmt.Errorf("decode frame text: %w", err)
	}
	return text, nil
}

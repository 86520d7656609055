package rod

import (
	"context"
	"fmt"

	"github.com/fwojciec/adharvest"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Ensure Renderer implements adharvest.Renderer at compile time.
var _ adharvest.Renderer = (*Renderer)(nil)

// Renderer opens one stealth-patched tab per session.
type Renderer struct {
	manager *BrowserManager
}

// NewRenderer creates a Renderer over manager. Closing the Renderer closes
// the manager.
func NewRenderer(manager *BrowserManager) *Renderer {
	return &Renderer{manager: manager}
}

// Open creates a fresh tab with the stealth script installed before any
// document loads.
func (r *Renderer) Open(ctx context.Context) (adharvest.RenderSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	browser, err := r.manager.Browser()
	if err != nil {
		return nil, err
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	r.manager.IncrementPageCount()

	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("apply stealth script: %w", err)
	}

	return &session{page: page}, nil
}

// Close releases the browser.
func (r *Renderer) Close() error {
	return r.manager.Close()
}

// ResourceType maps a resource kind onto the CDP resource type.
func ResourceType(kind adharvest.ResourceKind) (proto.NetworkResourceType, bool) {
	switch kind {
	case adharvest.ResourceImage:
		return proto.NetworkResourceTypeImage, true
	case adharvest.ResourceStylesheet:
		return proto.NetworkResourceTypeStylesheet, true
	case adharvest.ResourceFont:
		return proto.NetworkResourceTypeFont, true
	case adharvest.ResourceMedia:
		return proto.NetworkResourceTypeMedia, true
	default:
		return "", false
	}
}

var _ adharvest.RenderSession = (*session)(nil)

type session struct {
	page   *rod.Page
	router *rod.HijackRouter
}

func (s *session) Block(ctx context.Context, kinds ...adharvest.ResourceKind) error {
	if len(kinds) == 0 {
		return nil
	}
	router := s.page.Context(ctx).HijackRequests()
	for _, kind := range kinds {
		rt, ok := ResourceType(kind)
		if !ok {
			return adharvest.Errorf(adharvest.EINVALID, "unknown resource kind %q", kind)
		}
		err := router.Add("*", rt, func(h *rod.Hijack) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		})
		if err != nil {
			return fmt.Errorf("block %s: %w", kind, err)
		}
	}
	go router.Run()
	s.router = router
	return nil
}

func (s *session) Navigate(ctx context.Context, url string) error {
	page := s.page.Context(ctx)
	wait := page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := page.Navigate(url); err != nil {
		return err
	}
	wait()
	return ctx.Err()
}

func (s *session) WaitFor(ctx context.Context, selector string) error {
	_, err := s.page.Context(ctx).Element(selector)
	return err
}

func (s *session) Scroll(ctx context.Context) error {
	_, err := s.page.Context(ctx).Eval(`() => window.scrollBy(0, window.innerHeight)`)
	return err
}

func (s *session) HTML(ctx context.Context) (string, error) {
	return s.page.Context(ctx).HTML()
}

func (s *session) Close() error {
	if s.router != nil {
		_ = s.router.Stop()
	}
	return s.page.Close()
}

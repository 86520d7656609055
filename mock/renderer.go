package mock

import (
	"context"

	"github.com/fwojciec/adharvest"
)

var _ adharvest.Renderer = (*Renderer)(nil)

// Renderer is a mock implementation of adharvest.Renderer.
type Renderer struct {
	OpenFn  func(ctx context.Context) (adharvest.RenderSession, error)
	CloseFn func() error
}

func (r *Renderer) Open(ctx context.Context) (adharvest.RenderSession, error) {
	return r.OpenFn(ctx)
}

func (r *Renderer) Close() error {
	return r.CloseFn()
}

var _ adharvest.RenderSession = (*RenderSession)(nil)

// RenderSession is a mock implementation of adharvest.RenderSession.
type RenderSession struct {
	BlockFn    func(ctx context.Context, kinds ...adharvest.ResourceKind) error
	NavigateFn func(ctx context.Context, url string) error
	WaitForFn  func(ctx context.Context, selector string) error
	ScrollFn   func(ctx context.Context) error
	HTMLFn     func(ctx context.Context) (string, error)
	CloseFn    func() error
}

func (s *RenderSession) Block(ctx context.Context, kinds ...adharvest.ResourceKind) error {
	return s.BlockFn(ctx, kinds...)
}

func (s *RenderSession) Navigate(ctx context.Context, url string) error {
	return s.NavigateFn(ctx, url)
}

func (s *RenderSession) WaitFor(ctx context.Context, selector string) error {
	return s.WaitForFn(ctx, selector)
}

func (s *RenderSession) Scroll(ctx context.Context) error {
	return s.ScrollFn(ctx)
}

func (s *RenderSession) HTML(ctx context.Context) (string, error) {
	return s.HTMLFn(ctx)
}

func (s *RenderSession) Close() error {
	return s.CloseFn()
}

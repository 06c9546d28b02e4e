package crawler

import "context"

// RenderSession is a live browser tab showing the listing page.
type RenderSession interface {
	ScrollToBottom(ctx context.Context) error
	HTML(ctx context.Context) (string, error)
	Height(ctx context.Context) (int64, error)
	Close() error
}

// SessionOptions configures a new rendering session.
type SessionOptions struct {
	Headless bool
	Headers  map[string]string
}

// SessionOpener starts a rendering session with seedURL loaded.
type SessionOpener interface {
	Open(ctx context.Context, seedURL string, opts SessionOptions) (RenderSession, error)
}

// SessionOpenerFunc adapts a function to SessionOpener.
type SessionOpenerFunc func(ctx context.Context, seedURL string, opts SessionOptions) (RenderSession, error)

// Open calls f.
func (f SessionOpenerFunc) Open(ctx context.Context, seedURL string, opts SessionOptions) (RenderSession, error) {
	return f(ctx, seedURL, opts)
}

package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	scrollScript = `window.scrollTo(0, document.body.scrollHeight)`
	heightScript = `document.body.scrollHeight`
)

// ChromedpOpener starts headless (or windowed) Chrome sessions via chromedp.
type ChromedpOpener struct {
	// LoadTimeout bounds navigation to the seed page.
	LoadTimeout time.Duration
	UserAgent   string
	Logger      *zap.Logger
}

// Open launches a browser, applies the extra headers and loads seedURL.
func (o ChromedpOpener) Open(ctx context.Context, seedURL string, opts SessionOptions) (RenderSession, error) {
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("start-maximized", true),
		chromedp.Flag("disable-gpu", true),
	)
	if o.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(o.UserAgent))
	}
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	s := &chromedpSession{
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		allocatorCancel: allocatorCancel,
	}

	// The first Run allocates the browser; it must not carry the load timeout.
	if err := chromedp.Run(browserCtx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	loadCtx, cancelLoad := context.WithTimeout(browserCtx, o.loadTimeout())
	defer cancelLoad()

	tasks := chromedp.Tasks{
		networkSetupAction(o.UserAgent, opts.Headers),
		chromedp.Navigate(seedURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if err := chromedp.Run(loadCtx, tasks); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("chromedp load %s: %w", seedURL, err)
	}
	logger.Info("listing page loaded", zap.String("url", seedURL), zap.Bool("headless", opts.Headless))
	return s, nil
}

func (o ChromedpOpener) loadTimeout() time.Duration {
	if o.LoadTimeout > 0 {
		return o.LoadTimeout
	}
	return 45 * time.Second
}

type chromedpSession struct {
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	allocatorCancel context.CancelFunc
}

func (s *chromedpSession) run(ctx context.Context, actions ...chromedp.Action) error {
	stopForward := forwardCancel(ctx, s.browserCancel)
	defer stopForward()
	return chromedp.Run(s.browserCtx, actions...)
}

func (s *chromedpSession) ScrollToBottom(ctx context.Context) error {
	if err := s.run(ctx, chromedp.Evaluate(scrollScript, nil)); err != nil {
		return fmt.Errorf("chromedp scroll: %w", err)
	}
	return nil
}

func (s *chromedpSession) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("chromedp outer html: %w", err)
	}
	return html, nil
}

func (s *chromedpSession) Height(ctx context.Context) (int64, error) {
	var height int64
	if err := s.run(ctx, chromedp.Evaluate(heightScript, &height)); err != nil {
		return 0, fmt.Errorf("chromedp page height: %w", err)
	}
	return height, nil
}

// Close tears down the browser and allocator contexts.
func (s *chromedpSession) Close() error {
	s.browserCancel()
	s.allocatorCancel()
	return nil
}

func networkSetupAction(userAgent string, headers map[string]string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if userAgent != "" {
			if err := emulation.SetUserAgentOverride(userAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		if len(headers) > 0 {
			if err := network.SetExtraHTTPHeaders(toNetworkHeaders(headers)).Do(ctx); err != nil {
				return fmt.Errorf("set extra headers: %w", err)
			}
		}
		return nil
	})
}

func toNetworkHeaders(h map[string]string) network.Headers {
	headers := network.Headers{}
	for key, value := range h {
		headers[key] = value
	}
	return headers
}

// forwardCancel cancels the chromedp context when parent finishes first.
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

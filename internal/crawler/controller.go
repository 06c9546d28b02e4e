package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/vacancy-crawler/internal/metrics"
)

const (
	defaultScrollPause = 2 * time.Second
	defaultMaxScrolls  = 200
)

// ErrNoSeedURL is returned when Collect is given a configuration without seeds.
var ErrNoSeedURL = errors.New("no seed url")

// ControllerConfig tunes the scroll loop.
type ControllerConfig struct {
	Site Site
	// ScrollPause is how long the page gets to load more cards after a scroll.
	ScrollPause time.Duration
	// MaxScrolls bounds the loop on pages whose height never settles.
	MaxScrolls int
}

// Controller collects detail URLs from an infinitely scrolling listing page.
type Controller struct {
	opener SessionOpener
	cfg    ControllerConfig
	pauser pauseController
	logger *zap.Logger
}

// NewController wires a controller to the given session opener.
func NewController(opener SessionOpener, cfg ControllerConfig, logger *zap.Logger) *Controller {
	if cfg.Site == (Site{}) {
		cfg.Site = DefaultSite()
	}
	if cfg.ScrollPause < 0 {
		cfg.ScrollPause = defaultScrollPause
	}
	if cfg.MaxScrolls <= 0 {
		cfg.MaxScrolls = defaultMaxScrolls
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		opener: opener,
		cfg:    cfg,
		pauser: &timerPauseController{},
		logger: logger,
	}
}

// Collect scrolls the first seed page until TotalArticles links are known, the
// page stops growing, or MaxScrolls is reached. Session failures are fatal.
func (c *Controller) Collect(ctx context.Context, conf Configuration) (*URLSet, error) {
	seeds := conf.SeedURLs()
	if len(seeds) == 0 {
		return nil, ErrNoSeedURL
	}
	if len(seeds) > 1 {
		c.logger.Warn("only the first seed url is crawled", zap.Strings("ignored", seeds[1:]))
	}
	seed := seeds[0]
	seen := NewURLSet(conf.TotalArticles())

	session, err := c.opener.Open(ctx, seed, SessionOptions{
		Headless: conf.Headless(),
		Headers:  conf.Headers(),
	})
	if err != nil {
		return nil, fmt.Errorf("open render session for %s: %w", seed, err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			c.logger.Warn("failed to close render session", zap.Error(cerr))
		}
	}()

	lastHeight, err := session.Height(ctx)
	if err != nil {
		return nil, fmt.Errorf("measure initial page height: %w", err)
	}

	scrolls := 0
	for !seen.Full() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("collect canceled: %w", err)
		}
		if err := session.ScrollToBottom(ctx); err != nil {
			return nil, fmt.Errorf("scroll: %w", err)
		}
		scrolls++
		metrics.ObserveScroll()
		c.pauser.Pause(ctx, c.cfg.ScrollPause)

		html, err := session.HTML(ctx)
		if err != nil {
			return nil, fmt.Errorf("capture html: %w", err)
		}
		added, err := Discover(html, seen, c.cfg.Site)
		if err != nil {
			return nil, err
		}
		metrics.ObserveLinksDiscovered(len(added))

		height, err := session.Height(ctx)
		if err != nil {
			return nil, fmt.Errorf("measure page height: %w", err)
		}
		c.logger.Debug("scrolled listing",
			zap.Int("scroll", scrolls),
			zap.Int("new_links", len(added)),
			zap.Int("collected", seen.Len()),
			zap.Int64("height", height),
		)

		if seen.Full() {
			break
		}
		if height == lastHeight {
			c.logger.Info("listing stopped growing", zap.Int("scrolls", scrolls), zap.Int("collected", seen.Len()))
			break
		}
		if scrolls >= c.cfg.MaxScrolls {
			c.logger.Warn("scroll limit reached before the listing settled",
				zap.Int("max_scrolls", c.cfg.MaxScrolls),
				zap.Int("collected", seen.Len()),
			)
			break
		}
		lastHeight = height
	}

	c.logger.Info("collected detail urls", zap.Int("count", seen.Len()), zap.Int("target", seen.Cap()))
	return seen, nil
}

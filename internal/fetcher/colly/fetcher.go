// Package collyfetcher implements fetcher.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/vacancy-crawler/internal/fetcher"
)

const defaultTimeout = 15 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent string
	// Headers are sent on every request. Keys are canonicalized, so lowercase
	// keys from config files behave like their canonical form.
	Headers map[string]string
	// Timeout bounds the whole request. Zero uses a 15s default.
	Timeout           time.Duration
	VerifyCertificate bool
	// Encoding forces the response body charset. Empty lets colly use the
	// Content-Type header.
	Encoding      string
	RespectRobots bool
}

// Fetcher implements fetcher.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	)
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	c.WithTransport(newHTTPTransport(cfg.VerifyCertificate))
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c.SetRequestTimeout(timeout)

	return &Fetcher{cfg: cfg, baseCollector: c}
}

// Fetch executes a single HTTP GET using Colly. Status codes of 400 and above
// fail with a fetcher.KindHTTPError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (fetcher.Response, error) {
	var (
		result   fetcher.Response
		fetchErr error
	)
	start := time.Now()
	collector := f.baseCollector.Clone()
	collector.Context = ctx
	f.configureCollectorHooks(collector, start, &result, &fetchErr)

	if err := f.runCollector(ctx, collector, url, &fetchErr); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fetcher.Response{}, fmt.Errorf("colly fetch canceled: %w", ctxErr)
		}
		return fetcher.Response{}, classify(url, err)
	}
	if result.StatusCode >= http.StatusBadRequest {
		return fetcher.Response{}, &fetcher.Error{
			Kind:       fetcher.KindHTTPError,
			URL:        url,
			StatusCode: result.StatusCode,
		}
	}
	return result, nil
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	start time.Time,
	result *fetcher.Response,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		f.applyHeaders(r)
		if f.cfg.Encoding != "" {
			r.ResponseCharacterEncoding = f.cfg.Encoding
		}
	})

	hooks.OnResponse(func(r *colly.Response) {
		var headers http.Header
		if r.Headers != nil {
			headers = r.Headers.Clone()
		}
		*result = fetcher.Response{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return err
		}
		return *fetchErr
	}
}

func (f *Fetcher) applyHeaders(r *colly.Request) {
	for key, value := range f.cfg.Headers {
		r.Headers.Set(http.CanonicalHeaderKey(key), value)
	}
}

// classify maps a transport error onto a fetch failure kind.
func classify(url string, err error) *fetcher.Error {
	kind := fetcher.KindConnectionError
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		kind = fetcher.KindReadTimeout
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			kind = fetcher.KindConnectTimeout
		}
	}
	return &fetcher.Error{Kind: kind, URL: url, Err: err}
}

func newHTTPTransport(verify bool) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: !verify}, //nolint:gosec // opt-in via should_verify_certificate
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

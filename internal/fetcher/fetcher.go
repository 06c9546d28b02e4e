// Package fetcher defines the detail page fetch contract and its failure kinds.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies a failed fetch.
type Kind string

const (
	KindConnectTimeout  Kind = "connect_timeout"
	KindConnectionError Kind = "connection_error"
	KindReadTimeout     Kind = "read_timeout"
	KindHTTPError       Kind = "http_error"
)

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrConnectTimeout = errors.New("connect timeout")
	ErrConnection     = errors.New("connection error")
	ErrReadTimeout    = errors.New("read timeout")
	ErrHTTPStatus     = errors.New("http error status")
)

// Error reports a single failed fetch. A failed fetch is never retried.
type Error struct {
	Kind       Kind
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Kind == KindHTTPError {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is maps the kind onto its sentinel.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrConnectTimeout:
		return e.Kind == KindConnectTimeout
	case ErrConnection:
		return e.Kind == KindConnectionError
	case ErrReadTimeout:
		return e.Kind == KindReadTimeout
	case ErrHTTPStatus:
		return e.Kind == KindHTTPError
	}
	return false
}

// Response is a successfully fetched page, decoded to UTF-8.
type Response struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Fetcher retrieves one detail page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Response, error)
}

// Outcome returns the metrics label for a fetch result.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var fe *Error
	if errors.As(err, &fe) {
		return string(fe.Kind)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "error"
}

package crawler

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
)

// Validation failures. Validate wraps exactly one of these.
var (
	ErrInvalidSeedURLs        = errors.New("invalid seed urls")
	ErrInvalidArticleCount    = errors.New("invalid article count")
	ErrArticleCountOutOfRange = errors.New("article count out of range")
	ErrInvalidHeaders         = errors.New("invalid headers")
	ErrInvalidEncoding        = errors.New("invalid encoding")
	ErrInvalidTimeout         = errors.New("invalid timeout")
	ErrInvalidBooleanFlag     = errors.New("invalid boolean flag")
)

// Raw configuration keys.
const (
	KeySeedURLs          = "seed_urls"
	KeyTotalArticles     = "total_articles"
	KeyTotalArticlesLong = "total_articles_to_find_and_parse"
	KeyHeaders           = "headers"
	KeyEncoding          = "encoding"
	KeyTimeout           = "timeout"
	KeyVerifyCertificate = "should_verify_certificate"
	KeyHeadlessMode      = "headless_mode"
)

// RawKeys lists every key Validate reads.
func RawKeys() []string {
	return []string{
		KeySeedURLs,
		KeyTotalArticles,
		KeyTotalArticlesLong,
		KeyHeaders,
		KeyEncoding,
		KeyTimeout,
		KeyVerifyCertificate,
		KeyHeadlessMode,
	}
}

var seedURLPattern = regexp.MustCompile(`^https?://[^\s/]+/\S*$`)

// Limits bounds the numeric crawl parameters.
type Limits struct {
	// MaxArticles caps total_articles when positive.
	MaxArticles int
	TimeoutMin  int
	TimeoutMax  int
}

// DefaultLimits returns a timeout range of [0, 60] seconds and no article ceiling.
func DefaultLimits() Limits {
	return Limits{TimeoutMin: 0, TimeoutMax: 60}
}

// Configuration is a validated set of crawl parameters. Only Validate can
// produce a non-zero value.
type Configuration struct {
	seedURLs          []string
	totalArticles     int
	headers           map[string]string
	encoding          string
	timeout           int
	verifyCertificate bool
	headless          bool
}

// SeedURLs returns a copy of the seed list.
func (c Configuration) SeedURLs() []string { return append([]string(nil), c.seedURLs...) }

// TotalArticles is the number of detail pages to collect.
func (c Configuration) TotalArticles() int { return c.totalArticles }

// Headers returns a copy of the request headers.
func (c Configuration) Headers() map[string]string {
	out := make(map[string]string, len(c.headers))
	for k, v := range c.headers {
		out[k] = v
	}
	return out
}

// Encoding is the charset used to decode detail pages.
func (c Configuration) Encoding() string { return c.encoding }

// TimeoutSeconds is the per-request network timeout; zero disables it.
func (c Configuration) TimeoutSeconds() int { return c.timeout }

// VerifyCertificate reports whether TLS certificates are verified.
func (c Configuration) VerifyCertificate() bool { return c.verifyCertificate }

// Headless reports whether the browser runs without a window.
func (c Configuration) Headless() bool { return c.headless }

// Validate checks raw crawl parameters in a fixed order and returns the first
// failure. It does not modify raw.
func Validate(raw map[string]any, limits Limits) (Configuration, error) {
	seeds, err := validateSeedURLs(raw[KeySeedURLs])
	if err != nil {
		return Configuration{}, err
	}

	countRaw, ok := raw[KeyTotalArticles]
	if !ok {
		countRaw = raw[KeyTotalArticlesLong]
	}
	count, ok := asInt(countRaw)
	if !ok || count < 1 {
		return Configuration{}, fmt.Errorf("%w: %s must be a positive integer, got %v", ErrInvalidArticleCount, KeyTotalArticles, countRaw)
	}
	if limits.MaxArticles > 0 && count > limits.MaxArticles {
		return Configuration{}, fmt.Errorf("%w: %d exceeds %d", ErrArticleCountOutOfRange, count, limits.MaxArticles)
	}

	headers, err := validateHeaders(raw[KeyHeaders])
	if err != nil {
		return Configuration{}, err
	}

	encoding, ok := raw[KeyEncoding].(string)
	if !ok {
		return Configuration{}, fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidEncoding, KeyEncoding, raw[KeyEncoding])
	}

	timeout, ok := asInt(raw[KeyTimeout])
	if !ok || timeout < limits.TimeoutMin || timeout > limits.TimeoutMax {
		return Configuration{}, fmt.Errorf("%w: %s must be an integer in [%d, %d], got %v",
			ErrInvalidTimeout, KeyTimeout, limits.TimeoutMin, limits.TimeoutMax, raw[KeyTimeout])
	}

	verify, okVerify := raw[KeyVerifyCertificate].(bool)
	headless, okHeadless := raw[KeyHeadlessMode].(bool)
	if !okVerify || !okHeadless {
		return Configuration{}, fmt.Errorf("%w: %s and %s must be true or false",
			ErrInvalidBooleanFlag, KeyVerifyCertificate, KeyHeadlessMode)
	}

	return Configuration{
		seedURLs:          seeds,
		totalArticles:     count,
		headers:           headers,
		encoding:          encoding,
		timeout:           timeout,
		verifyCertificate: verify,
		headless:          headless,
	}, nil
}

func validateSeedURLs(v any) ([]string, error) {
	var items []any
	switch typed := v.(type) {
	case []any:
		items = typed
	case []string:
		for _, s := range typed {
			items = append(items, s)
		}
	default:
		return nil, fmt.Errorf("%w: %s must be a list, got %T", ErrInvalidSeedURLs, KeySeedURLs, v)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrInvalidSeedURLs, KeySeedURLs)
	}
	seeds := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %T, not a string", ErrInvalidSeedURLs, i, item)
		}
		if !seedURLPattern.MatchString(s) {
			return nil, fmt.Errorf("%w: %q does not match the http(s) url pattern", ErrInvalidSeedURLs, s)
		}
		seeds = append(seeds, s)
	}
	return seeds, nil
}

func validateHeaders(v any) (map[string]string, error) {
	switch typed := v.(type) {
	case map[string]string:
		out := make(map[string]string, len(typed))
		for k, val := range typed {
			out[k] = val
		}
		return out, nil
	case map[string]any:
		out := make(map[string]string, len(typed))
		for k, val := range typed {
			s, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("%w: header %q is %T, not a string", ErrInvalidHeaders, k, val)
			}
			out[k] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be an object, got %T", ErrInvalidHeaders, KeyHeaders, v)
	}
}

// asInt accepts Go integers and integral JSON numbers. Booleans never qualify.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

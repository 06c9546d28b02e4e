package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession serves one listing snapshot per scroll. Heights are returned in
// order; the last entry repeats once the slice is exhausted.
type fakeSession struct {
	mu        sync.Mutex
	heights   []int64
	pages     []string
	scrolls   int
	closed    bool
	scrollErr error
}

func (s *fakeSession) ScrollToBottom(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scrollErr != nil {
		return s.scrollErr
	}
	s.scrolls++
	return nil
}

func (s *fakeSession) HTML(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.scrolls - 1
	if idx >= len(s.pages) {
		idx = len(s.pages) - 1
	}
	if idx < 0 {
		return "", nil
	}
	return s.pages[idx], nil
}

func (s *fakeSession) Height(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.scrolls
	if idx >= len(s.heights) {
		idx = len(s.heights) - 1
	}
	return s.heights[idx], nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type noPause struct{ calls int }

func (p *noPause) Pause(context.Context, time.Duration) { p.calls++ }

func newTestController(t *testing.T, session *fakeSession, cfg ControllerConfig) (*Controller, *SessionOptions) {
	t.Helper()
	var got SessionOptions
	opener := SessionOpenerFunc(func(_ context.Context, seed string, opts SessionOptions) (RenderSession, error) {
		got = opts
		return session, nil
	})
	c := NewController(opener, cfg, nil)
	c.pauser = &noPause{}
	return c, &got
}

func confFor(t *testing.T, total int, seeds ...any) Configuration {
	t.Helper()
	raw := validRaw()
	raw["total_articles"] = total
	if len(seeds) > 0 {
		raw["seed_urls"] = seeds
	}
	conf, err := Validate(raw, DefaultLimits())
	require.NoError(t, err)
	return conf
}

// growingPages returns n cumulative listing snapshots with perPage new cards each.
func growingPages(n, perPage int) []string {
	pages := make([]string, n)
	var hrefs []string
	for i := 0; i < n; i++ {
		for j := 0; j < perPage; j++ {
			hrefs = append(hrefs, fmt.Sprintf("/job/%d-%d", i, j))
		}
		pages[i] = listingHTML(hrefs...)
	}
	return pages
}

func TestCollectStopsWhenHeightSettles(t *testing.T) {
	t.Parallel()

	session := &fakeSession{
		heights: []int64{1000, 2000, 3000, 3000},
		pages:   growingPages(4, 2),
	}
	c, opts := newTestController(t, session, ControllerConfig{})

	urls, err := c.Collect(context.Background(), confFor(t, 100))
	require.NoError(t, err)
	assert.Equal(t, 3, session.scrolls)
	assert.Equal(t, 6, urls.Len())
	assert.True(t, session.closed)
	assert.False(t, opts.Headless)
	assert.Equal(t, "Mozilla/5.0", opts.Headers["User-Agent"])
}

func TestCollectStopsAtTarget(t *testing.T) {
	t.Parallel()

	session := &fakeSession{
		heights: []int64{1000, 2000, 3000, 4000, 5000},
		pages:   growingPages(5, 4),
	}
	c, _ := newTestController(t, session, ControllerConfig{})

	urls, err := c.Collect(context.Background(), confFor(t, 5))
	require.NoError(t, err)
	assert.Equal(t, 5, urls.Len())
	assert.Equal(t, 2, session.scrolls)
	assert.Equal(t, "https://careerspace.app/job/0-0", urls.URLs()[0])
}

func TestCollectRespectsMaxScrolls(t *testing.T) {
	t.Parallel()

	heights := make([]int64, 50)
	for i := range heights {
		heights[i] = int64(i+1) * 100
	}
	session := &fakeSession{heights: heights, pages: growingPages(50, 1)}
	c, _ := newTestController(t, session, ControllerConfig{MaxScrolls: 4})

	urls, err := c.Collect(context.Background(), confFor(t, 1000))
	require.NoError(t, err)
	assert.Equal(t, 4, session.scrolls)
	assert.Equal(t, 4, urls.Len())
}

func TestCollectUsesFirstSeedOnly(t *testing.T) {
	t.Parallel()

	session := &fakeSession{heights: []int64{10}, pages: []string{listingHTML("/job/1")}}
	var opened []string
	opener := SessionOpenerFunc(func(_ context.Context, seed string, _ SessionOptions) (RenderSession, error) {
		opened = append(opened, seed)
		return session, nil
	})
	c := NewController(opener, ControllerConfig{}, nil)
	c.pauser = &noPause{}

	_, err := c.Collect(context.Background(), confFor(t, 10, "https://careerspace.app/jobs/", "https://careerspace.app/other/"))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://careerspace.app/jobs/"}, opened)
}

func TestCollectOpenFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("no chrome")
	opener := SessionOpenerFunc(func(context.Context, string, SessionOptions) (RenderSession, error) {
		return nil, boom
	})
	c := NewController(opener, ControllerConfig{}, nil)

	_, err := c.Collect(context.Background(), confFor(t, 10))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestCollectScrollFailureIsFatal(t *testing.T) {
	t.Parallel()

	boom := errors.New("target closed")
	session := &fakeSession{heights: []int64{10}, pages: []string{""}, scrollErr: boom}
	c, _ := newTestController(t, session, ControllerConfig{})

	_, err := c.Collect(context.Background(), confFor(t, 10))
	assert.ErrorIs(t, err, boom)
	assert.True(t, session.closed)
}

func TestCollectCanceledContext(t *testing.T) {
	t.Parallel()

	session := &fakeSession{heights: []int64{10, 20}, pages: []string{listingHTML("/job/1")}}
	c, _ := newTestController(t, session, ControllerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	urls, err := c.Collect(ctx, confFor(t, 10))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, urls)
	assert.Zero(t, session.scrolls)
}

func TestNewControllerDefaults(t *testing.T) {
	t.Parallel()

	c := NewController(nil, ControllerConfig{ScrollPause: -1}, nil)
	assert.Equal(t, DefaultSite(), c.cfg.Site)
	assert.Equal(t, defaultScrollPause, c.cfg.ScrollPause)
	assert.Equal(t, defaultMaxScrolls, c.cfg.MaxScrolls)
}

func TestTimerPauseControllerHonorsContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	(&timerPauseController{}).Pause(ctx, time.Minute)
	assert.Less(t, time.Since(start), time.Second)
}

package crawler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listingHTML(hrefs ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="jobs">`)
	for _, h := range hrefs {
		fmt.Fprintf(&b, `<a class="job-card__i" href="%s">card</a>`, h)
	}
	b.WriteString(`<a class="other" href="/job/ignored">not a card</a></div></body></html>`)
	return b.String()
}

func TestDiscoverFiltersAndResolves(t *testing.T) {
	t.Parallel()

	html := listingHTML(
		"/job/101",
		"/job/102/apply",
		"/jobs/103",
		"https://careerspace.app/job/104",
		"/job/",
		"",
		"/job/105",
	)
	seen := NewURLSet(10)
	added, err := Discover(html, seen, DefaultSite())
	require.NoError(t, err)

	want := []string{
		"https://careerspace.app/job/101",
		"https://careerspace.app/job/105",
	}
	assert.Equal(t, want, added)
	assert.Equal(t, want, seen.URLs())
}

func TestDiscoverSkipsKnownURLs(t *testing.T) {
	t.Parallel()

	seen := NewURLSet(10)
	require.True(t, seen.Add("https://careerspace.app/job/1"))

	added, err := Discover(listingHTML("/job/1", "/job/2", "/job/2"), seen, DefaultSite())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://careerspace.app/job/2"}, added)
	assert.Equal(t, 2, seen.Len())
}

func TestDiscoverNeverExceedsCap(t *testing.T) {
	t.Parallel()

	hrefs := make([]string, 50)
	for i := range hrefs {
		hrefs[i] = fmt.Sprintf("/job/%d", i)
	}
	seen := NewURLSet(7)
	added, err := Discover(listingHTML(hrefs...), seen, DefaultSite())
	require.NoError(t, err)
	assert.Len(t, added, 7)
	assert.Equal(t, 7, seen.Len())

	added, err = Discover(listingHTML("/job/999"), seen, DefaultSite())
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Equal(t, 7, seen.Len())
}

func TestDiscoverCustomSite(t *testing.T) {
	t.Parallel()

	site := Site{Origin: "https://jobs.example/", CardSelector: "a.card", DetailPrefix: "/v/"}
	html := `<a class="card" href="/v/abc">x</a><a class="card" href="/job/abc">y</a>`
	seen := NewURLSet(5)
	added, err := Discover(html, seen, site)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://jobs.example/v/abc"}, added)
}

func TestURLSet(t *testing.T) {
	t.Parallel()

	s := NewURLSet(2)
	assert.False(t, s.Add(""))
	assert.True(t, s.Add("a"))
	assert.False(t, s.Add("a"))
	assert.True(t, s.Add("b"))
	assert.True(t, s.Full())
	assert.False(t, s.Add("c"))
	assert.True(t, s.Contains("b"))
	assert.False(t, s.Contains("c"))
	assert.Equal(t, []string{"a", "b"}, s.URLs())
	assert.Equal(t, 2, s.Cap())

	assert.True(t, NewURLSet(-1).Full())
}

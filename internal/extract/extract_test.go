package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/vacancy-crawler/internal/vacancy"
)

func ptr[T any](v T) *T { return &v }

type page struct {
	title     string
	noTitle   bool
	badges    []string
	company   string
	card      string
	price     string
	noPrice   bool
	noContent bool
}

func (p page) html() string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="j-d-h"><div class="j-d-h__inner">`)
	if !p.noTitle {
		b.WriteString(`<h3> ` + p.title + ` </h3>`)
	}
	for _, badge := range p.badges {
		b.WriteString(`<div class="job-lb"><span class="job-lb__tx"> ` + badge + ` </span></div>`)
	}
	b.WriteString(`</div>`)
	if p.company != "" {
		b.WriteString(`<div class="j-d-h__company cs-df-alc"> ` + p.company + ` </div>`)
	}
	b.WriteString(`</div>`)
	if p.card != "" {
		b.WriteString(`<div class="j-d-cm"><div class="j-d-cm__name">` + p.card + `</div></div>`)
	}
	if !p.noContent {
		b.WriteString(`<div class="j-d__content"><p>Описание</p>`)
		if !p.noPrice {
			b.WriteString(`<span class="price">` + p.price + `</span>`)
		}
		b.WriteString(`</div>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func parse(t *testing.T, p page) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.html()))
	require.NoError(t, err)
	return doc
}

func TestExtractFullPage(t *testing.T) {
	t.Parallel()

	rec := vacancy.New(1, "https://careerspace.app/job/1")
	err := Extract(parse(t, page{
		title:   "Senior Backend Engineer",
		badges:  []string{"Алматы", "Удаленно"},
		company: "Kaspi",
		price:   "от 100000 ₸",
	}), rec)
	require.NoError(t, err)

	assert.Equal(t, " Senior Backend Engineer ", rec.Title, "title is kept as rendered")
	assert.Equal(t, vacancy.NewLevelSet(vacancy.Senior), rec.Levels)
	assert.Equal(t, ptr("Алматы"), rec.Location)
	assert.True(t, rec.Remote)
	assert.False(t, rec.Hybrid)
	assert.Equal(t, "Kaspi", rec.Employer)
	assert.Equal(t, ptr(100000), rec.SalaryMin)
	assert.Nil(t, rec.SalaryMax)
}

func TestExtractEmployerFallback(t *testing.T) {
	t.Parallel()

	rec := vacancy.New(2, "u")
	require.NoError(t, Extract(parse(t, page{title: "Analyst", card: " Halyk ", price: "180000"}), rec))
	assert.Equal(t, "Halyk", rec.Employer)

	rec = vacancy.New(3, "u")
	require.NoError(t, Extract(parse(t, page{title: "Analyst", price: "180000"}), rec))
	assert.Empty(t, rec.Employer)
}

func TestExtractMissingSections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
	}{
		{"no header", `<html><body><div class="j-d__content"></div></body></html>`},
		{"no title", page{noTitle: true, price: "1"}.html()},
		{"no content", page{title: "Dev", noContent: true}.html()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(tt.html))
			require.NoError(t, err)
			err = Extract(doc, vacancy.New(1, "u"))
			assert.ErrorIs(t, err, ErrMissingRequiredSection)
		})
	}
}

func TestExtractWithoutPriceLeavesSalaryAbsent(t *testing.T) {
	t.Parallel()

	rec := vacancy.New(4, "u")
	require.NoError(t, Extract(parse(t, page{title: "Dev", noPrice: true}), rec))
	assert.Nil(t, rec.SalaryMin)
	assert.Nil(t, rec.SalaryMax)
}

func TestExtractMalformedSalaryKeepsOtherFields(t *testing.T) {
	t.Parallel()

	rec := vacancy.New(5, "u")
	err := Extract(parse(t, page{
		title:   "Junior/Middle Analyst",
		badges:  []string{"Гибрид"},
		company: "Acme",
		price:   "100-200-300",
	}), rec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedSalaryText))
	assert.Equal(t, " Junior/Middle Analyst ", rec.Title)
	assert.Equal(t, "Junior, Middle", rec.Levels.String())
	assert.True(t, rec.Hybrid)
	assert.Nil(t, rec.Location)
	assert.Equal(t, "Acme", rec.Employer)
	assert.Nil(t, rec.SalaryMin)
	assert.Nil(t, rec.SalaryMax)
}

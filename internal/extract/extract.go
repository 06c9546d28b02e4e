package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/vacancy-crawler/internal/vacancy"
)

// Page selectors of the detail template.
const (
	headerSelector      = "div.j-d-h__inner"
	titleSelector       = "h3"
	locationSelector    = "span.job-lb__tx"
	companySelector     = "div.j-d-h__company"
	companyCardSelector = "div.j-d-cm__name"
	contentSelector     = "div.j-d__content"
	salarySelector      = "span.price"
)

var (
	// ErrMissingRequiredSection means the page no longer matches the detail
	// template. It is not recoverable for the record.
	ErrMissingRequiredSection = errors.New("missing required page section")
	// ErrMalformedSalaryText means the price text fits none of the known shapes.
	ErrMalformedSalaryText = errors.New("malformed salary text")
)

// Extract fills rec from a parsed detail page. Salary is parsed last, so an
// ErrMalformedSalaryText failure leaves every other field populated.
func Extract(doc *goquery.Document, rec *vacancy.Record) error {
	header := doc.Find(headerSelector).First()
	if header.Length() == 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequiredSection, headerSelector)
	}
	title := header.Find(titleSelector).First()
	if title.Length() == 0 {
		return fmt.Errorf("%w: %s %s", ErrMissingRequiredSection, headerSelector, titleSelector)
	}
	rec.Title = title.Text()
	rec.Levels = ClassifyLevels(rec.Title)

	var fragments []string
	header.Find(locationSelector).Each(func(_ int, s *goquery.Selection) {
		fragments = append(fragments, s.Text())
	})
	rec.Location, rec.Remote, rec.Hybrid = ParseLocation(fragments)

	rec.Employer = employer(doc)

	content := doc.Find(contentSelector).First()
	if content.Length() == 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequiredSection, contentSelector)
	}
	price := content.Find(salarySelector).First()
	if price.Length() == 0 {
		rec.SalaryMin, rec.SalaryMax = nil, nil
		return nil
	}
	low, high, err := ParseSalary(price.Text())
	if err != nil {
		return err
	}
	rec.SalaryMin, rec.SalaryMax = low, high
	return nil
}

// employer prefers the header company block and falls back to the company card.
func employer(doc *goquery.Document) string {
	for _, sel := range []string{companySelector, companyCardSelector} {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			return strings.TrimSpace(node.Text())
		}
	}
	return ""
}

package crawler

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Site describes where listing cards live and how detail links are shaped.
type Site struct {
	Origin       string
	CardSelector string
	DetailPrefix string
}

// DefaultSite targets careerspace.app.
func DefaultSite() Site {
	return Site{
		Origin:       "https://careerspace.app",
		CardSelector: "a.job-card__i",
		DetailPrefix: "/job/",
	}
}

// Discover appends the detail links found in pageHTML to seen, in document
// order, and returns only the URLs that were newly added.
func Discover(pageHTML string, seen *URLSet, site Site) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	var added []string
	doc.Find(site.CardSelector).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if seen.Full() {
			return false
		}
		href, _ := card.Attr("href")
		if link := site.detailURL(href); link != "" && seen.Add(link) {
			added = append(added, link)
		}
		return true
	})
	return added, nil
}

// detailURL resolves href when it is a single path segment under the detail
// prefix, e.g. "/job/123". Anything else yields "".
func (s Site) detailURL(href string) string {
	if strings.Count(href, "/") != 2 || !strings.HasPrefix(href, s.DetailPrefix) {
		return ""
	}
	if len(href) == len(s.DetailPrefix) {
		return ""
	}
	return strings.TrimSuffix(s.Origin, "/") + href
}

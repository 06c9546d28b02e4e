package extract

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	remoteBadge = "Удаленно"
	hybridBadge = "Гибрид"
)

// ParseLocation splits the header badges into a city and the remote/hybrid
// flags. Each flag badge is consumed once; the first remaining badge is the
// city.
func ParseLocation(fragments []string) (location *string, remote, hybrid bool) {
	rest := make([]string, 0, len(fragments))
	for _, f := range fragments {
		rest = append(rest, norm.NFC.String(strings.TrimSpace(f)))
	}
	rest, remote = removeFirst(rest, remoteBadge)
	rest, hybrid = removeFirst(rest, hybridBadge)
	if len(rest) > 0 {
		city := rest[0]
		location = &city
	}
	return location, remote, hybrid
}

func removeFirst(items []string, target string) ([]string, bool) {
	for i, v := range items {
		if v == target {
			return append(items[:i:i], items[i+1:]...), true
		}
	}
	return items, false
}

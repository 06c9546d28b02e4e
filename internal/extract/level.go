package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/JakeFAU/vacancy-crawler/internal/vacancy"
)

var levelSynonyms = []struct {
	level vacancy.Level
	words []string
}{
	{vacancy.Junior, []string{"junior", "младший", "стажер", "стажёр"}},
	{vacancy.Middle, []string{"middle", "средний"}},
	{vacancy.Senior, []string{"senior", "старший", "lead", "ведущий"}},
}

// foldedSynonyms holds levelSynonyms after fold, computed once.
var foldedSynonyms = func() map[vacancy.Level][]string {
	out := make(map[vacancy.Level][]string, len(levelSynonyms))
	for _, entry := range levelSynonyms {
		for _, w := range entry.words {
			out[entry.level] = append(out[entry.level], fold(w))
		}
	}
	return out
}()

// ClassifyLevels reports every level whose synonym occurs as a substring of
// the title. Matching ignores case and combining marks, so "Стажёр" and
// "стажер" are the same word.
func ClassifyLevels(title string) vacancy.LevelSet {
	clean := fold(title)
	var set vacancy.LevelSet
	for _, level := range vacancy.Levels() {
		for _, w := range foldedSynonyms[level] {
			if strings.Contains(clean, w) {
				set = set.With(level)
				break
			}
		}
	}
	return set
}

// fold lowercases s and strips combining marks.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

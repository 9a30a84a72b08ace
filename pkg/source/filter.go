package source

import (
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
)

// DefaultKeywords is the base set a story must mention to enter the dispatch.
var DefaultKeywords = []string{
	"openclaw", "moltbot", "clawdbot", "moltbook",
	"steinberger", "claudbot", "openclaw foundation",
}

// Filter holds keyword lists for beat matching.
type Filter struct {
	keywords []string
	exclude  []string
}

// NewFilter creates a filter. An empty keyword list falls back to DefaultKeywords.
func NewFilter(keywords, excludeKeywords []string) *Filter {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	return &Filter{
		keywords: foldAll(keywords),
		exclude:  foldAll(excludeKeywords),
	}
}

// Matches returns true if text mentions a keyword and no excluded keyword.
func (f *Filter) Matches(text string) bool {
	folded := fold(text)

	for _, ex := range f.exclude {
		if strings.Contains(folded, ex) {
			return false
		}
	}

	for _, kw := range f.keywords {
		if strings.Contains(folded, kw) {
			return true
		}
	}
	return false
}

func foldAll(words []string) []string {
	folded := lo.FilterMap(words, func(w string, _ int) (string, bool) {
		w = fold(strings.TrimSpace(w))
		return w, w != ""
	})
	return lo.Uniq(folded)
}

func fold(s string) string {
	return cases.Fold().String(s)
}

package source

import (
	"slices"
	"strings"
	"unicode"

	"github.com/samber/lo"

	"github.com/elonfeng/clawbeat/pkg/dispatch"
)

// SimilarityThreshold is the Jaccard index at which two headlines are
// treated as the same story.
const SimilarityThreshold = 0.3

type anchor struct {
	item    dispatch.NewsItem
	tokens  []string
	changed bool
}

// Cluster folds freshly collected items into coverage groups.
//
// history holds stored stories, newest first. Each fresh item joins the
// first similar anchor (stored stories first, then anchors created earlier
// in the batch) as a MoreCoverage link, or becomes an anchor itself. Items
// already stored, or already listed as coverage, are dropped.
//
// The result holds every anchor that must be written: stored stories that
// gained coverage followed by new stories in collection order.
func Cluster(history, batch []dispatch.NewsItem) []dispatch.NewsItem {
	known := make(map[string]bool)
	anchors := make([]*anchor, 0, len(history)+len(batch))

	for _, item := range history {
		known[item.URL] = true
		for _, c := range item.MoreCoverage {
			known[c.URL] = true
		}
		anchors = append(anchors, &anchor{item: item, tokens: significantTokens(item.Title)})
	}
	stored := len(anchors)

	for _, item := range batch {
		if item.URL == "" || known[item.URL] {
			continue
		}
		known[item.URL] = true

		tokens := significantTokens(item.Title)
		match, found := lo.Find(anchors, func(a *anchor) bool {
			return jaccardSimilarity(a.tokens, tokens) >= SimilarityThreshold
		})
		if found {
			match.item.MoreCoverage = append(slices.Clip(match.item.MoreCoverage), dispatch.Coverage{
				Source: item.Source,
				URL:    item.URL,
			})
			match.changed = true
			continue
		}

		item.MoreCoverage = nil
		anchors = append(anchors, &anchor{item: item, tokens: tokens, changed: true})
	}

	out := make([]dispatch.NewsItem, 0, len(anchors)-stored)
	for _, a := range anchors {
		if a.changed {
			out = append(out, a.item)
		}
	}
	return out
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "being": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true,
	"this": true, "that": true, "these": true, "those": true,
	"it": true, "its": true, "i": true, "we": true, "you": true,
	"he": true, "she": true, "they": true, "my": true, "your": true,
	"how": true, "what": true, "when": true, "where": true, "why": true,
	"not": true, "no": true, "new": true, "just": true, "about": true,
	"up": true, "out": true, "if": true, "so": true, "can": true,
	"all": true, "more": true, "also": true, "than": true, "very": true,
	"says": true, "after": true, "over": true, "into": true,
}

// significantTokens extracts meaningful words from a headline.
func significantTokens(title string) []string {
	words := strings.FieldsFunc(fold(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	return lo.Filter(words, func(w string, _ int) bool {
		return len(w) >= 2 && !stopwords[w]
	})
}

// jaccardSimilarity returns the Jaccard index of two token sets.
func jaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := lo.Keyify(a)
	setB := lo.Keyify(b)

	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}

	unionSize := len(setA) + len(setB) - intersection
	if unionSize == 0 {
		return 0
	}
	return float64(intersection) / float64(unionSize)
}

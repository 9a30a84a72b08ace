package source

import (
	"strings"

	"github.com/go-shiori/go-readability"
)

// SummaryRunes is how much of a cleaned summary is kept.
const SummaryRunes = 200

// PlainText extracts readable text from an HTML fragment with whitespace
// collapsed.
func PlainText(html string) string {
	html = strings.TrimSpace(html)
	if html == "" {
		return ""
	}

	text := html
	if doc, err := readability.FromReader(strings.NewReader(html), nil); err == nil && strings.TrimSpace(doc.TextContent) != "" {
		text = doc.TextContent
	}
	return collapseSpace(text)
}

// summarize keeps the first SummaryRunes runes of text followed by "...".
func summarize(text string) string {
	if text == "" {
		return ""
	}
	return truncate(text, SummaryRunes) + "..."
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}

package dispatch

import (
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
)

// Whitelist answers whether a story comes from a trusted publisher.
type Whitelist struct {
	names   []string
	domains []string
}

// NewWhitelist normalizes entries once for repeated matching.
func NewWhitelist(entries []WhitelistEntry) *Whitelist {
	w := &Whitelist{}
	for _, e := range entries {
		if name := fold(e.SourceName); name != "" {
			w.names = append(w.names, name)
		}
		if domain := bareDomain(e.WebsiteURL); domain != "" {
			w.domains = append(w.domains, domain)
		}
	}
	w.names = lo.Uniq(w.names)
	w.domains = lo.Uniq(w.domains)
	return w
}

// IsVerified matches the item's source name exactly (case-folded, trimmed)
// or finds a whitelisted website inside the item's URL.
func (w *Whitelist) IsVerified(item NewsItem) bool {
	if w == nil {
		return false
	}

	source := fold(item.Source)
	if source != "" && lo.Contains(w.names, source) {
		return true
	}

	link := fold(item.URL)
	if link == "" {
		return false
	}
	for _, d := range w.domains {
		if strings.Contains(link, d) {
			return true
		}
	}
	return false
}

// IsVerified is a one-shot helper over raw whitelist entries.
func IsVerified(item NewsItem, entries []WhitelistEntry) bool {
	return NewWhitelist(entries).IsVerified(item)
}

// fold trims and Unicode case-folds s. A Caser is stateful, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// bareDomain strips protocol, a leading "www." and trailing slashes.
func bareDomain(raw string) string {
	s := fold(raw)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	return strings.TrimRight(s, "/")
}

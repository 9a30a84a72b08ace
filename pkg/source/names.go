package source

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// knownDomains maps publisher domains to their display names.
var knownDomains = map[string]string{
	"theverge.com":         "The Verge",
	"techcrunch.com":       "TechCrunch",
	"venturebeat.com":      "VentureBeat",
	"wired.com":            "Wired",
	"nytimes.com":          "NY Times",
	"arstechnica.com":      "Ars Technica",
	"bloomberg.com":        "Bloomberg",
	"wsj.com":              "WSJ",
	"reuters.com":          "Reuters",
	"github.com":           "GitHub",
	"youtube.com":          "YouTube",
	"news.ycombinator.com": "Hacker News",
}

// displayNames fixes source names that come out of feeds or the domain
// fallback spelled wrong.
var displayNames = map[string]string{
	"techcrunch":      "TechCrunch",
	"venturebeat":     "VentureBeat",
	"theverge":        "The Verge",
	"arstechnica":     "Ars Technica",
	"nytimes":         "NY Times",
	"wsj":             "WSJ",
	"github":          "GitHub",
	"youtube":         "YouTube",
	"ycombinator":     "Hacker News",
	"hackernews":      "Hacker News",
	"zdnet":           "ZDNet",
	"cnbc":            "CNBC",
	"bbc":             "BBC",
	"the-decoder":     "The Decoder",
	"404media":        "404 Media",
	"businessinsider": "Business Insider",
}

// DisplaySource returns the display spelling of a source name.
// Unknown names are returned unchanged.
func DisplaySource(name string) string {
	if fixed, ok := displayNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return fixed
	}
	return name
}

// isAggregator reports whether a whitelist entry republishes other outlets.
func isAggregator(sourceName string) bool {
	return strings.Contains(strings.ToLower(sourceName), "flipboard")
}

// RealSource names the outlet behind an aggregator entry. Entries from a
// direct publisher keep their whitelist name.
func RealSource(feedSource, link, title string) string {
	if !isAggregator(feedSource) {
		return feedSource
	}

	if link != "" {
		if u, err := url.Parse(link); err == nil && u.Hostname() != "" {
			domain := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
			if name, ok := knownDomains[domain]; ok {
				return name
			}
			label, _, _ := strings.Cut(domain, ".")
			return cases.Title(language.English).String(label)
		}
	}

	if prefix, _, ok := strings.Cut(title, ":"); ok {
		return strings.TrimSpace(prefix)
	}
	return feedSource
}

// DisplayTitle strips the "Outlet: " prefix aggregators put on headlines.
func DisplayTitle(feedSource, title string) string {
	if !isAggregator(feedSource) {
		return title
	}
	if _, rest, ok := strings.Cut(title, ":"); ok {
		return strings.TrimSpace(rest)
	}
	return title
}

package dispatch

import (
	"strings"
	"time"
)

// SourceType is the editorial tier of a publisher.
type SourceType string

const (
	SourcePriority SourceType = "priority"
	SourceStandard SourceType = "standard"
	SourceDelist   SourceType = "delist"
)

// Weight orders source types for ranking; lower is better.
// Anything unrecognised ranks as standard.
func (t SourceType) Weight() int {
	switch t.Normalize() {
	case SourcePriority:
		return 1
	case SourceDelist:
		return 3
	default:
		return 2
	}
}

// Normalize maps empty and unknown values to SourceStandard.
func (t SourceType) Normalize() SourceType {
	switch SourceType(strings.ToLower(strings.TrimSpace(string(t)))) {
	case SourcePriority:
		return SourcePriority
	case SourceDelist:
		return SourceDelist
	default:
		return SourceStandard
	}
}

// Coverage is a link to the same story from another outlet.
type Coverage struct {
	Source string `json:"source"`
	URL    string `json:"url"`
}

// NewsItem is one published story. URL is the identity key.
type NewsItem struct {
	URL          string     `json:"url"`
	Title        string     `json:"title"`
	Source       string     `json:"source"`
	Date         string     `json:"date"` // MM-DD-YYYY
	InsertedAt   time.Time  `json:"inserted_at"`
	Summary      string     `json:"summary"`
	SourceType   SourceType `json:"source_type,omitempty"`
	MoreCoverage []Coverage `json:"more_coverage,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
}

// WhitelistEntry is a trusted publisher. RSSURL and SourceType only matter
// to ingestion.
type WhitelistEntry struct {
	SourceName string     `json:"source_name"`
	WebsiteURL string     `json:"website_url"`
	RSSURL     string     `json:"rss_url,omitempty"`
	SourceType SourceType `json:"source_type,omitempty"`
}

// Override pins a story to one spotlight slot of one dispatch day.
// Its fields are authoritative and need not match any NewsItem.
type Override struct {
	DispatchDate string   `json:"dispatch_date"`
	Slot         int      `json:"slot"`
	URL          string   `json:"url"`
	Title        string   `json:"title,omitempty"`
	Source       string   `json:"source,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// Origin tells where a spotlight slot came from.
type Origin string

const (
	OriginOverride    Origin = "override"
	OriginAlgorithmic Origin = "algorithmic"
)

// SlotCount is the number of spotlight slots per day. Slot 1 is the lead.
const SlotCount = 4

// Slot is one resolved spotlight pick.
type Slot struct {
	Slot       int      `json:"slot"`
	Origin     Origin   `json:"origin"`
	URL        string   `json:"url"`
	Title      string   `json:"title"`
	Source     string   `json:"source"`
	Summary    string   `json:"summary"`
	Tags       []string `json:"tags"`
	Score      int      `json:"score"`
	HasEdition bool     `json:"has_edition,omitempty"`
}

// Lead reports whether this is the day's lead story.
func (s Slot) Lead() bool { return s.Slot == 1 }

// RiverItem is a story in the ranked river with its global position.
type RiverItem struct {
	NewsItem
	Position    int  `json:"position"`
	Verified    bool `json:"verified"`
	Score       int  `json:"score"`
	InSpotlight bool `json:"in_spotlight"`
}

// DayView is the slice of one dispatch day rendered on a page.
// Spotlight is nil on every page except the one holding the day's first item.
type DayView struct {
	Day       string      `json:"day"`
	Spotlight []Slot      `json:"spotlight"`
	River     []RiverItem `json:"river"`
}

// PageView is the curated view model for one page.
type PageView struct {
	Days        []DayView `json:"days"`
	CurrentPage int       `json:"current_page"`
	TotalPages  int       `json:"total_pages"`
	PageSize    int       `json:"page_size"`
	TotalItems  int       `json:"total_items"`
}

// Snapshot is the full set of inputs for one render pass.
type Snapshot struct {
	Items     []NewsItem
	Overrides []Override
	Whitelist []WhitelistEntry
	// EditionDates holds YYYY-MM-DD dates that have a published daily edition.
	EditionDates []string
}

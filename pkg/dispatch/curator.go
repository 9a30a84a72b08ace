package dispatch

import (
	"cmp"
	"slices"
	"time"
)

// DefaultPageSize is used when a caller passes a non-positive page size.
const DefaultPageSize = 20

// Curator turns a snapshot of stories into paged dispatch views.
// It holds no per-render state and is safe for concurrent use.
type Curator struct {
	weights  Weights
	loc      *time.Location
	pageSize int
	now      func() time.Time
}

// NewCurator creates a curator that cuts off stories dated after today in loc.
func NewCurator(weights Weights, loc *time.Location, pageSize int) *Curator {
	if loc == nil {
		loc = time.UTC
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Curator{
		weights:  weights.OrDefault(),
		loc:      loc,
		pageSize: pageSize,
		now:      time.Now,
	}
}

// WithClock returns a copy of c that reads the current time from now.
func (c *Curator) WithClock(now func() time.Time) *Curator {
	cp := *c
	cp.now = now
	return &cp
}

// Today returns the current dispatch day in the curator's civil zone.
func (c *Curator) Today() Ordinal {
	return Today(c.loc, c.now())
}

// Location returns the civil zone used for the publication cutoff.
func (c *Curator) Location() *time.Location {
	return c.loc
}

// group is one dispatch day with its stories in canonical order.
type group struct {
	ordinal Ordinal
	entries []entry
}

// groups filters out unpublished stories and returns days newest first,
// with the unknown-date day last.
func (c *Curator) groups(snap Snapshot) []group {
	wl := NewWhitelist(snap.Whitelist)
	today := c.Today()

	entries := make([]entry, 0, len(snap.Items))
	for _, item := range snap.Items {
		ord := ParseDispatchDate(item.Date)
		if ord > today {
			continue
		}
		verified := wl.IsVerified(item)
		entries = append(entries, entry{
			item:     item,
			ordinal:  ord,
			verified: verified,
			score:    c.weights.Score(item, verified),
		})
	}

	slices.SortFunc(entries, func(a, b entry) int {
		if d := cmp.Compare(b.ordinal, a.ordinal); d != 0 {
			return d
		}
		return compareCanonical(a, b)
	})

	var out []group
	for _, e := range entries {
		if n := len(out); n > 0 && out[n-1].ordinal == e.ordinal {
			out[n-1].entries = append(out[n-1].entries, e)
			continue
		}
		out = append(out, group{ordinal: e.ordinal, entries: []entry{e}})
	}
	return out
}

// Spotlight resolves the slots of one dispatch day (MM-DD-YYYY).
// Unknown, future and empty days have no spotlight.
func (c *Curator) Spotlight(snap Snapshot, date string) []Slot {
	day := ParseDispatchDate(date)
	if day == 0 {
		return nil
	}
	for _, g := range c.groups(snap) {
		if g.ordinal == day {
			return resolveSpotlight(day, g.entries, snap.Overrides, editionSet(snap.EditionDates))
		}
	}
	return nil
}

// Page builds the view for a 1-based page number. A day's spotlight appears
// only on the page holding its first story; river positions are global so
// numbering stays continuous across pages.
func (c *Curator) Page(snap Snapshot, page, size int) PageView {
	if size <= 0 {
		size = c.pageSize
	}
	if page < 1 {
		page = 1
	}

	groups := c.groups(snap)
	total := 0
	for _, g := range groups {
		total += len(g.entries)
	}

	view := PageView{
		Days:        []DayView{},
		CurrentPage: page,
		TotalPages:  max(1, (total+size-1)/size),
		PageSize:    size,
		TotalItems:  total,
	}

	if page > view.TotalPages {
		return view
	}

	start := (page - 1) * size
	end := min(start+size, total)
	editions := editionSet(snap.EditionDates)

	pos := 0
	for _, g := range groups {
		dayStart, dayEnd := pos, pos+len(g.entries)
		pos = dayEnd
		if dayEnd <= start || dayStart >= end {
			continue
		}

		var slots []Slot
		if g.ordinal != 0 {
			slots = resolveSpotlight(g.ordinal, g.entries, snap.Overrides, editions)
		}
		spotlighted := make(map[string]bool, len(slots))
		for _, s := range slots {
			spotlighted[s.URL] = true
		}

		dv := DayView{Day: g.ordinal.Key()}
		if dayStart >= start && len(slots) > 0 {
			dv.Spotlight = slots
		}

		from, to := max(start, dayStart), min(end, dayEnd)
		for i := from; i < to; i++ {
			e := g.entries[i-dayStart]
			dv.River = append(dv.River, RiverItem{
				NewsItem:    e.item,
				Position:    i,
				Verified:    e.verified,
				Score:       e.score,
				InSpotlight: spotlighted[e.item.URL],
			})
		}
		view.Days = append(view.Days, dv)
	}

	return view
}

func editionSet(dates []string) map[string]bool {
	set := make(map[string]bool, len(dates))
	for _, d := range dates {
		set[d] = true
	}
	return set
}

package dispatch

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
)

// entry is a NewsItem with everything ranking needs precomputed.
type entry struct {
	item     NewsItem
	ordinal  Ordinal
	verified bool
	score    int
}

// compareCanonical orders a day's stories: verified first, then source tier,
// then newest insertion. URL breaks exact ties so output is deterministic.
func compareCanonical(a, b entry) int {
	if a.verified != b.verified {
		if a.verified {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(a.item.SourceType.Weight(), b.item.SourceType.Weight()); c != 0 {
		return c
	}
	if c := b.item.InsertedAt.Compare(a.item.InsertedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.item.URL, b.item.URL)
}

// resolveSpotlight fills slots 1..SlotCount for one day. entries must already
// be in canonical order and belong to the day.
func resolveSpotlight(day Ordinal, entries []entry, overrides []Override, editions map[string]bool) []Slot {
	bySlot := make(map[int]Override, SlotCount)
	for _, o := range overrides {
		if o.Slot < 1 || o.Slot > SlotCount || ParseDispatchDate(o.DispatchDate) != day {
			continue
		}
		if _, taken := bySlot[o.Slot]; !taken {
			bySlot[o.Slot] = o
		}
	}

	pinned := make(map[string]bool, len(bySlot))
	for _, o := range bySlot {
		pinned[o.URL] = true
	}

	queue := lo.Reject(entries, func(e entry, _ int) bool { return pinned[e.item.URL] })
	slices.SortStableFunc(queue, func(a, b entry) int { return cmp.Compare(b.score, a.score) })

	var slots []Slot
	for n := 1; n <= SlotCount; n++ {
		if o, ok := bySlot[n]; ok {
			slots = append(slots, Slot{
				Slot:    n,
				Origin:  OriginOverride,
				URL:     o.URL,
				Title:   o.Title,
				Source:  o.Source,
				Summary: o.Summary,
				Tags:    orEmpty(o.Tags),
			})
			continue
		}
		if len(queue) == 0 {
			continue
		}
		next := queue[0]
		queue = queue[1:]
		slots = append(slots, Slot{
			Slot:    n,
			Origin:  OriginAlgorithmic,
			URL:     next.item.URL,
			Title:   next.item.Title,
			Source:  next.item.Source,
			Summary: next.item.Summary,
			Tags:    orEmpty(next.item.Tags),
			Score:   next.score,
		})
	}

	if len(slots) > 0 && slots[0].Lead() && editions[day.ISO()] {
		slots[0].HasEdition = true
	}
	return slots
}

func orEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

package dispatch

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Ordinal is a sortable day number (YYYYMMDD). Zero means unknown.
type Ordinal int

// UnknownDay is the day key for items whose date cannot be parsed.
const UnknownDay = "unknown"

// ParseDispatchDate parses an MM-DD-YYYY dispatch date.
// Out-of-range days roll over the way a civil calendar does (02-30 becomes 03-02).
func ParseDispatchDate(s string) Ordinal {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return 0
	}

	month, err := strconv.Atoi(parts[0])
	if err != nil || month <= 0 {
		return 0
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil || day <= 0 {
		return 0
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil || year <= 0 {
		return 0
	}

	return ordinalOf(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC))
}

func ordinalOf(t time.Time) Ordinal {
	return Ordinal(t.Year()*10000 + int(t.Month())*100 + t.Day())
}

// Today returns the ordinal of now's calendar date in loc.
// The date goes through ParseDispatchDate so it compares exactly like stored dates.
func Today(loc *time.Location, now time.Time) Ordinal {
	if loc == nil {
		loc = time.UTC
	}
	return ParseDispatchDate(FormatDispatchDate(now.In(loc)))
}

// FormatDispatchDate formats t's calendar date as MM-DD-YYYY.
func FormatDispatchDate(t time.Time) string {
	return t.Format("01-02-2006")
}

// Key returns the normalized MM-DD-YYYY form, or UnknownDay for zero.
func (o Ordinal) Key() string {
	if o == 0 {
		return UnknownDay
	}
	n := int(o)
	return fmt.Sprintf("%02d-%02d-%04d", n/100%100, n%100, n/10000)
}

// ISO returns the YYYY-MM-DD form, or "" for zero.
func (o Ordinal) ISO() string {
	if o == 0 {
		return ""
	}
	n := int(o)
	return fmt.Sprintf("%04d-%02d-%02d", n/10000, n/100%100, n%100)
}

// DayKey returns the grouping key of a dispatch date string.
func DayKey(date string) string {
	return ParseDispatchDate(date).Key()
}

// ISOToDispatch converts YYYY-MM-DD to MM-DD-YYYY. Other input is returned as is.
func ISOToDispatch(iso string) string {
	parts := strings.Split(iso, "-")
	if len(parts) != 3 || len(parts[0]) != 4 {
		return iso
	}
	return parts[1] + "-" + parts[2] + "-" + parts[0]
}

// DispatchToISO converts MM-DD-YYYY to YYYY-MM-DD. Other input is returned as is.
func DispatchToISO(date string) string {
	parts := strings.Split(date, "-")
	if len(parts) != 3 || len(parts[2]) != 4 {
		return date
	}
	return parts[2] + "-" + parts[0] + "-" + parts[1]
}

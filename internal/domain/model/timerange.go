package model

import (
	"fmt"
	"strings"
	"time"
)

// TimeRange selects the window an attribution is aggregated over.
type TimeRange int

// Supported time ranges.
const (
	All TimeRange = iota
	LastYear
	LastMonth
	LastWeek
	LastDay
)

// TimeRangeCount is the number of supported time ranges.
const TimeRangeCount = int(LastDay) + 1

var timeRangeNames = [...]string{
	All:       "all",
	LastYear:  "year",
	LastMonth: "month",
	LastWeek:  "week",
	LastDay:   "day",
}

// TimeRanges returns every time range in a fixed order.
func TimeRanges() []TimeRange {
	return []TimeRange{All, LastYear, LastMonth, LastWeek, LastDay}
}

// Valid reports whether tr is one of the supported ranges.
func (tr TimeRange) Valid() bool {
	return tr >= All && tr <= LastDay
}

// String returns the wire name, e.g. "week".
func (tr TimeRange) String() string {
	if !tr.Valid() {
		return fmt.Sprintf("time_range(%d)", int(tr))
	}
	return timeRangeNames[tr]
}

// Since returns the inclusive lower bound of the window ending at now.
// All has no lower bound and yields the zero time.
func (tr TimeRange) Since(now time.Time) time.Time {
	switch tr {
	case LastYear:
		return now.AddDate(-1, 0, 0)
	case LastMonth:
		return now.AddDate(0, -1, 0)
	case LastWeek:
		return now.AddDate(0, 0, -7)
	case LastDay:
		return now.Add(-24 * time.Hour)
	default:
		return time.Time{}
	}
}

// ParseTimeRange maps a wire name to a TimeRange. Matching is case-insensitive.
func ParseTimeRange(s string) (TimeRange, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, tr := range TimeRanges() {
		if timeRangeNames[tr] == name {
			return tr, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTimeRange, s)
}

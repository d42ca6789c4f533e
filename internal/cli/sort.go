package cli

import (
	"sort"
	"strings"

	"github.com/threadsokc/workday-calendar/internal/calendar"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByStart   SortOrder = "start"
	SortBySummary SortOrder = "summary"
)

// sortEvents sorts inspected events in place
func sortEvents(events []calendar.EventInfo, order SortOrder) {
	switch order {
	case SortByStart:
		sort.SliceStable(events, func(i, j int) bool {
			return compareByStart(events[i], events[j])
		})
	case SortBySummary:
		sort.SliceStable(events, func(i, j int) bool {
			si, sj := strings.ToLower(events[i].Summary), strings.ToLower(events[j].Summary)
			if si != sj {
				return si < sj
			}
			// If summaries are equal, sort by start
			return compareByStart(events[i], events[j])
		})
	}
}

// compareByStart returns true if i starts before j. Events without a start
// go last.
func compareByStart(i, j calendar.EventInfo) bool {
	if !i.Start.IsZero() && !j.Start.IsZero() {
		return i.Start.Before(j.Start)
	}
	if !i.Start.IsZero() {
		return true
	}
	return false
}

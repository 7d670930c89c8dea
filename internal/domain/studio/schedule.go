package studio

import (
	"sort"
	"time"

	"crm/internal/domain/turma"
)

// ScheduleEntry is one class module held at a studio.
type ScheduleEntry struct {
	turma.Module
	DoubleBooked bool
}

// BuildSchedule orders modules by date and flags entries that share a
// calendar day with another module at the same studio. Modules outside
// [from, to) are dropped; a zero bound is open.
func BuildSchedule(modules []turma.Module, from, to time.Time) []ScheduleEntry {
	entries := make([]ScheduleEntry, 0, len(modules))
	for _, m := range modules {
		if !from.IsZero() && m.Date.Before(from) {
			continue
		}
		if !to.IsZero() && !m.Date.Before(to) {
			continue
		}
		entries = append(entries, ScheduleEntry{Module: m})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].Code < entries[j].Code
	})

	perDay := make(map[string]int, len(entries))
	for _, e := range entries {
		perDay[dayKey(e.Date)]++
	}
	for i := range entries {
		entries[i].DoubleBooked = perDay[dayKey(entries[i].Date)] > 1
	}
	return entries
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

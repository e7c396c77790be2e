package domain

import (
	"sort"
	"time"
)

// Phase is where an active traveler stands relative to a given day.
type Phase int

const (
	// PhaseExcluded covers travel that has ended (travel_end < today) and
	// degenerate reversed windows that are neither current nor planned.
	PhaseExcluded Phase = iota
	// PhaseCurrent means travel_start <= today <= travel_end.
	PhaseCurrent
	// PhasePlanned means travel_start > today.
	PhasePlanned
)

// PhaseOn classifies the traveler's window against today.
// All three values are calendar days; see Day.
// The two predicates are mutually exclusive: current requires
// travel_start <= today while planned requires travel_start > today.
func (t Traveler) PhaseOn(today time.Time) Phase {
	today = Day(today)
	start, end := Day(t.TravelStart), Day(t.TravelEnd)
	switch {
	case !start.After(today) && !end.Before(today):
		return PhaseCurrent
	case start.After(today):
		return PhasePlanned
	default:
		return PhaseExcluded
	}
}

// CountrySummary is the dashboard figure for one destination country.
type CountrySummary struct {
	Country string `json:"country"`
	Current int    `json:"current"`
	Planned int    `json:"planned"`
}

// Aggregate computes per-country current and planned counts from travelers
// as of today. Only active records are counted; callers normally pass the
// active projection but other statuses are skipped here as well.
//
// It runs two independent grouping passes, one per predicate, and merges the
// two count maps over the union of their keys. A country present in only one
// map reports 0 for the other figure. Countries are grouped by their literal
// text, so "France" and "france" are separate groups.
//
// The result is sorted by country so repeated calls over the same input
// yield identical output.
func Aggregate(travelers []Traveler, today time.Time) []CountrySummary {
	current := countByCountry(travelers, today, PhaseCurrent)
	planned := countByCountry(travelers, today, PhasePlanned)
	return MergeCounts(current, planned)
}

// countByCountry is one grouping pass: it counts active travelers in phase.
func countByCountry(travelers []Traveler, today time.Time, phase Phase) map[string]int {
	counts := make(map[string]int)
	for _, t := range travelers {
		if t.Status != StatusActive {
			continue
		}
		if t.PhaseOn(today) == phase {
			counts[t.Country]++
		}
	}
	return counts
}

// MergeCounts joins current and planned count maps over the union of their
// keys, sorted by country.
func MergeCounts(current, planned map[string]int) []CountrySummary {
	countries := make(map[string]struct{}, len(current)+len(planned))
	for c := range current {
		countries[c] = struct{}{}
	}
	for c := range planned {
		countries[c] = struct{}{}
	}

	out := make([]CountrySummary, 0, len(countries))
	for c := range countries {
		out = append(out, CountrySummary{Country: c, Current: current[c], Planned: planned[c]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Country < out[j].Country })
	return out
}

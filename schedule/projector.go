package schedule

import (
	"sort"
	"time"
)

// Event is one concrete materialization of a rule on a specific calendar
// date. Events are recomputed on demand and never persisted by this
// package; their identity is derived, not assigned, so re-projecting the
// same inputs always reproduces identical values. External stores key
// per-occurrence data (assignments, setlists) on Event.ID.
type Event struct {
	ID      string `json:"id"`      // canonical OccurrenceKey serialization
	RuleID  string `json:"ruleId"`  // originating rule, lookup key only
	Title   string `json:"title"`   // copied from the rule
	Date    string `json:"date"`    // YYYY-MM-DD
	Time    string `json:"time"`    // HH:mm, copied from the rule
	ISO     string `json:"iso"`     // "{date}T{time}", local date-time
	Weekday int    `json:"weekday"` // computed for Date, 0 = Sunday
}

// Key returns the structured form of the event's ID.
func (e Event) Key() OccurrenceKey {
	return OccurrenceKey{RuleID: e.RuleID, Date: e.Date}
}

// GenerateEvents expands rules into the concrete occurrences falling within
// [startDate, endDate], both bounds inclusive, sorted ascending by ISO
// date-time. It is a pure function of its arguments: no clock, no I/O, no
// mutation of the input slice, and byte-identical output across calls.
//
// Inactive rules, rules of unknown type, and rules missing their
// discriminating field contribute nothing; one malformed rule never aborts
// projection for the rest. A reversed or unparseable range yields an empty
// slice rather than an error. Events sharing an ISO timestamp keep the
// input order of their rules.
func GenerateEvents(rules []Rule, startDate, endDate string) []Event {
	start, errStart := time.Parse(dayFormat, startDate)
	end, errEnd := time.Parse(dayFormat, endDate)
	events := make([]Event, 0)
	if errStart != nil || errEnd != nil {
		return events
	}

	// Anchor at midday UTC so the day loop cannot skip or repeat a date
	// across DST transitions; only the date component matters here.
	start = middayUTC(start)
	end = middayUTC(end)

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		date := day.Format(dayFormat)
		weekday := int(day.Weekday())
		for _, r := range rules {
			if !r.Active || !r.matches(date, weekday) {
				continue
			}
			events = append(events, Event{
				ID:      OccurrenceKey{RuleID: r.ID, Date: date}.String(),
				RuleID:  r.ID,
				Title:   r.Title,
				Date:    date,
				Time:    r.Time,
				ISO:     date + "T" + r.Time,
				Weekday: weekday,
			})
		}
	}

	// Zero-padded fixed-width fields make lexicographic order chronological.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].ISO < events[j].ISO
	})
	return events
}

func middayUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC)
}

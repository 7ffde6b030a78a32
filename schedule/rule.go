package schedule

import (
	"github.com/samber/mo"
)

// RuleType discriminates the recurrence shape of a Rule.
type RuleType string

const (
	// RuleWeekly repeats on a fixed weekday, every week.
	RuleWeekly RuleType = "weekly"
	// RuleSingle fires on exactly one calendar date.
	RuleSingle RuleType = "single"
)

// Rule is one declarative scheduling rule: either a weekly pattern or a
// one-off date, independent of any concrete calendar occurrence.
//
// Weekday is meaningful only for weekly rules and Date only for single
// rules. Both are optional values rather than zero-valued fields so that a
// rule missing its discriminating field can never accidentally match a real
// day: an absent Option compares equal to nothing. Rules arriving from
// storage or JSON with missing fields are therefore silently inert instead
// of being an error.
type Rule struct {
	ID      string            `json:"id"`
	Title   string            `json:"title"`
	Type    RuleType          `json:"type"`
	Weekday mo.Option[int]    `json:"weekday"`
	Date    mo.Option[string] `json:"date"`
	Time    string            `json:"time"`
	Active  bool              `json:"active"`
}

// NewWeeklyRule builds an active weekly rule. weekday uses the 0-6
// convention with 0 = Sunday, matching time.Weekday. at is a zero-padded
// "HH:mm" time of day.
func NewWeeklyRule(id, title string, weekday int, at string) Rule {
	return Rule{
		ID:      id,
		Title:   title,
		Type:    RuleWeekly,
		Weekday: mo.Some(weekday),
		Time:    at,
		Active:  true,
	}
}

// NewSingleRule builds an active one-off rule for the given "YYYY-MM-DD"
// date.
func NewSingleRule(id, title, date, at string) Rule {
	return Rule{
		ID:     id,
		Title:  title,
		Type:   RuleSingle,
		Date:   mo.Some(date),
		Time:   at,
		Active: true,
	}
}

// matches reports whether the rule fires on the given day. date is the
// day's "YYYY-MM-DD" string and weekday its computed 0-6 index. Unknown
// rule types and absent Weekday/Date values never match; an out-of-range
// declared weekday never equals a computed one and is equally inert.
func (r Rule) matches(date string, weekday int) bool {
	switch r.Type {
	case RuleWeekly:
		wd, ok := r.Weekday.Get()
		return ok && wd == weekday
	case RuleSingle:
		d, ok := r.Date.Get()
		return ok && d == date
	default:
		return false
	}
}

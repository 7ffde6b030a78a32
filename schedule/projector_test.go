package schedule

import (
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateEvents_Deterministic(t *testing.T) {
	rules := []Rule{
		NewWeeklyRule("sunday-service", "Sunday Service", 0, "10:00"),
		NewSingleRule("good-friday", "Good Friday Vigil", "2024-03-29", "19:30"),
	}

	first := GenerateEvents(rules, "2024-03-01", "2024-03-31")
	second := GenerateEvents(rules, "2024-03-01", "2024-03-31")

	assert.Equal(t, first, second)
}

func TestGenerateEvents_RangeInclusive(t *testing.T) {
	rules := []Rule{NewSingleRule("r1", "Retreat", "2024-03-15", "09:00")}

	tests := []struct {
		name       string
		start, end string
		want       int
	}{
		{"single-day range on the date", "2024-03-15", "2024-03-15", 1},
		{"date at range start", "2024-03-15", "2024-03-20", 1},
		{"date at range end", "2024-03-10", "2024-03-15", 1},
		{"date before range", "2024-03-16", "2024-03-20", 0},
		{"date after range", "2024-03-01", "2024-03-14", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateEvents(rules, tt.start, tt.end)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestGenerateEvents_WeeklyCount(t *testing.T) {
	// 2024-03-03 is a Sunday; a 28-day window starting there holds
	// exactly four Sundays.
	rules := []Rule{NewWeeklyRule("r1", "Sunday Service", 0, "10:00")}

	got := GenerateEvents(rules, "2024-03-03", "2024-03-30")

	require.Len(t, got, 4)
	dates := []string{"2024-03-03", "2024-03-10", "2024-03-17", "2024-03-24"}
	for i, ev := range got {
		assert.Equal(t, dates[i], ev.Date)
		assert.Equal(t, 0, ev.Weekday)
		assert.Equal(t, "r1_"+dates[i], ev.ID)
	}
}

func TestGenerateEvents_StableIdentityAcrossRanges(t *testing.T) {
	rules := []Rule{NewWeeklyRule("r1", "Midweek Prayer", 3, "19:00")}

	first := GenerateEvents(rules, "2024-03-01", "2024-03-15")
	second := GenerateEvents(rules, "2024-03-10", "2024-03-31")

	firstIDs := make(map[string]Event)
	for _, ev := range first {
		firstIDs[ev.ID] = ev
	}

	overlap := 0
	for _, ev := range second {
		if prev, ok := firstIDs[ev.ID]; ok {
			overlap++
			assert.Equal(t, prev, ev)
		}
	}
	// 2024-03-13 is the only Wednesday in both windows.
	assert.Equal(t, 1, overlap)
}

func TestGenerateEvents_InactiveRuleExcluded(t *testing.T) {
	rule := NewWeeklyRule("r1", "Choir Practice", 2, "18:30")
	rule.Active = false

	got := GenerateEvents([]Rule{rule}, "2024-03-01", "2024-03-31")

	assert.Empty(t, got)
}

func TestGenerateEvents_SortedByTimeWithinDay(t *testing.T) {
	// 2024-03-17 is a Sunday: the weekly 08:00 service and the one-off
	// 19:30 concert share the date.
	rules := []Rule{
		NewSingleRule("concert", "Spring Concert", "2024-03-17", "19:30"),
		NewWeeklyRule("early", "Early Service", 0, "08:00"),
	}

	got := GenerateEvents(rules, "2024-03-17", "2024-03-17")

	require.Len(t, got, 2)
	assert.Equal(t, "early", got[0].RuleID)
	assert.Equal(t, "concert", got[1].RuleID)
	assert.Less(t, got[0].ISO, got[1].ISO)
}

func TestGenerateEvents_SameSlotNotDeduplicated(t *testing.T) {
	rules := []Rule{
		NewWeeklyRule("band-a", "Worship Set", 0, "10:00"),
		NewWeeklyRule("band-b", "Worship Set", 0, "10:00"),
	}

	got := GenerateEvents(rules, "2024-03-03", "2024-03-03")

	require.Len(t, got, 2)
	assert.NotEqual(t, got[0].ID, got[1].ID)
	assert.Equal(t, got[0].ISO, got[1].ISO)
	// Ties keep input rule order.
	assert.Equal(t, "band-a", got[0].RuleID)
	assert.Equal(t, "band-b", got[1].RuleID)
}

func TestGenerateEvents_ReversedRange(t *testing.T) {
	rules := []Rule{NewWeeklyRule("r1", "Sunday Service", 0, "10:00")}

	got := GenerateEvents(rules, "2024-03-31", "2024-03-01")

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGenerateEvents_MalformedRulesAreInert(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{
			"weekly rule without weekday",
			Rule{ID: "r1", Title: "No Weekday", Type: RuleWeekly, Time: "10:00", Active: true},
		},
		{
			"single rule without date",
			Rule{ID: "r2", Title: "No Date", Type: RuleSingle, Time: "10:00", Active: true},
		},
		{
			"unknown rule type",
			Rule{ID: "r3", Title: "Monthly?", Type: RuleType("monthly"), Weekday: mo.Some(0), Time: "10:00", Active: true},
		},
		{
			"weekday out of range",
			Rule{ID: "r4", Title: "Day Eight", Type: RuleWeekly, Weekday: mo.Some(7), Time: "10:00", Active: true},
		},
		{
			"negative weekday",
			Rule{ID: "r5", Title: "Day Minus One", Type: RuleWeekly, Weekday: mo.Some(-1), Time: "10:00", Active: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// The malformed rule must stay inert without suppressing the
			// healthy one.
			rules := []Rule{tt.rule, NewWeeklyRule("ok", "Sunday Service", 0, "10:00")}
			got := GenerateEvents(rules, "2024-03-03", "2024-03-09")
			require.Len(t, got, 1)
			assert.Equal(t, "ok", got[0].RuleID)
		})
	}
}

func TestGenerateEvents_SingleRuleWeekdayComputed(t *testing.T) {
	// 2024-03-29 is a Friday; the event records the day's own weekday.
	rules := []Rule{NewSingleRule("r1", "Good Friday Vigil", "2024-03-29", "19:30")}

	got := GenerateEvents(rules, "2024-03-01", "2024-03-31")

	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Weekday)
	assert.Equal(t, "2024-03-29T19:30", got[0].ISO)
	assert.Equal(t, "r1_2024-03-29", got[0].ID)
}

func TestGenerateEvents_UnparseableRange(t *testing.T) {
	rules := []Rule{NewWeeklyRule("r1", "Sunday Service", 0, "10:00")}

	assert.Empty(t, GenerateEvents(rules, "not-a-date", "2024-03-31"))
	assert.Empty(t, GenerateEvents(rules, "2024-03-01", "also-not"))
}

func TestGenerateEvents_DoesNotMutateInput(t *testing.T) {
	rules := []Rule{
		NewWeeklyRule("b", "Second", 0, "10:00"),
		NewWeeklyRule("a", "First", 0, "08:00"),
	}

	GenerateEvents(rules, "2024-03-03", "2024-03-03")

	assert.Equal(t, "b", rules[0].ID)
	assert.Equal(t, "a", rules[1].ID)
}

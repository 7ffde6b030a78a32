package schedule

import (
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
)

// FeedOptions controls iCalendar rendering of a projected window.
type FeedOptions struct {
	// Name becomes the calendar's NAME property when non-empty.
	Name string
	// ProductID overrides the PRODID property.
	ProductID string
	// Location is the timezone occurrence times are interpreted in.
	// Defaults to UTC.
	Location *time.Location
	// EventDuration is the length of each rendered VEVENT. Defaults to
	// 90 minutes.
	EventDuration time.Duration
}

const (
	defaultProductID     = "-//verger//Schedule Feed//EN"
	defaultEventDuration = 90 * time.Minute
)

// BuildCalendar renders the projection of rules over [startDate, endDate]
// as a VCALENDAR. Weekly rules become a single master VEVENT carrying an
// RRULE bounded by the window end; single rules become standalone VEVENTs.
// Every VEVENT's UID is the occurrence ID, so feed entries line up with
// the IDs consumers key assignments on.
//
// Rules with an unparseable time of day are skipped, mirroring the
// projector's per-rule fault isolation. DTSTAMP reuses the occurrence
// start so that identical inputs encode to identical bytes.
func BuildCalendar(rules []Rule, startDate, endDate string, opts FeedOptions) (*ical.Calendar, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	duration := opts.EventDuration
	if duration <= 0 {
		duration = defaultEventDuration
	}
	productID := opts.ProductID
	if productID == "" {
		productID = defaultProductID
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	if opts.Name != "" {
		cal.Props.SetText(ical.PropName, opts.Name)
	}

	until, err := time.Parse(dayFormat, endDate)
	if err != nil {
		return nil, fmt.Errorf("parse feed window end %q: %w", endDate, err)
	}
	until = middayUTC(until).Add(24 * time.Hour)

	ruleByID := make(map[string]Rule, len(rules))
	for _, r := range rules {
		ruleByID[r.ID] = r
	}

	seen := make(map[string]bool)
	for _, ev := range GenerateEvents(rules, startDate, endDate) {
		r := ruleByID[ev.RuleID]
		if r.Type == RuleWeekly {
			if seen[ev.RuleID] {
				continue
			}
			seen[ev.RuleID] = true
		}

		start, err := time.ParseInLocation(dayFormat+"T"+timeFormat, ev.ISO, loc)
		if err != nil {
			continue
		}

		vevent := ical.NewEvent()
		vevent.Props.SetText(ical.PropUID, ev.ID)
		vevent.Props.SetText(ical.PropSummary, ev.Title)
		vevent.Props.SetDateTime(ical.PropDateTimeStamp, start)
		vevent.Props.SetDateTime(ical.PropDateTimeStart, start)
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(duration))

		if r.Type == RuleWeekly {
			wd, ok := r.Weekday.Get()
			if !ok {
				continue
			}
			rr, err := weeklyRRule(wd, until)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", r.ID, err)
			}
			prop := ical.NewProp(ical.PropRecurrenceRule)
			prop.Value = rr
			vevent.Props.Set(prop)
		}

		cal.Children = append(cal.Children, vevent.Component)
	}

	return cal, nil
}

// weeklyRRule builds and validates a FREQ=WEEKLY rule string for the 0-6
// weekday index, 0 = Sunday.
func weeklyRRule(weekday int, until time.Time) (string, error) {
	days := []rrule.Weekday{
		rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA,
	}
	if weekday < 0 || weekday >= len(days) {
		return "", fmt.Errorf("weekday %d out of range", weekday)
	}
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{days[weekday]},
		Until:     until.UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("build weekly rrule: %w", err)
	}
	return r.OrigOptions.RRuleString(), nil
}

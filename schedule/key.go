package schedule

import (
	"fmt"
	"strings"
	"time"
)

// keySep joins the parts of composite occurrence and assignment keys. Dates
// never contain it, which is what makes parsing from the date anchor
// unambiguous even when rule IDs or role names contain underscores.
const keySep = "_"

// OccurrenceKey identifies one concrete occurrence of a rule: the pair of
// originating rule ID and calendar date. Its canonical serialization is the
// occurrence ID used as the stable join key for assignments, setlists and
// swap requests.
type OccurrenceKey struct {
	RuleID string
	Date   string // YYYY-MM-DD
}

// String returns the canonical "{ruleID}_{date}" form.
func (k OccurrenceKey) String() string {
	return k.RuleID + keySep + k.Date
}

// ParseOccurrenceKey parses the canonical "{ruleID}_{date}" form. The date
// is anchored at the last separator; anything before it is the rule ID, so
// rule IDs containing the separator round-trip correctly.
func ParseOccurrenceKey(s string) (OccurrenceKey, error) {
	i := strings.LastIndex(s, keySep)
	if i <= 0 || i == len(s)-1 {
		return OccurrenceKey{}, fmt.Errorf("malformed occurrence key %q", s)
	}
	date := s[i+1:]
	if !isDate(date) {
		return OccurrenceKey{}, fmt.Errorf("malformed occurrence key %q: bad date %q", s, date)
	}
	return OccurrenceKey{RuleID: s[:i], Date: date}, nil
}

// AssignmentKey identifies one role slot on one occurrence.
type AssignmentKey struct {
	RuleID string
	Date   string // YYYY-MM-DD
	Role   string
}

// String returns the canonical "{ruleID}_{date}_{role}" form.
func (k AssignmentKey) String() string {
	return k.RuleID + keySep + k.Date + keySep + k.Role
}

// Occurrence returns the occurrence part of the key.
func (k AssignmentKey) Occurrence() OccurrenceKey {
	return OccurrenceKey{RuleID: k.RuleID, Date: k.Date}
}

// ParseAssignmentKey parses the canonical "{ruleID}_{date}_{role}" form.
// The key is anchored at the first separator-delimited date, so roles that
// contain the separator still round-trip. Rule IDs must not themselves
// contain a separator-delimited date segment.
func ParseAssignmentKey(s string) (AssignmentKey, error) {
	for i := strings.Index(s, keySep); i >= 0; {
		rest := s[i+1:]
		if len(rest) > dateLen && rest[dateLen:dateLen+1] == keySep && isDate(rest[:dateLen]) {
			if i == 0 || len(rest) == dateLen+1 {
				break
			}
			return AssignmentKey{
				RuleID: s[:i],
				Date:   rest[:dateLen],
				Role:   rest[dateLen+1:],
			}, nil
		}
		next := strings.Index(rest, keySep)
		if next < 0 {
			break
		}
		i += 1 + next
	}
	return AssignmentKey{}, fmt.Errorf("malformed assignment key %q", s)
}

const (
	dayFormat  = "2006-01-02"
	timeFormat = "15:04"
	dateLen    = len(dayFormat)
)

func isDate(s string) bool {
	if len(s) != dateLen {
		return false
	}
	_, err := time.Parse(dayFormat, s)
	return err == nil
}

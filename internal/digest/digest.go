// Package digest produces periodic schedule summaries. A run walks every
// ministry, projects the upcoming window and posts the result as an
// announcement, so members see the week ahead without opening the calendar.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vergerhq/verger/schedule"
	"github.com/vergerhq/verger/storage"
)

// SourceDigest marks announcements written by this job.
const SourceDigest = "digest"

const dayFormat = "2006-01-02"

// Job writes upcoming-schedule announcements for every ministry.
type Job struct {
	store      storage.Store
	logger     *slog.Logger
	windowDays int
	now        func() time.Time
}

// Option configures a Job.
type Option func(*Job)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(j *Job) {
		j.now = now
	}
}

// New creates a digest job covering windowDays from the day of each run.
func New(store storage.Store, logger *slog.Logger, windowDays int, opts ...Option) *Job {
	if windowDays <= 0 {
		windowDays = 7
	}
	j := &Job{
		store:      store,
		logger:     logger,
		windowDays: windowDays,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run posts one digest announcement per ministry. A ministry that already
// received a digest today, or has nothing scheduled in the window, is
// skipped. Failures on one ministry do not stop the others.
func (j *Job) Run(ctx context.Context) error {
	ministries, err := j.store.ListMinistryIDs(ctx)
	if err != nil {
		return fmt.Errorf("list ministries: %w", err)
	}

	today := j.now().UTC()
	var failed int
	for _, ministry := range ministries {
		if err := j.runMinistry(ctx, ministry, today); err != nil {
			j.logger.Error("digest failed", "ministry", ministry, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("digest failed for %d of %d ministries", failed, len(ministries))
	}
	return nil
}

func (j *Job) runMinistry(ctx context.Context, ministry string, today time.Time) error {
	posted, err := j.postedToday(ctx, ministry, today)
	if err != nil {
		return err
	}
	if posted {
		return nil
	}

	records, err := j.store.ListRules(ctx, ministry, true)
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}
	rules := make([]schedule.Rule, len(records))
	for i, rec := range records {
		rules[i] = rec.Rule
	}

	start := today.Format(dayFormat)
	end := today.AddDate(0, 0, j.windowDays).Format(dayFormat)
	events := schedule.GenerateEvents(rules, start, end)
	if len(events) == 0 {
		return nil
	}

	occurrenceIDs := make([]string, len(events))
	for i, ev := range events {
		occurrenceIDs[i] = ev.ID
	}
	assignments, err := j.store.ListAssignments(ctx, ministry, occurrenceIDs)
	if err != nil {
		return fmt.Errorf("list assignments: %w", err)
	}
	assignedCount := make(map[string]int)
	for _, a := range assignments {
		assignedCount[a.OccurrenceID]++
	}

	a := &storage.Announcement{
		ID:         uuid.NewString(),
		MinistryID: ministry,
		Subject:    fmt.Sprintf("Schedule for %s to %s", start, end),
		Body:       renderBody(events, assignedCount),
		Source:     SourceDigest,
		CreatedAt:  today,
	}
	if err := j.store.CreateAnnouncement(ctx, a); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}

	j.logger.Info("posted schedule digest",
		"ministry", ministry,
		"events", len(events),
		"window_days", j.windowDays)
	return nil
}

// postedToday reports whether a digest announcement already went out for
// this ministry on the given day.
func (j *Job) postedToday(ctx context.Context, ministry string, today time.Time) (bool, error) {
	recent, err := j.store.ListAnnouncements(ctx, ministry, 20)
	if err != nil {
		return false, fmt.Errorf("list announcements: %w", err)
	}
	day := today.Format(dayFormat)
	for _, a := range recent {
		if a.Source == SourceDigest && a.CreatedAt.UTC().Format(dayFormat) == day {
			return true, nil
		}
	}
	return false, nil
}

func renderBody(events []schedule.Event, assignedCount map[string]int) string {
	var b strings.Builder
	for _, ev := range events {
		fmt.Fprintf(&b, "%s %s  %s", ev.Date, ev.Time, ev.Title)
		if n := assignedCount[ev.ID]; n > 0 {
			fmt.Fprintf(&b, " (%d assigned)", n)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Package roster implements the scheduling workflows around the projection
// core: overlaying persisted assignments and setlists on projected
// occurrences, validating occurrence keys against their rules, availability
// lookups, and the shift-swap lifecycle.
package roster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vergerhq/verger/schedule"
	"github.com/vergerhq/verger/storage"
)

// Projector expands rules into occurrences over an inclusive date range.
// It must behave exactly like schedule.GenerateEvents; wrapping it is how
// consumers add caching without the core growing any.
type Projector func(rules []schedule.Rule, startDate, endDate string) []schedule.Event

// Service coordinates the store and the projector. All methods are safe
// for concurrent use; the projector holds no state and the store guards
// its own.
type Service struct {
	store   storage.Store
	logger  *slog.Logger
	project Projector
}

// Option configures a Service.
type Option func(*Service)

// WithProjector substitutes the projection function used for window
// queries, typically a memoizing wrapper around schedule.GenerateEvents.
// Occurrence-key validation always uses the plain projector.
func WithProjector(p Projector) Option {
	return func(s *Service) {
		if p != nil {
			s.project = p
		}
	}
}

// NewService creates a roster service. A nil logger discards output.
func NewService(store storage.Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{store: store, logger: logger, project: schedule.GenerateEvents}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduledEvent is one projected occurrence with its persisted overlay.
type ScheduledEvent struct {
	schedule.Event
	Assignments []storage.Assignment   `json:"assignments"`
	Setlist     []storage.SetlistEntry `json:"setlist,omitempty"`
}

// Schedule projects the ministry's rules over [start, end] and overlays
// assignments and setlists keyed by occurrence ID. All rules are loaded,
// not just active ones: the projector re-filters on the active flag, so a
// rule deactivated mid-request cannot leak occurrences.
func (s *Service) Schedule(ctx context.Context, ministryID, start, end string) ([]ScheduledEvent, error) {
	records, err := s.store.ListRules(ctx, ministryID, false)
	if err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}

	events := s.project(rulesOf(records), start, end)
	ids := make([]string, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}

	assignments, err := s.store.ListAssignments(ctx, ministryID, ids)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	setlists, err := s.store.ListSetlistEntries(ctx, ministryID, ids)
	if err != nil {
		return nil, fmt.Errorf("listing setlists: %w", err)
	}

	byOccurrence := make(map[string][]storage.Assignment)
	for _, a := range assignments {
		byOccurrence[a.OccurrenceID] = append(byOccurrence[a.OccurrenceID], a)
	}
	setlistByOccurrence := make(map[string][]storage.SetlistEntry)
	for _, e := range setlists {
		setlistByOccurrence[e.OccurrenceID] = append(setlistByOccurrence[e.OccurrenceID], e)
	}

	out := make([]ScheduledEvent, len(events))
	for i, ev := range events {
		out[i] = ScheduledEvent{
			Event:       ev,
			Assignments: byOccurrence[ev.ID],
			Setlist:     setlistByOccurrence[ev.ID],
		}
	}
	return out, nil
}

// resolveOccurrence verifies that the key's date really is an occurrence
// of its rule by projecting the rule over the single day. A key pointing
// at a Tuesday for a Sunday rule is rejected before anything is persisted
// against it.
func (s *Service) resolveOccurrence(ctx context.Context, ministryID string, key schedule.OccurrenceKey) (*storage.RuleRecord, error) {
	rec, err := s.store.GetRule(ctx, ministryID, key.RuleID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUnknownOccurrence
		}
		return nil, fmt.Errorf("getting rule: %w", err)
	}

	events := schedule.GenerateEvents([]schedule.Rule{rec.Rule}, key.Date, key.Date)
	if len(events) == 0 || events[0].ID != key.String() {
		return nil, ErrUnknownOccurrence
	}
	return rec, nil
}

// Assign puts a member on a role slot. The slot must be free or already
// held by the same member; replacing someone requires an explicit
// Unassign first (or an accepted swap).
func (s *Service) Assign(ctx context.Context, ministryID string, key schedule.AssignmentKey, memberID string) (*storage.Assignment, error) {
	if strings.TrimSpace(memberID) == "" || strings.TrimSpace(key.Role) == "" {
		return nil, ErrInvalidInput
	}
	if _, err := s.resolveOccurrence(ctx, ministryID, key.Occurrence()); err != nil {
		return nil, err
	}
	if _, err := s.store.GetMember(ctx, ministryID, memberID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("member %s: %w", memberID, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("getting member: %w", err)
	}

	occurrenceID := key.Occurrence().String()
	existing, err := s.store.GetAssignment(ctx, ministryID, occurrenceID, key.Role)
	switch {
	case err == nil && existing.MemberID != memberID:
		return nil, ErrRoleTaken
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("checking slot: %w", err)
	}

	a := &storage.Assignment{
		MinistryID:   ministryID,
		OccurrenceID: occurrenceID,
		Role:         key.Role,
		MemberID:     memberID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.PutAssignment(ctx, a); err != nil {
		return nil, fmt.Errorf("putting assignment: %w", err)
	}

	s.logger.Info("member assigned",
		"ministry", ministryID,
		"occurrence", occurrenceID,
		"role", key.Role,
		"member", memberID)
	return a, nil
}

// Unassign frees a role slot.
func (s *Service) Unassign(ctx context.Context, ministryID string, key schedule.AssignmentKey) error {
	err := s.store.DeleteAssignment(ctx, ministryID, key.Occurrence().String(), key.Role)
	if err != nil {
		return fmt.Errorf("deleting assignment: %w", err)
	}
	return nil
}

// AvailableMembers returns the ministry's members available on the given
// date, optionally restricted to those who can serve the role. A member
// with no availability record counts as available; records exist to mark
// exceptions.
func (s *Service) AvailableMembers(ctx context.Context, ministryID, date, role string) ([]storage.Member, error) {
	members, err := s.store.ListMembers(ctx, ministryID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	records, err := s.store.ListAvailability(ctx, ministryID, date)
	if err != nil {
		return nil, fmt.Errorf("listing availability: %w", err)
	}

	away := make(map[string]bool)
	for _, av := range records {
		if !av.Available {
			away[av.MemberID] = true
		}
	}

	out := make([]storage.Member, 0, len(members))
	for _, m := range members {
		if away[m.ID] {
			continue
		}
		if role != "" && !slices.Contains(m.Roles, role) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// RequestSwap opens a pending swap: from asks to hand the slot to target.
// The slot must currently be held by from, and the target member must
// exist and be able to serve the role.
func (s *Service) RequestSwap(ctx context.Context, ministryID string, key schedule.AssignmentKey, fromMemberID, toMemberID, note string) (*storage.SwapRequest, error) {
	if fromMemberID == "" || toMemberID == "" || fromMemberID == toMemberID {
		return nil, ErrInvalidInput
	}

	occurrenceID := key.Occurrence().String()
	current, err := s.store.GetAssignment(ctx, ministryID, occurrenceID, key.Role)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotAssigned
		}
		return nil, fmt.Errorf("getting assignment: %w", err)
	}
	if current.MemberID != fromMemberID {
		return nil, ErrNotAssigned
	}

	target, err := s.store.GetMember(ctx, ministryID, toMemberID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("target member %s: %w", toMemberID, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("getting target member: %w", err)
	}
	if len(target.Roles) > 0 && !slices.Contains(target.Roles, key.Role) {
		return nil, fmt.Errorf("%w: %s cannot serve %s", ErrInvalidInput, toMemberID, key.Role)
	}

	req := &storage.SwapRequest{
		ID:           uuid.NewString(),
		MinistryID:   ministryID,
		OccurrenceID: occurrenceID,
		Role:         key.Role,
		FromMemberID: fromMemberID,
		ToMemberID:   toMemberID,
		Status:       storage.SwapPending,
		Note:         note,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateSwapRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("creating swap request: %w", err)
	}

	s.logger.Info("swap requested",
		"ministry", ministryID,
		"occurrence", occurrenceID,
		"role", key.Role,
		"from", fromMemberID,
		"to", toMemberID)
	return req, nil
}

// ResolveSwap accepts or declines a pending request. Accepting rewrites
// the assignment to the target member; declining leaves it untouched.
// Either way the request leaves the pending state exactly once.
func (s *Service) ResolveSwap(ctx context.Context, ministryID, requestID string, accept bool) (*storage.SwapRequest, error) {
	req, err := s.store.GetSwapRequest(ctx, ministryID, requestID)
	if err != nil {
		return nil, fmt.Errorf("getting swap request: %w", err)
	}
	if req.Status != storage.SwapPending {
		return nil, ErrSwapClosed
	}

	if accept {
		// The holder may have changed since the request was opened; only a
		// slot still held by the requester can be handed over.
		current, err := s.store.GetAssignment(ctx, ministryID, req.OccurrenceID, req.Role)
		if err != nil || current.MemberID != req.FromMemberID {
			return nil, ErrNotAssigned
		}
		if err := s.store.PutAssignment(ctx, &storage.Assignment{
			MinistryID:   ministryID,
			OccurrenceID: req.OccurrenceID,
			Role:         req.Role,
			MemberID:     req.ToMemberID,
			CreatedAt:    time.Now().UTC(),
		}); err != nil {
			return nil, fmt.Errorf("reassigning slot: %w", err)
		}
		req.Status = storage.SwapAccepted
	} else {
		req.Status = storage.SwapDeclined
	}

	now := time.Now().UTC()
	req.ResolvedAt = &now
	if err := s.store.UpdateSwapRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("updating swap request: %w", err)
	}

	s.logger.Info("swap resolved",
		"ministry", ministryID,
		"request", requestID,
		"status", string(req.Status))
	return req, nil
}

// CancelSwap withdraws a pending request on behalf of its requester.
func (s *Service) CancelSwap(ctx context.Context, ministryID, requestID string) (*storage.SwapRequest, error) {
	req, err := s.store.GetSwapRequest(ctx, ministryID, requestID)
	if err != nil {
		return nil, fmt.Errorf("getting swap request: %w", err)
	}
	if req.Status != storage.SwapPending {
		return nil, ErrSwapClosed
	}

	now := time.Now().UTC()
	req.Status = storage.SwapCancelled
	req.ResolvedAt = &now
	if err := s.store.UpdateSwapRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("updating swap request: %w", err)
	}
	return req, nil
}

// SetSetlist replaces the setlist of an occurrence after validating the
// occurrence and every song.
func (s *Service) SetSetlist(ctx context.Context, ministryID string, key schedule.OccurrenceKey, songIDs []string) error {
	if _, err := s.resolveOccurrence(ctx, ministryID, key); err != nil {
		return err
	}

	entries := make([]storage.SetlistEntry, len(songIDs))
	for i, songID := range songIDs {
		if _, err := s.store.GetSong(ctx, ministryID, songID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("song %s: %w", songID, storage.ErrNotFound)
			}
			return fmt.Errorf("getting song: %w", err)
		}
		entries[i] = storage.SetlistEntry{
			MinistryID:   ministryID,
			OccurrenceID: key.String(),
			SongID:       songID,
			Position:     i,
		}
	}

	if err := s.store.SetSetlist(ctx, ministryID, key.String(), entries); err != nil {
		return fmt.Errorf("setting setlist: %w", err)
	}
	return nil
}

// Announce records a ministry-scoped announcement.
func (s *Service) Announce(ctx context.Context, ministryID, subject, body string) (*storage.Announcement, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, ErrInvalidInput
	}

	a := &storage.Announcement{
		ID:         uuid.NewString(),
		MinistryID: ministryID,
		Subject:    subject,
		Body:       body,
		Source:     "user",
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateAnnouncement(ctx, a); err != nil {
		return nil, fmt.Errorf("creating announcement: %w", err)
	}
	return a, nil
}

func rulesOf(records []storage.RuleRecord) []schedule.Rule {
	rules := make([]schedule.Rule, len(records))
	for i, rec := range records {
		rules[i] = rec.Rule
	}
	return rules
}

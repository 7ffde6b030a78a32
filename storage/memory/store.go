// Package memory provides an in-memory Store implementation, used by tests
// and by the server's zero-configuration mode. Data does not survive a
// restart; occurrence-keyed rows are still stable across re-projection
// because the keys are derived, not assigned.
package memory

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/vergerhq/verger/storage"
)

// Store implements storage.Store with mutex-guarded maps.
type Store struct {
	mu     sync.RWMutex
	logger *slog.Logger

	rules         map[string]map[string]storage.RuleRecord // ministry -> rule id
	members       map[string]map[string]storage.Member
	assignments   map[string]map[string]storage.Assignment // ministry -> occurrenceID_role
	availability  map[string]map[string]storage.Availability
	songs         map[string]map[string]storage.Song
	setlists      map[string]map[string][]storage.SetlistEntry // ministry -> occurrence id
	swaps         map[string]map[string]storage.SwapRequest
	announcements map[string][]storage.Announcement
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		rules:         make(map[string]map[string]storage.RuleRecord),
		members:       make(map[string]map[string]storage.Member),
		assignments:   make(map[string]map[string]storage.Assignment),
		availability:  make(map[string]map[string]storage.Availability),
		songs:         make(map[string]map[string]storage.Song),
		setlists:      make(map[string]map[string][]storage.SetlistEntry),
		swaps:         make(map[string]map[string]storage.SwapRequest),
		announcements: make(map[string][]storage.Announcement),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) CreateRule(ctx context.Context, rec *storage.RuleRecord) error {
	if rec == nil || rec.ID == "" || rec.MinistryID == "" {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.rules[rec.MinistryID]
	if !ok {
		bucket = make(map[string]storage.RuleRecord)
		s.rules[rec.MinistryID] = bucket
	}
	if _, exists := bucket[rec.ID]; exists {
		return storage.ErrConflict
	}
	bucket[rec.ID] = *rec
	s.logger.Debug("rule created", "ministry", rec.MinistryID, "rule", rec.ID)
	return nil
}

func (s *Store) GetRule(ctx context.Context, ministryID, ruleID string) (*storage.RuleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.rules[ministryID][ruleID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &rec, nil
}

func (s *Store) ListRules(ctx context.Context, ministryID string, activeOnly bool) ([]storage.RuleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.RuleRecord, 0, len(s.rules[ministryID]))
	for _, rec := range s.rules[ministryID] {
		if activeOnly && !rec.Active {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateRule(ctx context.Context, rec *storage.RuleRecord) error {
	if rec == nil || rec.ID == "" {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.rules[rec.MinistryID]
	if _, ok := bucket[rec.ID]; !ok {
		return storage.ErrNotFound
	}
	bucket[rec.ID] = *rec
	return nil
}

func (s *Store) DeactivateRule(ctx context.Context, ministryID, ruleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.rules[ministryID][ruleID]
	if !ok {
		return storage.ErrNotFound
	}
	rec.Active = false
	s.rules[ministryID][ruleID] = rec
	return nil
}

func (s *Store) CreateMember(ctx context.Context, m *storage.Member) error {
	if m == nil || m.ID == "" || m.MinistryID == "" {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.members[m.MinistryID]
	if !ok {
		bucket = make(map[string]storage.Member)
		s.members[m.MinistryID] = bucket
	}
	if _, exists := bucket[m.ID]; exists {
		return storage.ErrConflict
	}
	bucket[m.ID] = *m
	return nil
}

func (s *Store) GetMember(ctx context.Context, ministryID, memberID string) (*storage.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[ministryID][memberID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &m, nil
}

func (s *Store) ListMembers(ctx context.Context, ministryID string) ([]storage.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.Member, 0, len(s.members[ministryID]))
	for _, m := range s.members[ministryID] {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func assignmentKey(occurrenceID, role string) string {
	return occurrenceID + "\x00" + role
}

func (s *Store) PutAssignment(ctx context.Context, a *storage.Assignment) error {
	if a == nil || a.OccurrenceID == "" || a.Role == "" || a.MemberID == "" {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.assignments[a.MinistryID]
	if !ok {
		bucket = make(map[string]storage.Assignment)
		s.assignments[a.MinistryID] = bucket
	}
	bucket[assignmentKey(a.OccurrenceID, a.Role)] = *a
	return nil
}

func (s *Store) GetAssignment(ctx context.Context, ministryID, occurrenceID, role string) (*storage.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assignments[ministryID][assignmentKey(occurrenceID, role)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &a, nil
}

func (s *Store) ListAssignments(ctx context.Context, ministryID string, occurrenceIDs []string) ([]storage.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]bool, len(occurrenceIDs))
	for _, id := range occurrenceIDs {
		wanted[id] = true
	}

	out := make([]storage.Assignment, 0)
	for _, a := range s.assignments[ministryID] {
		if wanted[a.OccurrenceID] {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OccurrenceID != out[j].OccurrenceID {
			return out[i].OccurrenceID < out[j].OccurrenceID
		}
		return out[i].Role < out[j].Role
	})
	return out, nil
}

func (s *Store) DeleteAssignment(ctx context.Context, ministryID, occurrenceID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := assignmentKey(occurrenceID, role)
	if _, ok := s.assignments[ministryID][key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.assignments[ministryID], key)
	return nil
}

func availabilityKey(memberID, date string) string {
	return memberID + "\x00" + date
}

func (s *Store) SetAvailability(ctx context.Context, av *storage.Availability) error {
	if av == nil || av.MemberID == "" || av.Date == "" {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.availability[av.MinistryID]
	if !ok {
		bucket = make(map[string]storage.Availability)
		s.availability[av.MinistryID] = bucket
	}
	bucket[availabilityKey(av.MemberID, av.Date)] = *av
	return nil
}

func (s *Store) ListAvailability(ctx context.Context, ministryID, date string) ([]storage.Availability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.Availability, 0)
	for _, av := range s.availability[ministryID] {
		if av.Date == date {
			out = append(out, av)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out, nil
}

func (s *Store) CreateSong(ctx context.Context, song *storage.Song) error {
	if song == nil || song.ID == "" || song.MinistryID == "" {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.songs[song.MinistryID]
	if !ok {
		bucket = make(map[string]storage.Song)
		s.songs[song.MinistryID] = bucket
	}
	if _, exists := bucket[song.ID]; exists {
		return storage.ErrConflict
	}
	bucket[song.ID] = *song
	return nil
}

func (s *Store) GetSong(ctx context.Context, ministryID, songID string) (*storage.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	song, ok := s.songs[ministryID][songID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &song, nil
}

func (s *Store) ListSongs(ctx context.Context, ministryID string) ([]storage.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.Song, 0, len(s.songs[ministryID]))
	for _, song := range s.songs[ministryID] {
		out = append(out, song)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *Store) SetSetlist(ctx context.Context, ministryID, occurrenceID string, entries []storage.SetlistEntry) error {
	if occurrenceID == "" {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.setlists[ministryID]
	if !ok {
		bucket = make(map[string][]storage.SetlistEntry)
		s.setlists[ministryID] = bucket
	}
	copied := make([]storage.SetlistEntry, len(entries))
	copy(copied, entries)
	bucket[occurrenceID] = copied
	return nil
}

func (s *Store) ListSetlistEntries(ctx context.Context, ministryID string, occurrenceIDs []string) ([]storage.SetlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.SetlistEntry, 0)
	for _, id := range occurrenceIDs {
		out = append(out, s.setlists[ministryID][id]...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OccurrenceID != out[j].OccurrenceID {
			return out[i].OccurrenceID < out[j].OccurrenceID
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (s *Store) CreateSwapRequest(ctx context.Context, req *storage.SwapRequest) error {
	if req == nil || req.ID == "" || req.MinistryID == "" {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.swaps[req.MinistryID]
	if !ok {
		bucket = make(map[string]storage.SwapRequest)
		s.swaps[req.MinistryID] = bucket
	}
	if _, exists := bucket[req.ID]; exists {
		return storage.ErrConflict
	}
	bucket[req.ID] = *req
	return nil
}

func (s *Store) GetSwapRequest(ctx context.Context, ministryID, requestID string) (*storage.SwapRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.swaps[ministryID][requestID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &req, nil
}

func (s *Store) ListSwapRequests(ctx context.Context, ministryID string, status storage.SwapStatus) ([]storage.SwapRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.SwapRequest, 0)
	for _, req := range s.swaps[ministryID] {
		if status != "" && req.Status != status {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateSwapRequest(ctx context.Context, req *storage.SwapRequest) error {
	if req == nil || req.ID == "" {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.swaps[req.MinistryID]
	if _, ok := bucket[req.ID]; !ok {
		return storage.ErrNotFound
	}
	bucket[req.ID] = *req
	return nil
}

func (s *Store) CreateAnnouncement(ctx context.Context, a *storage.Announcement) error {
	if a == nil || a.ID == "" || a.MinistryID == "" {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.announcements[a.MinistryID] = append(s.announcements[a.MinistryID], *a)
	return nil
}

func (s *Store) ListAnnouncements(ctx context.Context, ministryID string, limit int) ([]storage.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.announcements[ministryID]
	out := make([]storage.Announcement, len(all))
	copy(out, all)
	// Newest first.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListMinistryIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.rules))
	for id := range s.rules {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Close implements storage.Store; there is nothing to release.
func (s *Store) Close() error { return nil }

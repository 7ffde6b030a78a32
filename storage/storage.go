package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vergerhq/verger/schedule"
)

var (
	// ErrNotFound is returned when a requested resource doesn't exist
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidInput is returned when the input parameters are invalid
	ErrInvalidInput = errors.New("invalid input parameters")
	// ErrConflict is returned when a write collides with an existing resource
	ErrConflict = errors.New("resource conflict")
)

// RuleRecord is a persisted scheduling rule. The embedded schedule.Rule is
// what the projector consumes; the surrounding fields are bookkeeping.
// Deactivating a rule is the soft delete: history keyed on its past
// occurrence IDs stays resolvable.
type RuleRecord struct {
	schedule.Rule
	MinistryID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Member is someone who can be assigned to serve.
type Member struct {
	ID         string
	MinistryID string
	Name       string
	Email      string
	Roles      []string // roles the member can serve in
	CreatedAt  time.Time
}

// Assignment binds a member to one role slot on one occurrence.
// OccurrenceID is the projector-derived ID, never a database-assigned
// surrogate: the same rule and date always map to the same row.
type Assignment struct {
	MinistryID   string
	OccurrenceID string
	Role         string
	MemberID     string
	CreatedAt    time.Time
}

// Availability is a member's declared exception for one date. Absence of a
// record means available; records exist to say "away" (or to explicitly
// confirm).
type Availability struct {
	MinistryID string
	MemberID   string
	Date       string // YYYY-MM-DD
	Available  bool
	Note       string
}

// Song is one entry in a ministry's repertoire.
type Song struct {
	ID         string
	MinistryID string
	Title      string
	Artist     string
	SongKey    string
	Reference  string // chart or recording URL
	CreatedAt  time.Time
}

// SetlistEntry places a song on an occurrence's setlist.
type SetlistEntry struct {
	MinistryID   string
	OccurrenceID string
	SongID       string
	Position     int
}

// SwapStatus is the lifecycle state of a swap request.
type SwapStatus string

const (
	SwapPending   SwapStatus = "pending"
	SwapAccepted  SwapStatus = "accepted"
	SwapDeclined  SwapStatus = "declined"
	SwapCancelled SwapStatus = "cancelled"
)

// SwapRequest records one member asking another to take over an
// assignment. The assignment is addressed by occurrence ID and role, not a
// row ID, so requests survive re-projection.
type SwapRequest struct {
	ID           string
	MinistryID   string
	OccurrenceID string
	Role         string
	FromMemberID string
	ToMemberID   string
	Status       SwapStatus
	Note         string
	CreatedAt    time.Time
	ResolvedAt   *time.Time
}

// Announcement is a ministry-scoped message. Delivery (push, mail) is an
// external concern; rows here are the boundary.
type Announcement struct {
	ID         string
	MinistryID string
	Subject    string
	Body       string
	Source     string // "user" or "digest"
	CreatedAt  time.Time
}

// Store is the persistence interface for the scheduling service. Ministry
// IDs are opaque tenant keys; every operation is scoped to one. Please use
// the error values defined in this package.
type Store interface {
	// Rule operations
	CreateRule(ctx context.Context, rec *RuleRecord) error
	GetRule(ctx context.Context, ministryID, ruleID string) (*RuleRecord, error)
	ListRules(ctx context.Context, ministryID string, activeOnly bool) ([]RuleRecord, error)
	UpdateRule(ctx context.Context, rec *RuleRecord) error
	// DeactivateRule clears the active flag; the rule keeps existing so
	// occurrence IDs derived from it remain resolvable.
	DeactivateRule(ctx context.Context, ministryID, ruleID string) error

	// Member operations
	CreateMember(ctx context.Context, m *Member) error
	GetMember(ctx context.Context, ministryID, memberID string) (*Member, error)
	ListMembers(ctx context.Context, ministryID string) ([]Member, error)

	// Assignment operations
	PutAssignment(ctx context.Context, a *Assignment) error
	GetAssignment(ctx context.Context, ministryID, occurrenceID, role string) (*Assignment, error)
	ListAssignments(ctx context.Context, ministryID string, occurrenceIDs []string) ([]Assignment, error)
	DeleteAssignment(ctx context.Context, ministryID, occurrenceID, role string) error

	// Availability operations
	SetAvailability(ctx context.Context, av *Availability) error
	ListAvailability(ctx context.Context, ministryID, date string) ([]Availability, error)

	// Song and setlist operations
	CreateSong(ctx context.Context, s *Song) error
	GetSong(ctx context.Context, ministryID, songID string) (*Song, error)
	ListSongs(ctx context.Context, ministryID string) ([]Song, error)
	// SetSetlist replaces the whole setlist of an occurrence.
	SetSetlist(ctx context.Context, ministryID, occurrenceID string, entries []SetlistEntry) error
	ListSetlistEntries(ctx context.Context, ministryID string, occurrenceIDs []string) ([]SetlistEntry, error)

	// Swap request operations
	CreateSwapRequest(ctx context.Context, req *SwapRequest) error
	GetSwapRequest(ctx context.Context, ministryID, requestID string) (*SwapRequest, error)
	ListSwapRequests(ctx context.Context, ministryID string, status SwapStatus) ([]SwapRequest, error)
	UpdateSwapRequest(ctx context.Context, req *SwapRequest) error

	// Announcement operations
	CreateAnnouncement(ctx context.Context, a *Announcement) error
	ListAnnouncements(ctx context.Context, ministryID string, limit int) ([]Announcement, error)

	// ListMinistryIDs returns the distinct ministry IDs that have rules,
	// for jobs that iterate every tenant.
	ListMinistryIDs(ctx context.Context) ([]string, error)

	Close() error
}

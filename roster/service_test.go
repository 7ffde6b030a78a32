package roster_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vergerhq/verger/roster"
	"github.com/vergerhq/verger/schedule"
	"github.com/vergerhq/verger/storage"
	"github.com/vergerhq/verger/storage/memory"
)

const ministry = "worship"

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateRule(ctx, &storage.RuleRecord{
		Rule:       schedule.NewWeeklyRule("sunday", "Sunday Service", 0, "10:00"),
		MinistryID: ministry,
		CreatedAt:  now,
		UpdatedAt:  now,
	}))
	require.NoError(t, s.CreateMember(ctx, &storage.Member{
		ID: "alice", MinistryID: ministry, Name: "Alice",
		Roles: []string{"vocals", "piano"}, CreatedAt: now,
	}))
	require.NoError(t, s.CreateMember(ctx, &storage.Member{
		ID: "bob", MinistryID: ministry, Name: "Bob",
		Roles: []string{"vocals"}, CreatedAt: now,
	}))
	require.NoError(t, s.CreateMember(ctx, &storage.Member{
		ID: "carol", MinistryID: ministry, Name: "Carol",
		Roles: []string{"sound"}, CreatedAt: now,
	}))
	return s
}

// 2024-03-03 is a Sunday, so the weekly rule fires there.
var sundayKey = schedule.AssignmentKey{RuleID: "sunday", Date: "2024-03-03", Role: "vocals"}

func TestService_AssignAndSchedule(t *testing.T) {
	ctx := context.Background()
	svc := roster.NewService(seedStore(t), nil)

	a, err := svc.Assign(ctx, ministry, sundayKey, "alice")
	require.NoError(t, err)
	assert.Equal(t, "sunday_2024-03-03", a.OccurrenceID)

	events, err := svc.Schedule(ctx, ministry, "2024-03-01", "2024-03-31")
	require.NoError(t, err)
	require.Len(t, events, 5, "March 2024 has five Sundays")

	require.Len(t, events[0].Assignments, 1)
	assert.Equal(t, "alice", events[0].Assignments[0].MemberID)
	assert.Empty(t, events[1].Assignments)
}

func TestService_AssignValidatesOccurrence(t *testing.T) {
	ctx := context.Background()
	svc := roster.NewService(seedStore(t), nil)

	// 2024-03-04 is a Monday; the Sunday rule never fires there.
	badKey := schedule.AssignmentKey{RuleID: "sunday", Date: "2024-03-04", Role: "vocals"}
	_, err := svc.Assign(ctx, ministry, badKey, "alice")
	assert.ErrorIs(t, err, roster.ErrUnknownOccurrence)

	missingRule := schedule.AssignmentKey{RuleID: "nope", Date: "2024-03-03", Role: "vocals"}
	_, err = svc.Assign(ctx, ministry, missingRule, "alice")
	assert.ErrorIs(t, err, roster.ErrUnknownOccurrence)

	_, err = svc.Assign(ctx, ministry, sundayKey, "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestService_AssignOccupiedSlot(t *testing.T) {
	ctx := context.Background()
	svc := roster.NewService(seedStore(t), nil)

	_, err := svc.Assign(ctx, ministry, sundayKey, "alice")
	require.NoError(t, err)

	_, err = svc.Assign(ctx, ministry, sundayKey, "bob")
	assert.ErrorIs(t, err, roster.ErrRoleTaken)

	// Re-assigning the same member is idempotent.
	_, err = svc.Assign(ctx, ministry, sundayKey, "alice")
	assert.NoError(t, err)

	require.NoError(t, svc.Unassign(ctx, ministry, sundayKey))
	_, err = svc.Assign(ctx, ministry, sundayKey, "bob")
	assert.NoError(t, err)
}

func TestService_AvailableMembers(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	svc := roster.NewService(store, nil)

	require.NoError(t, store.SetAvailability(ctx, &storage.Availability{
		MinistryID: ministry, MemberID: "alice", Date: "2024-03-03",
		Available: false, Note: "traveling",
	}))

	// No role filter: everyone but alice.
	got, err := svc.AvailableMembers(ctx, ministry, "2024-03-03", "")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// vocals filter: bob only, since alice is away and carol does sound.
	got, err = svc.AvailableMembers(ctx, ministry, "2024-03-03", "vocals")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bob", got[0].ID)

	// A date with no records: alice is back.
	got, err = svc.AvailableMembers(ctx, ministry, "2024-03-10", "vocals")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestService_SwapLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := roster.NewService(seedStore(t), nil)

	_, err := svc.Assign(ctx, ministry, sundayKey, "alice")
	require.NoError(t, err)

	// Only the current holder can offer the slot.
	_, err = svc.RequestSwap(ctx, ministry, sundayKey, "bob", "alice", "")
	assert.ErrorIs(t, err, roster.ErrNotAssigned)

	// The target must be able to serve the role.
	_, err = svc.RequestSwap(ctx, ministry, sundayKey, "alice", "carol", "")
	assert.ErrorIs(t, err, roster.ErrInvalidInput)

	req, err := svc.RequestSwap(ctx, ministry, sundayKey, "alice", "bob", "out of town")
	require.NoError(t, err)
	assert.Equal(t, storage.SwapPending, req.Status)

	resolved, err := svc.ResolveSwap(ctx, ministry, req.ID, true)
	require.NoError(t, err)
	assert.Equal(t, storage.SwapAccepted, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)

	events, err := svc.Schedule(ctx, ministry, "2024-03-03", "2024-03-03")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Len(t, events[0].Assignments, 1)
	assert.Equal(t, "bob", events[0].Assignments[0].MemberID)

	// Resolving twice is rejected.
	_, err = svc.ResolveSwap(ctx, ministry, req.ID, false)
	assert.ErrorIs(t, err, roster.ErrSwapClosed)
}

func TestService_SwapDeclinedLeavesAssignment(t *testing.T) {
	ctx := context.Background()
	svc := roster.NewService(seedStore(t), nil)

	_, err := svc.Assign(ctx, ministry, sundayKey, "alice")
	require.NoError(t, err)

	req, err := svc.RequestSwap(ctx, ministry, sundayKey, "alice", "bob", "")
	require.NoError(t, err)

	resolved, err := svc.ResolveSwap(ctx, ministry, req.ID, false)
	require.NoError(t, err)
	assert.Equal(t, storage.SwapDeclined, resolved.Status)

	events, err := svc.Schedule(ctx, ministry, "2024-03-03", "2024-03-03")
	require.NoError(t, err)
	assert.Equal(t, "alice", events[0].Assignments[0].MemberID)
}

func TestService_SwapCancel(t *testing.T) {
	ctx := context.Background()
	svc := roster.NewService(seedStore(t), nil)

	_, err := svc.Assign(ctx, ministry, sundayKey, "alice")
	require.NoError(t, err)

	req, err := svc.RequestSwap(ctx, ministry, sundayKey, "alice", "bob", "")
	require.NoError(t, err)

	cancelled, err := svc.CancelSwap(ctx, ministry, req.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.SwapCancelled, cancelled.Status)

	_, err = svc.ResolveSwap(ctx, ministry, req.ID, true)
	assert.ErrorIs(t, err, roster.ErrSwapClosed)
}

func TestService_SetlistValidation(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	svc := roster.NewService(store, nil)

	require.NoError(t, store.CreateSong(ctx, &storage.Song{
		ID: "s1", MinistryID: ministry, Title: "Amazing Grace", CreatedAt: time.Now().UTC(),
	}))

	occ := schedule.OccurrenceKey{RuleID: "sunday", Date: "2024-03-03"}
	require.NoError(t, svc.SetSetlist(ctx, ministry, occ, []string{"s1"}))

	err := svc.SetSetlist(ctx, ministry, occ, []string{"s1", "ghost"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	badOcc := schedule.OccurrenceKey{RuleID: "sunday", Date: "2024-03-04"}
	err = svc.SetSetlist(ctx, ministry, badOcc, []string{"s1"})
	assert.ErrorIs(t, err, roster.ErrUnknownOccurrence)

	events, err := svc.Schedule(ctx, ministry, "2024-03-03", "2024-03-03")
	require.NoError(t, err)
	require.Len(t, events[0].Setlist, 1)
	assert.Equal(t, "s1", events[0].Setlist[0].SongID)
}

func TestService_Announce(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	svc := roster.NewService(store, nil)

	_, err := svc.Announce(ctx, ministry, "  ", "body")
	assert.ErrorIs(t, err, roster.ErrInvalidInput)

	a, err := svc.Announce(ctx, ministry, "Schedule posted", "March is up.")
	require.NoError(t, err)
	assert.Equal(t, "user", a.Source)

	list, err := store.ListAnnouncements(ctx, ministry, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

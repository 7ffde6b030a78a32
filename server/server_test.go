package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vergerhq/verger/schedule"
	"github.com/vergerhq/verger/storage"
	"github.com/vergerhq/verger/storage/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	srv := httptest.NewServer(NewRouter(store, Options{}))
	t.Cleanup(srv.Close)
	return srv, store
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestRouter_RuleLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL + "/api/worship"

	resp := doJSON(t, http.MethodPost, base+"/rules", map[string]any{
		"title": "Sunday Service", "type": "weekly", "weekday": 0, "time": "10:00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[storage.RuleRecord](t, resp)
	require.NotEmpty(t, created.ID)

	resp = doJSON(t, http.MethodGet, base+"/rules/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[storage.RuleRecord](t, resp)
	assert.Equal(t, "Sunday Service", got.Title)

	resp = doJSON(t, http.MethodDelete, base+"/rules/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, base+"/rules?active=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	active := decodeBody[[]storage.RuleRecord](t, resp)
	assert.Empty(t, active)
}

func TestRouter_RuleValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL + "/api/worship"

	tests := []struct {
		name string
		body map[string]any
	}{
		{"weekly without weekday", map[string]any{"title": "X", "type": "weekly", "time": "10:00"}},
		{"single without date", map[string]any{"title": "X", "type": "single", "time": "10:00"}},
		{"unknown type", map[string]any{"title": "X", "type": "monthly", "weekday": 1, "time": "10:00"}},
		{"bad time", map[string]any{"title": "X", "type": "weekly", "weekday": 1, "time": "25:99"}},
		{"bad date", map[string]any{"title": "X", "type": "single", "date": "soon", "time": "10:00"}},
		{"weekday out of range", map[string]any{"title": "X", "type": "weekly", "weekday": 9, "time": "10:00"}},
		{"empty title", map[string]any{"title": " ", "type": "weekly", "weekday": 1, "time": "10:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, base+"/rules", tt.body)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestRouter_CalendarWithAssignments(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	base := srv.URL + "/api/worship"

	now := time.Now().UTC()
	require.NoError(t, store.CreateRule(ctx, &storage.RuleRecord{
		Rule:       schedule.NewWeeklyRule("sunday", "Sunday Service", 0, "10:00"),
		MinistryID: "worship",
		CreatedAt:  now, UpdatedAt: now,
	}))
	require.NoError(t, store.CreateMember(ctx, &storage.Member{
		ID: "alice", MinistryID: "worship", Name: "Alice",
		Roles: []string{"vocals"}, CreatedAt: now,
	}))

	resp := doJSON(t, http.MethodPut, base+"/assignments/sunday_2024-03-03_vocals",
		map[string]any{"memberId": "alice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// A key whose date is not an occurrence of the rule is rejected.
	resp = doJSON(t, http.MethodPut, base+"/assignments/sunday_2024-03-04_vocals",
		map[string]any{"memberId": "alice"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, base+"/calendar?start=2024-03-01&end=2024-03-31", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var events []struct {
		schedule.Event
		Assignments []storage.Assignment `json:"assignments"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	resp.Body.Close()

	require.Len(t, events, 5)
	require.Len(t, events[0].Assignments, 1)
	assert.Equal(t, "alice", events[0].Assignments[0].MemberID)
}

func TestRouter_CalendarRequiresRange(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/worship/calendar?start=2024-03-01", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_SwapFlow(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	base := srv.URL + "/api/worship"

	now := time.Now().UTC()
	require.NoError(t, store.CreateRule(ctx, &storage.RuleRecord{
		Rule:       schedule.NewWeeklyRule("sunday", "Sunday Service", 0, "10:00"),
		MinistryID: "worship",
		CreatedAt:  now, UpdatedAt: now,
	}))
	for _, id := range []string{"alice", "bob"} {
		require.NoError(t, store.CreateMember(ctx, &storage.Member{
			ID: id, MinistryID: "worship", Name: id,
			Roles: []string{"vocals"}, CreatedAt: now,
		}))
	}

	resp := doJSON(t, http.MethodPut, base+"/assignments/sunday_2024-03-03_vocals",
		map[string]any{"memberId": "alice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, base+"/swaps", map[string]any{
		"ruleId": "sunday", "date": "2024-03-03", "role": "vocals",
		"from": "alice", "to": "bob", "note": "away",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	swap := decodeBody[storage.SwapRequest](t, resp)

	resp = doJSON(t, http.MethodPost, fmt.Sprintf("%s/swaps/%s/accept", base, swap.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	accepted := decodeBody[storage.SwapRequest](t, resp)
	assert.Equal(t, storage.SwapAccepted, accepted.Status)

	// Accepting again conflicts.
	resp = doJSON(t, http.MethodPost, fmt.Sprintf("%s/swaps/%s/accept", base, swap.ID), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	a, err := store.GetAssignment(ctx, "worship", "sunday_2024-03-03", "vocals")
	require.NoError(t, err)
	assert.Equal(t, "bob", a.MemberID)
}

func TestRouter_Feed(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, store.CreateRule(ctx, &storage.RuleRecord{
		Rule:       schedule.NewWeeklyRule("sunday", "Sunday Service", 0, "10:00"),
		MinistryID: "worship",
		CreatedAt:  now, UpdatedAt: now,
	}))

	resp := doJSON(t, http.MethodGet,
		srv.URL+"/api/worship/feed.ics?start=2024-03-01&end=2024-03-31", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	assert.Equal(t, mimeTypeCalendar, resp.Header.Get(headerContentType))

	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	body := buf.String()
	assert.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR"))
	assert.Contains(t, body, "SUMMARY:Sunday Service")
	assert.Contains(t, body, "FREQ=WEEKLY")
}

func TestRouter_AvailabilityEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	base := srv.URL + "/api/worship"

	now := time.Now().UTC()
	for _, id := range []string{"alice", "bob"} {
		require.NoError(t, store.CreateMember(ctx, &storage.Member{
			ID: id, MinistryID: "worship", Name: id,
			Roles: []string{"vocals"}, CreatedAt: now,
		}))
	}

	resp := doJSON(t, http.MethodPut, base+"/availability", map[string]any{
		"memberId": "alice", "date": "2024-03-03", "available": false, "note": "travel",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, base+"/availability?date=2024-03-03&role=vocals", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	members := decodeBody[[]storage.Member](t, resp)
	require.Len(t, members, 1)
	assert.Equal(t, "bob", members[0].ID)
}

func TestRouter_SetlistEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	base := srv.URL + "/api/worship"

	now := time.Now().UTC()
	require.NoError(t, store.CreateRule(ctx, &storage.RuleRecord{
		Rule:       schedule.NewWeeklyRule("sunday", "Sunday Service", 0, "10:00"),
		MinistryID: "worship",
		CreatedAt:  now, UpdatedAt: now,
	}))

	resp := doJSON(t, http.MethodPost, base+"/songs", map[string]any{
		"title": "Amazing Grace", "key": "G",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	song := decodeBody[storage.Song](t, resp)

	resp = doJSON(t, http.MethodPut, base+"/setlists/sunday_2024-03-03", map[string]any{
		"songIds": []string{song.ID},
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	entries, err := store.ListSetlistEntries(ctx, "worship", []string{"sunday_2024-03-03"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, song.ID, entries[0].SongID)
}

func TestRouter_MinistriesIsolated(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, store.CreateRule(ctx, &storage.RuleRecord{
		Rule:       schedule.NewWeeklyRule("sunday", "Sunday Service", 0, "10:00"),
		MinistryID: "worship",
		CreatedAt:  now, UpdatedAt: now,
	}))

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/youth/calendar?start=2024-03-01&end=2024-03-31", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	events := decodeBody[[]schedule.Event](t, resp)
	assert.Empty(t, events)
}

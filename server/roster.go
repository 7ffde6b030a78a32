package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vergerhq/verger/schedule"
	"github.com/vergerhq/verger/storage"
)

func (r *Router) handleAssign(w http.ResponseWriter, req *http.Request) {
	ministry := req.PathValue("ministry")
	key, err := schedule.ParseAssignmentKey(req.PathValue("key"))
	if err != nil {
		r.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var body struct {
		MemberID string `json:"memberId"`
	}
	if !r.decode(w, req, &body) {
		return
	}

	a, err := r.svc.Assign(req.Context(), ministry, key, body.MemberID)
	if err != nil {
		r.writeError(w, err)
		return
	}
	r.writeJSON(w, http.StatusOK, a)
}

func (r *Router) handleUnassign(w http.ResponseWriter, req *http.Request) {
	ministry := req.PathValue("ministry")
	key, err := schedule.ParseAssignmentKey(req.PathValue("key"))
	if err != nil {
		r.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := r.svc.Unassign(req.Context(), ministry, key); err != nil {
		r.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleSetAvailability(w http.ResponseWriter, req *http.Request) {
	ministry := req.PathValue("ministry")

	var body struct {
		MemberID  string `json:"memberId"`
		Date      string `json:"date"`
		Available bool   `json:"available"`
		Note      string `json:"note"`
	}
	if !r.decode(w, req, &body) {
		return
	}

	av := &storage.Availability{
		MinistryID: ministry,
		MemberID:   body.MemberID,
		Date:       body.Date,
		Available:  body.Available,
		Note:       body.Note,
	}
	if err := r.store.SetAvailability(req.Context(), av); err != nil {
		r.writeError(w, err)
		return
	}
	r.writeJSON(w, http.StatusOK, av)
}

func (r *Router) handleAvailableMembers(w http.ResponseWriter, req *http.Request) {
	ministry := req.PathValue("ministry")
	date := req.URL.Query().Get("date")
	role := req.URL.Query().Get("role")
	if date == "" {
		r.writeError(w, storage.ErrInvalidInput)
		return
	}

	members, err := r.svc.AvailableMembers(req.Context(), ministry, date, role)
	if err != nil {
		r.writeError(w, err)
		return
	}
	r.writeJSON(w, http.StatusOK, members)
}

func (r *Router) handleCreateMember(w http.ResponseWriter, req *http.Request) {
	ministry := req.PathValue("ministry")

	var body struct {
		Name  string   `json:"name"`
		Email string   `json:"email"`
		Roles []string `json:"roles"`
	}
	if !r.decode(w, req, &body) {
		return
	}
	if body.Name == "" {
		r.writeError(w, storage.ErrInvalidInput)
		return
	}

	m := &storage.Member{
		ID:         uuid.NewString(),
		MinistryID: ministry,
		Name:       body.Name,
		Email:      body.Email,
		Roles:      body.Roles,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.store.CreateMember(req.Context(), m); err != nil {
		r.writeError(w, err)
		return
	}
	r.writeJSON(w, http.StatusCreated, m)
}

func (r *Router) handleListMembers(w http.ResponseWriter, req *http.Request) {
	members, err := r.store.ListMembers(req.Context(), req.PathValue("ministry"))
	if err != nil {
		r.writeError(w, err)
		return
	}
	r.writeJSON(w, http.StatusOK, members)
}

func (r *Router) handleRequestSwap(w http.ResponseWriter, req *http.Request) {
	ministry := req.PathValue("ministry")

	var body struct {
		RuleID string `json:"ruleId"`
		Date   string `json:"date"`
		Role   string `json:"role"`
		From   string `json:"from"`
		To     string `json:"to"`
		Note   string `json:"note"`
	}
	if !r.decode(w, req, &body) {
		return
	}

	key := schedule.AssignmentKey{RuleID: body.RuleID, Date: body.Date, Role: body.Role}
	swap, err := r.svc.RequestSwap(req.Context(), ministry, key, body.From, body.To, body.Note)
	if err != nil {
		r.writeError(w, err)
		return
	}
	r.writeJSON(w, http.StatusCreated, swap)
}

func (r *Router) handleListSwaps(w http.ResponseWriter, req *http.Request) {
	ministry := req.PathValue("ministry")
	status := storage.SwapStatus(req.URL.Query().Get("status"))

	swaps, err := r.store.ListSwapRequests(req.Context(), ministry, status)
	if err != nil {
		r.writeError(w, err)
		return
	}
	r.writeJSON(w, http.StatusOK, swaps)
}

func (r *Router) handleSwapDecision(accept bool) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		swap, err := r.svc.ResolveSwap(req.Context(), req.PathValue("ministry"), req.PathValue("id"), accept)
		if err != nil {
			r.writeError(w, err)
			return
		}
		r.writeJSON(w, http.StatusOK, swap)
	}
}

func (r *Router) handleCancelSwap(w http.ResponseWriter, req *http.Request) {
	swap, err := r.svc.CancelSwap(req.Context(), req.PathValue("ministry"), req.PathValue("id"))
	if err != nil {
		r.writeError(w, err)
		return
	}
	r.writeJSON(w, http.StatusOK, swap)
}

func (r *Router) handleCreateSong(w http.ResponseWriter, req *http.Request) {
	ministry := req.PathValue("ministry")

	var body struct {
		Title     string `json:"title"`
		Artist    string `json:"artist"`
		SongKey   string `json:"key"`
		Reference string `json:"reference"`
	}
	if !r.decode(w, req, &body) {
		return
	}
	if body.Title == "" {
		r.writeError(w, storage.ErrInvalidInput)
		return
	}

	song := &storage.Song{
		ID:         uuid.NewString(),
		MinistryID: ministry,
		Title:      body.Title,
		Artist:     body.Artist,
		SongKey:    body.SongKey,
		Reference:  body.Reference,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.store.CreateSong(req.Context(), song); err != nil {
		r.writeError(w, err)
		return
	}
	r.writeJSON(w, http.StatusCreated, song)
}

func (r *Router) handleListSongs(w http.ResponseWriter, req *http.Request) {
	songs, err := r.store.ListSongs(req.Context(), req.PathValue("ministry"))
	if err != nil {
		r.writeError(w, err)
		return
	}
	r.writeJSON(w, http.StatusOK, songs)
}

func (r *Router) handleSetSetlist(w http.ResponseWriter, req *http.Request) {
	ministry := req.PathValue("ministry")
	key, err := schedule.ParseOccurrenceKey(req.PathValue("occurrence"))
	if err != nil {
		r.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var body struct {
		SongIDs []string `json:"songIds"`
	}
	if !r.decode(w, req, &body) {
		return
	}

	if err := r.svc.SetSetlist(req.Context(), ministry, key, body.SongIDs); err != nil {
		r.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleCreateAnnouncement(w http.ResponseWriter, req *http.Request) {
	ministry := req.PathValue("ministry")

	var body struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if !r.decode(w, req, &body) {
		return
	}

	a, err := r.svc.Announce(req.Context(), ministry, body.Subject, body.Body)
	if err != nil {
		r.writeError(w, err)
		return
	}
	r.writeJSON(w, http.StatusCreated, a)
}

func (r *Router) handleListAnnouncements(w http.ResponseWriter, req *http.Request) {
	ministry := req.PathValue("ministry")

	limit := 0
	if v := req.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			r.writeError(w, storage.ErrInvalidInput)
			return
		}
		limit = n
	}

	list, err := r.store.ListAnnouncements(req.Context(), ministry, limit)
	if err != nil {
		r.writeError(w, err)
		return
	}
	r.writeJSON(w, http.StatusOK, list)
}

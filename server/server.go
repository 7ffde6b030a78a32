// Package server exposes the scheduling service over HTTP with JSON
// request/response bodies plus an iCalendar feed. Ministry scoping comes
// from the URL path; authenticating callers is deliberately out of scope
// and belongs in front of this handler.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/vergerhq/verger/roster"
	"github.com/vergerhq/verger/storage"
)

const (
	// HTTP headers
	headerContentType = "Content-Type"

	// MIME types
	mimeTypeJSON     = "application/json; charset=utf-8"
	mimeTypeCalendar = "text/calendar; charset=utf-8"
)

// Options configures a Router.
type Options struct {
	// Logger receives request and handler logs. Nil discards.
	Logger *slog.Logger
	// Cache memoizes window projections. Nil disables caching.
	Cache *ProjectionCache
	// FeedName is the NAME property of exported calendars.
	FeedName string
	// FeedWindowDays bounds the default feed window. Defaults to 90.
	FeedWindowDays int
}

// Router dispatches the scheduling API.
type Router struct {
	store          storage.Store
	svc            *roster.Service
	logger         *slog.Logger
	mux            *http.ServeMux
	feedName       string
	feedWindowDays int
}

// NewRouter creates the HTTP router over the given store.
func NewRouter(store storage.Store, opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	svcOpts := []roster.Option{}
	if opts.Cache != nil {
		svcOpts = append(svcOpts, roster.WithProjector(opts.Cache.Projector()))
	}

	feedWindowDays := opts.FeedWindowDays
	if feedWindowDays <= 0 {
		feedWindowDays = 90
	}

	r := &Router{
		store:          store,
		svc:            roster.NewService(store, logger, svcOpts...),
		logger:         logger,
		mux:            http.NewServeMux(),
		feedName:       opts.FeedName,
		feedWindowDays: feedWindowDays,
	}

	r.mux.HandleFunc("POST /api/{ministry}/rules", r.handleCreateRule)
	r.mux.HandleFunc("GET /api/{ministry}/rules", r.handleListRules)
	r.mux.HandleFunc("GET /api/{ministry}/rules/{id}", r.handleGetRule)
	r.mux.HandleFunc("PUT /api/{ministry}/rules/{id}", r.handleUpdateRule)
	r.mux.HandleFunc("DELETE /api/{ministry}/rules/{id}", r.handleDeactivateRule)

	r.mux.HandleFunc("GET /api/{ministry}/calendar", r.handleCalendar)
	r.mux.HandleFunc("GET /api/{ministry}/feed.ics", r.handleFeed)

	r.mux.HandleFunc("PUT /api/{ministry}/assignments/{key}", r.handleAssign)
	r.mux.HandleFunc("DELETE /api/{ministry}/assignments/{key}", r.handleUnassign)

	r.mux.HandleFunc("PUT /api/{ministry}/availability", r.handleSetAvailability)
	r.mux.HandleFunc("GET /api/{ministry}/availability", r.handleAvailableMembers)

	r.mux.HandleFunc("POST /api/{ministry}/members", r.handleCreateMember)
	r.mux.HandleFunc("GET /api/{ministry}/members", r.handleListMembers)

	r.mux.HandleFunc("POST /api/{ministry}/songs", r.handleCreateSong)
	r.mux.HandleFunc("GET /api/{ministry}/songs", r.handleListSongs)
	r.mux.HandleFunc("PUT /api/{ministry}/setlists/{occurrence}", r.handleSetSetlist)

	r.mux.HandleFunc("POST /api/{ministry}/swaps", r.handleRequestSwap)
	r.mux.HandleFunc("GET /api/{ministry}/swaps", r.handleListSwaps)
	r.mux.HandleFunc("POST /api/{ministry}/swaps/{id}/accept", r.handleSwapDecision(true))
	r.mux.HandleFunc("POST /api/{ministry}/swaps/{id}/decline", r.handleSwapDecision(false))
	r.mux.HandleFunc("POST /api/{ministry}/swaps/{id}/cancel", r.handleCancelSwap)

	r.mux.HandleFunc("POST /api/{ministry}/announcements", r.handleCreateAnnouncement)
	r.mux.HandleFunc("GET /api/{ministry}/announcements", r.handleListAnnouncements)

	return r
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.logger.Info("received request",
		"method", req.Method,
		"path", req.URL.Path,
		"remote_addr", req.RemoteAddr)
	r.mux.ServeHTTP(w, req)
}

func (r *Router) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(headerContentType, mimeTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		r.logger.Error("failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain and storage errors onto HTTP statuses.
func (r *Router) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, roster.ErrUnknownOccurrence):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidInput),
		errors.Is(err, roster.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrConflict),
		errors.Is(err, roster.ErrRoleTaken),
		errors.Is(err, roster.ErrSwapClosed),
		errors.Is(err, roster.ErrNotAssigned):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		r.logger.Error("request failed", "error", err)
	}
	r.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (r *Router) decode(w http.ResponseWriter, req *http.Request, v any) bool {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		r.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return false
	}
	return true
}

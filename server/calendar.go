package server

import (
	"net/http"
	"time"

	"github.com/emersion/go-ical"

	"github.com/vergerhq/verger/schedule"
	"github.com/vergerhq/verger/storage"
)

func (r *Router) handleCalendar(w http.ResponseWriter, req *http.Request) {
	ministry := req.PathValue("ministry")
	start := req.URL.Query().Get("start")
	end := req.URL.Query().Get("end")
	if start == "" || end == "" {
		r.writeError(w, storage.ErrInvalidInput)
		return
	}

	events, err := r.svc.Schedule(req.Context(), ministry, start, end)
	if err != nil {
		r.writeError(w, err)
		return
	}
	r.writeJSON(w, http.StatusOK, events)
}

// handleFeed serves the projected window as a subscribable iCalendar
// feed. The window defaults to [today, today+feedWindowDays] and can be
// narrowed with start/end query parameters.
func (r *Router) handleFeed(w http.ResponseWriter, req *http.Request) {
	ministry := req.PathValue("ministry")

	start := req.URL.Query().Get("start")
	end := req.URL.Query().Get("end")
	if start == "" || end == "" {
		today := time.Now().UTC()
		start = today.Format("2006-01-02")
		end = today.AddDate(0, 0, r.feedWindowDays).Format("2006-01-02")
	}

	records, err := r.store.ListRules(req.Context(), ministry, true)
	if err != nil {
		r.writeError(w, err)
		return
	}
	rules := make([]schedule.Rule, len(records))
	for i, rec := range records {
		rules[i] = rec.Rule
	}

	feedName := r.feedName
	if feedName == "" {
		feedName = ministry
	}
	cal, err := schedule.BuildCalendar(rules, start, end, schedule.FeedOptions{Name: feedName})
	if err != nil {
		r.writeError(w, err)
		return
	}

	w.Header().Set(headerContentType, mimeTypeCalendar)
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		r.logger.Error("failed to encode calendar feed", "error", err)
	}
}

package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/vergerhq/verger/schedule"
	"github.com/vergerhq/verger/storage"
)

// ruleRequest is the JSON shape for creating and updating rules. Weekday
// and Date are pointers so "absent" survives the decode; the rule variants
// only ever carry the field that applies to their type.
type ruleRequest struct {
	Title   string  `json:"title"`
	Type    string  `json:"type"`
	Weekday *int    `json:"weekday,omitempty"`
	Date    *string `json:"date,omitempty"`
	Time    string  `json:"time"`
	Active  *bool   `json:"active,omitempty"`
}

func (req ruleRequest) toRule(id string) (schedule.Rule, bool) {
	rule := schedule.Rule{
		ID:     id,
		Title:  strings.TrimSpace(req.Title),
		Type:   schedule.RuleType(req.Type),
		Time:   req.Time,
		Active: true,
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}

	switch rule.Type {
	case schedule.RuleWeekly:
		if req.Weekday == nil || *req.Weekday < 0 || *req.Weekday > 6 {
			return schedule.Rule{}, false
		}
		rule.Weekday = mo.Some(*req.Weekday)
	case schedule.RuleSingle:
		if req.Date == nil {
			return schedule.Rule{}, false
		}
		if _, err := time.Parse("2006-01-02", *req.Date); err != nil {
			return schedule.Rule{}, false
		}
		rule.Date = mo.Some(*req.Date)
	default:
		return schedule.Rule{}, false
	}

	if rule.Title == "" {
		return schedule.Rule{}, false
	}
	if _, err := time.Parse("15:04", rule.Time); err != nil {
		return schedule.Rule{}, false
	}
	return rule, true
}

func (r *Router) handleCreateRule(w http.ResponseWriter, req *http.Request) {
	ministry := req.PathValue("ministry")

	var body ruleRequest
	if !r.decode(w, req, &body) {
		return
	}
	rule, ok := body.toRule(uuid.NewString())
	if !ok {
		r.writeError(w, storage.ErrInvalidInput)
		return
	}

	now := time.Now().UTC()
	rec := &storage.RuleRecord{
		Rule:       rule,
		MinistryID: ministry,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.store.CreateRule(req.Context(), rec); err != nil {
		r.writeError(w, err)
		return
	}
	r.writeJSON(w, http.StatusCreated, rec)
}

func (r *Router) handleListRules(w http.ResponseWriter, req *http.Request) {
	ministry := req.PathValue("ministry")
	activeOnly := req.URL.Query().Get("active") == "true"

	rules, err := r.store.ListRules(req.Context(), ministry, activeOnly)
	if err != nil {
		r.writeError(w, err)
		return
	}
	r.writeJSON(w, http.StatusOK, rules)
}

func (r *Router) handleGetRule(w http.ResponseWriter, req *http.Request) {
	rec, err := r.store.GetRule(req.Context(), req.PathValue("ministry"), req.PathValue("id"))
	if err != nil {
		r.writeError(w, err)
		return
	}
	r.writeJSON(w, http.StatusOK, rec)
}

func (r *Router) handleUpdateRule(w http.ResponseWriter, req *http.Request) {
	ministry := req.PathValue("ministry")
	id := req.PathValue("id")

	existing, err := r.store.GetRule(req.Context(), ministry, id)
	if err != nil {
		r.writeError(w, err)
		return
	}

	var body ruleRequest
	if !r.decode(w, req, &body) {
		return
	}
	rule, ok := body.toRule(id)
	if !ok {
		r.writeError(w, storage.ErrInvalidInput)
		return
	}

	existing.Rule = rule
	existing.UpdatedAt = time.Now().UTC()
	if err := r.store.UpdateRule(req.Context(), existing); err != nil {
		r.writeError(w, err)
		return
	}
	r.writeJSON(w, http.StatusOK, existing)
}

func (r *Router) handleDeactivateRule(w http.ResponseWriter, req *http.Request) {
	err := r.store.DeactivateRule(req.Context(), req.PathValue("ministry"), req.PathValue("id"))
	if err != nil {
		r.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/notifyhub/internal/domain"
)

type ruleRequest struct {
	KeywordFilter      string `json:"keyword_filter"`
	DedupWindowMinutes int    `json:"dedup_window_minutes"`
	RateLimitPerHour   int    `json:"rate_limit_per_hour"`
	Priority           string `json:"priority"`
	QuietHoursStart    string `json:"quiet_hours_start"`
	QuietHoursEnd      string `json:"quiet_hours_end"`
}

// toRule validates the request and builds the domain rule. Quiet hours
// arrive as "HH:MM" strings and must be set together.
func (req ruleRequest) toRule() (domain.Rule, string) {
	priority := domain.Priority(req.Priority)
	if req.Priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.Valid() {
		return domain.Rule{}, "priority must be LOW, MEDIUM, or HIGH"
	}
	if (req.QuietHoursStart == "") != (req.QuietHoursEnd == "") {
		return domain.Rule{}, "quiet_hours_start and quiet_hours_end must be set together"
	}

	rule := domain.Rule{
		KeywordFilter:      req.KeywordFilter,
		DedupWindowMinutes: req.DedupWindowMinutes,
		RateLimitPerHour:   req.RateLimitPerHour,
		Priority:           priority,
	}

	if req.QuietHoursStart != "" {
		start, err := domain.ParseTimeOfDay(req.QuietHoursStart)
		if err != nil {
			return domain.Rule{}, "quiet_hours_start must be HH:MM"
		}
		end, err := domain.ParseTimeOfDay(req.QuietHoursEnd)
		if err != nil {
			return domain.Rule{}, "quiet_hours_end must be HH:MM"
		}
		rule.QuietHoursStart = &start
		rule.QuietHoursEnd = &end
	}
	return rule, ""
}

func (a *API) handleListRules(w http.ResponseWriter, r *http.Request) {
	sub, ok := a.ownedSubscription(w, r)
	if !ok {
		return
	}

	rules, err := a.store.FindRulesBySubscriptionID(r.Context(), sub.ID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if rules == nil {
		rules = []domain.Rule{}
	}
	respondJSON(w, http.StatusOK, rules)
}

func (a *API) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	sub, ok := a.ownedSubscription(w, r)
	if !ok {
		return
	}

	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rule, problem := req.toRule()
	if problem != "" {
		respondError(w, http.StatusBadRequest, problem)
		return
	}
	rule.SubscriptionID = sub.ID

	if err := a.store.CreateRule(r.Context(), &rule); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rule)
}

func (a *API) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	sub, ok := a.ownedSubscription(w, r)
	if !ok {
		return
	}

	ruleID, err := uuid.Parse(chi.URLParam(r, "ruleID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rule, problem := req.toRule()
	if problem != "" {
		respondError(w, http.StatusBadRequest, problem)
		return
	}
	rule.ID = ruleID
	rule.SubscriptionID = sub.ID

	if err := a.store.UpdateRule(r.Context(), rule); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

func (a *API) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	sub, ok := a.ownedSubscription(w, r)
	if !ok {
		return
	}

	ruleID, err := uuid.Parse(chi.URLParam(r, "ruleID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	if err := a.store.DeleteRule(r.Context(), ruleID, sub.ID); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/notifyhub/internal/domain"
)

type subscriptionRequest struct {
	SourceType string `json:"source_type"`
	Params     string `json:"params"`
	Enabled    bool   `json:"enabled"`
}

func (a *API) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())

	subs, err := a.store.FindSubscriptionsByUserID(r.Context(), userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if subs == nil {
		subs = []domain.Subscription{}
	}
	respondJSON(w, http.StatusOK, subs)
}

func (a *API) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())

	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.SourceType == "" {
		respondError(w, http.StatusBadRequest, "source_type is required")
		return
	}

	sub := domain.Subscription{
		UserID:     userID,
		SourceType: req.SourceType,
		Params:     req.Params,
		Enabled:    req.Enabled,
	}
	if err := a.store.CreateSubscription(r.Context(), &sub); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sub)
}

func (a *API) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())

	subID, err := uuid.Parse(chi.URLParam(r, "subscriptionID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid subscription id")
		return
	}

	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.SourceType == "" {
		respondError(w, http.StatusBadRequest, "source_type is required")
		return
	}

	sub := domain.Subscription{
		ID:         subID,
		UserID:     userID,
		SourceType: req.SourceType,
		Params:     req.Params,
		Enabled:    req.Enabled,
	}
	if err := a.store.UpdateSubscription(r.Context(), sub); err != nil {
		respondStoreError(w, err)
		return
	}

	updated, err := a.store.FindSubscriptionByID(r.Context(), subID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (a *API) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())

	subID, err := uuid.Parse(chi.URLParam(r, "subscriptionID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid subscription id")
		return
	}

	if err := a.store.DeleteSubscription(r.Context(), subID, userID); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownedSubscription resolves the path subscription and verifies it
// belongs to the authenticated user.
func (a *API) ownedSubscription(w http.ResponseWriter, r *http.Request) (domain.Subscription, bool) {
	userID, _ := UserIDFrom(r.Context())

	subID, err := uuid.Parse(chi.URLParam(r, "subscriptionID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid subscription id")
		return domain.Subscription{}, false
	}

	sub, err := a.store.FindSubscriptionByID(r.Context(), subID)
	if err != nil || sub.UserID != userID {
		respondError(w, http.StatusNotFound, "not found")
		return domain.Subscription{}, false
	}
	return sub, true
}

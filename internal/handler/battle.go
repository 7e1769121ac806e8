package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"family-battle/internal/model"
)

// enableRequest is the body for enabling the battle feature. FamilyID
// is optional; a new family id is generated when absent.
type enableRequest struct {
	FamilyID string `json:"familyId"`
}

type enableResponse struct {
	FamilyID string `json:"familyId"`
}

// inviteRequest is the body for adding a member to the battle.
type inviteRequest struct {
	MemberID    string `json:"memberId"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
}

// sessionRequest is the body for recording a day's reading minutes.
type sessionRequest struct {
	Date    string `json:"date"`
	Minutes int64  `json:"minutes"`
}

// handleEnable turns the battle feature on for a family.
func (h *Handler) handleEnable(w http.ResponseWriter, r *http.Request) {
	var req enableRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
	}

	familyID, err := h.sync.Enable(r.Context(), req.FamilyID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, enableResponse{FamilyID: familyID})
}

// handleSnapshot returns the up-to-date battle snapshot. This is the
// polling endpoint; each call refreshes totals and rolls the week over
// when stale.
func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	familyID := chi.URLParam(r, "familyID")

	snap, err := h.sync.GetBattleData(r.Context(), familyID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

// handleInvite adds a child or parent to the family's battle.
func (h *Handler) handleInvite(w http.ResponseWriter, r *http.Request) {
	familyID := chi.URLParam(r, "familyID")

	var req inviteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	m, err := h.sync.Invite(r.Context(), familyID, req.MemberID, req.Role, req.DisplayName)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, m)
}

// handleHistory returns the championship summary alone.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	familyID := chi.URLParam(r, "familyID")

	summary, err := h.sync.History(r.Context(), familyID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// handleAwards returns the XP ledger, optionally limited to ?week=N.
func (h *Handler) handleAwards(w http.ResponseWriter, r *http.Request) {
	familyID := chi.URLParam(r, "familyID")

	weekNumber := 0
	if raw := r.URL.Query().Get("week"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "week must be a positive integer"})
			return
		}
		weekNumber = n
	}

	awards, err := h.sync.Awards(r.Context(), familyID, weekNumber)
	if err != nil {
		respondError(w, err)
		return
	}
	if awards == nil {
		awards = []*model.XPAward{}
	}

	respondJSON(w, http.StatusOK, awards)
}

// handleRecordSession stores a member's reading total for one day.
// Date defaults to today when omitted.
func (h *Handler) handleRecordSession(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberID")

	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	day := time.Now()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "date must be YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	if err := h.sync.RecordSession(r.Context(), memberID, day, req.Minutes); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleHealth pings the database.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.HealthCheck(ctx); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "database unavailable", Retryable: true})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package grading

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/skillcheck/backend/internal/middleware"
	"github.com/skillcheck/backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RecordRound handles POST /rounds.
func (h *Handler) RecordRound(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req models.RecordRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Score < 0 || req.Score > 100 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "score must be between 0 and 100"})
		return
	}
	if req.TotalCount < 0 || req.CorrectCount < 0 || req.CorrectCount > req.TotalCount {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "invalid correct/total counts"})
		return
	}

	result, err := h.service.RecordRound(r.Context(), userID, req)
	if err != nil {
		if errors.Is(err, ErrUnknownUser) {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Unknown user"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to record round: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// GetGrade handles GET /grade. It computes the composite grade and
// awards any badges it implies in the same request.
func (h *Handler) GetGrade(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	grade, err := h.service.CalculateFinalGrade(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUnknownUser) {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Unknown user"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to compute grade: " + err.Error()})
		return
	}
	if grade == nil {
		writeJSON(w, http.StatusOK, models.GradeResponse{
			BadgesEarned: []models.Badge{},
			Message:      "No completed rounds yet",
		})
		return
	}

	badges, err := h.service.AssignBadges(r.Context(), userID, grade.Grade)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to assign badges: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, models.GradeResponse{Grade: grade, BadgesEarned: badges})
}

// GetBadges handles GET /badges.
func (h *Handler) GetBadges(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	badges, err := h.service.store.GetBadges(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load badges: " + err.Error()})
		return
	}
	if badges == nil {
		badges = []models.Badge{}
	}

	writeJSON(w, http.StatusOK, badges)
}

// GetLeaderboard handles GET /leaderboard?limit=N.
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "limit must be between 1 and 100"})
			return
		}
		limit = parsed
	}

	resp, err := h.service.Leaderboard(r.Context(), userID, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load leaderboard: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

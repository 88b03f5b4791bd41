package scoring

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/skillcheck/backend/internal/middleware"
	"github.com/skillcheck/backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// SubmitAnswer handles POST /questions/{id}/answer.
func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	questionID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid question id"})
		return
	}

	var req models.SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	result, err := h.service.ScoreAnswer(r.Context(), userID, questionID, req.Answer)
	if err != nil {
		if _, ok := err.(*InputError); ok {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Scoring failed: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, toResponse(result))
}

// SubmitBatch handles POST /answers/batch.
func (h *Handler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req models.SubmitBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if len(req.Answers) == 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "answers must not be empty"})
		return
	}

	items := h.service.ScoreBatch(r.Context(), userID, req.Answers)

	resp := models.SubmitBatchResponse{Results: make([]models.SubmitAnswerResponse, 0, len(items))}
	for _, item := range items {
		if item.Err != nil {
			resp.Results = append(resp.Results, models.SubmitAnswerResponse{
				Explanation: "This answer could not be scored: " + item.Err.Error(),
			})
			continue
		}
		resp.Results = append(resp.Results, toResponse(item.Result))
	}

	writeJSON(w, http.StatusOK, resp)
}

func toResponse(r *models.ScoringResult) models.SubmitAnswerResponse {
	return models.SubmitAnswerResponse{
		AttemptID:      r.AttemptID,
		Correct:        r.IsCorrect,
		Score:          r.Score,
		KeywordMatches: r.KeywordMatches,
		Explanation:    r.Explanation,
		ReferenceLinks: r.ReferenceLinks,
		Feedback:       r.Feedback,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

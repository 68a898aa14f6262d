package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kidswap/backend/internal/middleware"
	"github.com/kidswap/backend/internal/models"
	"github.com/kidswap/backend/internal/services"
)

type FeedbackHandler struct {
	feedback *services.FeedbackService
}

func NewFeedbackHandler(feedback *services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	tradeID := chi.URLParam(r, "tradeId")

	var req models.SubmitFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	fb, err := h.feedback.Submit(r.Context(), userID, tradeID, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTradeNotFound):
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Trade not found"))
		case errors.Is(err, services.ErrUnauthorized):
			writeJSON(w, http.StatusForbidden, models.NewErrorResponse(err.Error()))
		case errors.Is(err, services.ErrInvalidTransition):
			writeJSON(w, http.StatusConflict, models.NewErrorResponse(err.Error()))
		case errors.Is(err, services.ErrFeedbackExists):
			writeJSON(w, http.StatusConflict, models.NewErrorResponse("Feedback already submitted for this trade"))
		default:
			log.Printf("[SubmitFeedback] Service error: %v", err)
			writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to submit feedback"))
		}
		return
	}

	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(fb))
}

func (h *FeedbackHandler) ForTrade(w http.ResponseWriter, r *http.Request) {
	tradeID := chi.URLParam(r, "tradeId")

	feedback, err := h.feedback.ForTrade(r.Context(), tradeID)
	if err != nil {
		log.Printf("[TradeFeedback] Service error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load feedback"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(feedback))
}

// ForUser returns feedback received by a user plus the average rating.
func (h *FeedbackHandler) ForUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	feedback, average, err := h.feedback.ForUser(r.Context(), userID)
	if err != nil {
		log.Printf("[UserFeedback] Service error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load feedback"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]interface{}{
		"feedback":       feedback,
		"average_rating": average,
	}))
}

package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/kidswap/backend/internal/middleware"
	"github.com/kidswap/backend/internal/models"
	"github.com/kidswap/backend/internal/services"
)

type RewardHandler struct {
	rewards *services.RewardService
}

func NewRewardHandler(rewards *services.RewardService) *RewardHandler {
	return &RewardHandler{rewards: rewards}
}

func (h *RewardHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	balance, err := h.rewards.Balance(r.Context(), userID)
	if err != nil {
		log.Printf("[RewardBalance] Service error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load balance"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(balance))
}

func (h *RewardHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	credits, redemptions, err := h.rewards.History(r.Context(), userID)
	if err != nil {
		log.Printf("[RewardHistory] Service error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load history"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]interface{}{
		"earned": credits,
		"spent":  redemptions,
	}))
}

func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req models.RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	redemption, err := h.rewards.Redeem(r.Context(), userID, &req)
	if err != nil {
		var short *services.InsufficientPointsError
		if errors.As(err, &short) {
			writeJSON(w, http.StatusUnprocessableEntity, models.APIResponse{
				Success: false,
				Error:   "Insufficient points",
				Errors: map[string]int{
					"balance":   short.Balance,
					"required":  short.Required,
					"shortfall": short.Shortfall(),
				},
			})
			return
		}
		log.Printf("[Redeem] Service error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to redeem points"))
		return
	}

	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(redemption))
}

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

type VerificationHandler struct {
	verifications *services.VerificationService
}

func NewVerificationHandler(verifications *services.VerificationService) *VerificationHandler {
	return &VerificationHandler{verifications: verifications}
}

// ListPending returns open link requests: admins see the full review queue,
// a parent sees only the requests naming them.
func (h *VerificationHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var (
		requests []*models.VerificationRequest
		err      error
	)
	if middleware.GetUserRole(r.Context()).IsAdmin() {
		requests, err = h.verifications.ListPending(r.Context())
	} else {
		requests, err = h.verifications.ListPendingForParent(r.Context(), userID)
	}
	if err != nil {
		log.Printf("[ListVerifications] Service error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to list verification requests"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(requests))
}

type resolveVerificationRequest struct {
	Confirm bool `json:"confirm"`
}

func (h *VerificationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	requestID := chi.URLParam(r, "requestId")

	var req resolveVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	resolved, err := h.verifications.Resolve(r.Context(), userID, middleware.GetUserRole(r.Context()), requestID, req.Confirm)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRequestNotFound):
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Verification request not found"))
		case errors.Is(err, services.ErrUnauthorized):
			writeJSON(w, http.StatusForbidden, models.NewErrorResponse(err.Error()))
		case errors.Is(err, services.ErrAlreadyResolved):
			writeJSON(w, http.StatusConflict, models.NewErrorResponse("Verification request already resolved"))
		default:
			log.Printf("[ResolveVerification] Service error: %v", err)
			writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to resolve verification request"))
		}
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(resolved))
}

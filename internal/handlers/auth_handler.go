package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/kidswap/backend/internal/middleware"
	"github.com/kidswap/backend/internal/models"
	"github.com/kidswap/backend/internal/services"
)

type AuthHandler struct {
	accounts *services.AccountService
}

func NewAuthHandler(accounts *services.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

func (h *AuthHandler) RegisterParent(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterParentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	resp, err := h.accounts.RegisterParent(r.Context(), &req)
	if err != nil {
		if err == services.ErrEmailExists {
			writeJSON(w, http.StatusConflict, models.NewErrorResponse("Email already registered"))
			return
		}
		log.Printf("[RegisterParent] Service error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to create account"))
		return
	}

	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(resp))
}

func (h *AuthHandler) RegisterKid(w http.ResponseWriter, r *http.Request) {
	var draft models.KidRegistrationDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errors := draft.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	resp, err := h.accounts.RegisterKid(r.Context(), &draft)
	if err != nil {
		if err == services.ErrEmailExists {
			writeJSON(w, http.StatusConflict, models.NewErrorResponse("Email already registered"))
			return
		}
		log.Printf("[RegisterKid] Service error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to create account"))
		return
	}

	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(resp))
}

// RegistrationSteps exposes the kid signup wizard shape so the client can
// drive the UI from it.
func (h *AuthHandler) RegistrationSteps(w http.ResponseWriter, r *http.Request) {
	steps := models.KidRegistrationSteps()
	names := make([]string, 0, len(steps))
	for _, s := range steps {
		names = append(names, s.Name)
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]interface{}{
		"steps": names,
	}))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	resp, err := h.accounts.Login(r.Context(), &req)
	if err != nil {
		if err == services.ErrProfileNotFound || err == services.ErrInvalidPassword {
			writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid email or password"))
			return
		}
		log.Printf("[Login] Service error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Login failed"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(resp))
}

type verifyEmailRequest struct {
	Code string `json:"code"`
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req verifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if err := h.accounts.VerifyEmailCode(r.Context(), userID, req.Code); err != nil {
		if err == services.ErrInvalidCode {
			writeJSON(w, http.StatusUnprocessableEntity, models.NewErrorResponse("Verification code is invalid or expired"))
			return
		}
		log.Printf("[VerifyEmail] Service error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to verify code"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]bool{"verified": true}))
}

func (h *AuthHandler) ResendCode(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	email := middleware.GetUserEmail(r.Context())
	if err := h.accounts.SendEmailCode(r.Context(), userID, email); err != nil {
		log.Printf("[ResendCode] Service error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to send code"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]bool{"sent": true}))
}

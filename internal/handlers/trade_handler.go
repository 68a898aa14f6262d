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

type TradeHandler struct {
	trades *services.TradeService
}

func NewTradeHandler(trades *services.TradeService) *TradeHandler {
	return &TradeHandler{trades: trades}
}

func (h *TradeHandler) Propose(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req models.ProposeTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	trade, err := h.trades.Propose(r.Context(), userID, &req)
	if err != nil {
		h.writeTradeError(w, "Propose", err)
		return
	}

	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(trade))
}

func (h *TradeHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	tradeID := chi.URLParam(r, "tradeId")

	trade, err := h.trades.Get(r.Context(), userID, middleware.GetUserRole(r.Context()), tradeID)
	if err != nil {
		h.writeTradeError(w, "Get", err)
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(trade))
}

func (h *TradeHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	trades, err := h.trades.ListForKid(r.Context(), userID)
	if err != nil {
		log.Printf("[ListTrades] Service error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to list trades"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(trades))
}

// ListPendingApprovals returns proposed trades awaiting the authenticated
// parent's decision.
func (h *TradeHandler) ListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	trades, err := h.trades.ListPendingApprovalForParent(r.Context(), userID)
	if err != nil {
		log.Printf("[ListPendingApprovals] Service error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to list pending approvals"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(trades))
}

func (h *TradeHandler) Decide(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	tradeID := chi.URLParam(r, "tradeId")

	var req models.ParentDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	trade, err := h.trades.ParentDecision(r.Context(), userID, tradeID, &req)
	if err != nil {
		h.writeTradeError(w, "Decide", err)
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(trade))
}

func (h *TradeHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	tradeID := chi.URLParam(r, "tradeId")

	var req models.ScheduleTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	trade, err := h.trades.Schedule(r.Context(), userID, tradeID, &req)
	if err != nil {
		h.writeTradeError(w, "Schedule", err)
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(trade))
}

func (h *TradeHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	tradeID := chi.URLParam(r, "tradeId")

	trade, err := h.trades.Complete(r.Context(), userID, tradeID)
	if err != nil {
		h.writeTradeError(w, "Complete", err)
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(trade))
}

func (h *TradeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	tradeID := chi.URLParam(r, "tradeId")

	trade, err := h.trades.Cancel(r.Context(), userID, tradeID)
	if err != nil {
		h.writeTradeError(w, "Cancel", err)
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(trade))
}

func (h *TradeHandler) writeTradeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, services.ErrTradeNotFound):
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Trade not found"))
	case errors.Is(err, services.ErrListingNotFound):
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Listing not found"))
	case errors.Is(err, services.ErrKidNotFound):
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Kid profile not found"))
	case errors.Is(err, services.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse(err.Error()))
	case errors.Is(err, services.ErrAlreadyDecided):
		writeJSON(w, http.StatusConflict, models.NewErrorResponse(err.Error()))
	case errors.Is(err, services.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, models.NewErrorResponse(err.Error()))
	case errors.Is(err, services.ErrInvalidProposal):
		writeJSON(w, http.StatusUnprocessableEntity, models.NewErrorResponse(err.Error()))
	default:
		log.Printf("[%s] Service error: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Trade operation failed"))
	}
}

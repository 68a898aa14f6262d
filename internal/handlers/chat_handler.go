package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kidswap/backend/internal/middleware"
	"github.com/kidswap/backend/internal/models"
	"github.com/kidswap/backend/internal/services"
)

type ChatHandler struct {
	chat *services.ChatService
}

func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	tradeID := chi.URLParam(r, "tradeId")

	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	msg, err := h.chat.Send(r.Context(), userID, tradeID, &req)
	if err != nil {
		h.writeChatError(w, "SendMessage", err)
		return
	}

	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(msg))
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	tradeID := chi.URLParam(r, "tradeId")

	messages, err := h.chat.Messages(r.Context(), userID, tradeID)
	if err != nil {
		h.writeChatError(w, "ListMessages", err)
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(messages))
}

// Stream pushes new chat messages over server-sent events until the client
// disconnects.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	tradeID := chi.URLParam(r, "tradeId")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Streaming not supported"))
		return
	}

	ch, err := h.chat.Stream(r.Context(), userID, tradeID)
	if err != nil {
		h.writeChatError(w, "StreamMessages", err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for msg := range ch {
		payload, err := json.Marshal(msg)
		if err != nil {
			log.Printf("[StreamMessages] Failed to marshal message %s: %v", msg.ID, err)
			continue
		}
		fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload)
		flusher.Flush()
	}
}

func (h *ChatHandler) writeChatError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, services.ErrTradeNotFound):
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Trade not found"))
	case errors.Is(err, services.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse(err.Error()))
	case errors.Is(err, services.ErrChatDisabled):
		writeJSON(w, http.StatusConflict, models.NewErrorResponse(err.Error()))
	default:
		log.Printf("[%s] Service error: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Chat operation failed"))
	}
}

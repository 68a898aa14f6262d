package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/kidswap/backend/internal/middleware"
	"github.com/kidswap/backend/internal/models"
	"github.com/kidswap/backend/internal/services"
)

type AccountHandler struct {
	accounts *services.AccountService
	images   *services.ImageService // nil when storage is not configured
}

func NewAccountHandler(accounts *services.AccountService, images *services.ImageService) *AccountHandler {
	return &AccountHandler{accounts: accounts, images: images}
}

// DeleteAccount removes all backend data for the authenticated user and
// cleans up their stored photos best effort.
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	photoURLs, err := h.accounts.DeleteAccount(ctx, userID)
	if err != nil {
		log.Printf("[DeleteAccount] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to delete account"))
		return
	}

	if h.images != nil {
		for _, u := range photoURLs {
			if err := h.images.Delete(ctx, u); err != nil && err != services.ErrImageNotFound {
				log.Printf("[DeleteAccount] Failed to delete photo %s: %v", u, err)
			}
		}
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]interface{}{
		"deleted":        true,
		"removed_photos": len(photoURLs),
	}))
}

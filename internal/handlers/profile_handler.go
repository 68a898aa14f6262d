package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/go-chi/chi/v5"

	"github.com/kidswap/backend/internal/middleware"
	"github.com/kidswap/backend/internal/models"
	"github.com/kidswap/backend/internal/services"
)

type ProfileHandler struct {
	accounts      *services.AccountService
	feedback      *services.FeedbackService
	rewards       *services.RewardService
	trades        *services.TradeService
	listings      *services.ListingService
	verifications *services.VerificationService
	authClient    *fbauth.Client
}

func NewProfileHandler(accounts *services.AccountService, feedback *services.FeedbackService, rewards *services.RewardService, trades *services.TradeService, listings *services.ListingService, verifications *services.VerificationService, authClient *fbauth.Client) *ProfileHandler {
	return &ProfileHandler{
		accounts:      accounts,
		feedback:      feedback,
		rewards:       rewards,
		trades:        trades,
		listings:      listings,
		verifications: verifications,
		authClient:    authClient,
	}
}

// Me returns the authenticated profile with its role record attached.
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	profile, err := h.accounts.GetProfile(ctx, userID)
	if err != nil {
		log.Printf("[Me] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Profile not found"))
		return
	}

	out := map[string]interface{}{"profile": profile}
	switch profile.Role {
	case models.RoleKid:
		if kid, err := h.accounts.GetKid(ctx, userID); err == nil {
			out["kid"] = kid
		}
	case models.RoleParent:
		if parent, err := h.accounts.GetParent(ctx, userID); err == nil {
			out["parent"] = parent
		}
		if links, err := h.accounts.LinksForParent(ctx, userID); err == nil {
			out["children"] = links
		}
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(out))
}

// GetPublicProfile returns a public-safe view of another user, with their
// average rating.
func (h *ProfileHandler) GetPublicProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	targetID := chi.URLParam(r, "userId")
	if targetID == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Missing userId"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	profile, err := h.accounts.GetProfile(ctx, targetID)
	if err != nil {
		// Fallback: users who signed in through Firebase may have no local
		// profile yet.
		if h.authClient == nil {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Profile not found"))
			return
		}
		u, err2 := h.authClient.GetUser(ctx, targetID)
		if err2 != nil {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Profile not found"))
			return
		}
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.PublicProfile{
			ID:          targetID,
			DisplayName: u.DisplayName,
			PhotoURL:    u.PhotoURL,
		}))
		return
	}

	pub := profile.Public()
	out := map[string]interface{}{"profile": pub}
	if h.feedback != nil {
		if _, average, err := h.feedback.ForUser(ctx, targetID); err == nil {
			out["average_rating"] = average
		}
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(out))
}

// UpgradeMembership moves the authenticated kid to the paid tier.
func (h *ProfileHandler) UpgradeMembership(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	if err := h.accounts.UpgradeMembership(r.Context(), userID); err != nil {
		if err == services.ErrKidNotFound {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Kid profile not found"))
			return
		}
		log.Printf("[UpgradeMembership] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to upgrade membership"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"membership": string(models.MembershipPaid)}))
}

type dashboardSummary struct {
	Profile              *models.Profile               `json:"profile"`
	Balance              *models.RewardBalance         `json:"balance,omitempty"`
	OpenTrades           []*models.Trade               `json:"open_trades,omitempty"`
	PendingTrades        []*models.Trade               `json:"pending_trades,omitempty"`
	Listings             []*models.Listing             `json:"listings,omitempty"`
	PendingVerifications []*models.VerificationRequest `json:"pending_verifications,omitempty"`
}

// Dashboard aggregates the landing view per role: a kid sees their listings,
// open trades and point balance; a parent sees trades awaiting their
// decision; an admin sees the parent-link review queue.
func (h *ProfileHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	profile, err := h.accounts.GetProfile(ctx, userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Profile not found"))
		return
	}

	summary := dashboardSummary{Profile: profile}
	switch profile.Role {
	case models.RoleKid:
		if balance, err := h.rewards.Balance(ctx, userID); err == nil {
			summary.Balance = balance
		}
		if open, err := h.trades.ListForKid(ctx, userID); err == nil {
			summary.OpenTrades = open
		}
		if mine, err := h.listings.ListMine(ctx, userID); err == nil {
			summary.Listings = mine
		}
	case models.RoleParent:
		if pending, err := h.trades.ListPendingApprovalForParent(ctx, userID); err == nil {
			summary.PendingTrades = pending
		}
	case models.RoleAdmin, models.RoleSuperAdmin:
		if queue, err := h.verifications.ListPending(ctx); err == nil {
			summary.PendingVerifications = queue
		}
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(summary))
}

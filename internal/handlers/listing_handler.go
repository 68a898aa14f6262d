package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kidswap/backend/internal/middleware"
	"github.com/kidswap/backend/internal/models"
	"github.com/kidswap/backend/internal/services"
)

type ListingHandler struct {
	listings *services.ListingService
}

func NewListingHandler(listings *services.ListingService) *ListingHandler {
	return &ListingHandler{listings: listings}
}

func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req models.CreateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	listing, err := h.listings.Create(r.Context(), userID, &req)
	if err != nil {
		h.writeListingError(w, "CreateListing", err)
		return
	}

	log.Printf("[CreateListing] Listing created: %s", listing.ID)
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(listing))
}

func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "listingId")

	listing, err := h.listings.Get(r.Context(), listingID)
	if err != nil {
		h.writeListingError(w, "GetListing", err)
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(listing))
}

func (h *ListingHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	listingID := chi.URLParam(r, "listingId")

	var req models.UpdateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	listing, err := h.listings.Update(r.Context(), userID, listingID, &req)
	if err != nil {
		h.writeListingError(w, "UpdateListing", err)
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(listing))
}

// Discover lists visible listings filtered by category and free-text query.
func (h *ListingHandler) Discover(w http.ResponseWriter, r *http.Request) {
	filter := models.ListingFilter{
		Category:     r.URL.Query().Get("category"),
		Query:        r.URL.Query().Get("q"),
		ExcludeKidID: middleware.GetUserID(r.Context()),
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	listings, err := h.listings.Discover(r.Context(), filter, limit)
	if err != nil {
		log.Printf("[Discover] Service error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to list listings"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(listings))
}

func (h *ListingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	listings, err := h.listings.ListMine(r.Context(), userID)
	if err != nil {
		log.Printf("[ListMyListings] Service error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to list listings"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(listings))
}

func (h *ListingHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.ListingCategories))
}

func (h *ListingHandler) Retract(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	listingID := chi.URLParam(r, "listingId")

	if err := h.listings.Retract(r.Context(), userID, listingID); err != nil {
		h.writeListingError(w, "RetractListing", err)
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]bool{"retracted": true}))
}

func (h *ListingHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	listingID := chi.URLParam(r, "listingId")

	if err := h.listings.Reactivate(r.Context(), userID, listingID); err != nil {
		h.writeListingError(w, "ReactivateListing", err)
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]bool{"active": true}))
}

func (h *ListingHandler) writeListingError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, services.ErrListingNotFound):
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Listing not found"))
	case errors.Is(err, services.ErrKidNotFound):
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Kid profile not found"))
	case errors.Is(err, services.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse(err.Error()))
	case errors.Is(err, services.ErrImageRejected):
		writeJSON(w, http.StatusUnprocessableEntity, models.NewErrorResponse("Photo rejected — violates community guidelines"))
	default:
		log.Printf("[%s] Service error: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Listing operation failed"))
	}
}

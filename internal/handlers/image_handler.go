package handlers

import (
	"net/http"

	"github.com/kidswap/backend/internal/middleware"
	"github.com/kidswap/backend/internal/models"
	"github.com/kidswap/backend/internal/services"
)

type ImageHandler struct {
	imageService *services.ImageService
	maxSizeMB    int64
}

func NewImageHandler(imageService *services.ImageService, maxSizeMB int64) *ImageHandler {
	return &ImageHandler{
		imageService: imageService,
		maxSizeMB:    maxSizeMB,
	}
}

// Upload receives a photo and stores it under the pending/ prefix; the
// returned path goes into listing photo_urls and gets promoted once
// moderation passes.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	// Limit request body size
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSizeMB*1024*1024)

	if err := r.ParseMultipartForm(h.maxSizeMB * 1024 * 1024); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("File too large or invalid form data"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("No image file provided"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !isValidImageType(contentType) {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid image type. Allowed: JPEG, PNG, WebP"))
		return
	}

	typ := r.FormValue("type")
	switch typ {
	case "listing_photo", "profile_photo":
	case "":
		typ = "listing_photo"
	default:
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid upload type"))
		return
	}

	response, err := h.imageService.Upload(r.Context(), userID, typ, header.Filename, file)
	if err != nil {
		if err == services.ErrInvalidImage {
			writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid image file"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to upload image"))
		return
	}

	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(response))
}

func isValidImageType(contentType string) bool {
	validTypes := map[string]bool{
		"image/jpeg": true,
		"image/jpg":  true,
		"image/png":  true,
		"image/webp": true,
	}
	return validTypes[contentType]
}

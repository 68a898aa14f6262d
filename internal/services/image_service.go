package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/kidswap/backend/internal/models"
)

var (
	ErrImageNotFound = errors.New("image not found")
	ErrInvalidImage  = errors.New("invalid image file")
)

// ImageService receives photo uploads. With a bucket configured, objects
// land under pending/ in GCS and stay there until moderation promotes them;
// without one (local dev), files go to uploadDir and skip the pending flow.
type ImageService struct {
	gcs       *storage.Client // nil in local mode
	bucket    string
	uploadDir string
}

func NewImageService(ctx context.Context, bucket, uploadDir string) (*ImageService, error) {
	if bucket == "" {
		os.MkdirAll(uploadDir, 0755)
		return &ImageService{uploadDir: uploadDir}, nil
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("image service: storage client: %w", err)
	}
	return &ImageService{gcs: client, bucket: bucket}, nil
}

// Upload stores a photo. typ tags the object for the moderation worker so
// a rejection knows which record to clear ("listing_photo" or "profile_photo").
func (s *ImageService) Upload(ctx context.Context, userID, typ, filename string, file io.Reader) (*models.ImageUploadResponse, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	case "":
		ext = ".jpg"
	default:
		return nil, ErrInvalidImage
	}

	imageID := uuid.New().String()
	newFilename := imageID + ext

	if s.gcs == nil {
		return s.uploadLocal(userID, newFilename, file)
	}

	objectName := "pending/" + newFilename
	w := s.gcs.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	w.Metadata = map[string]string{"owner": userID, "type": typ}
	if _, err := io.Copy(w, file); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize upload: %w", err)
	}

	return &models.ImageUploadResponse{
		ID:       imageID,
		URL:      objectName,
		Filename: newFilename,
	}, nil
}

func (s *ImageService) uploadLocal(userID, filename string, file io.Reader) (*models.ImageUploadResponse, error) {
	filePath := filepath.Join(s.uploadDir, filename)

	dst, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	return &models.ImageUploadResponse{
		ID:       strings.TrimSuffix(filename, filepath.Ext(filename)),
		URL:      "/uploads/" + filename,
		Filename: filename,
	}, nil
}

// Delete removes a stored object by its URL/path. Best effort on account
// deletion cleanup.
func (s *ImageService) Delete(ctx context.Context, path string) error {
	if s.gcs != nil {
		err := s.gcs.Bucket(s.bucket).Object(path).Delete(ctx)
		if err == storage.ErrObjectNotExist {
			return ErrImageNotFound
		}
		return err
	}

	name := strings.TrimPrefix(path, "/uploads/")
	err := os.Remove(filepath.Join(s.uploadDir, name))
	if os.IsNotExist(err) {
		return ErrImageNotFound
	}
	return err
}

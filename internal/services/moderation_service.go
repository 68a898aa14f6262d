package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// ErrImageRejected is returned when SafeSearch flags a photo as unsafe.
var ErrImageRejected = errors.New("image rejected: violates community guidelines")

// ModerationResult holds the outcome of one approved photo.
type ModerationResult struct {
	ApprovedURL string
}

// ModerationService reviews listing and profile photos synchronously at
// create/update time: SafeSearch on the pending/ object, then promotion to
// its final path or deletion plus a strike against the uploader. The async
// moderation worker covers the same review for uploads that bypass this
// inline path.
type ModerationService struct {
	gcs    *storage.Client
	bucket string
	flags  FlagStore
}

// NewModerationService creates the storage client once at server startup.
// flags may be nil when strike tracking is not wanted.
func NewModerationService(ctx context.Context, bucket string, flags FlagStore) (*ModerationService, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("moderation: storage client: %w", err)
	}
	return &ModerationService{
		gcs:    client,
		bucket: bucket,
		flags:  flags,
	}, nil
}

// ModerateAndPromote reviews a single pending/ path. Safe photos move to
// their final object and come back with a download URL; unsafe photos are
// deleted, the uploader takes a strike, and the caller gets
// ErrImageRejected. Paths outside pending/ have already been reviewed and
// pass through unchanged.
func (m *ModerationService) ModerateAndPromote(ctx context.Context, pendingPath, userID string) (*ModerationResult, error) {
	if !strings.HasPrefix(pendingPath, "pending/") {
		return &ModerationResult{ApprovedURL: pendingPath}, nil
	}

	gcsURI := fmt.Sprintf("gs://%s/%s", m.bucket, pendingPath)
	ss, err := DetectSafeSearch(ctx, gcsURI)
	if err != nil {
		log.Printf("[moderation] SafeSearch error path=%s err=%v", pendingPath, err)
		return nil, fmt.Errorf("moderation: safesearch: %w", err)
	}

	log.Printf("[moderation] SafeSearch %s: adult=%s violence=%s racy=%s unsafe=%v",
		pendingPath, ss.Adult, ss.Violence, ss.Racy, ss.IsUnsafe())

	if ss.IsUnsafe() {
		if err := m.deleteObject(ctx, pendingPath); err != nil {
			log.Printf("[moderation] delete failed path=%s err=%v", pendingPath, err)
		}
		if m.flags != nil && userID != "" {
			if _, err := m.flags.AddStrike(ctx, userID); err != nil {
				log.Printf("[moderation] strike failed userID=%s err=%v", userID, err)
			}
		}
		return nil, ErrImageRejected
	}

	finalName := strings.TrimPrefix(pendingPath, "pending/")
	token := newToken()
	log.Printf("[moderation] photo approved, promoting %s -> %s", pendingPath, finalName)
	if err := m.promoteObject(ctx, pendingPath, finalName, token); err != nil {
		return nil, fmt.Errorf("moderation: promote: %w", err)
	}

	return &ModerationResult{ApprovedURL: firebaseDownloadURL(m.bucket, finalName, token)}, nil
}

// ModerateMultiple reviews a listing's photo set in order. Already-approved
// URLs pass through; the first rejection aborts the whole set so the caller
// can fail the create/update.
func (m *ModerationService) ModerateMultiple(ctx context.Context, paths []string, userID string) ([]string, error) {
	approved := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if !strings.HasPrefix(p, "pending/") {
			approved = append(approved, p)
			continue
		}
		res, err := m.ModerateAndPromote(ctx, p, userID)
		if err != nil {
			return nil, err
		}
		approved = append(approved, res.ApprovedURL)
	}
	return approved, nil
}

// promoteObject copies the pending object to its final name, stamps the
// approval metadata and download token, then removes the pending copy.
func (m *ModerationService) promoteObject(ctx context.Context, from, to, token string) error {
	b := m.gcs.Bucket(m.bucket)
	src := b.Object(from)
	dst := b.Object(to)

	// Freshly finalized uploads can lag; retry the attrs read briefly.
	var attrs *storage.ObjectAttrs
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		attrs, err = src.Attrs(ctx)
		if err == nil {
			break
		}
		if err == storage.ErrObjectNotExist && attempt < 2 {
			backoff := time.Duration(attempt+1) * 500 * time.Millisecond
			log.Printf("[moderation] %s not visible yet, retrying in %v", from, backoff)
			time.Sleep(backoff)
			continue
		}
		return fmt.Errorf("source attrs: %w", err)
	}

	md := make(map[string]string, len(attrs.Metadata)+2)
	for k, v := range attrs.Metadata {
		md[k] = v
	}
	md["moderation"] = "approved"
	md["firebaseStorageDownloadTokens"] = token

	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if _, err := dst.Update(ctx, storage.ObjectAttrsToUpdate{Metadata: md}); err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}
	return src.Delete(ctx)
}

func (m *ModerationService) deleteObject(ctx context.Context, name string) error {
	return m.gcs.Bucket(m.bucket).Object(name).Delete(ctx)
}

func newToken() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), os.Getpid())
}

// firebaseDownloadURL builds the tokened public URL Firebase clients use to
// fetch an approved photo.
func firebaseDownloadURL(bucket, objectName, token string) string {
	return fmt.Sprintf(
		"https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket,
		url.PathEscape(objectName),
		url.QueryEscape(token),
	)
}

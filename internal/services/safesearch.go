package services

import (
	"context"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

// SafeSearchResult holds the Vision likelihood verdicts for one photo. Each
// field is a likelihood string ("VERY_UNLIKELY" .. "VERY_LIKELY").
type SafeSearchResult struct {
	Adult    string
	Violence string
	Racy     string
	Spoof    string
	Medical  string
}

// IsUnsafe is the rejection rule for kid-facing photos: LIKELY or above on
// adult, violence or racy content fails review. Spoof and medical verdicts
// are recorded but never block a listing photo.
func (r *SafeSearchResult) IsUnsafe() bool {
	return likelyOrWorse(r.Adult) || likelyOrWorse(r.Violence) || likelyOrWorse(r.Racy)
}

func likelyOrWorse(likelihood string) bool {
	return likelihood == "LIKELY" || likelihood == "VERY_LIKELY"
}

// DetectSafeSearch runs Vision SAFE_SEARCH_DETECTION against an uploaded
// photo by its gs:// URI, authenticating with Application Default
// Credentials. An image Vision returns no annotation for comes back as an
// all-unknown (safe) result.
func DetectSafeSearch(ctx context.Context, gcsURI string) (*SafeSearchResult, error) {
	svc, err := vision.NewService(ctx, option.WithScopes(vision.CloudPlatformScope))
	if err != nil {
		return nil, err
	}

	req := &vision.AnnotateImageRequest{
		Image: &vision.Image{
			Source: &vision.ImageSource{GcsImageUri: gcsURI},
		},
		Features: []*vision.Feature{
			{Type: "SAFE_SEARCH_DETECTION"},
		},
	}

	call := svc.Images.Annotate(&vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{req},
	})
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Responses) == 0 || resp.Responses[0].SafeSearchAnnotation == nil {
		return &SafeSearchResult{}, nil
	}

	ss := resp.Responses[0].SafeSearchAnnotation
	return &SafeSearchResult{
		Adult:    ss.Adult,
		Violence: ss.Violence,
		Racy:     ss.Racy,
		Spoof:    ss.Spoof,
		Medical:  ss.Medical,
	}, nil
}

package models

import (
	"strings"
	"time"
)

type Condition string

const (
	ConditionNew     Condition = "new"
	ConditionLikeNew Condition = "like_new"
	ConditionGood    Condition = "good"
	ConditionFair    Condition = "fair"
	ConditionPoor    Condition = "poor"
)

func (c Condition) IsValid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

const MaxListingPhotos = 5

// Listing is an item a kid offers for trade. It shows up in discovery only
// when it is both active and moderated.
type Listing struct {
	ID              string    `json:"id" bson:"_id"`
	KidID           string    `json:"kid_id" bson:"kid_id"`
	Title           string    `json:"title" bson:"title"`
	Description     string    `json:"description" bson:"description"`
	Category        string    `json:"category" bson:"category"`
	Condition       Condition `json:"condition" bson:"condition"`
	Brand           string    `json:"brand,omitempty" bson:"brand,omitempty"`
	AgeRange        string    `json:"age_range,omitempty" bson:"age_range,omitempty"`
	Color           string    `json:"color,omitempty" bson:"color,omitempty"`
	Size            string    `json:"size,omitempty" bson:"size,omitempty"`
	DesiredExchange string    `json:"desired_exchange,omitempty" bson:"desired_exchange,omitempty"`
	PhotoURLs       []string  `json:"photo_urls" bson:"photo_urls"`
	IsActive        bool      `json:"is_active" bson:"is_active"`
	IsModerated     bool      `json:"is_moderated" bson:"is_moderated"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

// Visible reports whether the listing may appear in discovery.
func (l *Listing) Visible() bool {
	return l.IsActive && l.IsModerated
}

type CreateListingRequest struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Category        string    `json:"category"`
	Condition       Condition `json:"condition"`
	Brand           string    `json:"brand"`
	AgeRange        string    `json:"age_range"`
	Color           string    `json:"color"`
	Size            string    `json:"size"`
	DesiredExchange string    `json:"desired_exchange"`
	PhotoURLs       []string  `json:"photo_urls"`
}

func (r *CreateListingRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Title) == "" {
		errors["title"] = "Title is required"
	}
	if strings.TrimSpace(r.Category) == "" {
		errors["category"] = "Category is required"
	}
	if !r.Condition.IsValid() {
		errors["condition"] = "Condition must be one of: new, like_new, good, fair, poor"
	}
	if len(r.PhotoURLs) > MaxListingPhotos {
		errors["photo_urls"] = "At most 5 photos are allowed"
	}

	return errors
}

type UpdateListingRequest struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Category        string    `json:"category"`
	Condition       Condition `json:"condition"`
	Brand           string    `json:"brand"`
	AgeRange        string    `json:"age_range"`
	Color           string    `json:"color"`
	Size            string    `json:"size"`
	DesiredExchange string    `json:"desired_exchange"`
	PhotoURLs       []string  `json:"photo_urls"`
}

func (r *UpdateListingRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Title) == "" {
		errors["title"] = "Title is required"
	}
	if !r.Condition.IsValid() {
		errors["condition"] = "Condition must be one of: new, like_new, good, fair, poor"
	}
	if len(r.PhotoURLs) > MaxListingPhotos {
		errors["photo_urls"] = "At most 5 photos are allowed"
	}

	return errors
}

// ListingFilter selects listings for discovery. Query matches title or
// description, case-insensitive substring. ExcludeKidID hides the browsing
// kid's own listings.
type ListingFilter struct {
	Category     string
	Query        string
	ExcludeKidID string
}

// Common listing categories.
var ListingCategories = []string{
	"Toys",
	"Books",
	"Clothing",
	"Games",
	"Sports",
	"School Supplies",
	"Crafts",
	"Other",
}

package models

import (
	"net/mail"
	"strings"
	"time"
)

// Role tags a Profile. Assigned at signup and immutable afterwards.
type Role string

const (
	RoleKid        Role = "kid"
	RoleParent     Role = "parent"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Profile is the identity record every user has, keyed by a UUID. Role-specific
// data lives in the Kid/Parent specialization records.
type Profile struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash,omitempty"`
	DisplayName  string    `json:"display_name" bson:"display_name"`
	Role         Role      `json:"role" bson:"role"`
	PhotoURL     string    `json:"photo_url,omitempty" bson:"photo_url,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

type MembershipTier string

const (
	MembershipFree MembershipTier = "free"
	MembershipPaid MembershipTier = "paid"
)

// Kid is the specialization record for a kid-role Profile.
type Kid struct {
	ProfileID      string         `json:"profile_id" bson:"_id"`
	Age            int            `json:"age" bson:"age"`
	School         string         `json:"school" bson:"school"`
	ParentVerified bool           `json:"parent_verified" bson:"parent_verified"`
	Membership     MembershipTier `json:"membership" bson:"membership"`
	Interests      []string       `json:"interests" bson:"interests"`
	CreatedAt      time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" bson:"updated_at"`
}

// Parent is the specialization record for a parent-role Profile. The full
// national ID is held by the external storage layer as an opaque encrypted
// reference; only the last four digits are kept in clear for display.
type Parent struct {
	ProfileID       string    `json:"profile_id" bson:"_id"`
	PhoneVerified   bool      `json:"phone_verified" bson:"phone_verified"`
	EmailVerified   bool      `json:"email_verified" bson:"email_verified"`
	Phone           string    `json:"phone,omitempty" bson:"phone,omitempty"`
	NationalIDLast4 string    `json:"national_id_last4,omitempty" bson:"national_id_last4,omitempty"`
	NationalIDRef   string    `json:"-" bson:"national_id_ref,omitempty"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

// ParentChildLink joins a Parent to a Kid. Only linked parents may approve
// that kid's trades.
type ParentChildLink struct {
	ID         string     `json:"id" bson:"_id"`
	ParentID   string     `json:"parent_id" bson:"parent_id"`
	KidID      string     `json:"kid_id" bson:"kid_id"`
	IsPrimary  bool       `json:"is_primary" bson:"is_primary"`
	VerifiedAt *time.Time `json:"verified_at,omitempty" bson:"verified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`
}

// PublicProfile is safe to show other authenticated users.
type PublicProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

func (p *Profile) Public() PublicProfile {
	return PublicProfile{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		Role:        p.Role,
		PhotoURL:    p.PhotoURL,
	}
}

type RegisterParentRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
	NationalID  string `json:"national_id"`
}

func (r *RegisterParentRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Email) == "" {
		errors["email"] = "Email is required"
	} else if _, err := mail.ParseAddress(r.Email); err != nil {
		errors["email"] = "Email is invalid"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	} else if len(r.Password) < 8 {
		errors["password"] = "Password must be at least 8 characters"
	}
	if strings.TrimSpace(r.DisplayName) == "" {
		errors["display_name"] = "Display name is required"
	}

	return errors
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

type AuthResponse struct {
	Token   string  `json:"token"`
	Profile Profile `json:"profile"`
}

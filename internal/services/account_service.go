package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kidswap/backend/internal/models"
)

const verificationCodeTTL = 10 * time.Minute

type verificationCode struct {
	code      string
	expiresAt time.Time
}

// AccountService owns signup, login and account lifecycle for both roles.
// Kid signup runs the multi-step wizard draft in one shot; when the named
// parent already has an account a verification request is opened for them.
type AccountService struct {
	profiles      ProfileStore
	listings      ListingStore
	verifications VerificationStore
	rewards       *RewardService
	notifications *NotificationService
	mailer        *Mailer

	jwtSecret     string
	jwtExpiration time.Duration

	mu    sync.Mutex
	codes map[string]verificationCode
}

func NewAccountService(profiles ProfileStore, listings ListingStore, verifications VerificationStore, rewards *RewardService, notifications *NotificationService, mailer *Mailer, jwtSecret string, jwtExpiration time.Duration) *AccountService {
	return &AccountService{
		profiles:      profiles,
		listings:      listings,
		verifications: verifications,
		rewards:       rewards,
		notifications: notifications,
		mailer:        mailer,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		codes:         make(map[string]verificationCode),
	}
}

// RegisterParent creates a parent account. Phone and email start unverified;
// an email code goes out immediately when a mailer is configured.
func (s *AccountService) RegisterParent(ctx context.Context, req *models.RegisterParentRequest) (*models.AuthResponse, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	profile := &models.Profile{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hashed),
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Role:         models.RoleParent,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.profiles.InsertProfile(ctx, profile); err != nil {
		return nil, err
	}

	parent := &models.Parent{
		ProfileID: profile.ID,
		Phone:     strings.TrimSpace(req.Phone),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if id := strings.TrimSpace(req.NationalID); len(id) >= 4 {
		parent.NationalIDLast4 = id[len(id)-4:]
	}
	if err := s.profiles.InsertParent(ctx, parent); err != nil {
		return nil, err
	}

	log.Printf("[AccountService] Parent registered: %s", profile.ID)

	if s.mailer != nil {
		if err := s.SendEmailCode(ctx, profile.ID, profile.Email); err != nil {
			log.Printf("[AccountService] Failed to send verification code to %s: %v", profile.ID, err)
		}
	}

	return s.authResponse(profile)
}

// RegisterKid runs every wizard step over the draft and creates the kid
// account. The named parent is looked up by email; when they already have an
// account a pending verification request and an unverified link are created.
func (s *AccountService) RegisterKid(ctx context.Context, draft *models.KidRegistrationDraft) (*models.AuthResponse, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(draft.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	profile := &models.Profile{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(strings.TrimSpace(draft.Email)),
		PasswordHash: string(hashed),
		DisplayName:  strings.TrimSpace(draft.DisplayName),
		Role:         models.RoleKid,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.profiles.InsertProfile(ctx, profile); err != nil {
		return nil, err
	}

	kid := &models.Kid{
		ProfileID:  profile.ID,
		Age:        draft.Age,
		School:     strings.TrimSpace(draft.School),
		Membership: models.MembershipFree,
		Interests:  draft.Interests,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.profiles.InsertKid(ctx, kid); err != nil {
		return nil, err
	}

	log.Printf("[AccountService] Kid registered: %s", profile.ID)

	if parent, err := s.profiles.GetProfileByEmail(ctx, draft.ParentEmail); err == nil && parent.Role == models.RoleParent {
		if err := s.openParentVerification(ctx, profile.ID, parent.ID); err != nil {
			log.Printf("[AccountService] Failed to open parent verification for kid %s: %v", profile.ID, err)
		}
	} else {
		log.Printf("[AccountService] Parent email for kid %s has no parent account yet", profile.ID)
	}

	if code := strings.TrimSpace(draft.ReferralCode); code != "" {
		s.creditReferral(ctx, code, profile.ID)
	}

	return s.authResponse(profile)
}

func (s *AccountService) openParentVerification(ctx context.Context, kidID, parentID string) error {
	now := time.Now().UTC()
	link := &models.ParentChildLink{
		ID:        uuid.New().String(),
		ParentID:  parentID,
		KidID:     kidID,
		IsPrimary: true,
		CreatedAt: now,
	}
	if err := s.profiles.InsertLink(ctx, link); err != nil {
		return err
	}

	req := &models.VerificationRequest{
		ID:        uuid.New().String(),
		KidID:     kidID,
		ParentID:  parentID,
		Status:    models.VerificationPending,
		CreatedAt: now,
	}
	if err := s.verifications.Insert(ctx, req); err != nil {
		return err
	}

	s.notifications.Notify(ctx, parentID, models.NotifVerificationResolved,
		"A child linked your account",
		"A new account names you as their parent. The link is awaiting review.",
		req.ID)
	return nil
}

func (s *AccountService) creditReferral(ctx context.Context, referrerID, newUserID string) {
	if _, err := s.profiles.GetProfile(ctx, referrerID); err != nil {
		log.Printf("[AccountService] Referral code %q matched no profile", referrerID)
		return
	}
	if err := s.rewards.Credit(ctx, referrerID, models.PointsReferral, models.ReasonReferral, newUserID); err != nil {
		log.Printf("[AccountService] Failed to credit referral to %s: %v", referrerID, err)
	}
}

func (s *AccountService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	profile, err := s.profiles.GetProfileByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidPassword
	}
	return s.authResponse(profile)
}

func (s *AccountService) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	return s.profiles.GetProfile(ctx, id)
}

func (s *AccountService) GetKid(ctx context.Context, id string) (*models.Kid, error) {
	return s.profiles.GetKid(ctx, id)
}

func (s *AccountService) GetParent(ctx context.Context, id string) (*models.Parent, error) {
	return s.profiles.GetParent(ctx, id)
}

func (s *AccountService) LinksForParent(ctx context.Context, parentID string) ([]models.ParentChildLink, error) {
	return s.profiles.LinksForParent(ctx, parentID)
}

// IssueToken signs a JWT carrying identity claims for the middleware.
func (s *AccountService) IssueToken(profile *models.Profile) (string, error) {
	claims := jwt.MapClaims{
		"user_id": profile.ID,
		"role":    string(profile.Role),
		"email":   profile.Email,
		"exp":     time.Now().Add(s.jwtExpiration).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *AccountService) authResponse(profile *models.Profile) (*models.AuthResponse, error) {
	token, err := s.IssueToken(profile)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, Profile: *profile}, nil
}

// SendEmailCode generates and emails a short-lived verification code.
func (s *AccountService) SendEmailCode(ctx context.Context, profileID, email string) error {
	code, err := newNumericCode(6)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.codes[profileID] = verificationCode{code: code, expiresAt: time.Now().Add(verificationCodeTTL)}
	s.mu.Unlock()

	if s.mailer == nil {
		log.Printf("[AccountService] No mailer configured, code for %s: %s", profileID, code)
		return nil
	}
	return s.mailer.SendVerificationCode(ctx, email, code)
}

// VerifyEmailCode checks a submitted code and marks the parent's email
// verified on match.
func (s *AccountService) VerifyEmailCode(ctx context.Context, profileID, code string) error {
	s.mu.Lock()
	stored, exists := s.codes[profileID]
	if exists && stored.code == strings.TrimSpace(code) && time.Now().Before(stored.expiresAt) {
		delete(s.codes, profileID)
		s.mu.Unlock()

		verified := true
		return s.profiles.SetParentVerifiedFlags(ctx, profileID, nil, &verified)
	}
	s.mu.Unlock()
	return ErrInvalidCode
}

// UpgradeMembership moves a kid to the paid tier. Payment handling lives
// outside this service; callers invoke this after a successful charge.
func (s *AccountService) UpgradeMembership(ctx context.Context, kidID string) error {
	return s.profiles.SetKidMembership(ctx, kidID, models.MembershipPaid)
}

// DeleteAccount removes the profile, its role records, listings and
// notifications. It returns the photo URLs of deleted listings so the caller
// can clean up storage.
func (s *AccountService) DeleteAccount(ctx context.Context, profileID string) ([]string, error) {
	photoURLs, err := s.listings.DeleteByKid(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if err := s.notifications.store.DeleteByUser(ctx, profileID); err != nil {
		log.Printf("[AccountService] Failed to delete notifications for %s: %v", profileID, err)
	}
	if err := s.profiles.DeleteProfileData(ctx, profileID); err != nil {
		return nil, err
	}
	log.Printf("[AccountService] Account deleted: %s", profileID)
	return photoURLs, nil
}

func newNumericCode(digits int) (string, error) {
	var sb strings.Builder
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "%d", n.Int64())
	}
	return sb.String(), nil
}

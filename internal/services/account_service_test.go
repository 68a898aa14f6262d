package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kidswap/backend/internal/models"
)

func newAccountFixture(t *testing.T) (*AccountService, *MemoryProfileStore, *MemoryVerificationStore, *RewardService) {
	t.Helper()
	profiles := NewMemoryProfileStore()
	verifications := NewMemoryVerificationStore()
	rewards := NewRewardService(NewMemoryRewardStore())
	svc := NewAccountService(
		profiles,
		NewMemoryListingStore(),
		verifications,
		rewards,
		NewNotificationService(NewMemoryNotificationStore()),
		nil, // no mailer in tests, codes are logged
		"test-secret",
		time.Hour,
	)
	return svc, profiles, verifications, rewards
}

func TestRegisterParent(t *testing.T) {
	svc, profiles, _, _ := newAccountFixture(t)
	ctx := context.Background()

	resp, err := svc.RegisterParent(ctx, &models.RegisterParentRequest{
		Email:       "Pat@Example.com",
		Password:    "correct horse",
		DisplayName: "Pat",
		Phone:       "555-0101",
		NationalID:  "123456789",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	require.Equal(t, models.RoleParent, resp.Profile.Role)
	require.Equal(t, "pat@example.com", resp.Profile.Email)

	parent, err := profiles.GetParent(ctx, resp.Profile.ID)
	require.NoError(t, err)
	require.Equal(t, "6789", parent.NationalIDLast4)
	require.False(t, parent.EmailVerified)
}

func TestRegisterParentDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newAccountFixture(t)
	ctx := context.Background()

	req := &models.RegisterParentRequest{
		Email: "pat@example.com", Password: "correct horse", DisplayName: "Pat",
	}
	_, err := svc.RegisterParent(ctx, req)
	require.NoError(t, err)

	_, err = svc.RegisterParent(ctx, req)
	require.ErrorIs(t, err, ErrEmailExists)
}

func TestLogin(t *testing.T) {
	svc, _, _, _ := newAccountFixture(t)
	ctx := context.Background()

	_, err := svc.RegisterParent(ctx, &models.RegisterParentRequest{
		Email: "pat@example.com", Password: "correct horse", DisplayName: "Pat",
	})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &models.LoginRequest{Email: "pat@example.com", Password: "correct horse"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "pat@example.com", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidPassword)

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestRegisterKidOpensParentVerification(t *testing.T) {
	svc, profiles, verifications, _ := newAccountFixture(t)
	ctx := context.Background()

	parentResp, err := svc.RegisterParent(ctx, &models.RegisterParentRequest{
		Email: "pat@example.com", Password: "correct horse", DisplayName: "Pat",
	})
	require.NoError(t, err)

	kidResp, err := svc.RegisterKid(ctx, &models.KidRegistrationDraft{
		Email:       "sam@example.com",
		Password:    "super secret",
		DisplayName: "Sam",
		Age:         11,
		School:      "Lincoln Elementary",
		Interests:   []string{"lego", "dinosaurs"},
		ParentEmail: "pat@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleKid, kidResp.Profile.Role)

	// The kid starts locked until the parent confirms the link.
	kid, err := profiles.GetKid(ctx, kidResp.Profile.ID)
	require.NoError(t, err)
	require.False(t, kid.ParentVerified)
	require.Equal(t, models.MembershipFree, kid.Membership)

	links, err := profiles.LinksForParent(ctx, parentResp.Profile.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	require.Equal(t, kidResp.Profile.ID, links[0].KidID)
	require.True(t, links[0].IsPrimary)

	pending, err := verifications.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, parentResp.Profile.ID, pending[0].ParentID)
}

func TestRegisterKidWithoutKnownParent(t *testing.T) {
	svc, _, verifications, _ := newAccountFixture(t)
	ctx := context.Background()

	_, err := svc.RegisterKid(ctx, &models.KidRegistrationDraft{
		Email:       "sam@example.com",
		Password:    "super secret",
		DisplayName: "Sam",
		Age:         11,
		School:      "Lincoln Elementary",
		ParentEmail: "unknown@example.com",
	})
	require.NoError(t, err)

	pending, err := verifications.ListPending(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestReferralCreditsReferrer(t *testing.T) {
	svc, _, _, rewards := newAccountFixture(t)
	ctx := context.Background()

	referrer, err := svc.RegisterKid(ctx, &models.KidRegistrationDraft{
		Email: "first@example.com", Password: "super secret", DisplayName: "First",
		Age: 12, School: "Lincoln Elementary", ParentEmail: "pat@example.com",
	})
	require.NoError(t, err)

	_, err = svc.RegisterKid(ctx, &models.KidRegistrationDraft{
		Email: "second@example.com", Password: "super secret", DisplayName: "Second",
		Age: 10, School: "Lincoln Elementary", ParentEmail: "pat@example.com",
		ReferralCode: referrer.Profile.ID,
	})
	require.NoError(t, err)

	balance, err := rewards.Balance(ctx, referrer.Profile.ID)
	require.NoError(t, err)
	require.Equal(t, models.PointsReferral, balance.Balance)
}

func TestVerifyEmailCode(t *testing.T) {
	svc, profiles, _, _ := newAccountFixture(t)
	ctx := context.Background()

	resp, err := svc.RegisterParent(ctx, &models.RegisterParentRequest{
		Email: "pat@example.com", Password: "correct horse", DisplayName: "Pat",
	})
	require.NoError(t, err)

	require.NoError(t, svc.SendEmailCode(ctx, resp.Profile.ID, resp.Profile.Email))

	require.ErrorIs(t, svc.VerifyEmailCode(ctx, resp.Profile.ID, "000000"), ErrInvalidCode)

	svc.mu.Lock()
	code := svc.codes[resp.Profile.ID].code
	svc.mu.Unlock()
	require.Len(t, code, 6)

	require.NoError(t, svc.VerifyEmailCode(ctx, resp.Profile.ID, code))

	parent, err := profiles.GetParent(ctx, resp.Profile.ID)
	require.NoError(t, err)
	require.True(t, parent.EmailVerified)

	// Codes are single use.
	require.ErrorIs(t, svc.VerifyEmailCode(ctx, resp.Profile.ID, code), ErrInvalidCode)
}

func TestDeleteAccountReturnsPhotoPaths(t *testing.T) {
	profiles := NewMemoryProfileStore()
	listings := NewMemoryListingStore()
	svc := NewAccountService(
		profiles, listings, NewMemoryVerificationStore(),
		NewRewardService(NewMemoryRewardStore()),
		NewNotificationService(NewMemoryNotificationStore()),
		nil, "test-secret", time.Hour,
	)
	ctx := context.Background()

	resp, err := svc.RegisterKid(ctx, &models.KidRegistrationDraft{
		Email: "sam@example.com", Password: "super secret", DisplayName: "Sam",
		Age: 11, School: "Lincoln Elementary", ParentEmail: "pat@example.com",
	})
	require.NoError(t, err)

	require.NoError(t, listings.Insert(ctx, &models.Listing{
		ID: "listing-1", KidID: resp.Profile.ID, Title: "Bike",
		PhotoURLs: []string{"pending/a.jpg", "pending/b.jpg"},
		IsActive:  true, IsModerated: true,
	}))

	photos, err := svc.DeleteAccount(ctx, resp.Profile.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"pending/a.jpg", "pending/b.jpg"}, photos)

	_, err = profiles.GetProfile(ctx, resp.Profile.ID)
	require.ErrorIs(t, err, ErrProfileNotFound)
}

package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kidswap/backend/internal/models"
)

// In-memory store implementations backed by maps, one per concern. Used for
// local development and tests; production wiring swaps in the Mongo stores.

// --- profiles ---

type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]*models.Profile
	byEmail  map[string]string // lowercase email -> profile id
	kids     map[string]*models.Kid
	parents  map[string]*models.Parent
	links    map[string]*models.ParentChildLink
}

func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{
		profiles: make(map[string]*models.Profile),
		byEmail:  make(map[string]string),
		kids:     make(map[string]*models.Kid),
		parents:  make(map[string]*models.Parent),
		links:    make(map[string]*models.ParentChildLink),
	}
}

func (s *MemoryProfileStore) InsertProfile(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(p.Email)
	if _, exists := s.byEmail[key]; exists {
		return ErrEmailExists
	}
	cp := *p
	s.profiles[p.ID] = &cp
	s.byEmail[key] = p.ID
	return nil
}

func (s *MemoryProfileStore) GetProfile(_ context.Context, id string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.profiles[id]
	if !exists {
		return nil, ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryProfileStore) GetProfileByEmail(_ context.Context, email string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byEmail[strings.ToLower(email)]
	if !exists {
		return nil, ErrProfileNotFound
	}
	cp := *s.profiles[id]
	return &cp, nil
}

func (s *MemoryProfileStore) UpdateProfilePhoto(_ context.Context, id, photoURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.profiles[id]
	if !exists {
		return ErrProfileNotFound
	}
	p.PhotoURL = photoURL
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryProfileStore) InsertKid(_ context.Context, k *models.Kid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *k
	s.kids[k.ProfileID] = &cp
	return nil
}

func (s *MemoryProfileStore) GetKid(_ context.Context, profileID string) (*models.Kid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k, exists := s.kids[profileID]
	if !exists {
		return nil, ErrKidNotFound
	}
	cp := *k
	return &cp, nil
}

func (s *MemoryProfileStore) SetKidParentVerified(_ context.Context, profileID string, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, exists := s.kids[profileID]
	if !exists {
		return ErrKidNotFound
	}
	k.ParentVerified = verified
	k.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryProfileStore) SetKidMembership(_ context.Context, profileID string, tier models.MembershipTier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, exists := s.kids[profileID]
	if !exists {
		return ErrKidNotFound
	}
	k.Membership = tier
	k.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryProfileStore) InsertParent(_ context.Context, p *models.Parent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.parents[p.ProfileID] = &cp
	return nil
}

func (s *MemoryProfileStore) GetParent(_ context.Context, profileID string) (*models.Parent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.parents[profileID]
	if !exists {
		return nil, ErrParentNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryProfileStore) SetParentVerifiedFlags(_ context.Context, profileID string, phone, email *bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.parents[profileID]
	if !exists {
		return ErrParentNotFound
	}
	if phone != nil {
		p.PhoneVerified = *phone
	}
	if email != nil {
		p.EmailVerified = *email
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryProfileStore) InsertLink(_ context.Context, l *models.ParentChildLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *l
	s.links[l.ID] = &cp
	return nil
}

func (s *MemoryProfileStore) LinksForKid(_ context.Context, kidID string) ([]models.ParentChildLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ParentChildLink, 0)
	for _, l := range s.links {
		if l.KidID == kidID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *MemoryProfileStore) LinksForParent(_ context.Context, parentID string) ([]models.ParentChildLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ParentChildLink, 0)
	for _, l := range s.links {
		if l.ParentID == parentID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *MemoryProfileStore) MarkLinkVerified(_ context.Context, parentID, kidID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.links {
		if l.ParentID == parentID && l.KidID == kidID {
			stamp := at
			l.VerifiedAt = &stamp
		}
	}
	return nil
}

func (s *MemoryProfileStore) DeleteProfileData(_ context.Context, profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, exists := s.profiles[profileID]; exists {
		delete(s.byEmail, strings.ToLower(p.Email))
	}
	delete(s.profiles, profileID)
	delete(s.kids, profileID)
	delete(s.parents, profileID)
	for id, l := range s.links {
		if l.ParentID == profileID || l.KidID == profileID {
			delete(s.links, id)
		}
	}
	return nil
}

// --- listings ---

type MemoryListingStore struct {
	mu       sync.RWMutex
	listings map[string]*models.Listing
}

func NewMemoryListingStore() *MemoryListingStore {
	return &MemoryListingStore{listings: make(map[string]*models.Listing)}
}

func (s *MemoryListingStore) Insert(_ context.Context, l *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *l
	s.listings[l.ID] = &cp
	return nil
}

func (s *MemoryListingStore) GetByID(_ context.Context, id string) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, exists := s.listings[id]
	if !exists {
		return nil, ErrListingNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *MemoryListingStore) Update(_ context.Context, l *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.listings[l.ID]; !exists {
		return ErrListingNotFound
	}
	cp := *l
	s.listings[l.ID] = &cp
	return nil
}

func (s *MemoryListingStore) SetActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, exists := s.listings[id]
	if !exists {
		return ErrListingNotFound
	}
	l.IsActive = active
	l.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryListingStore) SetModerated(_ context.Context, id string, moderated bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, exists := s.listings[id]
	if !exists {
		return ErrListingNotFound
	}
	l.IsModerated = moderated
	l.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryListingStore) List(_ context.Context, filter models.ListingFilter, limit int) ([]*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(filter.Query))
	out := make([]*models.Listing, 0)
	for _, l := range s.listings {
		if !l.Visible() {
			continue
		}
		if filter.ExcludeKidID != "" && l.KidID == filter.ExcludeKidID {
			continue
		}
		if filter.Category != "" && l.Category != filter.Category {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(l.Title), q) &&
			!strings.Contains(strings.ToLower(l.Description), q) {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryListingStore) ListByKid(_ context.Context, kidID string) ([]*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Listing, 0)
	for _, l := range s.listings {
		if l.KidID == kidID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryListingStore) CountByKid(_ context.Context, kidID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, l := range s.listings {
		if l.KidID == kidID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryListingStore) ApprovePendingPhoto(_ context.Context, pendingPath, approvedURL string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.listings {
		for i, u := range l.PhotoURLs {
			if u == pendingPath {
				l.PhotoURLs[i] = approvedURL
				l.UpdatedAt = time.Now().UTC()
				return l.ID, nil
			}
		}
	}
	return "", nil
}

func (s *MemoryListingStore) RejectPendingPhoto(_ context.Context, pendingPath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.listings {
		for i, u := range l.PhotoURLs {
			if u == pendingPath {
				l.PhotoURLs = append(l.PhotoURLs[:i], l.PhotoURLs[i+1:]...)
				l.UpdatedAt = time.Now().UTC()
				return l.ID, nil
			}
		}
	}
	return "", nil
}

func (s *MemoryListingStore) DeleteByKid(_ context.Context, kidID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	urls := make([]string, 0)
	for id, l := range s.listings {
		if l.KidID == kidID {
			urls = append(urls, l.PhotoURLs...)
			delete(s.listings, id)
		}
	}
	return urls, nil
}

// --- trades ---

type MemoryTradeStore struct {
	mu     sync.RWMutex
	trades map[string]*models.Trade
}

func NewMemoryTradeStore() *MemoryTradeStore {
	return &MemoryTradeStore{trades: make(map[string]*models.Trade)}
}

func (s *MemoryTradeStore) Insert(_ context.Context, t *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades[t.ID] = cloneTrade(t)
	return nil
}

func (s *MemoryTradeStore) GetByID(_ context.Context, id string) (*models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.trades[id]
	if !exists {
		return nil, ErrTradeNotFound
	}
	return cloneTrade(t), nil
}

func (s *MemoryTradeStore) UpdateGuarded(_ context.Context, id string, cond TradeCondition, patch TradePatch) (*models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.trades[id]
	if !exists {
		return nil, ErrTradeNotFound
	}

	statusOK := len(cond.Status) == 0
	for _, st := range cond.Status {
		if t.Status == st {
			statusOK = true
			break
		}
	}
	if !statusOK {
		return nil, errStaleWrite
	}
	if cond.SideUndecided != "" && t.ApprovalFor(cond.SideUndecided) != nil {
		return nil, errStaleWrite
	}

	applyTradePatch(t, patch)
	t.UpdatedAt = time.Now().UTC()

	return cloneTrade(t), nil
}

func (s *MemoryTradeStore) CountOpenBetween(_ context.Context, listingA, listingB string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, t := range s.trades {
		if t.Status.Terminal() {
			continue
		}
		samePair := (t.InitiatorListingID == listingA && t.ResponderListingID == listingB) ||
			(t.InitiatorListingID == listingB && t.ResponderListingID == listingA)
		if samePair {
			n++
		}
	}
	return n, nil
}

func (s *MemoryTradeStore) ListByKid(_ context.Context, kidID string) ([]*models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Trade, 0)
	for _, t := range s.trades {
		if t.InitiatorKidID == kidID || t.ResponderKidID == kidID {
			out = append(out, cloneTrade(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryTradeStore) ListProposedForKids(_ context.Context, kidIDs []string) ([]*models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kidSet := make(map[string]struct{}, len(kidIDs))
	for _, id := range kidIDs {
		kidSet[id] = struct{}{}
	}

	out := make([]*models.Trade, 0)
	for _, t := range s.trades {
		if t.Status != models.TradeProposed {
			continue
		}
		_, initiator := kidSet[t.InitiatorKidID]
		_, responder := kidSet[t.ResponderKidID]
		if initiator || responder {
			out = append(out, cloneTrade(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func applyTradePatch(t *models.Trade, patch TradePatch) {
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.InitiatorParentApproved != nil {
		v := *patch.InitiatorParentApproved
		t.InitiatorParentApproved = &v
	}
	if patch.ResponderParentApproved != nil {
		v := *patch.ResponderParentApproved
		t.ResponderParentApproved = &v
	}
	if patch.ScheduledAt != nil {
		v := *patch.ScheduledAt
		t.ScheduledAt = &v
	}
	if patch.MeetupLocation != nil {
		t.MeetupLocation = *patch.MeetupLocation
	}
	if patch.MeetupLat != nil {
		v := *patch.MeetupLat
		t.MeetupLat = &v
	}
	if patch.MeetupLng != nil {
		v := *patch.MeetupLng
		t.MeetupLng = &v
	}
	if patch.CompletedAt != nil {
		v := *patch.CompletedAt
		t.CompletedAt = &v
	}
}

func cloneTrade(t *models.Trade) *models.Trade {
	cp := *t
	cp.InitiatorParentApproved = cloneBool(t.InitiatorParentApproved)
	cp.ResponderParentApproved = cloneBool(t.ResponderParentApproved)
	cp.ScheduledAt = cloneTime(t.ScheduledAt)
	cp.CompletedAt = cloneTime(t.CompletedAt)
	cp.MeetupLat = cloneFloat(t.MeetupLat)
	cp.MeetupLng = cloneFloat(t.MeetupLng)
	return &cp
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// --- rewards ---

type MemoryRewardStore struct {
	mu          sync.RWMutex
	credits     map[string][]models.Reward
	redemptions map[string][]models.RewardRedemption
	versions    map[string]int64
}

func NewMemoryRewardStore() *MemoryRewardStore {
	return &MemoryRewardStore{
		credits:     make(map[string][]models.Reward),
		redemptions: make(map[string][]models.RewardRedemption),
		versions:    make(map[string]int64),
	}
}

func (s *MemoryRewardStore) AppendCredit(_ context.Context, r *models.Reward) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.credits[r.UserID] = append(s.credits[r.UserID], *r)
	return nil
}

func (s *MemoryRewardStore) AppendRedemption(_ context.Context, r *models.RewardRedemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.redemptions[r.UserID] = append(s.redemptions[r.UserID], *r)
	return nil
}

func (s *MemoryRewardStore) Credits(_ context.Context, userID string) ([]models.Reward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.Reward(nil), s.credits[userID]...), nil
}

func (s *MemoryRewardStore) Redemptions(_ context.Context, userID string) ([]models.RewardRedemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.RewardRedemption(nil), s.redemptions[userID]...), nil
}

func (s *MemoryRewardStore) Version(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.versions[userID], nil
}

func (s *MemoryRewardStore) BumpVersion(_ context.Context, userID string, expected int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.versions[userID] != expected {
		return errStaleWrite
	}
	s.versions[userID] = expected + 1
	return nil
}

// --- notifications ---

type MemoryNotificationStore struct {
	mu            sync.RWMutex
	notifications map[string]*models.Notification
}

func NewMemoryNotificationStore() *MemoryNotificationStore {
	return &MemoryNotificationStore{notifications: make(map[string]*models.Notification)}
}

func (s *MemoryNotificationStore) Insert(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *n
	s.notifications[n.ID] = &cp
	return nil
}

func (s *MemoryNotificationStore) ListByUser(_ context.Context, userID string, limit int) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Notification, 0)
	for _, n := range s.notifications {
		if n.UserID == userID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryNotificationStore) MarkRead(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, exists := s.notifications[id]
	if !exists || n.UserID != userID {
		return ErrNotificationNotFound
	}
	n.Read = true
	return nil
}

func (s *MemoryNotificationStore) DeleteByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, n := range s.notifications {
		if n.UserID == userID {
			delete(s.notifications, id)
		}
	}
	return nil
}

// --- chat ---

type MemoryChatStore struct {
	mu        sync.RWMutex
	messages  map[string][]*models.ChatMessage
	subs      map[string]map[int]chan models.ChatMessage
	nextSubID int
}

func NewMemoryChatStore() *MemoryChatStore {
	return &MemoryChatStore{
		messages: make(map[string][]*models.ChatMessage),
		subs:     make(map[string]map[int]chan models.ChatMessage),
	}
}

func (s *MemoryChatStore) Insert(_ context.Context, m *models.ChatMessage) error {
	s.mu.Lock()
	cp := *m
	s.messages[m.TradeID] = append(s.messages[m.TradeID], &cp)
	targets := make([]chan models.ChatMessage, 0, len(s.subs[m.TradeID]))
	for _, ch := range s.subs[m.TradeID] {
		targets = append(targets, ch)
	}
	s.mu.Unlock()

	// Deliver outside the lock; a slow subscriber drops rather than blocks.
	for _, ch := range targets {
		select {
		case ch <- cp:
		default:
		}
	}
	return nil
}

func (s *MemoryChatStore) ListByTrade(_ context.Context, tradeID string) ([]*models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[tradeID]
	out := make([]*models.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryChatStore) Subscribe(ctx context.Context, tradeID string) (<-chan models.ChatMessage, error) {
	ch := make(chan models.ChatMessage, 16)

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	if s.subs[tradeID] == nil {
		s.subs[tradeID] = make(map[int]chan models.ChatMessage)
	}
	s.subs[tradeID][id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs[tradeID], id)
		s.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// --- feedback ---

type MemoryFeedbackStore struct {
	mu       sync.RWMutex
	feedback map[string]*models.Feedback // tradeID|reviewerID
}

func NewMemoryFeedbackStore() *MemoryFeedbackStore {
	return &MemoryFeedbackStore{feedback: make(map[string]*models.Feedback)}
}

func feedbackKey(tradeID, reviewerID string) string { return tradeID + "|" + reviewerID }

func (s *MemoryFeedbackStore) Insert(_ context.Context, f *models.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := feedbackKey(f.TradeID, f.ReviewerID)
	if _, exists := s.feedback[key]; exists {
		return ErrFeedbackExists
	}
	cp := *f
	s.feedback[key] = &cp
	return nil
}

func (s *MemoryFeedbackStore) ListByTrade(_ context.Context, tradeID string) ([]*models.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Feedback, 0)
	for _, f := range s.feedback {
		if f.TradeID == tradeID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryFeedbackStore) ListForUser(_ context.Context, revieweeID string) ([]*models.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Feedback, 0)
	for _, f := range s.feedback {
		if f.RevieweeID == revieweeID {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- verification requests ---

type MemoryVerificationStore struct {
	mu       sync.RWMutex
	requests map[string]*models.VerificationRequest
}

func NewMemoryVerificationStore() *MemoryVerificationStore {
	return &MemoryVerificationStore{requests: make(map[string]*models.VerificationRequest)}
}

func (s *MemoryVerificationStore) Insert(_ context.Context, v *models.VerificationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *v
	s.requests[v.ID] = &cp
	return nil
}

func (s *MemoryVerificationStore) GetByID(_ context.Context, id string) (*models.VerificationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.requests[id]
	if !exists {
		return nil, ErrRequestNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *MemoryVerificationStore) ListPending(_ context.Context) ([]*models.VerificationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.VerificationRequest, 0)
	for _, v := range s.requests {
		if v.Status == models.VerificationPending {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryVerificationStore) Resolve(_ context.Context, id string, status models.VerificationStatus, reviewerID string, at time.Time) (*models.VerificationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, exists := s.requests[id]
	if !exists {
		return nil, ErrRequestNotFound
	}
	if v.Status != models.VerificationPending {
		return nil, errStaleWrite
	}
	v.Status = status
	v.ReviewedBy = reviewerID
	v.ReviewedAt = &at
	cp := *v
	return &cp, nil
}

// --- moderation strikes ---

type MemoryFlagStore struct {
	mu    sync.RWMutex
	flags map[string]*models.UserFlag
}

func NewMemoryFlagStore() *MemoryFlagStore {
	return &MemoryFlagStore{flags: make(map[string]*models.UserFlag)}
}

func (s *MemoryFlagStore) AddStrike(_ context.Context, userID string) (*models.UserFlag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	f, exists := s.flags[userID]
	if !exists {
		f = &models.UserFlag{UserID: userID}
		s.flags[userID] = f
	}
	f.Strikes++
	f.LastStrikeAt = now
	f.UpdatedAt = now
	cp := *f
	return &cp, nil
}

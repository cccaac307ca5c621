package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"admin-service/internal/models"
	redisrepo "admin-service/internal/repository/redis"
)

// fakeAdminRepo is an in-memory scylla.AdminRepository.
type fakeAdminRepo struct {
	mu     sync.Mutex
	byID   map[string]*models.AdminUser
	nextID int
}

func newFakeAdminRepo() *fakeAdminRepo {
	return &fakeAdminRepo{byID: make(map[string]*models.AdminUser)}
}

func (r *fakeAdminRepo) clone(a *models.AdminUser) *models.AdminUser {
	cp := *a
	cp.Permissions = append([]models.AdminPermission(nil), a.Permissions...)
	return &cp
}

func (r *fakeAdminRepo) Create(admin *models.AdminUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if admin.AdminID == "" {
		r.nextID++
		admin.AdminID = fmt.Sprintf("adm-%d", r.nextID)
	}
	now := time.Now().UTC()
	admin.CreatedAt = now
	admin.UpdatedAt = now
	r.byID[admin.AdminID] = r.clone(admin)
	return nil
}

func (r *fakeAdminRepo) GetByEmail(email string) (*models.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Email == email {
			return r.clone(a), nil
		}
	}
	return nil, models.ErrAdminNotFound
}

func (r *fakeAdminRepo) GetByID(adminID string) (*models.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[adminID]
	if !ok {
		return nil, models.ErrAdminNotFound
	}
	return r.clone(a), nil
}

func (r *fakeAdminRepo) List() ([]*models.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.AdminUser, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, r.clone(a))
	}
	return out, nil
}

func (r *fakeAdminRepo) UpdateRole(adminID string, role models.AdminRole, permissions []models.AdminPermission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[adminID]
	if !ok {
		return models.ErrAdminNotFound
	}
	a.Role = role
	a.Permissions = append([]models.AdminPermission(nil), permissions...)
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeAdminRepo) UpdateProfile(adminID, fullName string, isActive bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[adminID]
	if !ok {
		return models.ErrAdminNotFound
	}
	a.FullName = fullName
	a.IsActive = isActive
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeAdminRepo) Deactivate(adminID, demotedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[adminID]
	if !ok {
		return models.ErrAdminNotFound
	}
	now := time.Now().UTC()
	a.IsActive = false
	a.DemotedBy = demotedBy
	a.DemotedAt = &now
	a.UpdatedAt = now
	return nil
}

func (r *fakeAdminRepo) RecordLogin(adminID string, at time.Time, loginCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[adminID]
	if !ok {
		return models.ErrAdminNotFound
	}
	a.LastLogin = &at
	a.LoginCount = loginCount
	return nil
}

// fakeUserRepo is an in-memory scylla.UserRepository.
type fakeUserRepo struct {
	byID map[string]*models.PlatformUser
}

func newFakeUserRepo(users ...*models.PlatformUser) *fakeUserRepo {
	r := &fakeUserRepo{byID: make(map[string]*models.PlatformUser)}
	for _, u := range users {
		r.byID[u.UserID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByID(userID string) (*models.PlatformUser, error) {
	u, ok := r.byID[userID]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(email string) (*models.PlatformUser, error) {
	for _, u := range r.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, models.ErrUserNotFound
}

// fakeUserSearch is a canned elastic.UserSearch.
type fakeUserSearch struct {
	users    []*models.PlatformUser
	total    int64
	eligible int64
}

func (s *fakeUserSearch) SearchEligible(ctx context.Context, term string, limit int) ([]*models.PlatformUser, error) {
	return s.users, nil
}

func (s *fakeUserSearch) CountUsers(ctx context.Context) (int64, error) {
	return s.total, nil
}

func (s *fakeUserSearch) CountEligible(ctx context.Context) (int64, error) {
	return s.eligible, nil
}

// fakeAuditRepo is an in-memory clickhouse.AuditRepository.
type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*models.AuditLogEntry
}

func (r *fakeAuditRepo) Insert(ctx context.Context, entry *models.AuditLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRepo) InsertBatch(ctx context.Context, entries []*models.AuditLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *fakeAuditRepo) Query(ctx context.Context, q models.AuditQuery) ([]*models.AuditLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AuditLogEntry
	for _, e := range r.entries {
		if q.ActorEmail != "" && e.ActorEmail != q.ActorEmail {
			continue
		}
		if q.Action != "" && e.Action != q.Action {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *fakeAuditRepo) CountSince(ctx context.Context, since time.Time) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n uint64
	for _, e := range r.entries {
		if !e.Timestamp.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *fakeAuditRepo) byAction(action string) []*models.AuditLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AuditLogEntry
	for _, e := range r.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// fakeChallengeStore is an in-memory ChallengeStore.
type fakeChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]*models.OTPChallenge
	attempts   map[string]int
	exhausted  map[string]bool
	cooldowns  map[string]bool
}

func newFakeChallengeStore() *fakeChallengeStore {
	return &fakeChallengeStore{
		challenges: make(map[string]*models.OTPChallenge),
		attempts:   make(map[string]int),
		exhausted:  make(map[string]bool),
		cooldowns:  make(map[string]bool),
	}
}

func (s *fakeChallengeStore) Put(ctx context.Context, challenge *models.OTPChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[challenge.Email] = challenge
	delete(s.attempts, challenge.Email)
	delete(s.exhausted, challenge.Email)
	return nil
}

func (s *fakeChallengeStore) Get(ctx context.Context, email string) (*models.OTPChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[email]
	if !ok {
		return nil, redisrepo.ErrChallengeNotFound
	}
	return c, nil
}

func (s *fakeChallengeStore) Delete(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, email)
	delete(s.attempts, email)
	return nil
}

func (s *fakeChallengeStore) IncrementAttempts(ctx context.Context, email string, ttl time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[email]++
	return s.attempts[email], nil
}

func (s *fakeChallengeStore) MarkExhausted(ctx context.Context, email string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exhausted[email] = true
	return nil
}

func (s *fakeChallengeStore) IsExhausted(ctx context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exhausted[email], nil
}

func (s *fakeChallengeStore) AcquireCooldown(ctx context.Context, email string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cooldowns[email] {
		return false, nil
	}
	s.cooldowns[email] = true
	return true, nil
}

// fakeNotifier captures outgoing mail. Each SendOTP call signals sent,
// so tests can wait out the detached delivery goroutine.
type fakeNotifier struct {
	mu         sync.Mutex
	otpCodes   map[string]string
	promotions []string
	demotions  []string
	sendErr    error
	sent       chan struct{}
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		otpCodes: make(map[string]string),
		sent:     make(chan struct{}, 16),
	}
}

func (n *fakeNotifier) SendOTP(ctx context.Context, to, code string, expiry time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	defer func() { n.sent <- struct{}{} }()
	if n.sendErr != nil {
		return n.sendErr
	}
	n.otpCodes[to] = code
	return nil
}

// waitOTP blocks until the next SendOTP call lands, then returns the
// last code delivered to email.
func (n *fakeNotifier) waitOTP(t *testing.T, email string) string {
	t.Helper()
	select {
	case <-n.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("code was not dispatched")
	}
	return n.lastCode(email)
}

func (n *fakeNotifier) SendPromotionNotice(ctx context.Context, to, fullName, role string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.promotions = append(n.promotions, to)
	return nil
}

func (n *fakeNotifier) SendDemotionNotice(ctx context.Context, to, fullName string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.demotions = append(n.demotions, to)
	return nil
}

func (n *fakeNotifier) lastCode(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.otpCodes[email]
}

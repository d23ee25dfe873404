package accounts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/MrDuking/talktodoc-backend-sub000/internal/auth"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/cache"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/otp"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

var _ cache.Cache = (*memCache)(nil)

type stubRepo struct {
	byEmail map[string]*Account
}

func newStubRepo() *stubRepo {
	return &stubRepo{byEmail: map[string]*Account{}}
}

func (r *stubRepo) Create(ctx context.Context, acc Account) error {
	if _, exists := r.byEmail[acc.Email]; exists {
		return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
	}
	stored := acc
	r.byEmail[acc.Email] = &stored
	return nil
}

func (r *stubRepo) GetByID(ctx context.Context, id string) (Account, error) {
	for _, acc := range r.byEmail {
		if acc.ID == id {
			return *acc, nil
		}
	}
	return Account{}, mongo.ErrNoDocuments
}

func (r *stubRepo) GetByEmail(ctx context.Context, email string) (Account, error) {
	acc, ok := r.byEmail[email]
	if !ok {
		return Account{}, mongo.ErrNoDocuments
	}
	return *acc, nil
}

func (r *stubRepo) GetByReferralCode(ctx context.Context, code string) (Account, error) {
	for _, acc := range r.byEmail {
		if acc.ReferralCode == code {
			return *acc, nil
		}
	}
	return Account{}, mongo.ErrNoDocuments
}

func (r *stubRepo) Update(ctx context.Context, id string, set bson.M) (Account, error) {
	for _, acc := range r.byEmail {
		if acc.ID == id {
			return *acc, nil
		}
	}
	return Account{}, mongo.ErrNoDocuments
}

func (r *stubRepo) MarkVerified(ctx context.Context, email string) error {
	acc, ok := r.byEmail[email]
	if !ok {
		return mongo.ErrNoDocuments
	}
	acc.Verified = true
	return nil
}

func (r *stubRepo) Delete(ctx context.Context, id string) (bool, error) {
	for email, acc := range r.byEmail {
		if acc.ID == id {
			delete(r.byEmail, email)
			return true, nil
		}
	}
	return false, nil
}

func (r *stubRepo) List(ctx context.Context, filter ListFilter, sort bson.D, limit, offset int64) ([]Account, error) {
	out := make([]Account, 0, len(r.byEmail))
	for _, acc := range r.byEmail {
		out = append(out, *acc)
	}
	return out, nil
}

func (r *stubRepo) Count(ctx context.Context, filter ListFilter) (int64, error) {
	return int64(len(r.byEmail)), nil
}

func (r *stubRepo) CountCreatedBetween(ctx context.Context, role string, from, to time.Time) (int64, error) {
	return 0, nil
}

type stubMailer struct {
	sends int
	err   error
}

func (m *stubMailer) SendHTML(ctx context.Context, toEmail, toName, subject, htmlBody string) (string, error) {
	m.sends++
	return "msg-1", m.err
}

func newTestService(t *testing.T) (*Service, *stubRepo, *memCache, *stubMailer) {
	t.Helper()
	repo := newStubRepo()
	codes := newMemCache()
	mailer := &stubMailer{}
	jwtManager := &auth.Manager{
		Secret:     []byte("test-secret"),
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		Issuer:     "test",
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, jwtManager, otp.NewStore(codes, 10*time.Minute), mailer, log)
	return svc, repo, codes, mailer
}

func registerReq(email string) RegisterRequest {
	return RegisterRequest{
		Role:     RolePatient,
		Name:     "Binh Tran",
		Email:    email,
		Phone:    "+84901234567",
		Password: "password123",
	}
}

func TestRegisterNormalizesEmailAndSendsCode(t *testing.T) {
	svc, repo, codes, mailer := newTestService(t)

	acc, err := svc.Register(context.Background(), registerReq("  Binh@Example.COM "))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if acc.Email != "binh@example.com" {
		t.Fatalf("email = %q, want normalized lowercase", acc.Email)
	}
	if acc.Verified {
		t.Fatal("new account must start unverified")
	}
	if acc.ReferralCode == "" {
		t.Fatal("expected a referral code to be assigned")
	}
	if _, ok := repo.byEmail["binh@example.com"]; !ok {
		t.Fatal("account not persisted under normalized email")
	}
	if mailer.sends != 1 {
		t.Fatalf("mailer sends = %d, want 1", mailer.sends)
	}
	if _, ok := codes.data["otp:binh@example.com"]; !ok {
		t.Fatal("no pending code stored for the new account")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	if _, err := svc.Register(context.Background(), registerReq("dup@example.com")); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, err := svc.Register(context.Background(), registerReq("dup@example.com"))
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("Register returned %v, want ErrEmailExists", err)
	}
}

func TestRegisterReferralCode(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	referrer, err := svc.Register(context.Background(), registerReq("referrer@example.com"))
	if err != nil {
		t.Fatalf("Register referrer: %v", err)
	}

	req := registerReq("friend@example.com")
	req.ReferralCode = referrer.ReferralCode
	friend, err := svc.Register(context.Background(), req)
	if err != nil {
		t.Fatalf("Register friend: %v", err)
	}
	if friend.ReferredBy != referrer.ID {
		t.Fatalf("referredBy = %q, want %q", friend.ReferredBy, referrer.ID)
	}

	// An unknown code is ignored, not rejected.
	req = registerReq("stranger@example.com")
	req.ReferralCode = "TTD-NOPE"
	stranger, err := svc.Register(context.Background(), req)
	if err != nil {
		t.Fatalf("Register with unknown code: %v", err)
	}
	if stranger.ReferredBy != "" {
		t.Fatalf("referredBy = %q, want empty for unknown code", stranger.ReferredBy)
	}
}

func TestVerifyOTPFlipsVerified(t *testing.T) {
	svc, repo, codes, _ := newTestService(t)

	if _, err := svc.Register(context.Background(), registerReq("v@example.com")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	code := string(codes.data["otp:v@example.com"])

	err := svc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "v@example.com", Code: "000000"})
	if !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("wrong code returned %v, want ErrInvalidOTP", err)
	}
	if repo.byEmail["v@example.com"].Verified {
		t.Fatal("wrong code must not verify the account")
	}

	if err := svc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "v@example.com", Code: code}); err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if !repo.byEmail["v@example.com"].Verified {
		t.Fatal("account should be verified after a matching code")
	}

	// Codes are single use.
	err = svc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "v@example.com", Code: code})
	if !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("replayed code returned %v, want ErrInvalidOTP", err)
	}
}

func TestLoginGuards(t *testing.T) {
	svc, _, codes, _ := newTestService(t)

	if _, err := svc.Register(context.Background(), registerReq("login@example.com")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, _, err := svc.Login(context.Background(), LoginRequest{Email: "login@example.com", Password: "password123"})
	if !errors.Is(err, ErrNotVerified) {
		t.Fatalf("unverified login returned %v, want ErrNotVerified", err)
	}

	code := string(codes.data["otp:login@example.com"])
	if err := svc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "login@example.com", Code: code}); err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}

	_, _, err = svc.Login(context.Background(), LoginRequest{Email: "login@example.com", Password: "wrong-password"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password returned %v, want ErrInvalidCredentials", err)
	}
	_, _, err = svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "password123"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email returned %v, want ErrInvalidCredentials", err)
	}

	pair, acc, err := svc.Login(context.Background(), LoginRequest{Email: "login@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens on successful login")
	}
	if acc.Email != "login@example.com" {
		t.Fatalf("login returned account %q", acc.Email)
	}

	refreshed, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Fatal("refresh should issue a new access token")
	}
}

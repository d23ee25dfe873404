package referral

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/MrDuking/talktodoc-backend-sub000/internal/accounts"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/cache"
)

type stubDirectory struct {
	byID   map[string]accounts.Account
	byCode map[string]accounts.Account
}

func (s *stubDirectory) GetByID(ctx context.Context, id string) (accounts.Account, error) {
	acc, ok := s.byID[id]
	if !ok {
		return accounts.Account{}, mongo.ErrNoDocuments
	}
	return acc, nil
}

func (s *stubDirectory) GetByReferralCode(ctx context.Context, code string) (accounts.Account, error) {
	acc, ok := s.byCode[code]
	if !ok {
		return accounts.Account{}, mongo.ErrNoDocuments
	}
	return acc, nil
}

func (s *stubDirectory) Update(ctx context.Context, id string, set bson.M) (accounts.Account, error) {
	acc, ok := s.byID[id]
	if !ok {
		return accounts.Account{}, mongo.ErrNoDocuments
	}
	if ref, ok := set["referredBy"].(string); ok {
		acc.ReferredBy = ref
	}
	s.byID[id] = acc
	return acc, nil
}

type stubLeaderboard struct {
	scores map[string]float64
}

func (s *stubLeaderboard) IncrScore(ctx context.Context, board, member string, delta float64) error {
	if s.scores == nil {
		s.scores = make(map[string]float64)
	}
	s.scores[member] += delta
	return nil
}

func (s *stubLeaderboard) Top(ctx context.Context, board string, n int64) ([]cache.ScoredMember, error) {
	out := make([]cache.ScoredMember, 0, len(s.scores))
	for member, score := range s.scores {
		out = append(out, cache.ScoredMember{Member: member, Score: score})
	}
	return out, nil
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func newFixture() (*Service, *stubDirectory, *stubLeaderboard, accounts.Account, accounts.Account) {
	referrer := accounts.Account{
		ID:           primitive.NewObjectID().Hex(),
		Name:         "Referrer",
		Role:         accounts.RolePatient,
		ReferralCode: "TTD-AAA111",
	}
	user := accounts.Account{
		ID:           primitive.NewObjectID().Hex(),
		Name:         "Newcomer",
		Role:         accounts.RolePatient,
		ReferralCode: "TTD-BBB222",
	}
	dir := &stubDirectory{
		byID: map[string]accounts.Account{
			referrer.ID: referrer,
			user.ID:     user,
		},
		byCode: map[string]accounts.Account{
			referrer.ReferralCode: referrer,
			user.ReferralCode:     user,
		},
	}
	board := &stubLeaderboard{}
	log := slog.New(slog.NewTextHandler(discard{}, nil))
	return NewService(dir, board, log), dir, board, referrer, user
}

func TestApplyReferralCreditsReferrer(t *testing.T) {
	svc, dir, board, referrer, user := newFixture()

	got, err := svc.ApplyReferral(context.Background(), user.ID, referrer.ReferralCode)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ReferredBy != referrer.ID {
		t.Fatalf("referredBy = %q, want %q", got.ReferredBy, referrer.ID)
	}
	if board.scores[referrer.ID] != referralPoints {
		t.Fatalf("referrer score = %v, want %v", board.scores[referrer.ID], float64(referralPoints))
	}
	if dir.byID[user.ID].ReferredBy != referrer.ID {
		t.Fatal("referral must persist on the account")
	}
}

func TestApplyReferralOnlyOnce(t *testing.T) {
	svc, _, board, referrer, user := newFixture()

	if _, err := svc.ApplyReferral(context.Background(), user.ID, referrer.ReferralCode); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	_, err := svc.ApplyReferral(context.Background(), user.ID, referrer.ReferralCode)
	if !errors.Is(err, ErrAlreadyReferred) {
		t.Fatalf("expected ErrAlreadyReferred, got %v", err)
	}
	if board.scores[referrer.ID] != referralPoints {
		t.Fatalf("second apply must not double-credit, score = %v", board.scores[referrer.ID])
	}
}

func TestApplyReferralRejectsSelf(t *testing.T) {
	svc, _, _, _, user := newFixture()

	_, err := svc.ApplyReferral(context.Background(), user.ID, user.ReferralCode)
	if !errors.Is(err, ErrSelfReferral) {
		t.Fatalf("expected ErrSelfReferral, got %v", err)
	}
}

func TestApplyReferralUnknownCode(t *testing.T) {
	svc, _, _, _, user := newFixture()

	_, err := svc.ApplyReferral(context.Background(), user.ID, "TTD-NOPE")
	if !errors.Is(err, ErrUnknownCode) {
		t.Fatalf("expected ErrUnknownCode, got %v", err)
	}
}

func TestGetUserUnknownID(t *testing.T) {
	svc, _, _, _, _ := newFixture()

	_, err := svc.GetUser(context.Background(), "not-an-objectid")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGetLeaderboardNamesMembers(t *testing.T) {
	svc, _, board, referrer, user := newFixture()

	if _, err := svc.ApplyReferral(context.Background(), user.ID, referrer.ReferralCode); err != nil {
		t.Fatalf("apply: %v", err)
	}
	_ = board

	entries, err := svc.GetLeaderboard(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if entries[0].UserID != referrer.ID || entries[0].Name != "Referrer" {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
}

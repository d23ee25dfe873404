package referral

import (
	"context"
	"errors"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/MrDuking/talktodoc-backend-sub000/internal/accounts"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/cache"
)

const leaderboardKey = "referral:leaderboard"

// referralPoints is the score credited to a referrer per applied code.
const referralPoints = 10

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUnknownCode     = errors.New("unknown referral code")
	ErrAlreadyReferred = errors.New("user already has a referrer")
	ErrSelfReferral    = errors.New("cannot apply own referral code")
)

// Directory is the slice of the account store the referral surface uses.
type Directory interface {
	GetByID(ctx context.Context, id string) (accounts.Account, error)
	GetByReferralCode(ctx context.Context, code string) (accounts.Account, error)
	Update(ctx context.Context, id string, set bson.M) (accounts.Account, error)
}

type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	ReferralCode string `json:"referralCode"`
	ReferredBy   string `json:"referredBy,omitempty"`
}

type LeaderboardEntry struct {
	UserID string  `json:"userId"`
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
}

type Service struct {
	directory   Directory
	leaderboard cache.Leaderboard
	log         *slog.Logger
}

func NewService(directory Directory, leaderboard cache.Leaderboard, log *slog.Logger) *Service {
	return &Service{directory: directory, leaderboard: leaderboard, log: log}
}

func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return User{}, ErrUserNotFound
	}
	acc, err := s.directory.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return toUser(acc), nil
}

// ApplyReferral ties a user to the owner of a referral code and credits the
// referrer on the leaderboard. A user gets at most one referrer, ever.
func (s *Service) ApplyReferral(ctx context.Context, userID, code string) (User, error) {
	acc, err := s.directory.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	if acc.ReferredBy != "" {
		return User{}, ErrAlreadyReferred
	}

	referrer, err := s.directory.GetByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, ErrUnknownCode
		}
		return User{}, err
	}
	if referrer.ID == acc.ID {
		return User{}, ErrSelfReferral
	}

	updated, err := s.directory.Update(ctx, acc.ID, bson.M{"referredBy": referrer.ID})
	if err != nil {
		return User{}, err
	}

	if err := s.leaderboard.IncrScore(ctx, leaderboardKey, referrer.ID, referralPoints); err != nil {
		s.log.Warn("referral leaderboard bump failed",
			slog.String("referrer_id", referrer.ID),
			slog.String("error", err.Error()),
		)
	}

	s.log.Info("referral applied",
		slog.String("user_id", acc.ID),
		slog.String("referrer_id", referrer.ID),
	)
	return toUser(updated), nil
}

func (s *Service) GetLeaderboard(ctx context.Context, n int64) ([]LeaderboardEntry, error) {
	if n <= 0 || n > 100 {
		n = 10
	}
	members, err := s.leaderboard.Top(ctx, leaderboardKey, n)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(members))
	for _, m := range members {
		entry := LeaderboardEntry{UserID: m.Member, Score: m.Score}
		if acc, err := s.directory.GetByID(ctx, m.Member); err == nil {
			entry.Name = acc.Name
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func toUser(acc accounts.Account) User {
	return User{
		ID:           acc.ID,
		Name:         acc.Name,
		Role:         acc.Role,
		ReferralCode: acc.ReferralCode,
		ReferredBy:   acc.ReferredBy,
	}
}

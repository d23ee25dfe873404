package accounts

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/MrDuking/talktodoc-backend-sub000/internal/auth"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/notifications"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/otp"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/retry"
)

var (
	ErrNotFound           = errors.New("account not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotVerified        = errors.New("account not verified")
	ErrInvalidOTP         = errors.New("invalid or expired code")
	ErrInvalidID          = errors.New("invalid account id")
)

type Mailer interface {
	SendHTML(ctx context.Context, toEmail, toName, subject, htmlBody string) (string, error)
}

type Service struct {
	repo   Repository
	jwt    *auth.Manager
	otp    *otp.Store
	mailer Mailer
	log    *slog.Logger
}

func NewService(repo Repository, jwtManager *auth.Manager, otpStore *otp.Store, mailer Mailer, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		jwt:    jwtManager,
		otp:    otpStore,
		mailer: mailer,
		log:    log,
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (Account, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	referredBy := ""
	if code := strings.TrimSpace(req.ReferralCode); code != "" {
		referrer, err := s.repo.GetByReferralCode(ctx, code)
		if err == nil {
			referredBy = referrer.ID
		}
		// An unknown referral code is ignored rather than rejected.
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return Account{}, err
	}

	now := time.Now()
	acc := Account{
		ID:           primitive.NewObjectID().Hex(),
		Role:         req.Role,
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
		Verified:     false,
		ReferralCode: newReferralCode(),
		ReferredBy:   referredBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Role == RoleDoctor {
		acc.SpecialtyIDs = req.SpecialtyIDs
		acc.DoctorLevelID = req.DoctorLevelID
		acc.HospitalID = req.HospitalID
	}
	if req.Role == RoleEmployee {
		acc.Department = strings.TrimSpace(req.Department)
	}

	if err := s.repo.Create(ctx, acc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Account{}, ErrEmailExists
		}
		return Account{}, err
	}

	s.sendOTP(ctx, acc)
	return acc, nil
}

// sendOTP issues a verification code and emails it. Failures are logged,
// never surfaced: the account exists either way and the code can be
// re-requested.
func (s *Service) sendOTP(ctx context.Context, acc Account) {
	if s.mailer == nil || s.otp == nil {
		return
	}
	code, err := s.otp.Issue(ctx, acc.Email)
	if err != nil {
		s.log.Error("otp issue failed", slog.String("error", err.Error()))
		return
	}
	body, err := notifications.BuildOTPHTML(notifications.OTPData{
		Name:       acc.Name,
		Code:       code,
		TTLMinutes: int(s.otp.TTL().Minutes()),
	})
	if err != nil {
		s.log.Error("otp template failed", slog.String("error", err.Error()))
		return
	}

	policy := retry.DefaultPolicy()
	policy.Retryable = notifications.IsRetryable
	err = retry.Do(ctx, policy, func(ctx context.Context) error {
		_, sendErr := s.mailer.SendHTML(ctx, acc.Email, acc.Name, "Your TalkToDoc verification code", body)
		return sendErr
	})
	if err != nil {
		s.log.Error("otp email failed", slog.String("email", acc.Email), slog.String("error", err.Error()))
	}
}

func (s *Service) ResendOTP(ctx context.Context, email string) error {
	acc, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return err
	}
	if acc.Verified {
		return nil
	}
	s.sendOTP(ctx, acc)
	return nil
}

func (s *Service) VerifyOTP(ctx context.Context, req VerifyOTPRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.otp.Verify(ctx, email, req.Code); err != nil {
		if errors.Is(err, otp.ErrNotFound) || errors.Is(err, otp.ErrMismatch) {
			return ErrInvalidOTP
		}
		return err
	}
	if err := s.repo.MarkVerified(ctx, email); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (TokenPair, Account, error) {
	acc, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return TokenPair{}, Account{}, ErrInvalidCredentials
		}
		return TokenPair{}, Account{}, err
	}
	if err := auth.ComparePassword(acc.PasswordHash, req.Password); err != nil {
		return TokenPair{}, Account{}, ErrInvalidCredentials
	}
	if !acc.Verified {
		return TokenPair{}, Account{}, ErrNotVerified
	}
	pair, err := s.issueTokens(acc)
	if err != nil {
		return TokenPair{}, Account{}, err
	}
	return pair, acc, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.jwt.Parse(refreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	acc, err := s.repo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	return s.issueTokens(acc)
}

func (s *Service) issueTokens(acc Account) (TokenPair, error) {
	access, err := s.jwt.NewAccessToken(acc.ID, acc.Role)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.jwt.NewRefreshToken(acc.ID, acc.Role)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return Account{}, ErrInvalidID
	}
	acc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	return acc, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (Account, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return Account{}, ErrInvalidID
	}

	set := bson.M{"updatedAt": time.Now()}
	if v := strings.TrimSpace(req.Name); v != "" {
		set["name"] = v
	}
	if v := strings.TrimSpace(req.Phone); v != "" {
		set["phone"] = v
	}
	if v := strings.TrimSpace(req.Biography); v != "" {
		set["biography"] = v
	}
	if len(req.SpecialtyIDs) > 0 {
		set["specialtyIds"] = req.SpecialtyIDs
	}
	if v := strings.TrimSpace(req.DoctorLevelID); v != "" {
		set["doctorLevelId"] = v
	}
	if v := strings.TrimSpace(req.HospitalID); v != "" {
		set["hospitalId"] = v
	}
	if v := strings.TrimSpace(req.Department); v != "" {
		set["department"] = v
	}

	updated, err := s.repo.Update(ctx, id, set)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return ErrInvalidID
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func (s *Service) List(ctx context.Context, filter ListFilter, sortField string, desc bool, limit, offset int64) ([]Account, int64, error) {
	sort := bson.D{}
	if sortField != "" {
		dir := 1
		if desc {
			dir = -1
		}
		sort = bson.D{{Key: sortField, Value: dir}}
	}
	items, err := s.repo.List(ctx, filter, sort, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func newReferralCode() string {
	// ObjectIDs are unique enough for a referral handle; the sparse unique
	// index catches the pathological collision.
	return "TTD-" + strings.ToUpper(primitive.NewObjectID().Hex()[18:])
}

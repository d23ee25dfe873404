package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"time"

	"github.com/MrDuking/talktodoc-backend-sub000/internal/cache"
)

const CodeLength = 6

var (
	ErrNotFound = errors.New("otp not found or expired")
	ErrMismatch = errors.New("otp does not match")
)

// Store keeps one pending code per subject with a TTL. Codes are single
// use: a successful verify deletes the entry.
type Store struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewStore(c cache.Cache, ttl time.Duration) *Store {
	return &Store{cache: c, ttl: ttl}
}

func GenerateCode() (string, error) {
	const digits = "0123456789"
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = digits[int(buf[i])%len(digits)]
	}
	return string(buf), nil
}

func (s *Store) Issue(ctx context.Context, subject string) (string, error) {
	code, err := GenerateCode()
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, key(subject), []byte(code), s.ttl); err != nil {
		return "", err
	}
	return code, nil
}

func (s *Store) Verify(ctx context.Context, subject, code string) error {
	stored, found, err := s.cache.Get(ctx, key(subject))
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	if string(stored) != code {
		return ErrMismatch
	}
	return s.cache.Delete(ctx, key(subject))
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}

func key(subject string) string {
	return "otp:" + subject
}

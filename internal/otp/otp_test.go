package otp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func TestGenerateCodeShape(t *testing.T) {
	code, err := GenerateCode()
	if err != nil {
		t.Fatalf("GenerateCode error: %v", err)
	}
	if len(code) != CodeLength {
		t.Fatalf("expected %d digits, got %q", CodeLength, code)
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			t.Fatalf("expected digits only, got %q", code)
		}
	}
}

func TestIssueAndVerify(t *testing.T) {
	store := NewStore(newMemoryCache(), 10*time.Minute)
	ctx := context.Background()

	code, err := store.Issue(ctx, "user-1")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if err := store.Verify(ctx, "user-1", code); err != nil {
		t.Fatalf("Verify error: %v", err)
	}

	// Single use: a second verify with the same code must fail.
	if err := store.Verify(ctx, "user-1", code); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after consumption, got %v", err)
	}
}

func TestVerifyMismatch(t *testing.T) {
	store := NewStore(newMemoryCache(), 10*time.Minute)
	ctx := context.Background()

	code, err := store.Issue(ctx, "user-2")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	if err := store.Verify(ctx, "user-2", wrong); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
}

func TestVerifyUnknownSubject(t *testing.T) {
	store := NewStore(newMemoryCache(), 10*time.Minute)
	if err := store.Verify(context.Background(), "ghost", "123456"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

package report

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/MrDuking/talktodoc-backend-sub000/internal/cache"
)

func TestPercentChange(t *testing.T) {
	tests := []struct {
		name     string
		previous int64
		current  int64
		want     float64
	}{
		{"growth from zero is exactly one", 0, 7, 1.0},
		{"flat zero", 0, 0, 0},
		{"halved", 100, 50, -0.5},
		{"doubled", 50, 100, 1.0},
		{"rounded to two decimals", 3, 4, 0.33},
		{"negative rounding", 3, 2, -0.33},
		{"unchanged", 42, 42, 0},
		{"to zero", 10, 0, -1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PercentChange(tt.previous, tt.current); got != tt.want {
				t.Fatalf("PercentChange(%d, %d) = %v, want %v", tt.previous, tt.current, got, tt.want)
			}
		})
	}
}

type stubReportRepo struct {
	accountCalls     int
	appointmentCalls int
	revenueCalls     int
}

func (s *stubReportRepo) CountAccounts(ctx context.Context, role string, from, to time.Time) (int64, error) {
	s.accountCalls++
	return 5, nil
}

func (s *stubReportRepo) CountAppointments(ctx context.Context, from, to time.Time) (int64, error) {
	s.appointmentCalls++
	return 3, nil
}

func (s *stubReportRepo) Revenue(ctx context.Context, from, to time.Time) (int64, error) {
	s.revenueCalls++
	return 750000, nil
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

type memoryCache struct {
	data map[string][]byte
}

func (m *memoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = value
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

var _ cache.Cache = (*memoryCache)(nil)

func TestOverviewShapeAndSeries(t *testing.T) {
	repo := &stubReportRepo{}
	log := slog.New(slog.NewTextHandler(discard{}, nil))
	svc := NewService(repo, cache.NewNoop(), time.Minute, log)

	overview, err := svc.Overview(context.Background(), 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if overview.WindowDays != 30 {
		t.Fatalf("window days = %d", overview.WindowDays)
	}
	for name, metric := range map[string]Metric{
		"patients":     overview.Patients,
		"doctors":      overview.Doctors,
		"appointments": overview.Appointments,
		"revenue":      overview.Revenue,
	} {
		if len(metric.Series) != segments {
			t.Fatalf("%s series length = %d, want %d", name, len(metric.Series), segments)
		}
		if metric.Change != PercentChange(metric.Previous, metric.Current) {
			t.Fatalf("%s change inconsistent with rule", name)
		}
	}
}

func TestOverviewServedFromCache(t *testing.T) {
	repo := &stubReportRepo{}
	log := slog.New(slog.NewTextHandler(discard{}, nil))
	svc := NewService(repo, &memoryCache{}, time.Minute, log)

	if _, err := svc.Overview(context.Background(), 7); err != nil {
		t.Fatalf("first call: %v", err)
	}
	callsAfterFirst := repo.revenueCalls

	if _, err := svc.Overview(context.Background(), 7); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if repo.revenueCalls != callsAfterFirst {
		t.Fatalf("second call must come from cache, revenue calls %d -> %d", callsAfterFirst, repo.revenueCalls)
	}
}

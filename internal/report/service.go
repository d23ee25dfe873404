package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/MrDuking/talktodoc-backend-sub000/internal/accounts"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/cache"
)

// segments is the number of equal sub-windows each series is split into.
const segments = 4

// Metric compares the current window against the equal window immediately
// before it. Change is a ratio, not a percentage: 0.25 means up 25%.
type Metric struct {
	Current  int64   `json:"current"`
	Previous int64   `json:"previous"`
	Change   float64 `json:"change"`
	Series   []int64 `json:"series"`
}

type Overview struct {
	WindowDays   int       `json:"windowDays"`
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	Patients     Metric    `json:"patients"`
	Doctors      Metric    `json:"doctors"`
	Appointments Metric    `json:"appointments"`
	Revenue      Metric    `json:"revenue"`
	GeneratedAt  time.Time `json:"generatedAt"`
}

type Service struct {
	repo     Repository
	cache    cache.Cache
	cacheTTL time.Duration
	log      *slog.Logger
}

func NewService(repo Repository, c cache.Cache, cacheTTL time.Duration, log *slog.Logger) *Service {
	return &Service{repo: repo, cache: c, cacheTTL: cacheTTL, log: log}
}

// PercentChange compares two window totals. A window that starts from zero
// and grows reads as exactly +100%; everything else is the plain ratio
// rounded to two decimals.
func PercentChange(previous, current int64) float64 {
	if previous == 0 {
		if current > 0 {
			return 1.0
		}
		return 0
	}
	ratio := float64(current-previous) / float64(previous)
	return math.Round(ratio*100) / 100
}

func (s *Service) Overview(ctx context.Context, windowDays int) (Overview, error) {
	key := fmt.Sprintf("report:overview:%d", windowDays)
	if cached, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var out Overview
		if err := json.Unmarshal(cached, &out); err == nil {
			return out, nil
		}
	}

	now := time.Now()
	window := time.Duration(windowDays) * 24 * time.Hour
	curFrom, curTo := now.Add(-window), now
	prevFrom, prevTo := now.Add(-2*window), now.Add(-window)

	out := Overview{
		WindowDays:  windowDays,
		From:        curFrom,
		To:          curTo,
		GeneratedAt: now,
	}

	counters := []struct {
		metric *Metric
		count  func(from, to time.Time) (int64, error)
	}{
		{&out.Patients, func(from, to time.Time) (int64, error) {
			return s.repo.CountAccounts(ctx, accounts.RolePatient, from, to)
		}},
		{&out.Doctors, func(from, to time.Time) (int64, error) {
			return s.repo.CountAccounts(ctx, accounts.RoleDoctor, from, to)
		}},
		{&out.Appointments, func(from, to time.Time) (int64, error) {
			return s.repo.CountAppointments(ctx, from, to)
		}},
		{&out.Revenue, func(from, to time.Time) (int64, error) {
			return s.repo.Revenue(ctx, from, to)
		}},
	}

	for _, c := range counters {
		current, err := c.count(curFrom, curTo)
		if err != nil {
			return Overview{}, err
		}
		previous, err := c.count(prevFrom, prevTo)
		if err != nil {
			return Overview{}, err
		}
		series, err := segmentSeries(curFrom, curTo, c.count)
		if err != nil {
			return Overview{}, err
		}
		*c.metric = Metric{
			Current:  current,
			Previous: previous,
			Change:   PercentChange(previous, current),
			Series:   series,
		}
	}

	if encoded, err := json.Marshal(out); err == nil {
		if err := s.cache.Set(ctx, key, encoded, s.cacheTTL); err != nil {
			s.log.Warn("report cache set failed", slog.String("error", err.Error()))
		}
	}
	return out, nil
}

// segmentSeries splits [from, to) into equal sub-windows and counts each.
func segmentSeries(from, to time.Time, count func(from, to time.Time) (int64, error)) ([]int64, error) {
	step := to.Sub(from) / segments
	series := make([]int64, 0, segments)
	for i := 0; i < segments; i++ {
		segFrom := from.Add(time.Duration(i) * step)
		segTo := segFrom.Add(step)
		if i == segments-1 {
			segTo = to
		}
		n, err := count(segFrom, segTo)
		if err != nil {
			return nil, err
		}
		series = append(series, n)
	}
	return series, nil
}

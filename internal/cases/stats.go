package cases

import (
	"context"
	"errors"
	"time"

	"mop.org/internal/clock"
)

const DefaultStatsWindow = 30 * 24 * time.Hour

// DashboardStats is the dashboard summary. TotalCases sums StatusCounts and
// therefore only covers the trailing window; see Aggregator.LifetimeTotal.
type DashboardStats struct {
	StatusCounts map[string]int `json:"case_statistics"`
	TotalCases   int            `json:"total_cases"`
	WindowStart  time.Time      `json:"window_start"`
}

// AssigneeStats summarizes the cases of one officer.
type AssigneeStats struct {
	AssigneeID   string         `json:"user_id"`
	Cases        []Case         `json:"user_cases"`
	StatusCounts map[string]int `json:"status_counts"`
}

// Aggregator reduces the case population into status counts.
type Aggregator struct {
	store  Store
	clock  clock.Clock
	window time.Duration
}

// NewAggregator builds an Aggregator. A zero window means DefaultStatsWindow.
func NewAggregator(store Store, c clock.Clock, window time.Duration) (*Aggregator, error) {
	if store == nil {
		return nil, errors.New("cases: store is required")
	}
	if c == nil {
		c = clock.System()
	}
	if window <= 0 {
		window = DefaultStatsWindow
	}
	return &Aggregator{store: store, clock: c, window: window}, nil
}

// CaseStatusCounts counts cases created within the trailing window by exact
// status. Statuses without cases are absent.
func (a *Aggregator) CaseStatusCounts(ctx context.Context) (map[string]int, error) {
	counts, _, err := a.windowCounts(ctx)
	return counts, err
}

func (a *Aggregator) windowCounts(ctx context.Context) (map[string]int, time.Time, error) {
	since := a.clock.Now().Add(-a.window)
	rows, err := a.store.GroupCountByStatusSince(ctx, since)
	if err != nil {
		return nil, since, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		if r.Count > 0 {
			out[string(r.Status)] += r.Count
		}
	}
	return out, since, nil
}

// DashboardStats composes CaseStatusCounts with their sum.
func (a *Aggregator) DashboardStats(ctx context.Context) (DashboardStats, error) {
	counts, since, err := a.windowCounts(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return DashboardStats{StatusCounts: counts, TotalCases: total, WindowStart: since}, nil
}

// LifetimeTotal counts every stored case regardless of age.
func (a *Aggregator) LifetimeTotal(ctx context.Context) (int, error) {
	return a.store.CountAll(ctx)
}

// AssigneeStats returns an officer's cases with per-status counts.
func (a *Aggregator) AssigneeStats(ctx context.Context, assignee string) (AssigneeStats, error) {
	list, err := a.store.FindByAssignee(ctx, assignee)
	if err != nil {
		return AssigneeStats{}, err
	}
	counts := make(map[string]int)
	for _, c := range list {
		counts[string(c.Status)]++
	}
	return AssigneeStats{AssigneeID: assignee, Cases: list, StatusCounts: counts}, nil
}

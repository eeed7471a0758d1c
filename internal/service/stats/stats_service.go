package stats

import (
	"context"
	"time"

	"autosell-worker/internal/pkg/models"
	"autosell-worker/internal/service/autosell"
	"autosell-worker/internal/service/interfaces"
)

type SchedulerView interface {
	State() autosell.State
	LastCycle() (time.Time, int64)
}

type PendingView interface {
	Counts() (pending, pastDue int)
	LastResync() time.Time
	StaleIntents(now time.Time, maxAge time.Duration) []string
}

type PriceView interface {
	Snapshot() map[string]string
}

type StatsService struct {
	scheduler    SchedulerView
	pending      PendingView
	prices       PriceView
	repo         interfaces.MortgageRepositoryInterface
	intentMaxAge time.Duration
	now          func() time.Time
}

// NewStatsService builds the /stats view. Intents older than intentMaxAge
// have outlived their claim and are reported as awaiting reconciliation.
func NewStatsService(
	scheduler SchedulerView,
	pending PendingView,
	prices PriceView,
	repo interfaces.MortgageRepositoryInterface,
	intentMaxAge time.Duration,
) *StatsService {
	return &StatsService{
		scheduler:    scheduler,
		pending:      pending,
		prices:       prices,
		repo:         repo,
		intentMaxAge: intentMaxAge,
		now:          time.Now,
	}
}

func (s *StatsService) GetStats(ctx context.Context) *models.Stats {
	pending, pastDue := s.pending.Counts()
	lastCycle, cyclesRun := s.scheduler.LastCycle()

	awaiting := s.pending.StaleIntents(s.now(), s.intentMaxAge)
	if awaiting == nil {
		awaiting = []string{}
	}

	stats := &models.Stats{
		SchedulerState:         string(s.scheduler.State()),
		PendingLoans:           pending,
		PastDueLoans:           pastDue,
		AwaitingReconciliation: awaiting,
		TokenPrices:            s.prices.Snapshot(),
		LastCycleAt:            timePtr(lastCycle),
		LastResyncAt:           timePtr(s.pending.LastResync()),
		CyclesRun:              cyclesRun,
	}

	// Storage counts are best effort; the in-memory view is always returned.
	if counts, err := s.repo.CountByStatus(ctx); err == nil {
		stats.CountsByStatus = counts
	}
	return stats
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

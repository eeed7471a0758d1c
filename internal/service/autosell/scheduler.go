package autosell

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"autosell-worker/internal/pkg/consts"
	"autosell-worker/internal/pkg/log_messages"
	"autosell-worker/internal/pkg/logger"
	"autosell-worker/internal/pkg/metrics"
	"autosell-worker/internal/pkg/otel"
	"autosell-worker/internal/pkg/store/impl/mortgages"
	"autosell-worker/internal/service/interfaces"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type State string

const (
	StateInitializing State = "INITIALIZING"
	StateReady        State = "READY"
	StateStopped      State = "STOPPED"
)

type SchedulerConfig struct {
	CycleInterval  time.Duration
	ResyncInterval time.Duration
	CycleTimeout   time.Duration
}

// Scheduler owns the pending set and price cache and drives the periodic
// reconciliation cycle. Cycles never overlap.
type Scheduler struct {
	cfg     SchedulerConfig
	repo    interfaces.MortgageRepositoryInterface
	pending *PendingSet
	prices  *PriceCache
	engine  *Engine
	metrics *metrics.Metrics
	now     func() time.Time

	state     atomic.Value
	cycleMu   sync.Mutex
	cyclesRun atomic.Int64
	lastCycle atomic.Int64
	wg        sync.WaitGroup
}

func NewScheduler(
	cfg SchedulerConfig,
	repo interfaces.MortgageRepositoryInterface,
	pending *PendingSet,
	prices *PriceCache,
	engine *Engine,
	m *metrics.Metrics,
) *Scheduler {
	s := &Scheduler{
		cfg:     cfg,
		repo:    repo,
		pending: pending,
		prices:  prices,
		engine:  engine,
		metrics: m,
		now:     time.Now,
	}
	s.state.Store(StateInitializing)
	return s
}

func (s *Scheduler) State() State {
	return s.state.Load().(State)
}

func (s *Scheduler) Ready() bool {
	return s.State() == StateReady
}

// LastCycle returns when the last cycle finished (zero if none) and how many ran.
func (s *Scheduler) LastCycle() (time.Time, int64) {
	nanos := s.lastCycle.Load()
	if nanos == 0 {
		return time.Time{}, s.cyclesRun.Load()
	}
	return time.Unix(0, nanos), s.cyclesRun.Load()
}

// Start loads the pending set, retrying until it succeeds or ctx ends, runs
// one cycle, and then starts both tickers. The tickers stop when ctx is done.
// Wait covers Start itself as well as the tickers.
func (s *Scheduler) Start(ctx context.Context) error {
	s.wg.Add(1)
	defer s.wg.Done()

	logger.CtxInfo(ctx, log_messages.SchedulerStarting,
		zap.Duration("cycle_interval", s.cfg.CycleInterval),
		zap.Duration("resync_interval", s.cfg.ResyncInterval),
	)

	initial := backoff.NewExponentialBackOff()
	initial.MaxElapsedTime = 0
	initial.MaxInterval = 30 * time.Second
	err := backoff.RetryNotify(func() error {
		return s.pending.Resync(ctx)
	}, backoff.WithContext(initial, ctx), func(err error, wait time.Duration) {
		logger.CtxWarn(ctx, log_messages.InitialResyncRetrying, zap.Error(err), zap.Duration("retry_in", wait))
	})
	if err != nil {
		s.state.Store(StateStopped)
		return err
	}

	s.reportDanglingIntents(ctx)
	s.state.Store(StateReady)
	logger.CtxInfo(ctx, log_messages.SchedulerReady)

	s.RunCycle(ctx)

	s.wg.Add(2)
	go s.loop(ctx, s.cfg.CycleInterval, func() { s.RunCycle(ctx) })
	go s.loop(ctx, s.cfg.ResyncInterval, func() { s.resyncBetweenCycles(ctx) })

	go func() {
		s.wg.Wait()
		s.state.Store(StateStopped)
		logger.Info(log_messages.SchedulerStopped)
	}()
	return nil
}

// Wait blocks until Start has returned and both tickers have stopped.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// resyncBetweenCycles reloads the pending set once no cycle is running.
func (s *Scheduler) resyncBetweenCycles(ctx context.Context) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()
	_ = s.pending.Resync(ctx)
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, fn func()) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// RunCycle runs one reconciliation cycle. It returns false without doing
// anything when another cycle is still in flight.
func (s *Scheduler) RunCycle(ctx context.Context) bool {
	if !s.cycleMu.TryLock() {
		s.metrics.CyclesSkipped.Inc()
		logger.CtxWarn(ctx, log_messages.CycleSkippedInFlight)
		return false
	}
	defer s.cycleMu.Unlock()

	ctx = logger.WithTraceID(ctx, uuid.NewString())
	if s.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CycleTimeout)
		defer cancel()
	}
	ctx, span := otel.GetTracer().Start(ctx, "autosell.cycle")
	defer span.End()

	started := s.now()
	loans := s.pending.Snapshot()
	span.SetAttributes(attribute.Int("loans", len(loans)))

	s.prices.Refresh(ctx, distinctTokens(loans))

	statusChanged := false
	for _, loan := range loans {
		if ctx.Err() != nil {
			logger.CtxWarn(ctx, "Cycle abandoned before all loans were processed", zap.Error(ctx.Err()))
			break
		}

		if transition := Classify(loan, s.now()); transition != nil {
			if s.applyTransition(ctx, transition) {
				loan.RepaymentStatus = transition.To
				statusChanged = true
			}
		}

		s.engine.Process(ctx, loan, s.prices, s.now())
	}

	if statusChanged {
		_ = s.pending.Resync(ctx)
	}

	elapsed := s.now().Sub(started)
	s.cyclesRun.Add(1)
	s.lastCycle.Store(s.now().UnixNano())
	s.metrics.CyclesTotal.Inc()
	s.metrics.CycleDuration.Observe(elapsed.Seconds())
	logger.CtxInfo(ctx, log_messages.CycleCompleted, zap.Int("loans", len(loans)), zap.Duration("elapsed", elapsed))
	return true
}

func (s *Scheduler) applyTransition(ctx context.Context, t *StatusTransition) bool {
	loanID := t.LoanID.Hex()
	err := s.repo.MarkPastDue(ctx, t.LoanID)
	switch {
	case err == nil:
		logger.CtxInfo(ctx, log_messages.MortgageMarkedPastDue, zap.String("loan_id", loanID))
		return true
	case errors.Is(err, mortgages.ErrNoMatchingMortgage):
		logger.CtxDebug(ctx, "Mortgage left PENDING before it could be marked past due", zap.String("loan_id", loanID))
	default:
		logger.CtxError(ctx, log_messages.MarkPastDueFailed, err, zap.String("loan_id", loanID))
	}
	return false
}

func (s *Scheduler) reportDanglingIntents(ctx context.Context) {
	dangling, err := s.repo.FindWithDanglingIntent(ctx)
	if err != nil {
		return
	}
	for _, loan := range dangling {
		trigger := loan.AutoSellTrigger
		if trigger == "" {
			trigger = consts.TriggerAuto
		}
		logger.CtxWarn(ctx, log_messages.DanglingAutosellIntent,
			zap.String("loan_id", loan.ID.Hex()),
			zap.Timep("started_at", loan.AutoSellStartedAt),
			zap.String("trigger", trigger),
		)
	}
}

package autosell

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"autosell-worker/internal/pkg/consts"
	"autosell-worker/internal/pkg/logger"
	"autosell-worker/internal/pkg/metrics"
	"autosell-worker/internal/pkg/models"
	"autosell-worker/internal/pkg/store/impl/claims"
	"autosell-worker/internal/pkg/store/impl/mortgages"
	storemodels "autosell-worker/internal/pkg/store/models"
	"autosell-worker/internal/pkg/store/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

const (
	tokenA = "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984"
	tokenB = "0x6B175474E89094C44Da98b954EedeAC495271d0F"
)

// fakeRepo applies the same conditional-write rules as the Mongo repository.
type fakeRepo struct {
	mu               sync.Mutex
	docs             map[primitive.ObjectID]*storemodels.Mortgage
	order            []primitive.ObjectID
	findErr          error
	markErr          error
	completeFailures int
	completeLostAcks int
	calls            map[string]int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{docs: map[primitive.ObjectID]*storemodels.Mortgage{}, calls: map[string]int{}}
}

func (r *fakeRepo) add(m storemodels.Mortgage) primitive.ObjectID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	r.docs[m.ID] = &m
	r.order = append(r.order, m.ID)
	return m.ID
}

func (r *fakeRepo) get(id primitive.ObjectID) storemodels.Mortgage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.docs[id]
}

func (r *fakeRepo) count(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[method]
}

func (r *fakeRepo) setFindErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findErr = err
}

func (r *fakeRepo) GetMortgage(_ context.Context, id string) (*storemodels.Mortgage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["GetMortgage"]++
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", mortgages.ErrInvalidMortgageID, id)
	}
	doc, ok := r.docs[oid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", mortgages.ErrMortgageNotFound, id)
	}
	cp := *doc
	return &cp, nil
}

func (r *fakeRepo) FindMonitoredMortgages(context.Context) ([]storemodels.Mortgage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["FindMonitoredMortgages"]++
	if r.findErr != nil {
		return nil, r.findErr
	}
	var out []storemodels.Mortgage
	for _, id := range r.order {
		if doc := r.docs[id]; doc.IsMonitored() {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (r *fakeRepo) FindWithDanglingIntent(context.Context) ([]storemodels.Mortgage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []storemodels.Mortgage
	for _, id := range r.order {
		if doc := r.docs[id]; doc.IsMonitored() && doc.HasAutosellIntent() {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (r *fakeRepo) MarkPastDue(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["MarkPastDue"]++
	if r.markErr != nil {
		return r.markErr
	}
	doc, ok := r.docs[id]
	if !ok || doc.RepaymentStatus != consts.StatusPending {
		return mortgages.ErrNoMatchingMortgage
	}
	doc.RepaymentStatus = consts.StatusPastDue
	return nil
}

func (r *fakeRepo) BeginAutosell(_ context.Context, id primitive.ObjectID, trigger string, startedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["BeginAutosell"]++
	doc, ok := r.docs[id]
	if !ok || !doc.IsMonitored() || doc.HasAutosellIntent() {
		return mortgages.ErrNoMatchingMortgage
	}
	doc.AutoSellStartedAt = &startedAt
	doc.AutoSellTrigger = trigger
	return nil
}

func (r *fakeRepo) AbortAutosell(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["AbortAutosell"]++
	doc, ok := r.docs[id]
	if !ok || !doc.IsMonitored() || !doc.HasAutosellIntent() {
		return mortgages.ErrNoMatchingMortgage
	}
	doc.AutoSellStartedAt = nil
	doc.AutoSellTrigger = ""
	return nil
}

func (r *fakeRepo) CompleteAutosell(_ context.Context, id primitive.ObjectID, soldAt time.Time, txnHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["CompleteAutosell"]++
	if r.completeFailures > 0 {
		r.completeFailures--
		return errors.New("write concern timeout")
	}
	doc, ok := r.docs[id]
	if !ok || !doc.IsMonitored() || !doc.HasAutosellIntent() {
		return mortgages.ErrNoMatchingMortgage
	}
	doc.RepaymentStatus = consts.StatusAutosold
	doc.AutoSoldAt = &soldAt
	if txnHash != "" {
		doc.AutoSoldTxn = txnHash
	}
	doc.AutoSellStartedAt = nil
	if r.completeLostAcks > 0 {
		r.completeLostAcks--
		return errors.New("connection reset by peer")
	}
	return nil
}

func (r *fakeRepo) CountByStatus(context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]int64{}
	for _, doc := range r.docs {
		out[doc.RepaymentStatus]++
	}
	return out, nil
}

type fakeQuotes struct {
	mu     sync.Mutex
	prices map[string]string
	errs   map[string]error
	calls  map[string]int
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{prices: map[string]string{}, errs: map[string]error{}, calls: map[string]int{}}
}

func (q *fakeQuotes) set(token, price string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.prices[token] = price
}

func (q *fakeQuotes) GetPairs(_ context.Context, token string) ([]models.TokenPair, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls[token]++
	if err := q.errs[token]; err != nil {
		return nil, err
	}
	price, ok := q.prices[token]
	if !ok {
		return []models.TokenPair{}, nil
	}
	return []models.TokenPair{
		{DexID: "uniswap", PriceUSD: price},
		{DexID: "sushiswap", PriceUSD: "999"},
	}, nil
}

type fakeSwapper struct {
	mu      sync.Mutex
	txn     string
	err     error
	calls   int
	started chan struct{}
	release chan struct{}
}

func (s *fakeSwapper) Swap(ctx context.Context, _ string, _ float64) (string, error) {
	s.mu.Lock()
	s.calls++
	started, release := s.started, s.release
	s.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.txn, s.err
}

func (s *fakeSwapper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeEvents struct {
	mu     sync.Mutex
	events []models.MortgageAutosoldEvent
	err    error
}

func (e *fakeEvents) PublishAutosold(_ context.Context, event models.MortgageAutosoldEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return e.err
}

type harness struct {
	repo    *fakeRepo
	quotes  *fakeQuotes
	swapper *fakeSwapper
	events  *fakeEvents
	claims  *claims.ClaimRepository
	redis   *miniredis.Miniredis
	metrics *metrics.Metrics
	pending *PendingSet
	prices  *PriceCache
	engine  *Engine
	sched   *Scheduler
	logs    *observer.ObservedLogs
}

func newHarness(t *testing.T, mutate ...func(*EngineConfig)) *harness {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	logger.SetLogger(zap.New(core))
	t.Cleanup(func() { logger.SetLogger(nil) })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := EngineConfig{
		SellThreshold:    0.8,
		PriceMaxAge:      5 * time.Minute,
		ClaimTTL:         time.Minute,
		CommitMaxElapsed: time.Second,
	}
	for _, fn := range mutate {
		fn(&cfg)
	}

	h := &harness{
		repo:    newFakeRepo(),
		quotes:  newFakeQuotes(),
		swapper: &fakeSwapper{txn: "0xswap"},
		events:  &fakeEvents{},
		claims:  claims.NewClaimRepository(repository.NewRedisStoreAdapter(client)),
		redis:   mr,
		metrics: metrics.New(prometheus.NewRegistry()),
		logs:    logs,
	}
	h.pending = NewPendingSet(h.repo, h.metrics)
	h.prices = NewPriceCache(h.quotes, time.Second, h.metrics)
	h.engine = NewEngine(cfg, h.repo, h.swapper, h.claims, h.pending, h.events, h.metrics)
	h.sched = NewScheduler(SchedulerConfig{
		CycleInterval:  time.Hour,
		ResyncInterval: time.Hour,
		CycleTimeout:   5 * time.Second,
	}, h.repo, h.pending, h.prices, h.engine, h.metrics)

	clock := func() time.Time { return testNow }
	h.pending.now = clock
	h.prices.now = clock
	h.engine.now = clock
	h.sched.now = clock
	return h
}

func dueIn(d time.Duration) *time.Time {
	t := testNow.Add(d)
	return &t
}

func pendingLoan(token string, reference float64) storemodels.Mortgage {
	return storemodels.Mortgage{
		CollateralToken:          token,
		CollateralAmount:         10,
		CollateralUsdPriceAtLoan: reference,
		LoanDueAt:                dueIn(30 * 24 * time.Hour),
		RepaymentStatus:          consts.StatusPending,
	}
}

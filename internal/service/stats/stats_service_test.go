package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"autosell-worker/internal/pkg/consts"
	"autosell-worker/internal/pkg/store/models"
	"autosell-worker/internal/service/autosell"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var statsNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeScheduler struct {
	state     autosell.State
	lastCycle time.Time
	runs      int64
}

func (f fakeScheduler) State() autosell.State { return f.state }
func (f fakeScheduler) LastCycle() (time.Time, int64) { return f.lastCycle, f.runs }

type fakePending struct {
	pending, pastDue int
	lastResync       time.Time
	stale            []string
	gotMaxAge        time.Duration
}

func (f *fakePending) Counts() (int, int) { return f.pending, f.pastDue }
func (f *fakePending) LastResync() time.Time { return f.lastResync }
func (f *fakePending) StaleIntents(_ time.Time, maxAge time.Duration) []string {
	f.gotMaxAge = maxAge
	return f.stale
}

type fakePrices map[string]string

func (f fakePrices) Snapshot() map[string]string { return f }

type MockMortgageRepository struct {
	mock.Mock
}

func (m *MockMortgageRepository) GetMortgage(ctx context.Context, id string) (*models.Mortgage, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*models.Mortgage), args.Error(1)
}

func (m *MockMortgageRepository) FindMonitoredMortgages(ctx context.Context) ([]models.Mortgage, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Mortgage), args.Error(1)
}

func (m *MockMortgageRepository) FindWithDanglingIntent(ctx context.Context) ([]models.Mortgage, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Mortgage), args.Error(1)
}

func (m *MockMortgageRepository) MarkPastDue(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockMortgageRepository) BeginAutosell(ctx context.Context, id primitive.ObjectID, trigger string, startedAt time.Time) error {
	return m.Called(ctx, id, trigger, startedAt).Error(0)
}

func (m *MockMortgageRepository) AbortAutosell(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockMortgageRepository) CompleteAutosell(ctx context.Context, id primitive.ObjectID, soldAt time.Time, txnHash string) error {
	return m.Called(ctx, id, soldAt, txnHash).Error(0)
}

func (m *MockMortgageRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	counts, _ := args.Get(0).(map[string]int64)
	return counts, args.Error(1)
}

func TestGetStats(t *testing.T) {
	repo := new(MockMortgageRepository)
	repo.On("CountByStatus", mock.Anything).Return(map[string]int64{
		consts.StatusPending:  3,
		consts.StatusAutosold: 7,
	}, nil)

	pending := &fakePending{pending: 3, pastDue: 1, lastResync: statsNow.Add(-time.Minute), stale: []string{"65f1a2b3c4d5e6f708091a2b"}}
	svc := NewStatsService(
		fakeScheduler{state: autosell.StateReady, lastCycle: statsNow, runs: 12},
		pending,
		fakePrices{"0xabc": "1.25"},
		repo,
		2*time.Minute,
	)
	svc.now = func() time.Time { return statsNow }

	stats := svc.GetStats(context.Background())

	assert.Equal(t, "READY", stats.SchedulerState)
	assert.Equal(t, 3, stats.PendingLoans)
	assert.Equal(t, 1, stats.PastDueLoans)
	assert.Equal(t, int64(12), stats.CyclesRun)
	assert.Equal(t, []string{"65f1a2b3c4d5e6f708091a2b"}, stats.AwaitingReconciliation)
	assert.Equal(t, map[string]string{"0xabc": "1.25"}, stats.TokenPrices)
	assert.Equal(t, int64(7), stats.CountsByStatus[consts.StatusAutosold])
	require.NotNil(t, stats.LastCycleAt)
	assert.Equal(t, statsNow, *stats.LastCycleAt)
	require.NotNil(t, stats.LastResyncAt)
	assert.Equal(t, 2*time.Minute, pending.gotMaxAge)
	repo.AssertExpectations(t)
}

func TestGetStatsBeforeFirstCycle(t *testing.T) {
	repo := new(MockMortgageRepository)
	repo.On("CountByStatus", mock.Anything).Return(nil, errors.New("server selection timeout"))

	svc := NewStatsService(
		fakeScheduler{state: autosell.StateInitializing},
		&fakePending{},
		fakePrices{},
		repo,
		time.Minute,
	)

	stats := svc.GetStats(context.Background())

	assert.Equal(t, "INITIALIZING", stats.SchedulerState)
	assert.Nil(t, stats.LastCycleAt)
	assert.Nil(t, stats.LastResyncAt)
	assert.Nil(t, stats.CountsByStatus)
	assert.NotNil(t, stats.AwaitingReconciliation)
	assert.Empty(t, stats.AwaitingReconciliation)
}

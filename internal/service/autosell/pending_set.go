package autosell

import (
	"context"
	"sort"
	"sync"
	"time"

	"autosell-worker/internal/pkg/consts"
	"autosell-worker/internal/pkg/log_messages"
	"autosell-worker/internal/pkg/logger"
	"autosell-worker/internal/pkg/metrics"
	"autosell-worker/internal/pkg/store/models"
	"autosell-worker/internal/service/interfaces"

	"go.uber.org/zap"
)

// PendingSet mirrors every PENDING or PASTDUE mortgage in storage. It is only
// ever replaced wholesale by Resync, never patched in place.
type PendingSet struct {
	repo    interfaces.MortgageRepositoryInterface
	metrics *metrics.Metrics
	now     func() time.Time

	resyncMu sync.Mutex

	mu         sync.RWMutex
	loans      []models.Mortgage
	lastResync time.Time
}

func NewPendingSet(repo interfaces.MortgageRepositoryInterface, m *metrics.Metrics) *PendingSet {
	return &PendingSet{repo: repo, metrics: m, now: time.Now}
}

// Resync reloads the set from storage. On failure the previous snapshot is kept.
func (p *PendingSet) Resync(ctx context.Context) error {
	p.resyncMu.Lock()
	defer p.resyncMu.Unlock()

	loans, err := p.repo.FindMonitoredMortgages(ctx)
	if err != nil {
		p.metrics.ResyncsTotal.WithLabelValues("failure").Inc()
		logger.CtxError(ctx, log_messages.PendingSetResyncFailed, err)
		return err
	}

	p.mu.Lock()
	p.loans = loans
	p.lastResync = p.now()
	p.mu.Unlock()

	pending, pastDue := countStatuses(loans)
	p.metrics.ResyncsTotal.WithLabelValues("success").Inc()
	p.metrics.MonitoredMortgages.WithLabelValues(consts.StatusPending).Set(float64(pending))
	p.metrics.MonitoredMortgages.WithLabelValues(consts.StatusPastDue).Set(float64(pastDue))
	logger.CtxDebug(ctx, log_messages.PendingSetResynced, zap.Int("pending", pending), zap.Int("past_due", pastDue))
	return nil
}

// Snapshot returns a copy of the current set.
func (p *PendingSet) Snapshot() []models.Mortgage {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]models.Mortgage, len(p.loans))
	copy(out, p.loans)
	return out
}

func (p *PendingSet) Contains(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, loan := range p.loans {
		if loan.ID.Hex() == id {
			return true
		}
	}
	return false
}

func (p *PendingSet) Counts() (pending, pastDue int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return countStatuses(p.loans)
}

// LastResync is zero until the first successful resync.
func (p *PendingSet) LastResync() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastResync
}

// StaleIntents lists loans whose autosell intent is older than maxAge.
func (p *PendingSet) StaleIntents(now time.Time, maxAge time.Duration) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := []string{}
	for _, loan := range p.loans {
		if loan.AutoSellStartedAt != nil && now.Sub(*loan.AutoSellStartedAt) > maxAge {
			ids = append(ids, loan.ID.Hex())
		}
	}
	return ids
}

func countStatuses(loans []models.Mortgage) (pending, pastDue int) {
	for _, loan := range loans {
		switch loan.RepaymentStatus {
		case consts.StatusPending:
			pending++
		case consts.StatusPastDue:
			pastDue++
		}
	}
	return pending, pastDue
}

// distinctTokens returns the sorted set of collateral tokens, compared case-insensitively.
func distinctTokens(loans []models.Mortgage) []string {
	seen := make(map[string]struct{}, len(loans))
	tokens := make([]string, 0, len(loans))
	for _, loan := range loans {
		key := tokenKey(loan.CollateralToken)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		tokens = append(tokens, loan.CollateralToken)
	}
	sort.Strings(tokens)
	return tokens
}

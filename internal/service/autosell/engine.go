package autosell

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autosell-worker/internal/pkg/consts"
	"autosell-worker/internal/pkg/log_messages"
	"autosell-worker/internal/pkg/logger"
	"autosell-worker/internal/pkg/metrics"
	"autosell-worker/internal/pkg/models"
	"autosell-worker/internal/pkg/otel"
	"autosell-worker/internal/pkg/store/impl/mortgages"
	storemodels "autosell-worker/internal/pkg/store/models"
	"autosell-worker/internal/service/interfaces"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	// ErrLoanClaimed means another liquidation holds the loan.
	ErrLoanClaimed = errors.New("loan is already being liquidated")
	// ErrNotLiquidatable means the loan is not PENDING/PASTDUE or already has an autosell in progress.
	ErrNotLiquidatable = errors.New("loan is not eligible for liquidation")
	ErrLoanNotFound    = errors.New("loan not found")
	ErrSwapFailed      = errors.New("collateral swap failed")
	// ErrCommitFailed means the swap went through but AUTOSOLD could not be
	// written. The intent stays on the document.
	ErrCommitFailed = errors.New("autosell commit failed")
)

const (
	commitInitialInterval   = 100 * time.Millisecond
	defaultCommitMaxElapsed = 2 * time.Minute
)

type Action int

const (
	ActionSkip Action = iota
	ActionSell
)

func (a Action) String() string {
	if a == ActionSell {
		return "sell"
	}
	return "skip"
}

const (
	ReasonNotMonitored      = "not monitored"
	ReasonIntentInProgress  = "autosell in progress"
	ReasonNoPrice           = "no fresh price"
	ReasonBadReferencePrice = "non-positive reference price"
	ReasonAboveThreshold    = "price above threshold"
	ReasonDenylisted        = "token excluded from liquidation"
	ReasonThresholdBreached = "price at or below threshold"
)

type Decision struct {
	Action Action
	Reason string
	Ratio  decimal.Decimal
}

type EngineConfig struct {
	SellThreshold        float64
	TokensToNotLiquidate []string
	PriceMaxAge          time.Duration
	ClaimTTL             time.Duration
	CommitMaxElapsed     time.Duration
}

// Engine decides whether a mortgage should be liquidated and carries the
// liquidation out: claim, intent, swap, commit, resync.
type Engine struct {
	repo      interfaces.MortgageRepositoryInterface
	swapper   interfaces.SwapExecutor
	claims    interfaces.ClaimStore
	pending   *PendingSet
	events    interfaces.AutosoldEventPublisher
	metrics   *metrics.Metrics
	cfg       EngineConfig
	threshold decimal.Decimal
	denylist  map[string]struct{}
	now       func() time.Time
}

func NewEngine(
	cfg EngineConfig,
	repo interfaces.MortgageRepositoryInterface,
	swapper interfaces.SwapExecutor,
	claims interfaces.ClaimStore,
	pending *PendingSet,
	events interfaces.AutosoldEventPublisher,
	m *metrics.Metrics,
) *Engine {
	if cfg.CommitMaxElapsed <= 0 {
		cfg.CommitMaxElapsed = defaultCommitMaxElapsed
	}
	denylist := make(map[string]struct{}, len(cfg.TokensToNotLiquidate))
	for _, token := range cfg.TokensToNotLiquidate {
		if key := tokenKey(token); key != "" {
			denylist[key] = struct{}{}
		}
	}

	return &Engine{
		repo:      repo,
		swapper:   swapper,
		claims:    claims,
		pending:   pending,
		events:    events,
		metrics:   m,
		cfg:       cfg,
		threshold: decimal.NewFromFloat(cfg.SellThreshold),
		denylist:  denylist,
		now:       time.Now,
	}
}

// Evaluate is pure: it reads the cache and the loan, nothing else.
func (e *Engine) Evaluate(loan storemodels.Mortgage, prices *PriceCache, now time.Time) Decision {
	if !loan.IsMonitored() {
		return Decision{Action: ActionSkip, Reason: ReasonNotMonitored}
	}
	if loan.HasAutosellIntent() {
		return Decision{Action: ActionSkip, Reason: ReasonIntentInProgress}
	}

	current, ok := prices.Lookup(loan.CollateralToken, now, e.cfg.PriceMaxAge)
	if !ok {
		return Decision{Action: ActionSkip, Reason: ReasonNoPrice}
	}

	reference := decimal.NewFromFloat(loan.CollateralUsdPriceAtLoan)
	if !reference.IsPositive() {
		return Decision{Action: ActionSkip, Reason: ReasonBadReferencePrice}
	}

	ratio := current.Div(reference)
	if ratio.GreaterThan(e.threshold) {
		return Decision{Action: ActionSkip, Reason: ReasonAboveThreshold, Ratio: ratio}
	}
	if _, denied := e.denylist[tokenKey(loan.CollateralToken)]; denied {
		return Decision{Action: ActionSkip, Reason: ReasonDenylisted, Ratio: ratio}
	}
	return Decision{Action: ActionSell, Reason: ReasonThresholdBreached, Ratio: ratio}
}

// Process evaluates one loan inside a cycle and liquidates it when the
// decision is sell. Errors are logged; the cycle always moves on.
func (e *Engine) Process(ctx context.Context, loan storemodels.Mortgage, prices *PriceCache, now time.Time) {
	loanID := loan.ID.Hex()
	decision := e.Evaluate(loan, prices, now)
	logger.CtxDebug(ctx, log_messages.CheckingAutosellConditions,
		zap.String("loan_id", loanID),
		zap.String("decision", decision.Action.String()),
		zap.String("reason", decision.Reason),
		zap.String("ratio", decision.Ratio.StringFixed(4)),
	)
	if decision.Action != ActionSell {
		return
	}

	_, err := e.Liquidate(ctx, loan, consts.TriggerAuto)
	switch {
	case err == nil:
	case errors.Is(err, ErrLoanClaimed):
		logger.CtxInfo(ctx, log_messages.MortgageClaimedElsewhere, zap.String("loan_id", loanID))
	case errors.Is(err, ErrNotLiquidatable):
		logger.CtxInfo(ctx, log_messages.AutosellIntentNotApplied, zap.String("loan_id", loanID))
	default:
		logger.CtxError(ctx, "Autosell attempt failed", err, zap.String("loan_id", loanID))
	}
}

// LiquidateByID liquidates a loan on request, without threshold or denylist
// checks. The denylist only exempts tokens from automatic liquidation.
func (e *Engine) LiquidateByID(ctx context.Context, loanID string) (string, error) {
	loan, err := e.repo.GetMortgage(ctx, loanID)
	if err != nil {
		if errors.Is(err, mortgages.ErrMortgageNotFound) || errors.Is(err, mortgages.ErrInvalidMortgageID) {
			return "", fmt.Errorf("%w: %w", ErrLoanNotFound, err)
		}
		return "", err
	}
	if loan.IsMonitored() && loan.HasAutosellIntent() {
		// An intent under a live claim is a liquidation still in flight.
		if busy, cerr := e.claims.IsClaimed(ctx, loanID); cerr == nil && busy {
			return "", fmt.Errorf("%w: %s", ErrLoanClaimed, loanID)
		}
	}
	if !loan.IsMonitored() || loan.HasAutosellIntent() {
		return "", fmt.Errorf("%w: %s is %s", ErrNotLiquidatable, loanID, loan.RepaymentStatus)
	}
	return e.Liquidate(ctx, *loan, consts.TriggerManual)
}

// Liquidate swaps the loan's collateral and records AUTOSOLD. The loan is
// claimed for the duration and an intent is written before the swap so that
// a swap whose commit fails is never repeated.
func (e *Engine) Liquidate(ctx context.Context, loan storemodels.Mortgage, trigger string) (txnHash string, err error) {
	loanID := loan.ID.Hex()
	ctx, span := otel.GetTracer().Start(ctx, "autosell.liquidate", trace.WithAttributes(
		attribute.String("loan.id", loanID),
		attribute.String("loan.token", loan.CollateralToken),
		attribute.String("autosell.trigger", trigger),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	claimed, err := e.claims.Claim(ctx, loanID, e.cfg.ClaimTTL)
	if err != nil {
		return "", fmt.Errorf("claim loan %s: %w", loanID, err)
	}
	if !claimed {
		return "", fmt.Errorf("%w: %s", ErrLoanClaimed, loanID)
	}
	defer func() {
		if rerr := e.claims.Release(context.WithoutCancel(ctx), loanID); rerr != nil {
			logger.CtxError(ctx, log_messages.ClaimReleaseFailed, rerr, zap.String("loan_id", loanID))
		}
	}()

	if err := e.repo.BeginAutosell(ctx, loan.ID, trigger, e.now()); err != nil {
		if errors.Is(err, mortgages.ErrNoMatchingMortgage) {
			return "", fmt.Errorf("%w: %s", ErrNotLiquidatable, loanID)
		}
		logger.CtxError(ctx, log_messages.AutosellIntentFailed, err, zap.String("loan_id", loanID))
		return "", err
	}

	txnHash, err = e.swapper.Swap(ctx, loan.CollateralToken, loan.CollateralAmount)
	if err != nil {
		e.metrics.SwapFailures.Inc()
		logger.CtxError(ctx, log_messages.SwapFailed, err,
			zap.String("loan_id", loanID),
			zap.String("token", loan.CollateralToken),
			zap.Float64("amount", loan.CollateralAmount),
		)
		abortErr := e.retryWrite(ctx, loanID, func(ctx context.Context) error {
			return e.repo.AbortAutosell(ctx, loan.ID)
		})
		if abortErr != nil {
			logger.CtxError(ctx, log_messages.AutosellIntentClearFailed, abortErr, zap.String("loan_id", loanID))
		}
		return "", fmt.Errorf("%w: %w", ErrSwapFailed, err)
	}

	soldAt := e.now()
	attempts := 0
	commitErr := e.retryWrite(ctx, loanID, func(ctx context.Context) error {
		attempts++
		err := e.repo.CompleteAutosell(ctx, loan.ID, soldAt, txnHash)
		// An earlier attempt may have been applied even though it reported an error.
		if attempts > 1 && errors.Is(err, mortgages.ErrNoMatchingMortgage) && e.committed(ctx, loanID, txnHash) {
			return nil
		}
		return err
	})
	if commitErr != nil {
		e.metrics.CommitFailures.Inc()
		logger.CtxError(ctx, log_messages.AutosellCommitFailed, commitErr,
			zap.String("loan_id", loanID),
			zap.String("txn", txnHash),
		)
		return txnHash, fmt.Errorf("%w: %w", ErrCommitFailed, commitErr)
	}

	e.metrics.AutosoldTotal.WithLabelValues(trigger).Inc()
	logger.CtxInfo(ctx, fmt.Sprintf(log_messages.MortgageAutosold, loanID),
		zap.String("txn", txnHash),
		zap.String("trigger", trigger),
	)

	_ = e.pending.Resync(ctx)

	event := models.MortgageAutosoldEvent{
		LoanID:          loanID,
		CollateralToken: loan.CollateralToken,
		Amount:          loan.CollateralAmount,
		TxnHash:         txnHash,
		Trigger:         trigger,
		AutoSoldAt:      soldAt,
	}
	if err := e.events.PublishAutosold(ctx, event); err != nil {
		logger.CtxWarn(ctx, log_messages.AutosellEventPublishFailed, zap.String("loan_id", loanID), zap.Error(err))
	}

	return txnHash, nil
}

func (e *Engine) committed(ctx context.Context, loanID, txnHash string) bool {
	loan, err := e.repo.GetMortgage(ctx, loanID)
	if err != nil {
		return false
	}
	if loan.RepaymentStatus != consts.StatusAutosold {
		return false
	}
	return txnHash == "" || loan.AutoSoldTxn == txnHash
}

// retryWrite retries a storage write with exponential backoff for up to
// CommitMaxElapsed. It ignores cancellation of ctx. A write that matched no
// document is not retried.
func (e *Engine) retryWrite(ctx context.Context, loanID string, write func(context.Context) error) error {
	ctx = context.WithoutCancel(ctx)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = commitInitialInterval
	b.MaxElapsedTime = e.cfg.CommitMaxElapsed

	return backoff.Retry(func() error {
		err := write(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, mortgages.ErrNoMatchingMortgage) {
			return backoff.Permanent(err)
		}
		logger.CtxWarn(ctx, log_messages.AutosellCommitRetrying, zap.String("loan_id", loanID), zap.Error(err))
		return err
	}, b)
}

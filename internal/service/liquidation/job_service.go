package liquidation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"autosell-worker/internal/pkg/consts"
	"autosell-worker/internal/pkg/log_messages"
	"autosell-worker/internal/pkg/logger"
	"autosell-worker/internal/pkg/store/models"
	"autosell-worker/internal/service/interfaces"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var ErrInvalidLoanID = errors.New("loanId must be a 24 character hex string")

// JobService runs manual liquidations in the background and records their
// progress in the job store.
type JobService struct {
	liquidator interfaces.Liquidator
	jobs       interfaces.LiquidationJobRepositoryInterface
	timeout    time.Duration
	now        func() time.Time
	wg         sync.WaitGroup
}

func NewJobService(
	liquidator interfaces.Liquidator,
	jobs interfaces.LiquidationJobRepositoryInterface,
	timeout time.Duration,
) *JobService {
	return &JobService{
		liquidator: liquidator,
		jobs:       jobs,
		timeout:    timeout,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores a QUEUED job and starts it. The job outlives ctx.
func (s *JobService) Submit(ctx context.Context, loanID string) (*models.LiquidationJob, error) {
	if !primitive.IsValidObjectID(loanID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLoanID, loanID)
	}

	now := s.now()
	job := &models.LiquidationJob{
		JobID:     uuid.NewString(),
		LoanID:    loanID,
		Status:    consts.JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, log_messages.LiquidationJobQueued,
		zap.String("job_id", job.JobID),
		zap.String("loan_id", loanID),
	)

	queued := *job
	s.wg.Add(1)
	go s.run(context.WithoutCancel(ctx), job)
	return &queued, nil
}

func (s *JobService) Status(ctx context.Context, jobID string) (*models.LiquidationJob, error) {
	return s.jobs.GetJob(ctx, jobID)
}

// Wait blocks until every submitted job has finished.
func (s *JobService) Wait() {
	s.wg.Wait()
}

func (s *JobService) run(ctx context.Context, job *models.LiquidationJob) {
	defer s.wg.Done()

	ctx = logger.WithTraceID(ctx, job.JobID)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	job.Status = consts.JobStatusRunning
	job.UpdatedAt = s.now()
	_ = s.jobs.SaveJob(ctx, job)

	txnHash, err := s.liquidator.LiquidateByID(ctx, job.LoanID)

	finished := s.now()
	job.UpdatedAt = finished
	job.FinishedAt = &finished
	if err != nil {
		job.Status = consts.JobStatusFailed
		job.Error = err.Error()
		logger.CtxError(ctx, log_messages.LiquidationJobFailed, err,
			zap.String("job_id", job.JobID),
			zap.String("loan_id", job.LoanID),
		)
	} else {
		job.Status = consts.JobStatusCompleted
		job.TxnHash = txnHash
		logger.CtxInfo(ctx, log_messages.LiquidationJobCompleted,
			zap.String("job_id", job.JobID),
			zap.String("loan_id", job.LoanID),
			zap.String("txn_hash", txnHash),
		)
	}

	// The final state must land even if the liquidation used up the deadline.
	_ = s.jobs.SaveJob(context.WithoutCancel(ctx), job)
}

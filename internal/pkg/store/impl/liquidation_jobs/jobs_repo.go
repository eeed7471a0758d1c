package liquidation_jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"autosell-worker/internal/pkg/log_messages"
	"autosell-worker/internal/pkg/logger"
	"autosell-worker/internal/pkg/store/models"
	"autosell-worker/internal/service/interfaces"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrJobNotFound = errors.New("liquidation job not found")

type LiquidationJobRepository struct {
	store interfaces.RedisStoreOperations
	ttl   time.Duration
}

func NewLiquidationJobRepository(store interfaces.RedisStoreOperations, ttl time.Duration) *LiquidationJobRepository {
	return &LiquidationJobRepository{store: store, ttl: ttl}
}

// SaveJob overwrites the job record and refreshes its expiry.
func (r *LiquidationJobRepository) SaveJob(ctx context.Context, job *models.LiquidationJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal liquidation job: %w", err)
	}

	if err := r.store.Set(ctx, models.LiquidationJobKeyBuilder(job.JobID), payload, r.ttl); err != nil {
		logger.CtxError(ctx, log_messages.LiquidationJobSaveFailed, err, zap.String("job_id", job.JobID))
		return err
	}
	return nil
}

func (r *LiquidationJobRepository) GetJob(ctx context.Context, jobID string) (*models.LiquidationJob, error) {
	payload, err := r.store.Get(ctx, models.LiquidationJobKeyBuilder(jobID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return nil, err
	}

	var job models.LiquidationJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, fmt.Errorf("unmarshal liquidation job %s: %w", jobID, err)
	}
	return &job, nil
}

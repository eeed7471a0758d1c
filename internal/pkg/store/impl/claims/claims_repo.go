package claims

import (
	"context"
	"errors"
	"time"

	"autosell-worker/internal/pkg/logger"
	"autosell-worker/internal/pkg/store/models"
	"autosell-worker/internal/service/interfaces"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ClaimRepository keeps one expiring Redis key per mortgage being liquidated,
// so a cycle and a manual request never work the same loan at once.
type ClaimRepository struct {
	store  interfaces.RedisStoreOperations
	holder string
}

func NewClaimRepository(store interfaces.RedisStoreOperations) *ClaimRepository {
	return &ClaimRepository{store: store, holder: uuid.NewString()}
}

// Claim returns false when another caller already holds the loan.
func (r *ClaimRepository) Claim(ctx context.Context, loanID string, ttl time.Duration) (bool, error) {
	ok, err := r.store.SetNX(ctx, models.ClaimKeyBuilder(loanID), r.holder, ttl)
	if err != nil {
		logger.CtxError(ctx, "Failed to claim mortgage", err, zap.String("loan_id", loanID))
		return false, err
	}
	return ok, nil
}

// Release drops the claim if this repository still holds it. A claim that
// expired and was taken by someone else is left alone.
func (r *ClaimRepository) Release(ctx context.Context, loanID string) error {
	key := models.ClaimKeyBuilder(loanID)
	holder, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	if string(holder) != r.holder {
		logger.CtxWarn(ctx, "Claim is held by another worker, not releasing", zap.String("loan_id", loanID))
		return nil
	}
	return r.store.Delete(ctx, key)
}

func (r *ClaimRepository) IsClaimed(ctx context.Context, loanID string) (bool, error) {
	return r.store.Exists(ctx, models.ClaimKeyBuilder(loanID))
}

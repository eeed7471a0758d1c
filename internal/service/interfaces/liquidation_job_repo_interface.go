package interfaces

import (
	"context"

	"autosell-worker/internal/pkg/store/models"
)

type LiquidationJobRepositoryInterface interface {
	SaveJob(ctx context.Context, job *models.LiquidationJob) error
	GetJob(ctx context.Context, jobID string) (*models.LiquidationJob, error)
}

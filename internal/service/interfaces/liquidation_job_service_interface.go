package interfaces

import (
	"context"

	"autosell-worker/internal/pkg/store/models"
)

type LiquidationJobServiceInterface interface {
	Submit(ctx context.Context, loanID string) (*models.LiquidationJob, error)
	Status(ctx context.Context, jobID string) (*models.LiquidationJob, error)
}

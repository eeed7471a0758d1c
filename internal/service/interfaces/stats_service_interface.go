package interfaces

import (
	"context"

	"autosell-worker/internal/pkg/models"
)

type StatsServiceInterface interface {
	GetStats(ctx context.Context) *models.Stats
}

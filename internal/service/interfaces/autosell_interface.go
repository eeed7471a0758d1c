package interfaces

import (
	"context"

	"autosell-worker/internal/pkg/models"
)

// AutosoldEventPublisher announces committed liquidations.
type AutosoldEventPublisher interface {
	PublishAutosold(ctx context.Context, event models.MortgageAutosoldEvent) error
}

// Liquidator runs a manual liquidation of one mortgage and returns the swap
// transaction reference, which may be empty.
type Liquidator interface {
	LiquidateByID(ctx context.Context, loanID string) (string, error)
}

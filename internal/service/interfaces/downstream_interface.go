package interfaces

import (
	"context"

	"autosell-worker/internal/pkg/models"
)

// QuoteProvider returns the trading pairs known for a token, best first.
type QuoteProvider interface {
	GetPairs(ctx context.Context, token string) ([]models.TokenPair, error)
}

// SwapExecutor sells amount of token for the native asset. The returned
// transaction reference may be empty when the chain gave none.
type SwapExecutor interface {
	Swap(ctx context.Context, token string, amount float64) (string, error)
}

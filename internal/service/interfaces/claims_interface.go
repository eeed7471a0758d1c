package interfaces

import (
	"context"
	"time"
)

// ClaimStore hands out exclusive, expiring claims on mortgage ids.
type ClaimStore interface {
	Claim(ctx context.Context, loanID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, loanID string) error
	IsClaimed(ctx context.Context, loanID string) (bool, error)
}

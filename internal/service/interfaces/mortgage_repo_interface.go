package interfaces

import (
	"context"
	"time"

	"autosell-worker/internal/pkg/store/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MortgageRepositoryInterface is the storage contract of the autosell core.
// Every write is conditional on the current repayment status so that
// transitions never regress.
type MortgageRepositoryInterface interface {
	GetMortgage(ctx context.Context, id string) (*models.Mortgage, error)
	FindMonitoredMortgages(ctx context.Context) ([]models.Mortgage, error)
	FindWithDanglingIntent(ctx context.Context) ([]models.Mortgage, error)
	MarkPastDue(ctx context.Context, id primitive.ObjectID) error
	BeginAutosell(ctx context.Context, id primitive.ObjectID, trigger string, startedAt time.Time) error
	AbortAutosell(ctx context.Context, id primitive.ObjectID) error
	CompleteAutosell(ctx context.Context, id primitive.ObjectID, soldAt time.Time, txnHash string) error
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type MortgageStoreInterface interface {
	FindOne(ctx context.Context, filter interface{}, opt *options.FindOneOptions) (models.Mortgage, error)
	Find(ctx context.Context, filter interface{}) ([]models.Mortgage, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}) (int64, error)
	AggregateAll(ctx context.Context, pipeline interface{}, result interface{}) error
}

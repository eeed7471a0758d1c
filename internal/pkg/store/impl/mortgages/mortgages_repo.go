package mortgages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autosell-worker/internal/pkg/consts"
	mongodb "autosell-worker/internal/pkg/db/mongo"
	"autosell-worker/internal/pkg/log_messages"
	"autosell-worker/internal/pkg/logger"
	"autosell-worker/internal/pkg/store/models"
	"autosell-worker/internal/pkg/store/repository"
	"autosell-worker/internal/service/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	// ErrMortgageNotFound is returned when no document has the requested id.
	ErrMortgageNotFound = errors.New("mortgage not found")
	// ErrInvalidMortgageID is returned for ids that are not ObjectID hex strings.
	ErrInvalidMortgageID = errors.New("invalid mortgage id")
	// ErrNoMatchingMortgage is returned when a conditional write matched nothing,
	// meaning the document moved on to a state the write does not apply to.
	ErrNoMatchingMortgage = errors.New("no mortgage matched the update conditions")
)

type MortgageRepository struct {
	repo interfaces.MortgageStoreInterface
}

func NewMortgageRepository(client *mongodb.MongoClient) *MortgageRepository {
	collection := client.Database.Collection(consts.MortgageCollection)
	repo := repository.NewMongoRepository[models.Mortgage](collection)
	return &MortgageRepository{repo: repo}
}

func NewMortgageRepositoryWithInterface(repo interfaces.MortgageStoreInterface) *MortgageRepository {
	return &MortgageRepository{repo: repo}
}

func monitoredStatusFilter() bson.M {
	return bson.M{"$in": consts.MonitoredStatuses}
}

func (mr *MortgageRepository) GetMortgage(ctx context.Context, id string) (*models.Mortgage, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		logger.CtxWarn(ctx, log_messages.InvalidMortgageID, zap.String("loan_id", id))
		return nil, fmt.Errorf("%w: %s", ErrInvalidMortgageID, id)
	}

	mortgage, err := mr.repo.FindOne(ctx, bson.M{"_id": objectID}, options.FindOne())
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			logger.CtxWarn(ctx, "No mortgage found for id", zap.String("loan_id", id))
			return nil, fmt.Errorf("%w: %s", ErrMortgageNotFound, id)
		}
		logger.CtxError(ctx, log_messages.ErrorFetchingMortgage, err, zap.String("loan_id", id))
		return nil, err
	}

	return &mortgage, nil
}

// FindMonitoredMortgages returns every mortgage whose status is PENDING or PASTDUE.
func (mr *MortgageRepository) FindMonitoredMortgages(ctx context.Context) ([]models.Mortgage, error) {
	filter := bson.M{"repaymentStatus": monitoredStatusFilter()}

	mortgages, err := mr.repo.Find(ctx, filter)
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorFetchingMortgages, err)
		return nil, err
	}

	logger.CtxDebug(ctx, "Fetched monitored mortgages", zap.Int("count", len(mortgages)))
	return mortgages, nil
}

// FindWithDanglingIntent returns monitored mortgages that carry an autosell
// intent, i.e. a swap was started but never committed or aborted.
func (mr *MortgageRepository) FindWithDanglingIntent(ctx context.Context) ([]models.Mortgage, error) {
	filter := bson.M{
		"repaymentStatus":   monitoredStatusFilter(),
		"autoSellStartedAt": bson.M{"$exists": true},
	}

	mortgages, err := mr.repo.Find(ctx, filter)
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorFetchingMortgages, err)
		return nil, err
	}
	return mortgages, nil
}

func (mr *MortgageRepository) MarkPastDue(ctx context.Context, id primitive.ObjectID) error {
	filter := bson.M{
		"_id":             id,
		"repaymentStatus": consts.StatusPending,
	}
	update := bson.M{"$set": bson.M{"repaymentStatus": consts.StatusPastDue}}

	return mr.conditionalUpdate(ctx, id, filter, update)
}

// BeginAutosell records the autosell intent. It only applies to a monitored
// mortgage without an intent, which makes it the storage-side claim.
func (mr *MortgageRepository) BeginAutosell(
	ctx context.Context,
	id primitive.ObjectID,
	trigger string,
	startedAt time.Time,
) error {
	filter := bson.M{
		"_id":               id,
		"repaymentStatus":   monitoredStatusFilter(),
		"autoSellStartedAt": bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{
		"autoSellStartedAt": startedAt,
		"autoSellTrigger":   trigger,
	}}

	return mr.conditionalUpdate(ctx, id, filter, update)
}

// AbortAutosell clears an intent after a failed swap.
func (mr *MortgageRepository) AbortAutosell(ctx context.Context, id primitive.ObjectID) error {
	filter := bson.M{
		"_id":               id,
		"repaymentStatus":   monitoredStatusFilter(),
		"autoSellStartedAt": bson.M{"$exists": true},
	}
	update := bson.M{"$unset": bson.M{
		"autoSellStartedAt": "",
		"autoSellTrigger":   "",
	}}

	return mr.conditionalUpdate(ctx, id, filter, update)
}

// CompleteAutosell finalizes the liquidation in a single update.
func (mr *MortgageRepository) CompleteAutosell(
	ctx context.Context,
	id primitive.ObjectID,
	soldAt time.Time,
	txnHash string,
) error {
	filter := bson.M{
		"_id":               id,
		"repaymentStatus":   monitoredStatusFilter(),
		"autoSellStartedAt": bson.M{"$exists": true},
	}
	set := bson.M{
		"repaymentStatus": consts.StatusAutosold,
		"autoSoldAt":      soldAt,
	}
	if txnHash != "" {
		set["autoSoldTxn"] = txnHash
	}
	update := bson.M{
		"$set":   set,
		"$unset": bson.M{"autoSellStartedAt": ""},
	}

	return mr.conditionalUpdate(ctx, id, filter, update)
}

type statusCount struct {
	Status string `bson:"_id"`
	Count  int64  `bson:"count"`
}

func (mr *MortgageRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$repaymentStatus"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	var rows []statusCount
	if err := mr.repo.AggregateAll(ctx, pipeline, &rows); err != nil {
		logger.CtxError(ctx, log_messages.ErrorCountingMortgages, err)
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (mr *MortgageRepository) conditionalUpdate(
	ctx context.Context,
	id primitive.ObjectID,
	filter bson.M,
	update bson.M,
) error {
	matched, err := mr.repo.UpdateOne(ctx, filter, update)
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorUpdatingMortgage, err, zap.String("loan_id", id.Hex()))
		return err
	}
	if matched == 0 {
		return fmt.Errorf("%w: %s", ErrNoMatchingMortgage, id.Hex())
	}

	logger.CtxDebug(ctx, "Mortgage document updated", zap.String("loan_id", id.Hex()), zap.Any("update", update))
	return nil
}

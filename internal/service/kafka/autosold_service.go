package kafka

import (
	"context"
	"encoding/json"

	"autosell-worker/internal/pkg/logger"
	"autosell-worker/internal/pkg/models"
	"autosell-worker/internal/service/interfaces"

	"go.uber.org/zap"
)

// AutosoldEventService publishes liquidation outcomes to Kafka.
type AutosoldEventService struct {
	KafkaProducer interfaces.KafkaPublisherInterface
}

func NewAutosoldEventService(producer interfaces.KafkaPublisherInterface) *AutosoldEventService {
	return &AutosoldEventService{KafkaProducer: producer}
}

// PublishAutosold sends the event as JSON.
func (s *AutosoldEventService) PublishAutosold(ctx context.Context, event models.MortgageAutosoldEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		logger.CtxError(ctx, "Failed to encode autosold event", err, zap.String("loan_id", event.LoanID))
		return err
	}
	if err := s.KafkaProducer.Publish(ctx, data); err != nil {
		logger.CtxError(ctx, "Failed to publish autosold event to Kafka", err, zap.String("loan_id", event.LoanID))
		return err
	}
	logger.CtxInfo(ctx, "Successfully published autosold event to Kafka", zap.String("loan_id", event.LoanID))
	return nil
}

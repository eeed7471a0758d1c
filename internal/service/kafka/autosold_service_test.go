package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"autosell-worker/internal/pkg/consts"
	"autosell-worker/internal/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockKafkaProducer struct {
	PublishFunc func(ctx context.Context, data []byte) error
}

func (m *MockKafkaProducer) Publish(ctx context.Context, data []byte) error {
	return m.PublishFunc(ctx, data)
}

func TestPublishAutosold(t *testing.T) {
	ctx := context.Background()
	soldAt := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	event := models.MortgageAutosoldEvent{
		LoanID:          "65f000000000000000000001",
		CollateralToken: "0xtoken",
		Amount:          3.5,
		TxnHash:         "0xabc",
		Trigger:         consts.TriggerAuto,
		AutoSoldAt:      soldAt,
	}

	t.Run("successful publish", func(t *testing.T) {
		var payload []byte
		svc := NewAutosoldEventService(&MockKafkaProducer{
			PublishFunc: func(_ context.Context, data []byte) error {
				payload = data
				return nil
			},
		})

		require.NoError(t, svc.PublishAutosold(ctx, event))

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(payload, &decoded))
		assert.Equal(t, event.LoanID, decoded["loanId"])
		assert.Equal(t, "0xabc", decoded["txnHash"])
		assert.Equal(t, consts.TriggerAuto, decoded["trigger"])
	})

	t.Run("publish error", func(t *testing.T) {
		svc := NewAutosoldEventService(&MockKafkaProducer{
			PublishFunc: func(context.Context, []byte) error { return errors.New("publish failed") },
		})
		assert.Error(t, svc.PublishAutosold(ctx, event))
	})
}

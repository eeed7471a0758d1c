package autosell

import (
	"testing"
	"time"

	"autosell-worker/internal/pkg/consts"
	"autosell-worker/internal/pkg/store/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		dueAt      *time.Time
		expectPast bool
	}{
		{name: "pending and overdue", status: consts.StatusPending, dueAt: dueIn(-time.Hour), expectPast: true},
		{name: "pending due exactly now", status: consts.StatusPending, dueAt: dueIn(0), expectPast: true},
		{name: "pending not yet due", status: consts.StatusPending, dueAt: dueIn(time.Second)},
		{name: "missing due date is never due", status: consts.StatusPending, dueAt: nil},
		{name: "already past due", status: consts.StatusPastDue, dueAt: dueIn(-time.Hour)},
		{name: "autosold is terminal", status: consts.StatusAutosold, dueAt: dueIn(-time.Hour)},
		{name: "repaid is ignored", status: consts.StatusRepaid, dueAt: dueIn(-time.Hour)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			loan := models.Mortgage{ID: primitive.NewObjectID(), RepaymentStatus: tc.status, LoanDueAt: tc.dueAt}
			transition := Classify(loan, testNow)
			if !tc.expectPast {
				assert.Nil(t, transition)
				return
			}
			require.NotNil(t, transition)
			assert.Equal(t, loan.ID, transition.LoanID)
			assert.Equal(t, consts.StatusPending, transition.From)
			assert.Equal(t, consts.StatusPastDue, transition.To)
		})
	}
}

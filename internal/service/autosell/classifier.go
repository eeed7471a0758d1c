package autosell

import (
	"time"

	"autosell-worker/internal/pkg/consts"
	"autosell-worker/internal/pkg/store/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// neverDue stands in for a missing due date.
var neverDue = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

type StatusTransition struct {
	LoanID primitive.ObjectID
	From   string
	To     string
}

// Classify returns the PENDING to PASTDUE transition once the due date has
// passed, or nil. It performs no I/O.
func Classify(loan models.Mortgage, now time.Time) *StatusTransition {
	if loan.RepaymentStatus != consts.StatusPending {
		return nil
	}

	dueAt := neverDue
	if loan.LoanDueAt != nil {
		dueAt = *loan.LoanDueAt
	}
	if now.Before(dueAt) {
		return nil
	}

	return &StatusTransition{
		LoanID: loan.ID,
		From:   consts.StatusPending,
		To:     consts.StatusPastDue,
	}
}

package models

import (
	"time"

	"autosell-worker/internal/pkg/consts"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mortgage is a collateralized loan document in the mortgages collection.
type Mortgage struct {
	ID                       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User                     string             `bson:"user,omitempty" json:"user,omitempty"`
	LoanAmount               float64            `bson:"loanAmount,omitempty" json:"loanAmount,omitempty"`
	CollateralToken          string             `bson:"collateralToken" json:"collateralToken"`
	CollateralAmount         float64            `bson:"collateralAmount" json:"collateralAmount"`
	CollateralUsdPriceAtLoan float64            `bson:"collateralUsdPriceAtLoan" json:"collateralUsdPriceAtLoan"`
	LoanDueAt                *time.Time         `bson:"loanDueAt,omitempty" json:"loanDueAt,omitempty"`
	RepaymentStatus          string             `bson:"repaymentStatus" json:"repaymentStatus"`
	AutoSoldAt               *time.Time         `bson:"autoSoldAt,omitempty" json:"autoSoldAt,omitempty"`
	AutoSoldTxn              string             `bson:"autoSoldTxn,omitempty" json:"autoSoldTxn,omitempty"`
	AutoSellStartedAt        *time.Time         `bson:"autoSellStartedAt,omitempty" json:"autoSellStartedAt,omitempty"`
	AutoSellTrigger          string             `bson:"autoSellTrigger,omitempty" json:"autoSellTrigger,omitempty"`
	CreatedAt                *time.Time         `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// IsMonitored reports whether the repayment status is one the worker watches.
func (m Mortgage) IsMonitored() bool {
	return m.RepaymentStatus == consts.StatusPending || m.RepaymentStatus == consts.StatusPastDue
}

// HasAutosellIntent reports whether an autosell was started and not yet finalized.
func (m Mortgage) HasAutosellIntent() bool {
	return m.AutoSellStartedAt != nil
}

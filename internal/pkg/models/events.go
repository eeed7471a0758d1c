package models

import "time"

// MortgageAutosoldEvent is published once a liquidation has been committed.
type MortgageAutosoldEvent struct {
	LoanID          string    `json:"loanId"`
	CollateralToken string    `json:"collateralToken"`
	Amount          float64   `json:"collateralAmount"`
	TxnHash         string    `json:"txnHash,omitempty"`
	Trigger         string    `json:"trigger"`
	AutoSoldAt      time.Time `json:"autoSoldAt"`
}

// Stats is the /stats payload.
type Stats struct {
	SchedulerState         string            `json:"schedulerState"`
	PendingLoans           int               `json:"pendingLoans"`
	PastDueLoans           int               `json:"pastDueLoans"`
	AwaitingReconciliation []string          `json:"awaitingReconciliation"`
	CountsByStatus         map[string]int64  `json:"countsByStatus,omitempty"`
	TokenPrices            map[string]string `json:"tokenPrices"`
	LastCycleAt            *time.Time        `json:"lastCycleAt,omitempty"`
	LastResyncAt           *time.Time        `json:"lastResyncAt,omitempty"`
	CyclesRun              int64             `json:"cyclesRun"`
}

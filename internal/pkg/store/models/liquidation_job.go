package models

import (
	"time"

	"autosell-worker/internal/pkg/consts"
)

// LiquidationJob tracks a manual liquidation request. Stored in Redis as JSON.
type LiquidationJob struct {
	JobID      string     `json:"jobId"`
	LoanID     string     `json:"loanId"`
	Status     string     `json:"status"`
	TxnHash    string     `json:"txnHash,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

func LiquidationJobKeyBuilder(jobID string) string {
	return consts.JobKeyPrefix + jobID
}

func ClaimKeyBuilder(loanID string) string {
	return consts.ClaimKeyPrefix + loanID
}

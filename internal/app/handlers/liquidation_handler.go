package handlers

import (
	"errors"
	"net/http"

	"autosell-worker/internal/pkg/logger"
	"autosell-worker/internal/pkg/store/impl/liquidation_jobs"
	"autosell-worker/internal/service/interfaces"
	"autosell-worker/internal/service/liquidation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LiquidateRequest struct {
	LoanID string `json:"loanId" binding:"required"`
}

type LiquidationHandler struct {
	service interfaces.LiquidationJobServiceInterface
	ready   func() bool
}

// NewLiquidationHandler wires the manual liquidation endpoints. Requests are
// refused until ready reports true.
func NewLiquidationHandler(service interfaces.LiquidationJobServiceInterface, ready func() bool) *LiquidationHandler {
	return &LiquidationHandler{
		service: service,
		ready:   ready,
	}
}

func (h *LiquidationHandler) Liquidate(c *gin.Context) {
	ctx := c.Request.Context()

	var req LiquidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be {\"loanId\": \"<id>\"}"})
		return
	}

	if !h.ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "autosell scheduler is not ready"})
		return
	}

	job, err := h.service.Submit(ctx, req.LoanID)
	if err != nil {
		if errors.Is(err, liquidation.ErrInvalidLoanID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.CtxError(ctx, "Failed to queue liquidation job", err, zap.String("loan_id", req.LoanID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue liquidation job"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"jobId":  job.JobID,
		"status": job.Status,
	})
}

func (h *LiquidationHandler) JobStatus(c *gin.Context) {
	jobID := c.Query("jobId")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "jobId query parameter is required"})
		return
	}

	job, err := h.service.Status(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, liquidation_jobs.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		logger.CtxError(c.Request.Context(), "Failed to read liquidation job", err, zap.String("job_id", jobID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read job status"})
		return
	}

	c.JSON(http.StatusOK, job)
}

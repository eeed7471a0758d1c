package handlers

import (
	"net/http"

	"autosell-worker/internal/service/interfaces"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	service interfaces.StatsServiceInterface
}

func NewStatsHandler(service interfaces.StatsServiceInterface) *StatsHandler {
	return &StatsHandler{service: service}
}

func (h *StatsHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.GetStats(c.Request.Context()))
}

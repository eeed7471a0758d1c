package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthCheckHandler struct{}

func NewHealthCheckHandler() *HealthCheckHandler {
	return &HealthCheckHandler{}
}

func (h *HealthCheckHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Health Check"})
}

func (h *HealthCheckHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Server is up"})
}

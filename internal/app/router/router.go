package router

import (
	"autosell-worker/internal/app/handlers"
	"autosell-worker/internal/app/middleware"
	"autosell-worker/internal/service/interfaces"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const HealthCheckPath = "/IntegrationServices/AutosellWorker/HealthCheck"

func SetupRouter(
	serviceName string,
	statsService interfaces.StatsServiceInterface,
	jobService interfaces.LiquidationJobServiceInterface,
	ready func() bool,
	gatherer prometheus.Gatherer,
) *gin.Engine {
	server := gin.Default()
	server.Use(otelgin.Middleware(serviceName))
	server.Use(middleware.TraceID())

	healthCheckHandler := handlers.NewHealthCheckHandler()
	server.GET(HealthCheckPath, healthCheckHandler.HealthCheck)
	server.GET("/ping", healthCheckHandler.Ping)

	statsHandler := handlers.NewStatsHandler(statsService)
	server.GET("/stats", statsHandler.Stats)

	liquidationHandler := handlers.NewLiquidationHandler(jobService, ready)
	server.POST("/liquidate", liquidationHandler.Liquidate)
	server.GET("/jobStatus", liquidationHandler.JobStatus)

	server.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return server
}

package cleanup

import (
	"context"
	"net/http"
	"time"

	"autosell-worker/internal/pkg/db/mongo"
	"autosell-worker/internal/pkg/db/redis"
	"autosell-worker/internal/pkg/log_messages"
	"autosell-worker/internal/pkg/logger"
)

// CleanupResources releases everything the worker opened, HTTP server first.
// Nil arguments are skipped.
func CleanupResources(
	ctx context.Context,
	server *http.Server,
	kafkaProducer interface{ Close() error },
	chainClient interface{ Close() },
	mongoClient *mongo.MongoClient,
	redisClient *redis.RedisClient,
	tracerShutdown func(context.Context) error,
) {
	logger.CtxInfo(ctx, log_messages.CleanupStarted)

	cleanupHTTPServer(server, ctx)
	cleanupKafkaResource(kafkaProducer, ctx)
	cleanupChainClient(chainClient, ctx)
	cleanupMongoResource(mongoClient, ctx)
	cleanupRedisResource(redisClient, ctx)
	cleanupTracer(tracerShutdown, ctx)

	logger.CtxInfo(ctx, log_messages.CleanupCompleted)
}

func cleanupHTTPServer(server *http.Server, ctx context.Context) {
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.CtxError(ctx, "Failed to shutdown HTTP server", err)
	} else {
		logger.CtxInfo(ctx, "HTTP server shutdown successfully")
	}
}

func cleanupKafkaResource(kafkaProducer interface{ Close() error }, ctx context.Context) {
	if kafkaProducer == nil {
		return
	}
	if err := kafkaProducer.Close(); err != nil {
		logger.CtxError(ctx, "Failed to close Kafka producer", err)
	} else {
		logger.CtxInfo(ctx, "Kafka producer closed successfully")
	}
}

func cleanupChainClient(chainClient interface{ Close() }, ctx context.Context) {
	if chainClient == nil {
		return
	}
	chainClient.Close()
	logger.CtxInfo(ctx, "Chain RPC client closed")
}

func cleanupMongoResource(mongoClient *mongo.MongoClient, ctx context.Context) {
	if mongoClient == nil || mongoClient.Client == nil {
		return
	}
	if err := mongo.Disconnect(mongoClient.Client); err != nil {
		logger.CtxError(ctx, "Failed to disconnect MongoDB client", err)
	} else {
		logger.CtxInfo(ctx, "MongoDB client disconnected successfully")
	}
}

func cleanupRedisResource(redisClient *redis.RedisClient, ctx context.Context) {
	if redisClient == nil || redisClient.Client == nil {
		return
	}
	if err := redis.Disconnect(redisClient.Client); err != nil {
		logger.CtxError(ctx, "Failed to close Redis client", err)
	} else {
		logger.CtxInfo(ctx, "Redis client closed successfully")
	}
}

func cleanupTracer(shutdown func(context.Context) error, ctx context.Context) {
	if shutdown == nil {
		return
	}
	if err := shutdown(ctx); err != nil {
		logger.CtxError(ctx, log_messages.TracerShutdownFailed, err)
	}
}

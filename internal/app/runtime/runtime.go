package runtime

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autosell-worker/internal/app/router"
	"autosell-worker/internal/pkg/chain"
	"autosell-worker/internal/pkg/cleanup"
	"autosell-worker/internal/pkg/config"
	"autosell-worker/internal/pkg/db/mongo"
	"autosell-worker/internal/pkg/db/redis"
	"autosell-worker/internal/pkg/downstream/dexscreener"
	"autosell-worker/internal/pkg/kafka"
	"autosell-worker/internal/pkg/log_messages"
	"autosell-worker/internal/pkg/logger"
	"autosell-worker/internal/pkg/metrics"
	"autosell-worker/internal/pkg/otel"
	"autosell-worker/internal/pkg/store/impl/claims"
	"autosell-worker/internal/pkg/store/impl/liquidation_jobs"
	"autosell-worker/internal/pkg/store/impl/mortgages"
	"autosell-worker/internal/pkg/store/repository"
	"autosell-worker/internal/service/autosell"
	"autosell-worker/internal/service/interfaces"
	servicekafka "autosell-worker/internal/service/kafka"
	"autosell-worker/internal/service/liquidation"
	"autosell-worker/internal/service/stats"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const shutdownGrace = 30 * time.Second

var (
	connectMongoDB = mongo.ConnectToMongoDB
	connectRedisDB = func(ctx context.Context, cfg config.RedisConfig) (*redis.RedisClient, error) {
		return redis.ConnectToRedis(ctx, cfg, nil)
	}
	newKafkaProducer = kafka.NewKafkaProducer
	dialChain        = chain.Dial
	setupTracing     = otel.Setup
)

// EventProducer is the Kafka side of the app: publish plus lifecycle.
type EventProducer interface {
	interfaces.KafkaPublisherInterface
	Close() error
}

// App encapsulates application resources and lifecycle.
type App struct {
	Cfg            *config.AppConfig
	MongoClient    *mongo.MongoClient
	RedisClient    *redis.RedisClient
	KafkaProducer  EventProducer
	ChainClient    *ethclient.Client
	Scheduler      *autosell.Scheduler
	JobService     *liquidation.JobService
	StatsService   *stats.StatsService
	Registry       *prometheus.Registry
	HTTPServer     *http.Server
	TracerShutdown func(context.Context) error

	schedulerStarted chan struct{}
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.LoadFromConfig()
	if err != nil {
		logger.CtxError(ctx, log_messages.FailedLoadingConfiguration, err)
		return nil, err
	}
	logger.Init(cfg.Logging.LogLevel)

	app := &App{Cfg: cfg}
	if err := app.connect(ctx); err != nil {
		app.Shutdown(ctx)
		return nil, err
	}
	if err := app.build(ctx); err != nil {
		app.Shutdown(ctx)
		return nil, err
	}
	return app, nil
}

func (a *App) connect(ctx context.Context) error {
	var err error
	cfg := a.Cfg

	a.TracerShutdown, err = setupTracing(ctx, cfg.Otel.ServiceName, cfg.Otel.CollectorURL)
	if err != nil {
		logger.CtxError(ctx, "Failed to set up tracing", err)
		return err
	}

	a.MongoClient, err = connectMongoDB(ctx, cfg.Mongo)
	if err != nil {
		logger.CtxError(ctx, "Failed to connect to MongoDB", err)
		return err
	}

	a.RedisClient, err = connectRedisDB(ctx, cfg.Redis)
	if err != nil {
		logger.CtxError(ctx, "Failed to connect to Redis", err)
		return err
	}

	if cfg.Kafka.Server == "" {
		logger.CtxWarn(ctx, log_messages.KafkaPublishingDisabled)
		a.KafkaProducer = kafka.NoopPublisher{}
	} else {
		producer, err := newKafkaProducer(cfg.Kafka)
		if err != nil {
			logger.CtxError(ctx, "Failure in Kafka producer creation", err)
			return err
		}
		a.KafkaProducer = producer
	}

	a.ChainClient, err = dialChain(ctx, cfg.Chain.RPCURL)
	if err != nil {
		logger.CtxError(ctx, "Failed to connect to chain RPC", err)
		return err
	}
	return nil
}

// build wires the autosell core on top of the connected clients.
func (a *App) build(ctx context.Context) error {
	cfg := a.Cfg

	swapper, err := chain.NewSwapExecutor(ctx, a.ChainClient, cfg.Chain)
	if err != nil {
		logger.CtxError(ctx, "Failed to create swap executor", err)
		return err
	}
	logger.CtxInfo(ctx, "Swap executor ready", zap.String("vault", swapper.VaultAddress().Hex()))

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(a.Registry)

	redisAdapter := repository.NewRedisStoreAdapter(a.RedisClient.Client)
	mortgageRepo := mortgages.NewMortgageRepository(a.MongoClient)
	claimRepo := claims.NewClaimRepository(redisAdapter)
	jobRepo := liquidation_jobs.NewLiquidationJobRepository(redisAdapter, cfg.Jobs.TTL)

	quotes := dexscreener.NewClient(cfg.Quote)
	events := servicekafka.NewAutosoldEventService(a.KafkaProducer)

	pending := autosell.NewPendingSet(mortgageRepo, m)
	prices := autosell.NewPriceCache(quotes, cfg.Quote.HTTPTimeout, m)
	engine := autosell.NewEngine(autosell.EngineConfig{
		SellThreshold:        cfg.Autosell.SellThreshold,
		TokensToNotLiquidate: cfg.Autosell.TokensToNotLiquidate,
		PriceMaxAge:          cfg.Autosell.PriceMaxAge,
		ClaimTTL:             cfg.Autosell.ClaimTTL,
		CommitMaxElapsed:     cfg.Autosell.CommitMaxElapsed,
	}, mortgageRepo, swapper, claimRepo, pending, events, m)

	a.Scheduler = autosell.NewScheduler(autosell.SchedulerConfig{
		CycleInterval:  cfg.Autosell.CycleInterval,
		ResyncInterval: cfg.Autosell.ResyncInterval,
		CycleTimeout:   cfg.Autosell.CycleTimeout,
	}, mortgageRepo, pending, prices, engine, m)

	a.JobService = liquidation.NewJobService(engine, jobRepo, cfg.Jobs.JobTimeout)
	a.StatsService = stats.NewStatsService(a.Scheduler, pending, prices, mortgageRepo, cfg.Autosell.ClaimTTL)
	return nil
}

// Run starts the scheduler and HTTP server, then blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	schedulerCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()

	a.schedulerStarted = make(chan struct{})
	go func() {
		defer close(a.schedulerStarted)
		if err := a.Scheduler.Start(schedulerCtx); err != nil {
			logger.CtxError(ctx, "Autosell scheduler failed to start", err)
		}
	}()

	engine := router.SetupRouter(a.Cfg.Otel.ServiceName, a.StatsService, a.JobService, a.Scheduler.Ready, a.Registry)
	a.HTTPServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.CtxError(ctx, log_messages.ServerStartFailure, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	stopScheduler()
	a.drain(ctx)
	a.Shutdown(ctx)
	logger.CtxInfo(ctx, log_messages.ServerExiting)
	return nil
}

// drain waits for the tickers and in-flight manual jobs, bounded by the grace period.
func (a *App) drain(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		if a.schedulerStarted != nil {
			<-a.schedulerStarted
		}
		a.Scheduler.Wait()
		a.JobService.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownGrace):
		logger.CtxWarn(ctx, "Shutdown grace period elapsed with work still in flight")
	}
}

// Shutdown gracefully closes all resources with bounded timeouts.
func (a *App) Shutdown(ctx context.Context) {
	var producer interface{ Close() error }
	if a.KafkaProducer != nil {
		producer = a.KafkaProducer
	}
	var chainClient interface{ Close() }
	if a.ChainClient != nil {
		chainClient = a.ChainClient
	}

	cleanup.CleanupResources(ctx,
		a.HTTPServer,
		producer,
		chainClient,
		a.MongoClient,
		a.RedisClient,
		a.TracerShutdown,
	)
	logger.Sync()
}

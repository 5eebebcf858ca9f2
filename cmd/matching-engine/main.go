package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	app "github.com/jvsteiner/orderlib/internal/app/engine"
	matchpublisher "github.com/jvsteiner/orderlib/internal/usecase/match-publisher"
	orderreader "github.com/jvsteiner/orderlib/internal/usecase/order-reader"
	orderbook "github.com/jvsteiner/orderlib/internal/usecase/orderbook"
	snapshot "github.com/jvsteiner/orderlib/internal/usecase/snapshot"
	"github.com/jvsteiner/orderlib/pkg/config"
	"github.com/jvsteiner/orderlib/pkg/httplib/healthcheck"
	"github.com/jvsteiner/orderlib/pkg/logger"
	"github.com/jvsteiner/orderlib/pkg/redis"
)

var cfg *config.Config
var log *logger.Logger

func init() {
	var err error
	cfg = &config.Config{}
	err = config.Load(cfg)
	if err != nil {
		panic(err)
	}

	logger, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}

	log = logger
}

func main() {
	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	redisConfig := redis.DefaultConfig()
	redisConfig.Addrs = strings.Split(cfg.RedisConfig.Addrs, ",")
	redisConfig.Password = cfg.RedisConfig.Password
	redisConfig.Username = cfg.RedisConfig.Username
	redisConfig.DB = cfg.RedisConfig.DB
	// Initialize Redis client
	rclient := redis.NewClient(log, redisConfig)

	if err := rclient.Connect(ctx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "connect_redis",
		})
		return
	}

	// Initialize components
	ob := orderbook.NewOrderbook()
	oReader := orderreader.NewReader(cfg.KafkaConfig, log)
	snapshotStore := snapshot.NewSnapshotStore(rclient, cfg.Pair, log)
	matchPublisher := matchpublisher.NewPublisher(cfg.MatchPublisherConfig, log)
	engine := app.NewEngine(
		ob,
		oReader,
		snapshotStore,
		matchPublisher,
		log,
		cfg,
	)

	// Ops listener, health endpoint only
	opsServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: healthcheck.HealthCheck{}.Handler(http.NotFoundHandler()),
	}
	go func() {
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, logger.Field{
				Key:   "action",
				Value: "ops_listener",
			})
		}
	}()

	// Start the engine
	if err := engine.Start(ctx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "start_engine",
		})
		return
	}

	log.Info("Matching engine started successfully", logger.Field{
		Key:   "pair",
		Value: cfg.Pair,
	})

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info("Received shutdown signal", logger.Field{
		Key:   "signal",
		Value: sig.String(),
	})

	// Cancel the main context to signal shutdown
	cancel()

	// Create a timeout context for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the engine gracefully
	if err := engine.Stop(shutdownCtx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "stop_engine",
		})
	}

	if err := matchPublisher.Close(); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "close_match_publisher",
		})
	}

	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "stop_ops_listener",
		})
	}

	if err := rclient.Disconnect(shutdownCtx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "disconnect_redis",
		})
	}

	log.Info("Matching engine shutdown complete")
}

package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/Temutjin2k/ride-coordination/config"
	httpserver "github.com/Temutjin2k/ride-coordination/internal/adapter/http/server"
	"github.com/Temutjin2k/ride-coordination/internal/adapter/http/ws"
	kafkaadapter "github.com/Temutjin2k/ride-coordination/internal/adapter/kafka"
	pgadapter "github.com/Temutjin2k/ride-coordination/internal/adapter/postgres"
	rabbitadapter "github.com/Temutjin2k/ride-coordination/internal/adapter/rabbit"
	"github.com/Temutjin2k/ride-coordination/internal/adapter/redisgeo"
	"github.com/Temutjin2k/ride-coordination/internal/service/auth"
	"github.com/Temutjin2k/ride-coordination/internal/service/dispatch"
	"github.com/Temutjin2k/ride-coordination/internal/service/location"
	"github.com/Temutjin2k/ride-coordination/internal/service/ride"
	"github.com/Temutjin2k/ride-coordination/internal/service/sos"
	"github.com/Temutjin2k/ride-coordination/pkg/logger"
	wrap "github.com/Temutjin2k/ride-coordination/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-coordination/pkg/postgres"
	"github.com/Temutjin2k/ride-coordination/pkg/rabbit"
	"github.com/Temutjin2k/ride-coordination/pkg/roomhub"
	"github.com/Temutjin2k/ride-coordination/pkg/trm"
)

// App владеет всеми долгоживущими ресурсами координатора.
type App struct {
	cfg config.Config
	log logger.Logger

	db       *postgres.PostgreDB
	rabbitMQ *rabbit.RabbitMQ
	redis    *redis.Client
	samples  *kafkaadapter.SampleLog

	hub         *roomhub.Hub
	rideService *ride.Service
	api         *httpserver.API
}

func NewApplication(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	ctx = wrap.WithAction(ctx, "app_init")

	db, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	log.Info(ctx, "connected to postgres")

	rabbitMQ, err := rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Info(ctx, "connected to redis", "addr", cfg.Redis.Addr)

	samples := kafkaadapter.NewSampleLog(cfg.Kafka.BrokerList(), cfg.Kafka.Topic)

	// adapters
	rideRepo := pgadapter.NewRideRepo(db.Pool)
	sosRepo := pgadapter.NewSOSRepo(db.Pool)
	broker, err := rabbitadapter.NewEventBroker(rabbitMQ, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init event broker: %w", err)
	}
	driverIndex := redisgeo.New(redisClient, cfg.Dispatch.RadiusMeters, log)

	// realtime fan-out
	hub := roomhub.New(log)

	// services
	dispatcher := dispatch.NewRouter(driverIndex, hub, cfg.Dispatch.CandidateLimit, log)
	rideService := ride.NewService(rideRepo, hub, broker, dispatcher, log)
	locationPipeline := location.NewPipeline(hub, driverIndex, samples, log)
	sosService := sos.NewService(sosRepo, rideService, hub, broker, trm.New(db.Pool), cfg.SOS.DedupeWindow, log)
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret)

	gateway := ws.NewGateway(hub, rideService, locationPipeline, sosService, log)

	api, err := httpserver.New(cfg, rideService, sosService, driverIndex, gateway, tokens, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init http server: %w", err)
	}

	return &App{
		cfg:         cfg,
		log:         log,
		db:          db,
		rabbitMQ:    rabbitMQ,
		redis:       redisClient,
		samples:     samples,
		hub:         hub,
		rideService: rideService,
		api:         api,
	}, nil
}

// Run starts the coordinator and blocks until a shutdown signal or a fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	if err := a.rideService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start ride service: %w", err)
	}

	errCh := make(chan error, 1)
	a.api.Run(ctx, errCh)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		a.log.Error(ctx, "http server failed", err)
		a.Stop(ctx)
		return err
	case sig := <-shutdownCh:
		a.log.Info(ctx, "received shutdown signal", "signal", sig.String())
		a.Stop(ctx)
	}

	return nil
}

// Stop releases resources in reverse dependency order: stop accepting new
// work, drain pending effects, then close the connections underneath them.
func (a *App) Stop(ctx context.Context) {
	ctx = wrap.WithAction(ctx, "app_stop")

	if err := a.api.Stop(ctx); err != nil {
		a.log.Error(ctx, "failed to stop http server", err)
	}

	a.hub.Close(ctx)
	a.rideService.Stop(ctx)

	if err := a.samples.Close(); err != nil {
		a.log.Error(ctx, "failed to close kafka writer", err)
	}
	if err := a.redis.Close(); err != nil {
		a.log.Error(ctx, "failed to close redis client", err)
	}
	if err := a.rabbitMQ.Close(ctx); err != nil {
		a.log.Error(ctx, "failed to close rabbitmq connection", err)
	}
	a.db.Pool.Close()

	a.log.Info(ctx, "application stopped")
}

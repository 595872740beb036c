// Package app wires the dispatch core's dependencies into one running
// process: Postgres, Redis, RabbitMQ, the in-process websocket hub, the
// domain services, and the HTTP server, then owns their lifecycle.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/ridecore/dispatch/config"
	"github.com/ridecore/dispatch/internal/adapter/event"
	"github.com/ridecore/dispatch/internal/adapter/geo"
	"github.com/ridecore/dispatch/internal/adapter/http/handler"
	httpserver "github.com/ridecore/dispatch/internal/adapter/http/server"
	repo "github.com/ridecore/dispatch/internal/adapter/postgres"
	"github.com/ridecore/dispatch/internal/adapter/rabbit"
	"github.com/ridecore/dispatch/internal/service/acceptance"
	"github.com/ridecore/dispatch/internal/service/dispatch"
	"github.com/ridecore/dispatch/internal/service/driverstate"
	"github.com/ridecore/dispatch/internal/service/matching"
	"github.com/ridecore/dispatch/internal/service/presence"
	"github.com/ridecore/dispatch/internal/service/rideintake"
	"github.com/ridecore/dispatch/pkg/idempotency"
	"github.com/ridecore/dispatch/pkg/logger"
	postgres "github.com/ridecore/dispatch/pkg/postgres"
	rabbitmq "github.com/ridecore/dispatch/pkg/rabbit"
	"github.com/ridecore/dispatch/pkg/trm"
	ws "github.com/ridecore/dispatch/pkg/wsHub"
)

// App owns every long-lived resource the dispatch core holds: the DB
// pool, the Redis connection backing the spatial index, the RabbitMQ
// connection, and the HTTP server fronting all of it. There is no mode
// switch here — this core is one deployable unit, not a family of
// microservices sharing a config struct.
type App struct {
	postgresDB *postgres.PostgreDB
	redis      *redis.Client
	rabbitMQ   *rabbitmq.RabbitMQ
	httpServer *httpserver.API

	cfg config.Config
	log logger.Logger
}

// NewApplication constructs every adapter and service the dispatch core
// needs and wires them into a single HTTP server.
func NewApplication(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	postgresDB, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	rabbitClient, err := rabbitmq.New(ctx, cfg.RabbitMQ.GetDSN(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to setup rabbitmq: %w", err)
	}

	geoIndex := geo.NewRedisIndex(redisClient)
	if cfg.Redis.InitIndex {
		if err := geoIndex.Reset(ctx); err != nil {
			return nil, fmt.Errorf("failed to init spatial index: %w", err)
		}
	}

	driverRepo := repo.NewDriverRepo(postgresDB.Pool)
	rideRepo := repo.NewRideRepo(postgresDB.Pool)
	txManager := trm.New(postgresDB.Pool)

	eventBroker := rabbit.NewEventPublisher(rabbitClient, log)
	if err := eventBroker.EnsureExchange(); err != nil {
		return nil, fmt.Errorf("failed to declare event exchange: %w", err)
	}
	wsHub := ws.NewConnHub(log)
	publisher := event.New(eventBroker, wsHub, log)

	driverState := driverstate.New(driverRepo, geoIndex, log)
	matchingSvc := matching.New(geoIndex, driverRepo)
	dispatchCtrl := dispatch.New(matchingSvc, rideRepo, publisher, log)
	dispatchCtrl.SetRoundInterval(cfg.Dispatch.RoundInterval)
	acceptanceSvc := acceptance.New(rideRepo, driverRepo, driverState, dispatchCtrl, publisher, txManager, log)
	presenceSvc := presence.New(driverState, log)
	intakeSvc := rideintake.New(rideRepo, dispatchCtrl, log)
	idempotencyStore := idempotency.New(0)

	httpServer := httpserver.New(cfg, httpserver.Deps{
		Dispatch: handler.NewDispatch(driverState, matchingSvc, log),
		Ride:     handler.NewRide(rideRepo, driverRepo, intakeSvc, acceptanceSvc, idempotencyStore, log),
		Presence: handler.NewPresence(presenceSvc, cfg.Webhook.KeyName(), cfg.Webhook.KeySecret(), log),
		Socket:   handler.NewSocket(wsHub, log),
		Health:   handler.NewHealth("dispatch", log),
		Healthz:  handler.NewHealthz(postgresDB.Pool, redisClient, log),
	}, log)

	return &App{
		postgresDB: postgresDB,
		redis:      redisClient,
		rabbitMQ:   rabbitClient,
		httpServer: httpServer,
		cfg:        cfg,
		log:        log,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	a.httpServer.Run(ctx, errCh)

	defer a.close(ctx)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	a.log.Info(ctx, "dispatch core has been started")

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		a.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	}
}

func (a *App) close(ctx context.Context) {
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Warn(ctx, "failed to gracefully close http server", "error", err.Error())
		}
	}
	if a.rabbitMQ != nil {
		if err := a.rabbitMQ.Close(ctx); err != nil {
			a.log.Warn(ctx, "failed to close rabbitmq connection", "error", err.Error())
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn(ctx, "failed to close redis connection", "error", err.Error())
		}
	}
	if a.postgresDB != nil && a.postgresDB.Pool != nil {
		a.postgresDB.Pool.Close()
	}
	a.log.Info(ctx, "dispatch core closed")
}

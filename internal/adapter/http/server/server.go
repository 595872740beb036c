// Package server assembles the dispatch core's single HTTP API: one
// process, one mux, one port, serving driver-app, rider-app, webhook,
// realtime and operational routes behind the shared middleware chain.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ridecore/dispatch/config"
	"github.com/ridecore/dispatch/internal/adapter/http/handler"
	"github.com/ridecore/dispatch/internal/adapter/http/middleware"
	"github.com/ridecore/dispatch/pkg/logger"
	wrap "github.com/ridecore/dispatch/pkg/logger/wrapper"
)

const serverAddr = "%s:%s"

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *handlers
	m      *middleware.Middleware

	addr string
	log  logger.Logger
}

type handlers struct {
	dispatch *handler.Dispatch
	ride     *handler.Ride
	presence *handler.Presence
	socket   *handler.Socket
	health   *handler.Health
	healthz  *handler.Healthz
}

// Deps bundles everything the server needs to construct its handlers.
// It is built by the caller once Postgres/Redis/RabbitMQ/the dispatch
// core are already wired.
type Deps struct {
	Dispatch *handler.Dispatch
	Ride     *handler.Ride
	Presence *handler.Presence
	Socket   *handler.Socket
	Health   *handler.Health
	Healthz  *handler.Healthz
}

func New(cfg config.Config, deps Deps, log logger.Logger) *API {
	addr := fmt.Sprintf(serverAddr, "0.0.0.0", cfg.HTTP.Port)

	api := &API{
		mux: http.NewServeMux(),
		routes: &handlers{
			dispatch: deps.Dispatch,
			ride:     deps.Ride,
			presence: deps.Presence,
			socket:   deps.Socket,
			health:   deps.Health,
			healthz:  deps.Healthz,
		},
		m:    middleware.NewMiddleware(cfg.Auth.JWTSecret, log),
		addr: addr,
		log:  log,
	}

	api.server = &http.Server{
		Addr:    api.addr,
		Handler: api.mux,
	}

	setupRoutes(api.mux, api.routes, api.m)

	return api
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		a.server.Handler = a.withMiddleware()
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

// withMiddleware applies the shared chain to every route: request id
// first so downstream logs carry it, then access logging, metrics,
// panic recovery, and finally auth (which only rejects on a malformed
// token — anonymous falls through so the signed webhook and health
// routes keep working without a bearer token).
func (a *API) withMiddleware() http.Handler {
	return a.m.RequestID(a.m.Logging(a.m.Metrics("dispatch")(a.m.Recover(a.m.Auth(a.mux)))))
}

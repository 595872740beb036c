package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/ridecore/dispatch/internal/adapter/http/middleware"
	"github.com/ridecore/dispatch/internal/domain/types"
)

// setupRoutes wires every route this core exposes: system health,
// swagger, metrics, the driver-app dispatch surface, the rider-app ride
// surface, the realtime push socket, and the signed presence webhook.
func setupRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.HandleFunc("GET /health", routes.health.HealthCheck)
	mux.HandleFunc("GET /healthz", routes.healthz.Check)

	mux.Handle("/swagger/", httpSwagger.Handler())
	mux.Handle("/metrics", promhttp.Handler())

	setupDispatchRoutes(mux, routes, m)
	setupRideRoutes(mux, routes, m)
	setupRealtimeRoutes(mux, routes)
	setupWebhookRoutes(mux, routes)
}

// setupDispatchRoutes serves the driver app's own availability,
// location and nearby-search surface.
func setupDispatchRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("GET /dispatch/status", m.RequireRoles(routes.dispatch.GetStatus, types.RoleDriver))
	mux.Handle("PATCH /dispatch/status", m.RequireRoles(routes.dispatch.SetStatus, types.RoleDriver))
	mux.Handle("POST /dispatch/location", m.RequireRoles(routes.dispatch.UpdateLocation, types.RoleDriver))
	mux.Handle("GET /dispatch/nearby", m.RequireRoles(routes.dispatch.Nearby, types.RoleDriver))
}

// setupRideRoutes serves the rider app's ride lifecycle plus the
// driver-facing accept/skip/cancel actions on an offered ride.
func setupRideRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("POST /rides", m.RequireRoles(routes.ride.Create, types.RolePassenger))
	mux.Handle("GET /rides/{ride_id}/status", m.RequireRoles(routes.ride.Status, types.RolePassenger, types.RoleDriver))
	mux.Handle("POST /rides/{ride_id}/accept", m.RequireRoles(routes.ride.Accept, types.RoleDriver))
	mux.Handle("POST /rides/{ride_id}/skip", m.RequireRoles(routes.ride.Skip, types.RoleDriver))
	mux.Handle("POST /rides/{ride_id}/cancel", m.RequireRoles(routes.ride.Cancel, types.RolePassenger, types.RoleDriver))
}

// setupRealtimeRoutes serves the push-notification websocket shared by
// both apps; Connect itself decides rider vs driver channel from the
// authenticated caller.
func setupRealtimeRoutes(mux *http.ServeMux, routes *handlers) {
	mux.HandleFunc("GET /ws", routes.socket.Connect)
}

// setupWebhookRoutes serves the inbound Ably presence webhook, which
// authenticates by HMAC signature rather than the bearer-token chain.
func setupWebhookRoutes(mux *http.ServeMux, routes *handlers) {
	mux.HandleFunc("POST /webhooks/ably/presence", routes.presence.Webhook)
}

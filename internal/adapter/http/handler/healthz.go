package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ridecore/dispatch/pkg/logger"
	wrap "github.com/ridecore/dispatch/pkg/logger/wrapper"
)

// Healthz is a readiness endpoint reporting Postgres and Redis
// reachability independently, so an orchestrator can tell "up but not
// ready" apart from "down".
type Healthz struct {
	db    *pgxpool.Pool
	redis *redis.Client
	log   logger.Logger
}

func NewHealthz(db *pgxpool.Pool, rdb *redis.Client, log logger.Logger) *Healthz {
	return &Healthz{db: db, redis: rdb, log: log}
}

// Check godoc
// @Summary      Readiness check
// @Description  Reports Postgres and Redis reachability
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      503  {object}  map[string]any
// @Router       /healthz [get]
func (h *Healthz) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "readiness_check")

	deps := map[string]string{}
	ready := true

	if err := h.db.Ping(ctx); err != nil {
		deps["postgres"] = "unreachable"
		ready = false
		h.log.Warn(ctx, "readiness check: postgres unreachable", "err", err.Error())
	} else {
		deps["postgres"] = "ok"
	}

	if err := h.redis.Ping(ctx).Err(); err != nil {
		deps["redis"] = "unreachable"
		ready = false
		h.log.Warn(ctx, "readiness check: redis unreachable", "err", err.Error())
	} else {
		deps["redis"] = "ok"
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, envelope{"ready": ready, "dependencies": deps}, nil)
}

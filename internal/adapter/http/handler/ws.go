package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ridecore/dispatch/internal/domain/models"
	"github.com/ridecore/dispatch/internal/domain/types"
	"github.com/ridecore/dispatch/pkg/logger"
	ws "github.com/ridecore/dispatch/pkg/wsHub"
)

const (
	wsHeartbeatInterval = 30 * time.Second
	wsHeartbeatTimeout  = 90 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Mobile clients connect directly, not from a browser origin; the
	// bearer token already authenticates the socket.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Socket upgrades an authenticated request to a websocket and registers
// it with the connection hub under the caller's own channel(s), so
// the rest of the service can push ride/offer events without the
// client polling.
type Socket struct {
	hub *ws.ConnectionHub
	log logger.Logger
}

func NewSocket(hub *ws.ConnectionHub, log logger.Logger) *Socket {
	return &Socket{hub: hub, log: log}
}

// Connect godoc
// @Summary      Open a push-notification websocket
// @Description  Registers the caller under its rider or driver private channel
// @Tags         Realtime
// @Router       /ws [get]
func (h *Socket) Connect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := models.UserFromContext(ctx)
	if user.IsAnonymous() {
		errorResponse(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var channel string
	switch user.Role {
	case types.RolePassenger:
		channel = models.RiderChannel(user.UserID)
	case types.RoleDriver:
		channel = models.DriverPrivateChannel(user.UserID)
	default:
		errorResponse(w, http.StatusForbidden, "unsupported role for realtime channel")
		return
	}

	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(ctx, "websocket upgrade failed", "err", err.Error())
		return
	}

	conn := ws.NewConn(r.Context(), raw, h.log)
	h.hub.Register(channel, conn)
	h.log.Info(ctx, "websocket connected", "channel", channel, "conn_id", conn.ID())

	go conn.HeartbeatLoop(wsHeartbeatTimeout, wsHeartbeatInterval)

	// Listen blocks until the client disconnects; this service only
	// pushes, so inbound frames are drained and discarded.
	_ = conn.Listen()
	h.hub.Remove(conn.ID())
}

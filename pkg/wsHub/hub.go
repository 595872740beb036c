// Package ws is a generic websocket connection hub: connections
// register under named channels, and a publish broadcasts a message to
// every connection currently registered under that name. Adapted from
// an entity-id-keyed hub into a channel-name-keyed one (SendTo one
// entity -> Broadcast to every subscriber of a channel), following the
// per-ride subscriber-set shape of
// kcbsilva-TurboDriver/backend/internal/dispatch/hub.go.
package ws

import (
	"context"
	"sync"
	"time"

	"github.com/ridecore/dispatch/pkg/logger"
	"github.com/ridecore/dispatch/pkg/uuid"
)

// ConnectionHub fans a named-channel broadcast out to every connection
// currently subscribed to it. A single Conn may be registered under
// several channels (e.g. a driver app open on both its private channel
// and a ride-status channel).
type ConnectionHub struct {
	mu       sync.RWMutex
	channels map[string]map[uuid.UUID]*Conn
	conns    map[uuid.UUID]*Conn

	l logger.Logger
}

func NewConnHub(l logger.Logger) *ConnectionHub {
	return &ConnectionHub{
		channels: make(map[string]map[uuid.UUID]*Conn),
		conns:    make(map[uuid.UUID]*Conn),
		l:        l,
	}
}

// Register subscribes conn to channel, tracking the connection in the
// hub's registry on first sight.
func (h *ConnectionHub) Register(channel string, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[conn.id] = conn
	set, ok := h.channels[channel]
	if !ok {
		set = make(map[uuid.UUID]*Conn)
		h.channels[channel] = set
	}
	set[conn.id] = conn
}

// Unregister drops conn from channel only; the connection itself stays
// open and registered under any other channel.
func (h *ConnectionHub) Unregister(channel string, connID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.channels[channel]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(h.channels, channel)
		}
	}
}

// Remove closes and fully forgets a connection, across every channel
// it was registered under.
func (h *ConnectionHub) Remove(connID uuid.UUID) {
	h.mu.Lock()
	conn, ok := h.conns[connID]
	if ok {
		delete(h.conns, connID)
		for channel, set := range h.channels {
			delete(set, connID)
			if len(set) == 0 {
				delete(h.channels, channel)
			}
		}
	}
	h.mu.Unlock()

	if ok {
		if err := conn.Close(); err != nil {
			h.l.Warn(context.Background(), "failed to close conn", "conn_id", connID, "err", err.Error())
		}
	}
}

// Broadcast sends msg to every connection registered under channel.
// Returns the number of recipients; zero recipients is not an error —
// it just means nobody is currently connected to that channel.
func (h *ConnectionHub) Broadcast(channel string, msg any) int {
	h.mu.RLock()
	set := h.channels[channel]
	recipients := make([]*Conn, 0, len(set))
	for _, c := range set {
		recipients = append(recipients, c)
	}
	h.mu.RUnlock()

	for _, c := range recipients {
		if err := c.Send(msg); err != nil {
			h.l.Warn(context.Background(), "failed to send to subscriber, dropping connection", "conn_id", c.id, "channel", channel, "err", err.Error())
			h.Remove(c.id)
		}
	}
	return len(recipients)
}

func (h *ConnectionHub) Close() {
	h.mu.Lock()
	ids := make([]uuid.UUID, 0, len(h.conns))
	for id := range h.conns {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	for _, id := range ids {
		h.Remove(id)
	}
}

// HealthLoop periodically drops connections that have gone idle past
// the heartbeat timeout.
func (h *ConnectionHub) HealthLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.l.Info(ctx, "health loop stopped")
			return
		case <-ticker.C:
			h.mu.RLock()
			ids := make([]uuid.UUID, 0, len(h.conns))
			conns := make([]*Conn, 0, len(h.conns))
			for id, c := range h.conns {
				ids = append(ids, id)
				conns = append(conns, c)
			}
			h.mu.RUnlock()

			for i, c := range conns {
				if err := c.Health(); err != nil {
					h.l.Warn(ctx, "dead connection", "conn_id", ids[i], "err", err.Error())
					h.Remove(ids[i])
				}
			}
		}
	}
}

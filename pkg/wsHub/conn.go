package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ridecore/dispatch/pkg/logger"
	"github.com/ridecore/dispatch/pkg/uuid"
)

var ErrListenTimeout = errors.New("listen timeout")

// idleTimeout is how long a connection may go without a pong before
// HealthLoop considers it dead.
const idleTimeout = 90 * time.Second

// Conn is one websocket connection, registered under zero or more
// channel names in a ConnectionHub.
type Conn struct {
	id       uuid.UUID
	conn     *websocket.Conn
	lastPong time.Time

	once   sync.Once
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	l      logger.Logger
}

func NewConn(parent context.Context, conn *websocket.Conn, l logger.Logger) *Conn {
	id, _ := uuid.New()
	ctx, cancel := context.WithCancel(parent)

	c := &Conn{
		id:       id,
		conn:     conn,
		lastPong: time.Now(),
		ctx:      ctx,
		cancel:   cancel,
		l:        l,
	}

	c.conn.SetPongHandler(func(_ string) error {
		c.mu.Lock()
		c.lastPong = time.Now()
		c.mu.Unlock()
		return nil
	})

	return c
}

func (c *Conn) ID() uuid.UUID { return c.id }

// HeartbeatLoop pings on interval and closes the connection once it
// has been idle past timeout.
func (c *Conn) HeartbeatLoop(timeout, interval time.Duration) error {
	c.l.Debug(c.ctx, "starting heartbeat loop", "conn_id", c.id, "timeout", timeout.String(), "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := c.sendPing(); err != nil {
		c.l.Error(c.ctx, "failed to send initial ping", err, "conn_id", c.id)
		return c.Close()
	}

mainLoop:
	for {
		select {
		case <-c.ctx.Done():
			c.l.Debug(c.ctx, "heartbeat loop stopped", "conn_id", c.id)
			break mainLoop
		case <-ticker.C:
			if c.isIdle(timeout) {
				c.l.Warn(c.ctx, "connection idle too long, closing", "idle_for", time.Since(c.lastPong).String(), "conn_id", c.id)
				break mainLoop
			}
			if err := c.sendPing(); err != nil {
				c.l.Error(c.ctx, "failed to send ping", err, "conn_id", c.id)
				return c.Close()
			}
		}
	}
	return c.Close()
}

func (c *Conn) sendPing() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(5 * time.Second)
	if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		return c.conn.WriteMessage(websocket.PingMessage, nil)
	}
	return nil
}

// Listen drains inbound frames so the read side stays serviced (gorilla
// requires it for control frames/close detection); this service has no
// use for client-sent payloads, so they are discarded.
func (c *Conn) Listen() error {
	c.l.Debug(c.ctx, "start listening", "conn_id", c.id)

mainLoop:
	for {
		select {
		case <-c.ctx.Done():
			break mainLoop
		default:
			if _, _, err := c.conn.ReadMessage(); err != nil {
				if websocket.IsCloseError(err,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure) ||
					errors.Is(err, net.ErrClosed) ||
					errors.Is(err, io.EOF) {
					c.l.Info(c.ctx, "websocket closed", "conn_id", c.id)
					break mainLoop
				}
				c.l.Error(c.ctx, "failed to read ws message", err, "conn_id", c.id)
				continue
			}
			c.mu.Lock()
			c.lastPong = time.Now()
			c.mu.Unlock()
		}
	}
	return c.Close()
}

// Health reports an error if the connection has gone idle past the
// hub's health-check threshold.
func (c *Conn) Health() error {
	if c.isIdle(idleTimeout) {
		return fmt.Errorf("connection idle for %s", time.Since(c.lastPong))
	}
	return nil
}

func (c *Conn) isIdle(timeout time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastPong) > timeout
}

func (c *Conn) Send(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.l.Debug(c.ctx, "closing connection", "conn_id", c.id)

		if c.cancel != nil {
			c.cancel()
		}
		if c.conn != nil {
			if e := c.conn.Close(); e != nil {
				err = fmt.Errorf("failed to close websocket: %w", e)
			}
			c.conn = nil
		}
	})
	return err
}

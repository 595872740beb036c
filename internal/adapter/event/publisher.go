// Package event implements ports.EventPublisher as the dual delivery
// path described in the design notes: every event is published to the
// durable broker unconditionally, and also broadcast immediately to any
// locally-connected websocket subscriber of that channel so a connected
// client does not wait on broker round-trip latency.
package event

import (
	"context"

	"github.com/ridecore/dispatch/internal/domain/types"
	"github.com/ridecore/dispatch/pkg/logger"
	wrap "github.com/ridecore/dispatch/pkg/logger/wrapper"
	ws "github.com/ridecore/dispatch/pkg/wsHub"
)

// Broker is the durable leg of the publisher; satisfied by
// internal/adapter/rabbit.EventPublisher.
type Broker interface {
	Publish(ctx context.Context, channel string, event types.EventName, payload any) error
}

type Publisher struct {
	broker Broker
	hub    *ws.ConnectionHub
	log    logger.Logger
}

func New(broker Broker, hub *ws.ConnectionHub, log logger.Logger) *Publisher {
	return &Publisher{broker: broker, hub: hub, log: log}
}

type frame struct {
	Event types.EventName `json:"event"`
	Data  any             `json:"data"`
}

// Publish always attempts the broker publish; the websocket broadcast
// is pure best-effort local delivery on top of it. Only the broker leg
// can fail this call: failures are logged, never bubbled into
// the dispatch round itself (every caller already treats a non-nil
// return as log-and-continue).
func (p *Publisher) Publish(ctx context.Context, channel string, event types.EventName, payload any) error {
	n := p.hub.Broadcast(channel, frame{Event: event, Data: payload})
	p.log.Debug(ctx, "broadcast event to local subscribers", "channel", channel, "event", string(event), "recipients", n)

	if err := p.broker.Publish(ctx, channel, event, payload); err != nil {
		return wrap.Error(ctx, err)
	}
	return nil
}

package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp091 "github.com/rabbitmq/amqp091-go"

	"github.com/ridecore/dispatch/internal/domain/types"
	"github.com/ridecore/dispatch/pkg/logger"
	wrap "github.com/ridecore/dispatch/pkg/logger/wrapper"
	"github.com/ridecore/dispatch/pkg/rabbit"
)

// EventsExchange is the topic exchange every channel event is published
// to; the routing key is the channel name itself (e.g.
// "rider:<passengerId>", "driver:private:<userId>") so an external
// consumer can bind on whatever slice of channels it cares about.
const EventsExchange = "dispatch.events"

// EventPublisher implements ports.EventPublisher against RabbitMQ. It
// is one of two legs of the composite publisher
// (internal/adapter/event.Publisher); this leg always fires so a
// consumer with no open websocket still receives the event.
type EventPublisher struct {
	client *rabbit.RabbitMQ
	l      logger.Logger
}

func NewEventPublisher(client *rabbit.RabbitMQ, log logger.Logger) *EventPublisher {
	return &EventPublisher{client: client, l: log}
}

// EnsureExchange declares the topic exchange. Idempotent; call once at
// startup.
func (p *EventPublisher) EnsureExchange() error {
	return p.client.Channel.ExchangeDeclare(EventsExchange, "topic", true, false, false, false, nil)
}

type envelope struct {
	Event   types.EventName `json:"event"`
	Channel string          `json:"channel"`
	Data    any             `json:"data"`
}

// Publish marshals {event, channel, data} and publishes it to
// EventsExchange with the channel name as routing key. Never blocks on
// an ack; publish failures are wrapped and returned so the composite
// publisher can log them, but they never abort the caller's round.
func (p *EventPublisher) Publish(ctx context.Context, channel string, event types.EventName, payload any) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_publish_event")

	if p.client.IsConnectionClosed() {
		return wrap.Error(ctx, fmt.Errorf("rabbitmq connection closed"))
	}

	body, err := json.Marshal(envelope{Event: event, Channel: channel, Data: payload})
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("marshal event: %w", err))
	}

	if err := retry(3, 200*time.Millisecond, func() error {
		return p.client.Channel.PublishWithContext(
			ctx,
			EventsExchange,
			channel,
			false,
			false,
			amqp091.Publishing{
				ContentType: "application/json",
				Body:        body,
				Timestamp:   time.Now(),
			},
		)
	}); err != nil {
		return wrap.Error(ctx, fmt.Errorf("publish event: %w", err))
	}

	return nil
}

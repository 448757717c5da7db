package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/scheduling-api/pkg/logger"
)

// Dispatcher decodes envelopes from a broker subscription and routes them by type.
type Dispatcher struct {
	broker   Broker
	handlers map[string]Handler
	logger   *logger.Logger
}

func NewDispatcher(broker Broker, logger *logger.Logger) *Dispatcher {
	return &Dispatcher{
		broker:   broker,
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// On registers h for messages of eventType. Not safe to call once Run has started.
func (d *Dispatcher) On(eventType string, h Handler) {
	d.handlers[eventType] = h
}

// Run consumes channel until ctx is done. Handler errors are logged and the message is
// dropped; redelivery is the outbox's job, not the subscriber's.
func (d *Dispatcher) Run(ctx context.Context, channel string) error {
	msgs, err := d.broker.Subscribe(ctx, channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	return d.Consume(ctx, msgs)
}

// Consume dispatches from an existing subscription until it is closed.
func (d *Dispatcher) Consume(ctx context.Context, msgs <-chan []byte) error {
	for raw := range msgs {
		d.Dispatch(ctx, raw)
	}
	return ctx.Err()
}

// Dispatch handles a single raw payload.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.logger.Error(err, "Failed to decode message")
		return
	}
	h, ok := d.handlers[msg.Type]
	if !ok {
		d.logger.Debug("No handler for message", "event_type", msg.Type)
		return
	}
	if err := h(ctx, msg); err != nil {
		d.logger.Error(err, "Failed to handle message",
			"event_id", msg.ID,
			"event_type", msg.Type)
	}
}

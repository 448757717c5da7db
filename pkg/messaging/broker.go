package messaging

import (
	"context"
	"encoding/json"
	"time"
)

// DefaultChannel carries every appointment lifecycle event.
const DefaultChannel = "scheduling.events"

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe delivers raw payloads until ctx is cancelled, then closes the channel.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Message is the envelope published for every outbox event.
type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Handler processes one decoded message.
type Handler func(ctx context.Context, msg Message) error

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/pkg/logger"
)

func TestMemoryBroker_FanOut(t *testing.T) {
	b := NewMemoryBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := b.Subscribe(ctx, "c")
	require.NoError(t, err)
	second, err := b.Subscribe(ctx, "c")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "c", []byte("hello")))
	require.NoError(t, b.Publish(ctx, "other", []byte("ignored")))

	assert.Equal(t, []byte("hello"), <-first)
	assert.Equal(t, []byte("hello"), <-second)

	cancel()
	select {
	case _, open := <-first:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after cancel")
	}
}

func TestMemoryBroker_Closed(t *testing.T) {
	b := NewMemoryBroker()
	require.NoError(t, b.Close())

	assert.ErrorIs(t, b.Publish(context.Background(), "c", nil), ErrClosed)
	_, err := b.Subscribe(context.Background(), "c")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDispatcher_RoutesByType(t *testing.T) {
	b := NewMemoryBroker()
	d := NewDispatcher(b, logger.Nop())

	var mu sync.Mutex
	var got []string
	d.On("appointment.booked", func(_ context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, msg.ID)
		return nil
	})
	d.On("appointment.cancelled", func(context.Context, Message) error {
		return errors.New("smtp down")
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, "events") }()

	publish := func(id, typ string) {
		raw, err := json.Marshal(Message{ID: id, Type: typ, Payload: json.RawMessage(`{}`)})
		require.NoError(t, err)
		require.NoError(t, b.Publish(context.Background(), "events", raw))
	}
	// Wait for the subscription before publishing.
	require.Eventually(t, func() bool {
		b.mu.RLock()
		defer b.mu.RUnlock()
		return len(b.subs["events"]) == 1
	}, time.Second, 5*time.Millisecond)

	publish("1", "appointment.cancelled")
	require.NoError(t, b.Publish(context.Background(), "events", []byte("not json")))
	publish("2", "appointment.unknown")
	publish("3", "appointment.booked")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"3"}, got)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

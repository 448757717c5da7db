package email

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/pkg/logger"
)

func TestNewMessage(t *testing.T) {
	m := NewMessage("clinic@example.com", []string{"alan@example.com", "grace@example.com"}, "Appointment booked", "See you Monday.")

	assert.Equal(t, []string{"clinic@example.com"}, m.GetHeader("From"))
	assert.Equal(t, []string{"alan@example.com", "grace@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Appointment booked"}, m.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "See you Monday.")
}

func TestSMTPService_CancelledContext(t *testing.T) {
	svc := NewSMTPService(SMTPConfig{Host: "localhost", Port: 2525, From: "clinic@example.com"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Send(ctx, []string{"alan@example.com"}, "s", "b")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLogService(t *testing.T) {
	assert.NoError(t, NewLogService(logger.Nop()).Send(context.Background(), []string{"a@example.com"}, "s", "b"))
}

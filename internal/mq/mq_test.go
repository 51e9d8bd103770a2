package mq

import (
	"context"
	"errors"
	"testing"

	"github.com/agriland/marketplace/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBackend struct {
	published []string
	closed    bool
}

func (b *recordingBackend) Publish(_ context.Context, channel string, data []byte, _ map[string]string) (string, error) {
	b.published = append(b.published, channel+":"+string(data))
	return "id-1", nil
}

func (b *recordingBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return handler(ctx, Message{ID: "id-1", Data: []byte(channel)})
}

func (b *recordingBackend) Close() error {
	b.closed = true
	return nil
}

func TestMQ_DelegatesToBackend(t *testing.T) {
	backend := &recordingBackend{}
	m := New(backend)
	ctx := context.Background()

	id, err := m.Publish(ctx, "listings", []byte(`{"type":"listing.created"}`), nil)
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)
	assert.Equal(t, []string{`listings:{"type":"listing.created"}`}, backend.published)

	handlerErr := errors.New("nack")
	err = m.Subscribe(ctx, "listings", func(_ context.Context, msg Message) error {
		assert.Equal(t, "listings", string(msg.Data))
		return handlerErr
	})
	assert.ErrorIs(t, err, handlerErr)

	require.NoError(t, m.Close())
	assert.True(t, backend.closed)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	m, err := Open(ctx, config.MQConfig{Backend: config.MQBackendNone})
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = Open(ctx, config.MQConfig{Backend: "kafka"})
	assert.Error(t, err)

	_, err = Open(ctx, config.MQConfig{Backend: config.MQBackendRabbitMQ})
	assert.ErrorContains(t, err, "rabbitmq url is required")

	_, err = Open(ctx, config.MQConfig{Backend: config.MQBackendPubSub})
	assert.ErrorContains(t, err, "pubsub project id is required")
}

func TestHeadersToAttributes(t *testing.T) {
	assert.Nil(t, headersToAttributes(nil))
	attrs := headersToAttributes(amqp.Table{
		"type":  "listing.deleted",
		"raw":   []byte("bytes"),
		"count": int32(3),
	})
	assert.Equal(t, map[string]string{"type": "listing.deleted", "raw": "bytes", "count": "3"}, attrs)
}

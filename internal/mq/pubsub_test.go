package mq

import (
	"context"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newFakePubSub(t *testing.T) (*PubSubBackend, *pstest.Server) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	client, err := pubsub.NewClient(context.Background(), "agriland-test", option.WithGRPCConn(conn))
	require.NoError(t, err)

	backend := newPubSubBackend(client, "")
	t.Cleanup(func() { _ = backend.Close() })
	return backend, srv
}

func TestNewPubSubMessage(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	attrs := map[string]string{"type": "listing.created", OrderingKeyAttribute: "a1"}

	msg := newPubSubMessage([]byte(`{}`), attrs, now)
	assert.Equal(t, "a1", msg.OrderingKey)
	assert.Equal(t, map[string]string{
		"type":               "listing.created",
		OrderingKeyAttribute: "a1",
		"content_type":       "application/json",
		"published_at":       "2026-03-01T05:00:00Z",
	}, msg.Attributes)
	assert.Len(t, attrs, 2)

	msg = newPubSubMessage([]byte("raw"), map[string]string{"content_type": "text/plain"}, now)
	assert.Empty(t, msg.OrderingKey)
	assert.Equal(t, "text/plain", msg.Attributes["content_type"])
}

func TestPubSubBackend_PublishOrdered(t *testing.T) {
	backend, srv := newFakePubSub(t)
	ctx := context.Background()

	for _, eventType := range []string{"listing.created", "listing.deleted"} {
		id, err := backend.Publish(ctx, "listings", []byte(eventType), map[string]string{
			"type":               eventType,
			OrderingKeyAttribute: "a1",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	}

	msgs := srv.Messages()
	require.Len(t, msgs, 2)
	for i, eventType := range []string{"listing.created", "listing.deleted"} {
		assert.Equal(t, eventType, string(msgs[i].Data))
		assert.Equal(t, "a1", msgs[i].OrderingKey)
		assert.Equal(t, "application/json", msgs[i].Attributes["content_type"])
		assert.NotEmpty(t, msgs[i].Attributes["published_at"])
	}

	_, err := backend.Publish(ctx, " ", nil, nil)
	assert.Error(t, err)
}

func TestPubSubBackend_Subscribe(t *testing.T) {
	backend, _ := newFakePubSub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	topic, err := backend.topic(ctx, "listings")
	require.NoError(t, err)
	_, err = backend.ensureSubscription(ctx, backend.subscriptionName("listings"), topic)
	require.NoError(t, err)

	_, err = backend.Publish(ctx, "listings", []byte(`{"listingId":"a1"}`), map[string]string{
		"type":               "listing.created",
		OrderingKeyAttribute: "a1",
	})
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		received []Message
	)
	err = backend.Subscribe(ctx, "listings", func(_ context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, msg)
		cancel()
		return nil
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, `{"listingId":"a1"}`, string(received[0].Data))
	assert.Equal(t, "listing.created", received[0].Attributes["type"])
}

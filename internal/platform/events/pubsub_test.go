package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/tailor-market/api/internal/services"
)

func newTestTopic(t *testing.T) (*pstest.Server, *pubsub.Topic) {
	t.Helper()
	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	topic, err := client.CreateTopic(ctx, "order-events")
	require.NoError(t, err)
	return srv, topic
}

func TestPubSubPublisherPublishesOrderEvent(t *testing.T) {
	srv, topic := newTestTopic(t)
	publisher, err := NewPubSubPublisher(topic)
	require.NoError(t, err)
	t.Cleanup(publisher.Stop)

	occurred := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	err = publisher.PublishOrderEvent(context.Background(), services.OrderEvent{
		Type:          "order.created",
		OrderID:       "ord_1",
		ClientID:      "client_1",
		DesignerID:    "designer_1",
		CurrentStatus: "PROCESSING",
		ActorID:       "client_1",
		OccurredAt:    occurred,
		Metadata:      map[string]any{"total": 10000},
	})
	require.NoError(t, err)

	messages := srv.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "ord_1", messages[0].OrderingKey)
	assert.Equal(t, map[string]string{"type": "order.created", "orderId": "ord_1", "status": "PROCESSING"}, messages[0].Attributes)

	var payload Message
	require.NoError(t, json.Unmarshal(messages[0].Data, &payload))
	assert.Equal(t, "order.created", payload.Type)
	assert.Equal(t, "designer_1", payload.DesignerID)
	assert.Equal(t, occurred, payload.OccurredAt)
	assert.Equal(t, float64(10000), payload.Metadata["total"])
}

func TestPubSubPublisherRejectsIncompleteEvent(t *testing.T) {
	srv, topic := newTestTopic(t)
	publisher, err := NewPubSubPublisher(topic)
	require.NoError(t, err)
	t.Cleanup(publisher.Stop)

	require.Error(t, publisher.PublishOrderEvent(context.Background(), services.OrderEvent{Type: "order.created"}))
	assert.Empty(t, srv.Messages())

	_, err = NewPubSubPublisher(nil)
	require.Error(t, err)
}

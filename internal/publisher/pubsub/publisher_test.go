package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/JakeFAU/devfeed-crawler/internal/publisher"
)

func newTestClient(t *testing.T) (*pubsub.Client, *pstest.Server) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	client, err := pubsub.NewClient(context.Background(), "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	return client, srv
}

func TestPublisher_Publish(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, srv := newTestClient(t)
	_, err := client.CreateTopic(ctx, "records")
	require.NoError(t, err)

	pub := New(client, nil)
	t.Cleanup(func() { _ = pub.Close() })

	id, err := pub.Publish(ctx, "records", publisher.RecordCreated{
		Event:  publisher.EventRecordCreated,
		Source: "jobs",
		ID:     "abc",
		Title:  "Backend Engineer",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, publisher.EventRecordCreated, msgs[0].Attributes["event"])

	var got publisher.RecordCreated
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	assert.Equal(t, "abc", got.ID)
	assert.Equal(t, "jobs", got.Source)
}

func TestPublisher_Unconfigured(t *testing.T) {
	t.Parallel()

	_, err := New(nil, nil).Publish(context.Background(), "records", "x")
	require.Error(t, err)
}

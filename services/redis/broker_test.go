package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DGISsoft/prodreport/models"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type captureRelay struct {
	mu   sync.Mutex
	got  []*models.Notification
	seen chan struct{}
}

func (c *captureRelay) Publish(_ context.Context, n *models.Notification) error {
	c.mu.Lock()
	c.got = append(c.got, n)
	c.mu.Unlock()
	c.seen <- struct{}{}
	return nil
}

func setupRedis(t *testing.T) Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestBroker_RelaysPublishedNotifications(t *testing.T) {
	client := setupRedis(t)
	relay := &captureRelay{seen: make(chan struct{}, 1)}
	broker := NewBroker(client, "", relay, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- broker.Run(ctx) }()

	select {
	case <-broker.Ready():
	case err := <-done:
		t.Fatalf("broker stopped early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("broker never subscribed")
	}

	reportID := primitive.NewObjectID()
	sent := &models.Notification{
		ID:             primitive.NewObjectID(),
		Title:          "Production report submitted",
		Type:           models.NotificationReportSubmitted,
		RecipientRoles: []models.UserRole{models.UserRoleAdmin},
		ReportID:       &reportID,
		CreatedAt:      time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, broker.Publish(ctx, sent))

	select {
	case <-relay.seen:
	case <-time.After(5 * time.Second):
		t.Fatal("notification was not relayed")
	}

	cancel()
	require.NoError(t, <-done)

	relay.mu.Lock()
	defer relay.mu.Unlock()
	require.Len(t, relay.got, 1)
	got := relay.got[0]
	assert.Equal(t, sent.ID, got.ID)
	assert.Equal(t, sent.Type, got.Type)
	assert.Equal(t, sent.RecipientRoles, got.RecipientRoles)
	require.NotNil(t, got.ReportID)
	assert.Equal(t, reportID, *got.ReportID)
	assert.True(t, sent.CreatedAt.Equal(got.CreatedAt))
}

func TestClient_Ping(t *testing.T) {
	client := setupRedis(t)
	assert.NoError(t, client.Ping(context.Background()))
}

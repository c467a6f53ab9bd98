package live

import (
	"context"
	"testing"

	"github.com/DGISsoft/prodreport/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func notification(roles ...models.UserRole) *models.Notification {
	return &models.Notification{ID: primitive.NewObjectID(), Title: "t", RecipientRoles: roles}
}

func TestHub_DeliversToMatchingSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop(), 4)
	admin := hub.Subscribe("u1", []models.UserRole{models.UserRoleAdmin})
	defer admin.Close()
	reporter := hub.Subscribe("u2", []models.UserRole{models.UserRoleReporter})
	defer reporter.Close()

	n := notification(models.UserRoleAdmin)
	require.NoError(t, hub.Publish(context.Background(), n))

	select {
	case got := <-admin.Events():
		assert.Equal(t, n.ID, got.ID)
	default:
		t.Fatal("admin subscriber did not receive the notification")
	}
	assert.Empty(t, reporter.Events())
}

func TestHub_AddressedByUserID(t *testing.T) {
	hub := NewHub(zap.NewNop(), 4)
	sub := hub.Subscribe("u2", []models.UserRole{models.UserRoleReporter})
	defer sub.Close()

	n := &models.Notification{ID: primitive.NewObjectID(), RecipientIDs: []string{"u2"}}
	require.NoError(t, hub.Publish(context.Background(), n))

	assert.Len(t, sub.Events(), 1)
}

func TestHub_DropsWhenBufferFull(t *testing.T) {
	hub := NewHub(zap.NewNop(), 1)
	sub := hub.Subscribe("u1", []models.UserRole{models.UserRoleAdmin})
	defer sub.Close()

	first := notification(models.UserRoleAdmin)
	require.NoError(t, hub.Publish(context.Background(), first))
	require.NoError(t, hub.Publish(context.Background(), notification(models.UserRoleAdmin)))

	got := <-sub.Events()
	assert.Equal(t, first.ID, got.ID)
	assert.Empty(t, sub.Events())
}

func TestHub_CloseIsIdempotent(t *testing.T) {
	hub := NewHub(zap.NewNop(), 1)
	sub := hub.Subscribe("u1", nil)
	assert.Equal(t, 1, hub.Count())

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, hub.Count())

	_, open := <-sub.Events()
	assert.False(t, open)

	require.NoError(t, hub.Publish(context.Background(), notification(models.UserRoleAdmin)))
}

func TestHub_CloseAll(t *testing.T) {
	hub := NewHub(zap.NewNop(), 1)
	a := hub.Subscribe("a", nil)
	b := hub.Subscribe("b", nil)

	done := make(chan struct{})
	go func() {
		for range a.Events() {
		}
		close(done)
	}()

	hub.Close()
	<-done
	_, open := <-b.Events()
	assert.False(t, open)
	assert.Equal(t, 0, hub.Count())
}

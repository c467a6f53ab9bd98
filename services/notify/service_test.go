package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DGISsoft/prodreport/models"
	"github.com/DGISsoft/prodreport/services/errs"
	"github.com/DGISsoft/prodreport/services/live"
	"github.com/DGISsoft/prodreport/services/memory"
	"github.com/DGISsoft/prodreport/services/push"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type failingSender struct {
	mu    sync.Mutex
	calls int
}

func (s *failingSender) Send(context.Context, *models.PushSubscription, []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return 0, errors.New("device unreachable")
}

type brokenStore struct {
	*memory.Store
}

func (brokenStore) CreateNotification(context.Context, *models.Notification) error {
	return errs.Storage(errors.New("connection refused"), "failed to create notification")
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, *models.Notification) error {
	return errors.New("redis down")
}

type ctxPusher struct {
	done chan error
}

func (p *ctxPusher) Deliver(ctx context.Context, _ *models.Notification) {
	p.done <- ctx.Err()
}

func submitted() models.NotificationEvent {
	reportID := primitive.NewObjectID()
	return models.NotificationEvent{
		Title:          "Production report submitted",
		Message:        "Ann submitted the production report for 2024-03-01",
		Type:           models.NotificationReportSubmitted,
		RecipientRoles: []models.UserRole{models.UserRoleAdmin},
		ReportID:       &reportID,
		ReporterName:   "Ann",
	}
}

func TestNotify_RequiresRecipients(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store, zap.NewNop())
	ctx := context.Background()

	ev := submitted()
	ev.RecipientRoles = nil
	ev.RecipientIDs = []string{" "}
	_, err := svc.Notify(ctx, ev)
	require.ErrorIs(t, err, errs.ErrValidation)

	all, err := store.ListNotifications(ctx, models.NotificationFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestNotify_RejectsUnknownRole(t *testing.T) {
	svc := NewService(memory.NewStore(), zap.NewNop())

	ev := submitted()
	ev.RecipientRoles = []models.UserRole{"supervisor"}
	_, err := svc.Notify(context.Background(), ev)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestNotify_PersistsWhenEveryPushFails(t *testing.T) {
	store := memory.NewStore()
	sender := &failingSender{}
	dispatcher := push.NewDispatcher(store, sender, zap.NewNop())
	ctx := context.Background()
	for _, endpoint := range []string{"https://push/1", "https://push/2"} {
		require.NoError(t, dispatcher.Subscribe(ctx, &models.PushSubscription{
			Endpoint: endpoint,
			Keys:     models.PushKeys{P256dh: "p", Auth: "a"},
			Roles:    []models.UserRole{models.UserRoleAdmin},
		}))
	}

	svc := NewService(store, zap.NewNop(), WithPusher(dispatcher))
	n, err := svc.Notify(ctx, submitted())
	require.NoError(t, err)
	svc.Wait()

	assert.Equal(t, 2, sender.calls)
	all, err := store.ListNotifications(ctx, models.NotificationFilter{Role: models.UserRoleAdmin})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, n.ID, all[0].ID)
	assert.False(t, all[0].IsRead)
}

func TestNotify_StoreFailureIsReported(t *testing.T) {
	pusher := &ctxPusher{done: make(chan error, 1)}
	svc := NewService(brokenStore{memory.NewStore()}, zap.NewNop(), WithPusher(pusher))

	_, err := svc.Notify(context.Background(), submitted())
	assert.ErrorIs(t, err, errs.ErrStorage)
	svc.Wait()
	assert.Empty(t, pusher.done, "nothing is delivered when persistence fails")
}

func TestNotify_LiveFailureIsSwallowed(t *testing.T) {
	svc := NewService(memory.NewStore(), zap.NewNop(), WithPublisher(failingPublisher{}))

	n, err := svc.Notify(context.Background(), submitted())
	require.NoError(t, err)
	assert.False(t, n.ID.IsZero())
}

func TestNotify_PublishesToLiveSubscribers(t *testing.T) {
	hub := live.NewHub(zap.NewNop(), 4)
	sub := hub.Subscribe("u1", []models.UserRole{models.UserRoleAdmin})
	defer sub.Close()
	svc := NewService(memory.NewStore(), zap.NewNop(), WithPublisher(hub))

	n, err := svc.Notify(context.Background(), submitted())
	require.NoError(t, err)

	select {
	case got := <-sub.Events():
		assert.Equal(t, n.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("live subscriber not notified")
	}
}

func TestNotify_PushOutlivesRequestContext(t *testing.T) {
	pusher := &ctxPusher{done: make(chan error, 1)}
	svc := NewService(memory.NewStore(), zap.NewNop(), WithPusher(pusher), WithPushTimeout(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	_, err := svc.Notify(ctx, submitted())
	cancel()
	require.NoError(t, err)
	svc.Wait()

	assert.NoError(t, <-pusher.done)
}

func TestNotify_RepeatedEventsAreNotDeduplicated(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store, zap.NewNop())
	ctx := context.Background()

	a, err := svc.Notify(ctx, submitted())
	require.NoError(t, err)
	ev := submitted()
	ev.RecipientRoles = []models.UserRole{models.UserRoleAdmin, models.UserRoleViewer}
	b, err := svc.Notify(ctx, ev)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	all, err := svc.List(ctx, models.NotificationFilter{Role: models.UserRoleAdmin})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReadSide(t *testing.T) {
	store := memory.NewStore()
	clock := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	svc := NewService(store, zap.NewNop(), WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	ctx := context.Background()

	older, err := svc.Notify(ctx, submitted())
	require.NoError(t, err)
	newer, err := svc.Notify(ctx, models.NotificationEvent{
		Title:        "Report reviewed",
		Type:         models.NotificationReportReviewed,
		RecipientIDs: []string{"u1"},
	})
	require.NoError(t, err)

	adminView, err := svc.List(ctx, models.NotificationFilter{Role: models.UserRoleAdmin, UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, adminView, 2)
	assert.Equal(t, newer.ID, adminView[0].ID, "newest first")
	assert.Equal(t, older.ID, adminView[1].ID)

	_, err = svc.MarkRead(ctx, []primitive.ObjectID{older.ID}, models.NotificationFilter{Role: models.UserRoleReporter, UserID: "u2"})
	assert.ErrorIs(t, err, errs.ErrNotFound, "reporter u2 is not a recipient")

	n, err := svc.MarkRead(ctx, []primitive.ObjectID{older.ID}, models.NotificationFilter{Role: models.UserRoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	unread, err := svc.List(ctx, models.NotificationFilter{Role: models.UserRoleAdmin, UserID: "u1", UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, newer.ID, unread[0].ID)

	n, err = svc.MarkAllRead(ctx, "", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = svc.MarkAllRead(ctx, "", "")
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.Delete(ctx, []primitive.ObjectID{newer.ID}, models.NotificationFilter{Role: models.UserRoleReporter, UserID: "u2"})
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = svc.Delete(ctx, []primitive.ObjectID{newer.ID}, models.NotificationFilter{Role: models.UserRoleViewer, UserID: "u1"})
	require.NoError(t, err)

	_, err = svc.Delete(ctx, []primitive.ObjectID{older.ID}, models.NotificationFilter{})
	require.NoError(t, err)
	_, err = svc.Delete(ctx, []primitive.ObjectID{older.ID}, models.NotificationFilter{})
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = svc.Delete(ctx, nil, models.NotificationFilter{})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

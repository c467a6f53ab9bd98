package push

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/DGISsoft/prodreport/models"
	"github.com/DGISsoft/prodreport/services/errs"
	"github.com/DGISsoft/prodreport/services/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type scriptedSender struct {
	mu       sync.Mutex
	status   map[string]int
	fail     map[string]error
	payloads [][]byte
}

func (s *scriptedSender) Send(_ context.Context, sub *models.PushSubscription, payload []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
	if err := s.fail[sub.Endpoint]; err != nil {
		return 0, err
	}
	if code, ok := s.status[sub.Endpoint]; ok {
		return code, nil
	}
	return http.StatusCreated, nil
}

func subscribe(t *testing.T, d *Dispatcher, endpoint, userID string, roles ...models.UserRole) {
	t.Helper()
	require.NoError(t, d.Subscribe(context.Background(), &models.PushSubscription{
		Endpoint: endpoint,
		Keys:     models.PushKeys{P256dh: "p", Auth: "a"},
		UserID:   userID,
		Roles:    roles,
	}))
}

func TestDispatcher_Send(t *testing.T) {
	store := memory.NewStore()
	sender := &scriptedSender{
		status: map[string]int{
			"https://push/gone":     http.StatusGone,
			"https://push/throttle": http.StatusTooManyRequests,
		},
		fail: map[string]error{"https://push/down": errors.New("connection reset")},
	}
	d := NewDispatcher(store, sender, zap.NewNop())

	subscribe(t, d, "https://push/ok", "u1", models.UserRoleAdmin)
	subscribe(t, d, "https://push/gone", "u2", models.UserRoleAdmin)
	subscribe(t, d, "https://push/throttle", "u3", models.UserRoleAdmin)
	subscribe(t, d, "https://push/down", "u4", models.UserRoleAdmin)
	subscribe(t, d, "https://push/reporter", "u5", models.UserRoleReporter)

	reportID := primitive.NewObjectID()
	n := &models.Notification{
		ID:             primitive.NewObjectID(),
		Title:          "Production report submitted",
		Message:        "Ann submitted the production report for 2024-03-01",
		Type:           models.NotificationReportSubmitted,
		RecipientRoles: []models.UserRole{models.UserRoleAdmin},
		ReportID:       &reportID,
		URL:            "/reports/" + reportID.Hex(),
	}

	report := d.Send(context.Background(), n)
	assert.Equal(t, DeliveryReport{Sent: 1, Failed: 2, Removed: 1}, report)

	remaining, err := store.ListSubscriptions(context.Background(), []models.UserRole{models.UserRoleAdmin}, nil)
	require.NoError(t, err)
	assert.Len(t, remaining, 3)
	for _, sub := range remaining {
		assert.NotEqual(t, "https://push/gone", sub.Endpoint)
	}

	var payload models.PushPayload
	require.NoError(t, json.Unmarshal(sender.payloads[0], &payload))
	assert.Equal(t, n.Title, payload.Title)
	assert.Equal(t, n.Message, payload.Body)
	assert.Equal(t, reportID.Hex(), payload.Data["reportId"])
	assert.Equal(t, "report_submitted", payload.Data["type"])
}

func TestDispatcher_NoSubscribers(t *testing.T) {
	sender := &scriptedSender{}
	d := NewDispatcher(memory.NewStore(), sender, zap.NewNop())

	report := d.Send(context.Background(), &models.Notification{RecipientIDs: []string{"nobody"}})
	assert.Equal(t, DeliveryReport{}, report)
	assert.Empty(t, sender.payloads)
}

func TestDispatcher_SubscribeValidation(t *testing.T) {
	d := NewDispatcher(memory.NewStore(), &scriptedSender{}, zap.NewNop())
	ctx := context.Background()

	err := d.Subscribe(ctx, &models.PushSubscription{Endpoint: "http://insecure", Keys: models.PushKeys{P256dh: "p", Auth: "a"}})
	assert.ErrorIs(t, err, errs.ErrValidation)

	err = d.Subscribe(ctx, &models.PushSubscription{Endpoint: "https://push/1"})
	assert.ErrorIs(t, err, errs.ErrValidation)

	assert.ErrorIs(t, d.Unsubscribe(ctx, "", ""), errs.ErrValidation)
	assert.ErrorIs(t, d.Unsubscribe(ctx, "https://push/unknown", ""), errs.ErrNotFound)
}

func TestDispatcher_UnsubscribeScopedToOwner(t *testing.T) {
	d := NewDispatcher(memory.NewStore(), &scriptedSender{}, zap.NewNop())
	ctx := context.Background()

	sub := &models.PushSubscription{Endpoint: "https://push/ann", UserID: "u-ann", Keys: models.PushKeys{P256dh: "p", Auth: "a"}}
	require.NoError(t, d.Subscribe(ctx, sub))

	assert.ErrorIs(t, d.Unsubscribe(ctx, "https://push/ann", "u-bob"), errs.ErrNotFound)
	require.NoError(t, d.Unsubscribe(ctx, "https://push/ann", "u-ann"))
	assert.ErrorIs(t, d.Unsubscribe(ctx, "https://push/ann", ""), errs.ErrNotFound)
}

func TestPayload_AttendanceLink(t *testing.T) {
	p := Payload(&models.Notification{
		ID:             primitive.NewObjectID(),
		Title:          "Attendance submitted",
		Type:           models.NotificationAttendanceSubmitted,
		AttendanceDate: "2024-03-01",
	})

	assert.Equal(t, "2024-03-01", p.Data["attendanceDate"])
	_, hasReport := p.Data["reportId"]
	assert.False(t, hasReport)
}

func TestWebPushSender_SignsAndEncrypts(t *testing.T) {
	var gotAuth, gotTTL, gotEncoding string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotTTL = r.Header.Get("TTL")
		gotEncoding = r.Header.Get("Content-Encoding")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	privateKey, publicKey, err := GenerateVAPIDKeys()
	require.NoError(t, err)

	device, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	authSecret := make([]byte, 16)
	_, err = rand.Read(authSecret)
	require.NoError(t, err)

	sender := NewWebPushSender(VAPIDConfig{
		PublicKey:  publicKey,
		PrivateKey: privateKey,
		Subscriber: "mailto:ops@example.com",
		TTL:        120,
	})
	status, err := sender.Send(context.Background(), &models.PushSubscription{
		Endpoint: srv.URL,
		Keys: models.PushKeys{
			P256dh: base64.RawURLEncoding.EncodeToString(device.PublicKey().Bytes()),
			Auth:   base64.RawURLEncoding.EncodeToString(authSecret),
		},
	}, []byte(`{"title":"hi"}`))

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	assert.True(t, strings.HasPrefix(gotAuth, "vapid "), gotAuth)
	assert.Equal(t, "120", gotTTL)
	assert.Equal(t, "aes128gcm", gotEncoding)
}

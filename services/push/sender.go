package push

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/DGISsoft/prodreport/models"
	webpush "github.com/SherClockHolmes/webpush-go"
)

// Sender delivers one encrypted payload to one device and reports the push
// service's HTTP status.
type Sender interface {
	Send(ctx context.Context, sub *models.PushSubscription, payload []byte) (int, error)
}

type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	// Subscriber is the contact (mailto: or https:) sent to push services.
	Subscriber string
	TTL        int
}

// WebPushSender speaks the Web Push protocol with VAPID authentication.
type WebPushSender struct {
	cfg    VAPIDConfig
	client *http.Client
}

func NewWebPushSender(cfg VAPIDConfig) *WebPushSender {
	if cfg.TTL <= 0 {
		cfg.TTL = 60 * 60 * 24
	}
	return &WebPushSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *WebPushSender) Send(ctx context.Context, sub *models.PushSubscription, payload []byte) (int, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Keys.Auth,
			P256dh: sub.Keys.P256dh,
		},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.cfg.Subscriber,
		VAPIDPublicKey:  s.cfg.PublicKey,
		VAPIDPrivateKey: s.cfg.PrivateKey,
		TTL:             s.cfg.TTL,
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// GenerateVAPIDKeys returns a fresh (private, public) key pair for configuration.
func GenerateVAPIDKeys() (string, string, error) {
	return webpush.GenerateVAPIDKeys()
}

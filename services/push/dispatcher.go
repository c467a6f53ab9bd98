// Package push delivers notifications to registered browser and mobile
// devices through Web Push. Delivery failures never reach the caller.
package push

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/DGISsoft/prodreport/models"
	"github.com/DGISsoft/prodreport/services/errs"
	"go.uber.org/zap"
)

const defaultWorkers = 4

type SubscriptionStore interface {
	ListSubscriptions(ctx context.Context, roles []models.UserRole, userIDs []string) ([]*models.PushSubscription, error)
	UpsertSubscription(ctx context.Context, sub *models.PushSubscription) error
	// DeleteSubscription removes endpoint; a non-empty userID limits the
	// delete to that user's device.
	DeleteSubscription(ctx context.Context, endpoint, userID string) error
}

type Dispatcher struct {
	store   SubscriptionStore
	sender  Sender
	log     *zap.Logger
	workers int
}

func NewDispatcher(store SubscriptionStore, sender Sender, log *zap.Logger) *Dispatcher {
	return &Dispatcher{store: store, sender: sender, log: log, workers: defaultWorkers}
}

// DeliveryReport summarizes one fan-out.
type DeliveryReport struct {
	Sent    int
	Failed  int
	Removed int
}

// Subscribe registers or refreshes a device.
func (d *Dispatcher) Subscribe(ctx context.Context, sub *models.PushSubscription) error {
	sub.Endpoint = strings.TrimSpace(sub.Endpoint)
	if !strings.HasPrefix(sub.Endpoint, "https://") {
		return errs.Validation("endpoint must be an https URL")
	}
	if sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return errs.Validation("subscription keys p256dh and auth are required")
	}
	return d.store.UpsertSubscription(ctx, sub)
}

// Unsubscribe drops a device. An empty userID removes the endpoint whoever
// owns it.
func (d *Dispatcher) Unsubscribe(ctx context.Context, endpoint, userID string) error {
	if strings.TrimSpace(endpoint) == "" {
		return errs.Validation("endpoint is required")
	}
	return d.store.DeleteSubscription(ctx, endpoint, userID)
}

// Payload is what the service worker receives for n.
func Payload(n *models.Notification) models.PushPayload {
	data := map[string]any{
		"type":           n.Type,
		"notificationId": n.ID.Hex(),
	}
	if n.ReportID != nil {
		data["reportId"] = n.ReportID.Hex()
	}
	if n.AttendanceDate != "" {
		data["attendanceDate"] = n.AttendanceDate
	}
	if n.URL != "" {
		data["url"] = n.URL
	}
	return models.PushPayload{Title: n.Title, Body: n.Message, Data: data}
}

// Deliver implements the fan-out step; results are only logged.
func (d *Dispatcher) Deliver(ctx context.Context, n *models.Notification) {
	report := d.Send(ctx, n)
	d.log.Info("push delivery finished",
		zap.String("notification_id", n.ID.Hex()),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
		zap.Int("removed", report.Removed))
}

// Send pushes n to every device registered for its recipients.
func (d *Dispatcher) Send(ctx context.Context, n *models.Notification) DeliveryReport {
	var report DeliveryReport

	subs, err := d.store.ListSubscriptions(ctx, n.RecipientRoles, n.RecipientIDs)
	if err != nil {
		d.log.Warn("failed to load push subscriptions", zap.Error(err))
		return report
	}
	if len(subs) == 0 {
		return report
	}

	payload, err := json.Marshal(Payload(n))
	if err != nil {
		d.log.Error("failed to encode push payload", zap.Error(err))
		return report
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	jobs := make(chan *models.PushSubscription)
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range jobs {
				outcome := d.sendOne(ctx, sub, payload)
				mu.Lock()
				switch outcome {
				case outcomeSent:
					report.Sent++
				case outcomeRemoved:
					report.Removed++
				default:
					report.Failed++
				}
				mu.Unlock()
			}
		}()
	}
	for _, sub := range subs {
		jobs <- sub
	}
	close(jobs)
	wg.Wait()

	return report
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeSent
	outcomeRemoved
)

func (d *Dispatcher) sendOne(ctx context.Context, sub *models.PushSubscription, payload []byte) outcome {
	status, err := d.sender.Send(ctx, sub, payload)
	if err != nil {
		d.log.Warn("push delivery failed", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return outcomeFailed
	}

	switch {
	case status >= 200 && status < 300:
		return outcomeSent
	case status == http.StatusNotFound || status == http.StatusGone:
		// The push service says this device will never accept messages again.
		if err := d.store.DeleteSubscription(ctx, sub.Endpoint, ""); err != nil {
			d.log.Warn("failed to remove expired push subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
		return outcomeRemoved
	}
	d.log.Warn("push service rejected message", zap.String("endpoint", sub.Endpoint), zap.Int("status", status))
	return outcomeFailed
}

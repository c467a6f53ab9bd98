// Package live broadcasts notifications to connected clients (SSE and
// WebSocket). Delivery is best effort: there is no replay, and a subscriber
// whose buffer is full misses the event.
package live

import (
	"context"
	"sync"

	"github.com/DGISsoft/prodreport/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultBuffer = 16

type Subscription struct {
	ID     string
	UserID string
	Roles  []models.UserRole

	events chan *models.Notification
	hub    *Hub
	once   sync.Once
}

// Events is closed when the subscription is closed.
func (s *Subscription) Events() <-chan *models.Notification {
	return s.events
}

func (s *Subscription) Close() {
	s.hub.remove(s)
}

type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	buffer int
	log    *zap.Logger
}

func NewHub(log *zap.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[string]*Subscription),
		buffer: buffer,
		log:    log,
	}
}

// Subscribe registers a listener for notifications addressed to userID or any of roles.
func (h *Hub) Subscribe(userID string, roles []models.UserRole) *Subscription {
	sub := &Subscription{
		ID:     uuid.NewString(),
		UserID: userID,
		Roles:  roles,
		events: make(chan *models.Notification, h.buffer),
		hub:    h,
	}

	h.mu.Lock()
	h.subs[sub.ID] = sub
	h.mu.Unlock()

	h.log.Debug("live subscriber joined", zap.String("subscriber", sub.ID), zap.String("user_id", userID))
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	sub.once.Do(func() {
		h.mu.Lock()
		delete(h.subs, sub.ID)
		close(sub.events)
		h.mu.Unlock()
		h.log.Debug("live subscriber left", zap.String("subscriber", sub.ID))
	})
}

// Publish hands n to every matching subscriber without blocking.
func (h *Hub) Publish(_ context.Context, n *models.Notification) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !n.AddressedTo(sub.UserID, sub.Roles) {
			continue
		}
		select {
		case sub.events <- n:
		default:
			h.log.Warn("live subscriber too slow, event dropped",
				zap.String("subscriber", sub.ID),
				zap.String("notification_id", n.ID.Hex()))
		}
	}
	return nil
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription. Used on shutdown so streaming handlers return.
func (h *Hub) Close() {
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		sub.Close()
	}
}

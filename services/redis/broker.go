// Package redis relays live notifications between service instances over
// Redis pub/sub, so a subscriber connected to any instance sees every event.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/DGISsoft/prodreport/models"
	"go.uber.org/zap"
)

const DefaultChannel = "prodreport:notifications"

// Relay receives notifications that arrived on the channel. Usually the local live hub.
type Relay interface {
	Publish(ctx context.Context, n *models.Notification) error
}

type Broker struct {
	client  Client
	channel string
	local   Relay
	log     *zap.Logger

	ready     chan struct{}
	readyOnce sync.Once
}

func NewBroker(client Client, channel string, local Relay, log *zap.Logger) *Broker {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Broker{
		client:  client,
		channel: channel,
		local:   local,
		log:     log,
		ready:   make(chan struct{}),
	}
}

// Publish sends n to every instance, this one included.
func (b *Broker) Publish(ctx context.Context, n *models.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Ready is closed once Run has subscribed to the channel.
func (b *Broker) Ready() <-chan struct{} {
	return b.ready
}

// Run relays channel messages into the local hub until ctx is done.
func (b *Broker) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}
	b.readyOnce.Do(func() { close(b.ready) })
	b.log.Info("relaying live notifications", zap.String("channel", b.channel))

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var n models.Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				b.log.Warn("dropping malformed notification message", zap.Error(err))
				continue
			}
			if err := b.local.Publish(ctx, &n); err != nil {
				b.log.Warn("failed to relay notification", zap.String("notification_id", n.ID.Hex()), zap.Error(err))
			}
		}
	}
}

package main

import (
	"context"
	"errors"
	"sync"

	"github.com/DGISsoft/prodreport/services/redis"
)

// relay runs a broker in the background until stop is called or the parent
// context ends.
type relay struct {
	cancel context.CancelFunc
	done   chan error

	once sync.Once
	err  error
}

// startRelay returns once the broker is subscribed, or with the error that
// kept it from subscribing.
func startRelay(ctx context.Context, broker *redis.Broker) (*relay, error) {
	ctx, cancel := context.WithCancel(ctx)
	r := &relay{cancel: cancel, done: make(chan error, 1)}
	go func() { r.done <- broker.Run(ctx) }()

	select {
	case <-broker.Ready():
		return r, nil
	case err := <-r.done:
		cancel()
		return nil, err
	}
}

// stop cancels the broker and waits for it to return. It is safe to call
// more than once and on a nil relay.
func (r *relay) stop() error {
	if r == nil {
		return nil
	}
	r.once.Do(func() {
		r.cancel()
		if err := <-r.done; err != nil && !errors.Is(err, context.Canceled) {
			r.err = err
		}
	})
	return r.err
}

package main

import (
	"context"

	"github.com/DGISsoft/prodreport/api"
	"github.com/DGISsoft/prodreport/env"
	"github.com/DGISsoft/prodreport/models"
	"github.com/DGISsoft/prodreport/services/attendance"
	"github.com/DGISsoft/prodreport/services/drafts"
	"github.com/DGISsoft/prodreport/services/memory"
	"github.com/DGISsoft/prodreport/services/mongo"
	"github.com/DGISsoft/prodreport/services/notify"
	"github.com/DGISsoft/prodreport/services/push"
	"go.uber.org/zap"
)

type userStore interface {
	api.UserStore
	CreateUser(ctx context.Context, user *models.User, password string) error
}

// stores groups the persistence of one process, backed either by MongoDB or
// by the in-memory store.
type stores struct {
	reports       drafts.Store
	notifications notify.Store
	subscriptions push.SubscriptionStore
	attendance    attendance.Store
	users         userStore
	machines      api.MachineStore

	ping    func(ctx context.Context) error
	migrate func(ctx context.Context) error
	close   func(ctx context.Context) error
}

func openStores(ctx context.Context, cfg *env.Config, inMemory bool, log *zap.Logger) (*stores, error) {
	if inMemory {
		log.Warn("using the in-memory store, data is lost on exit")
		m := memory.NewStore()
		return &stores{
			reports:       m,
			notifications: m,
			subscriptions: m,
			attendance:    m,
			users:         m,
			machines:      m,
			ping:          func(context.Context) error { return nil },
			migrate:       func(context.Context) error { return nil },
			close:         func(context.Context) error { return nil },
		}, nil
	}

	client, svc, err := mongo.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return nil, err
	}
	log.Info("mongo connected", zap.String("database", cfg.Mongo.Database))

	return &stores{
		reports:       mongo.NewReportStore(svc),
		notifications: mongo.NewNotificationStore(svc),
		subscriptions: mongo.NewPushStore(svc),
		attendance:    mongo.NewAttendanceStore(svc),
		users:         mongo.NewUserService(svc),
		machines:      mongo.NewMachineService(svc),
		ping:          svc.Ping,
		migrate: func(ctx context.Context) error {
			return mongo.EnsureIndexes(ctx, svc)
		},
		close: client.Disconnect,
	}, nil
}

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/DGISsoft/prodreport/api"
	"github.com/DGISsoft/prodreport/api/auth"
	"github.com/DGISsoft/prodreport/models"
	"github.com/DGISsoft/prodreport/services/attendance"
	"github.com/DGISsoft/prodreport/services/drafts"
	"github.com/DGISsoft/prodreport/services/live"
	"github.com/DGISsoft/prodreport/services/notify"
	"github.com/DGISsoft/prodreport/services/push"
	"github.com/DGISsoft/prodreport/services/redis"
	"github.com/DGISsoft/prodreport/services/s3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var inMemory bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&inMemory, "memory", false, "keep all data in memory instead of MongoDB")
}

func serve(ctx context.Context) error {
	st, err := openStores(ctx, cfg, inMemory, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(context.Background()); err != nil {
			log.Warn("failed to close store", zap.Error(err))
		}
	}()
	if err := st.migrate(ctx); err != nil {
		return err
	}

	hub := live.NewHub(log.Named("live"), live.DefaultBuffer)
	notifyOpts := []notify.Option{
		notify.WithPublisher(hub),
		notify.WithPushTimeout(cfg.Push.Timeout),
	}

	// With Redis every instance relays the channel into its own hub, so the
	// notifier publishes to Redis instead of the local hub.
	var liveRelay *relay
	defer func() { _ = liveRelay.stop() }()
	if cfg.Redis.Enabled {
		client := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer client.Close()
		if err := client.Ping(ctx); err != nil {
			return err
		}
		broker := redis.NewBroker(client, cfg.Redis.Channel, hub, log.Named("broker"))
		if liveRelay, err = startRelay(ctx, broker); err != nil {
			return err
		}
		notifyOpts[0] = notify.WithPublisher(broker)
		log.Info("redis live relay enabled", zap.String("channel", cfg.Redis.Channel))
	}

	var pushRegistry api.PushRegistry
	if cfg.Push.Enabled {
		dispatcher := push.NewDispatcher(st.subscriptions, push.NewWebPushSender(push.VAPIDConfig{
			PublicKey:  cfg.Push.VAPIDPublicKey,
			PrivateKey: cfg.Push.VAPIDPrivateKey,
			Subscriber: cfg.Push.Subscriber,
			TTL:        cfg.Push.TTL,
		}), log.Named("push"))
		notifyOpts = append(notifyOpts, notify.WithPusher(dispatcher))
		pushRegistry = dispatcher
	}
	notifier := notify.NewService(st.notifications, log.Named("notify"), notifyOpts...)

	draftOpts := []drafts.Option{
		drafts.WithNotifier(notifier),
		drafts.WithSubmissionRoles(models.ParseRoles(cfg.SubmissionRoles)),
	}
	var media api.MediaStore
	if cfg.S3.Enabled {
		storage, err := s3.NewStorage(ctx, cfg.S3, log.Named("s3"))
		if err != nil {
			return err
		}
		draftOpts = append(draftOpts, drafts.WithMedia(storage))
		media = storage
	}

	if cfg.InsecureJWT() {
		log.Warn("JWT_SECRET is not set, using the development secret")
	}

	router := api.NewRouter(api.Deps{
		Drafts:     drafts.NewService(st.reports, log.Named("drafts"), draftOpts...),
		Notify:     notifier,
		Attendance: attendance.NewService(st.attendance, notifier, log.Named("attendance")),
		Hub:        hub,
		Sections:   st.reports,
		Users:      st.users,
		Machines:   st.machines,
		Push:       pushRegistry,
		Media:      media,
		JWT:        auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Duration),
		Health:     st.ping,
		Log:        log.Named("http"),

		CORSOrigins:    cfg.HTTP.CORSOrigins,
		VAPIDPublicKey: cfg.Push.VAPIDPublicKey,
	})
	server := api.NewServer(cfg.HTTP.Addr, router, cfg.HTTP.ReadHeaderTimeout, log)

	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start() }()

	select {
	case <-ctx.Done():
	case err = <-serverErr:
	}

	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if stopErr := server.Stop(shutdownCtx); stopErr != nil {
		log.Warn("http shutdown incomplete", zap.Error(stopErr))
	}
	notifier.Wait()
	if relayErr := liveRelay.stop(); relayErr != nil {
		log.Warn("redis relay stopped", zap.Error(relayErr))
	}

	log.Info("shutdown complete")
	return err
}

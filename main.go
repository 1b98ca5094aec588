package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"collab-service/internal/app"
	"collab-service/internal/blob"
	"collab-service/internal/config"
	"collab-service/internal/db"
	"collab-service/internal/feed"
	grpcserver "collab-service/internal/grpc"
	"collab-service/internal/notify"
	"collab-service/internal/observability"
	"collab-service/internal/presence"
	"collab-service/internal/rabbitmq"
	"collab-service/internal/repositories"
	"collab-service/internal/retention"
	"collab-service/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	log.Printf("config loaded: %s", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment)
	if err != nil {
		log.Printf("tracing disabled: %v", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	broker := feed.NewBroker()
	defer broker.Close()
	listener, err := feed.NewListener(cfg.DBDSN, broker)
	if err != nil {
		log.Fatalf("failed to start change feed: %v", err)
	}
	go listener.Run(ctx)

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s reason=%q", rabbitmq.PublisherMode(publisher), rabbitmq.PublisherNoopReason(publisher))
	observability.SetPublisher(publisher)
	audit := telemetry.NewAuditEmitter(publisher, "audit.collab", cfg.ServiceName, cfg.Environment)

	var viewers presence.Viewers = presence.NewMemory()
	if cfg.RedisAddr != "" {
		rdb, err := presence.Open(ctx, cfg.RedisAddr)
		if err != nil {
			log.Printf("presence: redis unavailable, using in-process presence: %v", err)
		} else {
			defer rdb.Close()
			viewers = presence.NewRedis(rdb, presence.DefaultTTL)
			log.Printf("presence: redis addr=%s", cfg.RedisAddr)
		}
	}

	var pusher notify.Pusher
	if kp := notify.NewKafkaPusher(cfg.KafkaBrokerList(), cfg.PushTopic); kp != nil {
		defer kp.Close()
		pusher = kp
	}

	var uploader blob.Uploader
	store, err := blob.New(blob.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		Bucket:    cfg.S3.Bucket,
		UseSSL:    cfg.S3.UseSSL,
		PublicURL: cfg.S3.PublicURL,
	})
	if err != nil {
		log.Printf("uploads disabled: %v", err)
	} else if err := store.EnsureBucket(ctx); err != nil {
		log.Printf("uploads disabled: bucket %s: %v", cfg.S3.Bucket, err)
	} else {
		uploader = store
	}

	a := app.New(app.Options{
		Config: cfg,
		Stores: app.Stores{
			Rooms:         repositories.NewRoomRepo(database),
			Messages:      repositories.NewMessageRepo(database),
			Friendships:   repositories.NewFriendshipRepo(database),
			Profiles:      repositories.NewProfileRepo(database),
			Notifications: repositories.NewNotificationRepo(database),
			Whiteboards:   repositories.NewWhiteboardRepo(database),
		},
		Feed:     broker,
		Viewers:  viewers,
		Pusher:   pusher,
		Uploader: uploader,
		Audit:    audit,
	})

	scheduler, err := retention.New(cfg.RetentionCron, cfg.RetentionPeriod, a.Notifications, nil)
	if err != nil {
		log.Printf("retention disabled: %v", err)
	} else {
		go scheduler.Run(ctx)
	}

	health := grpcserver.New(database)
	go func() {
		if err := health.Serve(":" + cfg.GRPCPort); err != nil {
			log.Printf("grpc server error: %v", err)
		}
	}()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				health.Check(ctx)
			}
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("http server listening port=%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	a.Shutdown()
	health.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("tracing shutdown: %v", err)
	}
}

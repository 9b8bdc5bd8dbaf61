package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"jobtracker/internal/config"
	"jobtracker/internal/db"
	"jobtracker/internal/email"
	"jobtracker/internal/events"
	"jobtracker/internal/ingest"
	"jobtracker/internal/jobs"
	"jobtracker/internal/logging"
	"jobtracker/internal/metrics"
	"jobtracker/internal/server"
	"jobtracker/internal/storage"
	"jobtracker/internal/tokens"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Setup(cfg.Env, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("migrations completed")

	// Change events fan out to SSE subscribers and, optionally, RabbitMQ.
	var sinks []events.Sink
	if cfg.AMQPURL != "" {
		sink, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatalf("Failed to connect to AMQP broker: %v", err)
		}
		defer sink.Close()
		sinks = append(sinks, sink)
		slog.Info("publishing application events", "exchange", cfg.AMQPExchange)
	}
	broker := events.NewBroker(sinks...)

	var resumes storage.ResumeStore
	if cfg.IsStorageEnabled() {
		store, err := storage.NewS3Store(ctx, storage.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			log.Fatalf("Failed to initialize resume storage: %v", err)
		}
		resumes = store
		slog.Info("archiving uploaded resumes", "bucket", cfg.S3Bucket)
	}

	recorder := metrics.Register(prometheus.DefaultRegisterer, database, database)

	done := make(chan struct{})
	srv := server.New(cfg)
	err = srv.RegisterRoutes(ctx, server.Deps{
		Store:    database,
		Broker:   broker,
		Fetcher:  ingest.NewFetcher(cfg.FetchTimeout, ingest.DefaultMaxFetchSize),
		Resumes:  resumes,
		Recorder: recorder,
		Tokens:   tokens.NewIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Done:     done,
	})
	if err != nil {
		log.Fatalf("Failed to register routes: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server starting", "addr", cfg.ServerAddr)
		return srv.Start()
	})

	if cfg.IsRemindersEnabled() {
		job := jobs.NewReminderJob(database, email.NewNotifier(cfg), cfg.ReminderInterval, cfg.ReminderStaleAfter)
		g.Go(func() error {
			job.Start(gctx)
			return nil
		})
	} else {
		slog.Info("follow-up reminders disabled")
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		close(done)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server exited with error", "error", err)
	}
	recorder.Wait()
	slog.Info("server exited")
}

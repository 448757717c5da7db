package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/scheduling-api/internal/config"
	"github.com/jwalitptl/scheduling-api/internal/email"
	"github.com/jwalitptl/scheduling-api/internal/repository/postgres"
	"github.com/jwalitptl/scheduling-api/internal/service/notification"
	internalworker "github.com/jwalitptl/scheduling-api/internal/worker"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
	"github.com/jwalitptl/scheduling-api/pkg/messaging"
	"github.com/jwalitptl/scheduling-api/pkg/messaging/redis"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
	"github.com/jwalitptl/scheduling-api/pkg/worker"
)

// notifierConfig is read from NOTIFIER_* environment variables.
type notifierConfig struct {
	Disabled     bool   `envconfig:"DISABLED"`
	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	From         string `envconfig:"FROM" default:"no-reply@clinic.local"`
	HealthAddr   string `envconfig:"HEALTH_ADDR" default:":8081"`
}

func setupHealthCheck(addr string, reg *prometheus.Registry, ready func(context.Context) error, appLogger *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ready(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal(err, "Health check server failed")
		}
	}()
	return srv
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	var notifierCfg notifierConfig
	if err := envconfig.Process("notifier", &notifierCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to load notifier config")
	}

	hostname, _ := os.Hostname()
	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
	}).WithFields(map[string]interface{}{"worker_id": hostname})
	log.Logger = *appLogger.Zerolog()

	if cfg.Storage.Driver != "postgres" {
		appLogger.Fatal(nil, "The worker needs the postgres storage driver; the memory store relays in-process")
	}
	loc, err := cfg.Scheduling.Location()
	if err != nil {
		appLogger.Fatal(err, "Invalid clinic timezone")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	appMetrics := metrics.NewMetrics(cfg.Monitoring.MetricsPrefix, "worker", reg)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := redis.NewClient(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	if err != nil {
		appLogger.Fatal(err, "Invalid Redis config")
	}
	broker, err := redis.NewRedisBroker(ctx, client, appMetrics, appLogger.Zerolog())
	if err != nil {
		appLogger.Fatal(err, "Failed to create Redis broker")
	}
	defer broker.Close()

	// Initialize repositories
	outboxRepo := postgres.NewOutboxRepository(db)

	processor, err := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		Channel:       cfg.Outbox.Channel,
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
	}, appLogger, appMetrics)
	if err != nil {
		appLogger.Fatal(err, "Invalid outbox config")
	}
	cleanup := internalworker.NewOutboxCleanupWorker(outboxRepo, cfg.Outbox.Retention, cfg.Outbox.CleanupInterval, appLogger)

	var wg sync.WaitGroup
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	if !notifierCfg.Disabled {
		var sender email.Service
		if notifierCfg.SMTPHost == "" {
			sender = email.NewLogService(appLogger)
		} else {
			sender = email.NewSMTPService(email.SMTPConfig{
				Host:     notifierCfg.SMTPHost,
				Port:     notifierCfg.SMTPPort,
				Username: notifierCfg.SMTPUsername,
				Password: notifierCfg.SMTPPassword,
				From:     notifierCfg.From,
			})
		}
		dispatcher := messaging.NewDispatcher(broker, appLogger)
		notification.NewService(
			postgres.NewDoctorRepository(db),
			postgres.NewPatientRepository(db),
			sender,
			loc,
			appLogger.WithFields(map[string]interface{}{"component": "notifier"}),
		).Register(dispatcher)

		msgs, err := broker.Subscribe(ctx, cfg.Outbox.Channel)
		if err != nil {
			appLogger.Fatal(err, "Failed to subscribe to appointment events")
		}
		run(func() {
			if err := dispatcher.Consume(ctx, msgs); err != nil && !errors.Is(err, context.Canceled) {
				appLogger.Error(err, "Notifier stopped")
			}
		})
	}

	healthSrv := setupHealthCheck(notifierCfg.HealthAddr, reg, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		return client.Ping(ctx).Err()
	}, appLogger)

	run(func() { processor.Start(ctx) })
	run(func() { cleanup.Start(ctx) })

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("Shutting down...")
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = healthSrv.Shutdown(shutdownCtx)
}

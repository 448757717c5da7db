package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/scheduling-api/internal/config"
	"github.com/jwalitptl/scheduling-api/internal/email"
	availabilityHandler "github.com/jwalitptl/scheduling-api/internal/handler/availability"
	"github.com/jwalitptl/scheduling-api/internal/handler/health"
	schedulingHandler "github.com/jwalitptl/scheduling-api/internal/handler/scheduling"
	"github.com/jwalitptl/scheduling-api/internal/middleware"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	"github.com/jwalitptl/scheduling-api/internal/repository/memory"
	"github.com/jwalitptl/scheduling-api/internal/repository/postgres"
	"github.com/jwalitptl/scheduling-api/internal/router"
	"github.com/jwalitptl/scheduling-api/internal/service/availability"
	"github.com/jwalitptl/scheduling-api/internal/service/notification"
	"github.com/jwalitptl/scheduling-api/internal/service/scheduling"
	"github.com/jwalitptl/scheduling-api/pkg/auth"
	"github.com/jwalitptl/scheduling-api/pkg/lock"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
	"github.com/jwalitptl/scheduling-api/pkg/messaging"
	"github.com/jwalitptl/scheduling-api/pkg/messaging/redis"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
	"github.com/jwalitptl/scheduling-api/pkg/worker"
)

type storage struct {
	doctors      repository.DoctorRepository
	patients     repository.PatientRepository
	windows      repository.AvailabilityRepository
	exceptions   repository.ExceptionRepository
	appointments repository.AppointmentRepository
	outbox       repository.OutboxRepository
	checks       map[string]health.Checker
	close        func() error
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
	})
	// Middleware logs through the global logger.
	log.Logger = *appLogger.Zerolog()

	loc, err := cfg.Scheduling.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid clinic timezone")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.NewMetrics(cfg.Monitoring.MetricsPrefix, "scheduling", reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStorage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer func() { _ = store.close() }()

	locker, err := newLocker(ctx, cfg, store, appLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize scheduling locks")
	}

	// Initialize services
	index := scheduling.NewAvailabilityIndex(store.windows, store.exceptions, loc, cfg.Scheduling.WindowCacheTTL)
	schedulingSvc := scheduling.NewService(
		scheduling.Repositories{
			Doctors:      store.doctors,
			Patients:     store.patients,
			Appointments: store.appointments,
		},
		index,
		locker,
		scheduling.Config{
			SlotMinutes:        cfg.Scheduling.SlotMinutes,
			CancellationNotice: cfg.Scheduling.CancellationNotice,
		},
		appMetrics,
		appLogger.WithFields(map[string]interface{}{"component": "scheduling"}),
	)
	availabilitySvc := availability.NewService(
		store.doctors,
		store.windows,
		store.exceptions,
		index,
		appLogger.WithFields(map[string]interface{}{"component": "availability"}),
	)

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer)
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	r := router.NewRouter(
		authMiddleware,
		health.NewHandler(store.checks, reg),
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        cfg.RateLimit.RequestsPerSecond,
			RateBurst:        cfg.RateLimit.Burst,
			RequestTimeout:   time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			Metrics:          middleware.NewHTTPMetrics(cfg.Monitoring.MetricsPrefix+"_http", reg),
		},
		schedulingHandler.NewHandler(schedulingSvc),
		availabilityHandler.NewHandler(availabilitySvc, authMiddleware),
	)
	r.Setup()

	// The memory store lives in this process, so its outbox is relayed here.
	if cfg.Storage.Driver == "memory" {
		if err := startInProcessRelay(ctx, cfg, store, loc, appMetrics, appLogger); err != nil {
			log.Fatal().Err(err).Msg("failed to start outbox relay")
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("storage", cfg.Storage.Driver).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func openStorage(cfg *config.Config) (*storage, error) {
	switch cfg.Storage.Driver {
	case "memory":
		s := memory.NewStore()
		return &storage{
			doctors:      s.Doctors(),
			patients:     s.Patients(),
			windows:      s.Availability(),
			exceptions:   s.Exceptions(),
			appointments: s.Appointments(),
			outbox:       s.Outbox(),
			checks:       map[string]health.Checker{},
			close:        func() error { return nil },
		}, nil
	case "postgres":
		db, err := postgres.NewDB(cfg.Database)
		if err != nil {
			return nil, err
		}
		return &storage{
			doctors:      postgres.NewDoctorRepository(db),
			patients:     postgres.NewPatientRepository(db),
			windows:      postgres.NewAvailabilityRepository(db),
			exceptions:   postgres.NewExceptionRepository(db),
			appointments: postgres.NewAppointmentRepository(db),
			outbox:       postgres.NewOutboxRepository(db),
			checks:       map[string]health.Checker{"database": db},
			close:        db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func newLocker(ctx context.Context, cfg *config.Config, store *storage, appLogger *logger.Logger) (scheduling.Locker, error) {
	if cfg.Scheduling.LockDriver != "redis" {
		return scheduling.NewKeyedLocker(), nil
	}

	client, err := redis.NewClient(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	store.checks["redis"] = redisChecker(client)
	closeDB := store.close
	store.close = func() error {
		client.Close()
		return closeDB()
	}

	return lock.NewRedisLocker(client, lock.Config{
		Prefix: "scheduling:lock:",
		TTL:    cfg.Scheduling.LockTTL,
	}, appLogger.Zerolog()), nil
}

func redisChecker(client goredis.UniversalClient) health.Checker {
	return health.CheckerFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

func startInProcessRelay(
	ctx context.Context,
	cfg *config.Config,
	store *storage,
	loc *time.Location,
	appMetrics *metrics.Metrics,
	appLogger *logger.Logger,
) error {
	broker := messaging.NewMemoryBroker()
	relayLogger := appLogger.WithFields(map[string]interface{}{"component": "outbox"})

	processor, err := worker.NewOutboxProcessor(store.outbox, broker, worker.OutboxProcessorConfig{
		Channel:       cfg.Outbox.Channel,
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
	}, relayLogger, appMetrics)
	if err != nil {
		return err
	}

	dispatcher := messaging.NewDispatcher(broker, relayLogger)
	notification.NewService(store.doctors, store.patients, email.NewLogService(relayLogger), loc, relayLogger).
		Register(dispatcher)

	// Subscribe before the processor starts so no early event is dropped.
	msgs, err := broker.Subscribe(ctx, cfg.Outbox.Channel)
	if err != nil {
		return err
	}
	go func() {
		if err := dispatcher.Consume(ctx, msgs); err != nil && !errors.Is(err, context.Canceled) {
			relayLogger.Error(err, "Dispatcher stopped")
		}
	}()
	go processor.Start(ctx)
	return nil
}

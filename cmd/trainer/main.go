package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/surveillance-api/internal/config"
	"github.com/jwalitptl/surveillance-api/internal/email"
	"github.com/jwalitptl/surveillance-api/internal/repository/filestore"
	"github.com/jwalitptl/surveillance-api/internal/repository/postgres"
	"github.com/jwalitptl/surveillance-api/internal/service/training"
	"github.com/jwalitptl/surveillance-api/internal/worker"
	"github.com/jwalitptl/surveillance-api/pkg/lock"
	"github.com/jwalitptl/surveillance-api/pkg/logger"
	"github.com/jwalitptl/surveillance-api/pkg/messaging"
	"github.com/jwalitptl/surveillance-api/pkg/messaging/redis"
	"github.com/jwalitptl/surveillance-api/pkg/metrics"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	once := flag.Bool("once", false, "run a single training pass and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	appLog := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Logging.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.Logging.JSON,
	}).WithFields(map[string]interface{}{"component": "trainer"})
	log.Logger = appLog.ZL

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics(cfg.Monitoring.Namespace, prometheus.DefaultRegisterer)

	baseRepo := postgres.NewBaseRepository(db, m)
	caseRepo := postgres.NewCaseRepository(baseRepo)
	modelStore, err := filestore.NewModelStore(cfg.Models.Dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Models.Dir).Msg("Failed to open model store")
	}

	locker, broker := coordination(ctx, cfg)
	if broker != nil {
		defer broker.Close()
	}

	opts := worker.RetrainOptions{
		Broker:   broker,
		ReportTo: cfg.Trainer.ReportEmail,
		Interval: cfg.Trainer.Interval,
		LockTTL:  cfg.Trainer.LockTTL,
	}
	if cfg.SMTPConfigured() && cfg.Trainer.ReportEmail != "" {
		opts.Mailer = email.NewSMTPService(cfg.SMTP)
	}
	if *once {
		opts.Interval = 0
	}

	trainer := training.NewService(caseRepo, modelStore, m, appLog)
	retrain := worker.NewRetrainWorker(trainer, locker, m, appLog, opts)

	if cfg.Trainer.HealthPort > 0 && !*once {
		setupHealthCheck(cfg.Trainer.HealthPort)
	}

	if !*once {
		retention := worker.NewAuditRetentionWorker(
			postgres.NewAuditRepository(baseRepo),
			cfg.Trainer.AuditRetentionDays,
			cfg.Trainer.AuditCleanupInterval,
			appLog,
		)
		go retention.Start(ctx)
	}

	retrain.Start(ctx)
	appLog.Info("Trainer stopped")
}

// coordination picks the Redis lock and broker when Redis is configured. A
// single trainer without Redis uses an in-process lock and does not announce
// retrains. A configured but unreachable Redis keeps the Redis lock, so runs
// fail and retry on the next tick instead of running unserialized.
func coordination(ctx context.Context, cfg *config.Config) (lock.Locker, messaging.Broker) {
	if cfg.Redis.URL == "" {
		log.Warn().Msg("Redis not configured, using local lock")
		return lock.NewLocalLock(), nil
	}

	client, err := redis.Dial(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid Redis configuration")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("Redis unreachable, training waits until the lock can be taken")
	}

	return lock.NewRedisLock(client, cfg.Trainer.LockKey, cfg.Trainer.LockTTL), redis.NewRedisBroker(client, &log.Logger)
}

func setupHealthCheck(port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Health check server failed")
		}
	}()
}

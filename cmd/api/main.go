package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/surveillance-api/internal/config"
	"github.com/jwalitptl/surveillance-api/internal/gateway/mpesa"
	"github.com/jwalitptl/surveillance-api/internal/gateway/twilio"
	"github.com/jwalitptl/surveillance-api/internal/handler"
	alertHandler "github.com/jwalitptl/surveillance-api/internal/handler/alert"
	analyticsHandler "github.com/jwalitptl/surveillance-api/internal/handler/analytics"
	casesHandler "github.com/jwalitptl/surveillance-api/internal/handler/cases"
	"github.com/jwalitptl/surveillance-api/internal/handler/health"
	paymentHandler "github.com/jwalitptl/surveillance-api/internal/handler/payment"
	prometheusHandler "github.com/jwalitptl/surveillance-api/internal/handler/prometheus"
	"github.com/jwalitptl/surveillance-api/internal/middleware"
	"github.com/jwalitptl/surveillance-api/internal/repository/filestore"
	"github.com/jwalitptl/surveillance-api/internal/repository/postgres"
	"github.com/jwalitptl/surveillance-api/internal/router"
	"github.com/jwalitptl/surveillance-api/internal/service/alert"
	"github.com/jwalitptl/surveillance-api/internal/service/audit"
	"github.com/jwalitptl/surveillance-api/internal/service/cases"
	"github.com/jwalitptl/surveillance-api/internal/service/forecast"
	"github.com/jwalitptl/surveillance-api/internal/service/payment"
	"github.com/jwalitptl/surveillance-api/internal/service/surveillance"
	"github.com/jwalitptl/surveillance-api/pkg/logger"
	"github.com/jwalitptl/surveillance-api/pkg/messaging/redis"
	"github.com/jwalitptl/surveillance-api/pkg/metrics"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLog := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Logging.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.Logging.JSON,
	})
	log.Logger = appLog.ZL

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("failed to apply schema")
		}
	}

	m := metrics.NewMetrics(cfg.Monitoring.Namespace, prometheus.DefaultRegisterer)

	// Initialize repositories
	baseRepo := postgres.NewBaseRepository(db, m)
	caseRepo := postgres.NewCaseRepository(baseRepo)
	patientRepo := postgres.NewPatientRepository(baseRepo)
	auditRepo := postgres.NewAuditRepository(baseRepo)

	modelStore, err := filestore.NewModelStore(cfg.Models.Dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Models.Dir).Msg("failed to open model store")
	}

	// Initialize services
	forecastSvc := forecast.NewService(modelStore, caseRepo, m, appLog,
		forecast.WithMaxRange(cfg.Analytics.MaxRange),
		forecast.WithCacheTTL(cfg.Models.CacheTTL),
	)
	surveillanceSvc := surveillance.NewService(caseRepo, m, appLog)
	casesSvc := cases.NewService(caseRepo, appLog)
	auditSvc := audit.NewService(auditRepo, appLog)

	redisClient := connectRedis(ctx, cfg.Redis)
	if redisClient != nil {
		// Closing the broker closes the client.
		broker := redis.NewRedisBroker(redisClient, &log.Logger)
		defer broker.Close()

		go func() {
			if err := forecastSvc.WatchRetrains(ctx, broker); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("stopped watching for retrained models")
			}
		}()
	}

	// Initialize handlers
	routes := router.Routes{
		Public: []handler.Handler{
			health.NewHandler(readinessChecks(db, redisClient, cfg.Models.Dir)),
			analyticsHandler.NewHandler(forecastSvc, surveillanceSvc, analyticsHandler.Defaults{
				RiskDays:        cfg.Analytics.RiskDays,
				HotspotDays:     cfg.Analytics.HotspotDays,
				HotspotMinCases: cfg.Analytics.HotspotMinCases,
			}),
			casesHandler.NewHandler(casesSvc),
		},
	}

	if cfg.Monitoring.PrometheusEnabled {
		routes.Public = append(routes.Public, prometheusHandler.New(prometheus.DefaultGatherer, cfg.Monitoring.MetricsPath))
	}

	if cfg.TwilioConfigured() {
		alertSvc := alert.NewService(patientRepo, twilio.NewClient(cfg.Twilio), auditSvc, m, appLog, cfg.Alerts.Concurrency)
		routes.Protected = append(routes.Protected, alertHandler.NewHandler(alertSvc))
	} else {
		log.Warn().Msg("twilio credentials not set, /send-alert disabled")
	}

	if cfg.MPesaConfigured() {
		paymentSvc := payment.NewService(mpesa.NewClient(cfg.MPesa), auditSvc, appLog)
		routes.Callbacks = append(routes.Callbacks, paymentHandler.NewHandler(paymentSvc))
	} else {
		log.Warn().Msg("mpesa credentials not set, payment routes disabled")
	}

	// Setup router
	r := router.NewRouter(router.RouterConfig{
		Mode:           cfg.Server.Mode,
		APIKey:         cfg.Server.APIKey,
		RateLimit:      cfg.RateLimit.Enabled,
		RPS:            cfg.RateLimit.RequestsPerSecond,
		RateBurst:      cfg.RateLimit.Burst,
		RequestTimeout: cfg.Server.RequestTimeout,
		CORSConfig: middleware.CORSConfig{
			AllowOrigins: cfg.Security.AllowedOrigins,
			AllowMethods: cfg.Security.AllowedMethods,
			AllowHeaders: cfg.Security.AllowedHeaders,
		},
		MetricsPrefix: cfg.Monitoring.Namespace + "_http",
		Registerer:    prometheus.DefaultRegisterer,
	})
	r.Setup(routes)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

// connectRedis returns nil when Redis is not configured or unreachable. The
// API still serves; it just relies on the model cache TTL instead of retrain
// events.
func connectRedis(ctx context.Context, cfg config.RedisConfig) *goredis.Client {
	if cfg.URL == "" {
		log.Info().Msg("redis not configured, retrain events disabled")
		return nil
	}

	client, err := redis.NewClient(ctx, redis.Config{
		URL:          cfg.URL,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, retrain events disabled")
		return nil
	}
	return client
}

func readinessChecks(db *sqlx.DB, redisClient *goredis.Client, modelsDir string) map[string]health.Check {
	checks := map[string]health.Check{
		"database": db.PingContext,
		"models": func(context.Context) error {
			_, err := os.Stat(modelsDir)
			return err
		},
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}

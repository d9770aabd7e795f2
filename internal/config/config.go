package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Models     ModelsConfig     `mapstructure:"models"`
	Trainer    TrainerConfig    `mapstructure:"trainer"`
	Analytics  AnalyticsConfig  `mapstructure:"analytics"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Security   SecurityConfig   `mapstructure:"security"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Twilio     TwilioConfig     `mapstructure:"twilio"`
	MPesa      MPesaConfig      `mapstructure:"mpesa"`
	SMTP       SMTPConfig       `mapstructure:"smtp"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// APIKey guards the alert and payment endpoints. Loaded from BACKEND_API_KEY.
	APIKey string `mapstructure:"-"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	// URL overrides the discrete fields when set (DATABASE_URL).
	URL string `mapstructure:"-"`
}

// DSN returns the connection string for lib/pq.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

type RedisConfig struct {
	// URL is optional; without it the trainer uses an in-process lock and no
	// retrain events are published.
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type ModelsConfig struct {
	Dir      string        `mapstructure:"dir"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type TrainerConfig struct {
	// Interval of zero runs the trainer once and exits.
	Interval    time.Duration `mapstructure:"interval"`
	LockKey     string        `mapstructure:"lock_key"`
	LockTTL     time.Duration `mapstructure:"lock_ttl"`
	ReportEmail string        `mapstructure:"report_email"`
	// HealthPort serves /health/live and /metrics; zero disables it.
	HealthPort int `mapstructure:"health_port"`
	// AuditRetentionDays of zero keeps audit entries forever.
	AuditRetentionDays   int           `mapstructure:"audit_retention_days"`
	AuditCleanupInterval time.Duration `mapstructure:"audit_cleanup_interval"`
}

type AnalyticsConfig struct {
	RiskDays        int `mapstructure:"risk_days"`
	HotspotDays     int `mapstructure:"hotspot_days"`
	HotspotMinCases int `mapstructure:"hotspot_min_cases"`
	MaxRange        int `mapstructure:"max_range"`
}

type AlertsConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	MaxPatients int `mapstructure:"max_patients"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool   `mapstructure:"prometheus_enabled"`
	MetricsPath       string `mapstructure:"metrics_path"`
	Namespace         string `mapstructure:"namespace"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type TwilioConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	AccountSID   string        `mapstructure:"-"`
	AuthToken    string        `mapstructure:"-"`
	FromNumber   string        `mapstructure:"-"`
	WhatsAppFrom string        `mapstructure:"-"`
}

type MPesaConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	CallbackURL    string        `mapstructure:"callback_url"`
	AccountRef     string        `mapstructure:"account_reference"`
	Description    string        `mapstructure:"description"`
	Timeout        time.Duration `mapstructure:"timeout"`
	ConsumerKey    string        `mapstructure:"-"`
	ConsumerSecret string        `mapstructure:"-"`
	ShortCode      string        `mapstructure:"-"`
	Passkey        string        `mapstructure:"-"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	From     string `mapstructure:"from"`
	Password string `mapstructure:"-"`
}

// Secrets are read from the environment only, never from the config file.
type Secrets struct {
	DatabaseURL         string `envconfig:"DATABASE_URL"`
	BackendAPIKey       string `envconfig:"BACKEND_API_KEY"`
	TwilioAccountSID    string `envconfig:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken     string `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber    string `envconfig:"TWILIO_FROM_NUMBER"`
	TwilioWhatsAppFrom  string `envconfig:"TWILIO_WHATSAPP_FROM"`
	MPesaConsumerKey    string `envconfig:"MPESA_CONSUMER_KEY"`
	MPesaConsumerSecret string `envconfig:"MPESA_CONSUMER_SECRET"`
	MPesaShortCode      string `envconfig:"MPESA_SHORTCODE"`
	MPesaPasskey        string `envconfig:"MPESA_PASSKEY"`
	MPesaBaseURL        string `envconfig:"MPESA_BASE_URL"`
	SMTPPassword        string `envconfig:"SMTP_PASSWORD"`
	ModelsDir           string `envconfig:"MODELS_DIR"`
	RedisURL            string `envconfig:"REDIS_URL"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.request_timeout", 20*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "surveillance")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("models.dir", "models")
	v.SetDefault("models.cache_ttl", 10*time.Minute)

	v.SetDefault("trainer.lock_key", "surveillance:trainer:lock")
	v.SetDefault("trainer.lock_ttl", 10*time.Minute)
	v.SetDefault("trainer.health_port", 8081)
	v.SetDefault("trainer.audit_retention_days", 365)
	v.SetDefault("trainer.audit_cleanup_interval", 24*time.Hour)

	v.SetDefault("analytics.risk_days", 14)
	v.SetDefault("analytics.hotspot_days", 7)
	v.SetDefault("analytics.hotspot_min_cases", 3)
	v.SetDefault("analytics.max_range", 365)

	v.SetDefault("alerts.concurrency", 8)
	v.SetDefault("alerts.max_patients", 500)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("security.allowed_origins", []string{"*"})
	v.SetDefault("security.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("security.allowed_headers", []string{"Origin", "Content-Type", "X-API-Key", "X-Request-ID"})

	v.SetDefault("monitoring.prometheus_enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.namespace", "surveillance")

	v.SetDefault("logging.level", "info")

	v.SetDefault("twilio.base_url", "https://api.twilio.com")
	v.SetDefault("twilio.timeout", 10*time.Second)

	v.SetDefault("mpesa.base_url", "https://sandbox.safaricom.co.ke")
	v.SetDefault("mpesa.account_reference", "Surveillance")
	v.SetDefault("mpesa.description", "Health service payment")
	v.SetDefault("mpesa.timeout", 15*time.Second)

	v.SetDefault("smtp.port", 587)
}

// LoadConfig reads config.yaml from path (or the usual locations when path is
// empty), applies SURVEILLANCE_* environment overrides and then the secrets.
// A .env file in the working directory is loaded first if present.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	v.SetEnvPrefix("surveillance")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var secrets Secrets
	if err := envconfig.Process("", &secrets); err != nil {
		return nil, fmt.Errorf("failed to read secrets: %w", err)
	}
	cfg.applySecrets(secrets)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applySecrets(s Secrets) {
	c.Database.URL = s.DatabaseURL
	c.Server.APIKey = s.BackendAPIKey

	c.Twilio.AccountSID = s.TwilioAccountSID
	c.Twilio.AuthToken = s.TwilioAuthToken
	c.Twilio.FromNumber = s.TwilioFromNumber
	c.Twilio.WhatsAppFrom = s.TwilioWhatsAppFrom

	c.MPesa.ConsumerKey = s.MPesaConsumerKey
	c.MPesa.ConsumerSecret = s.MPesaConsumerSecret
	c.MPesa.ShortCode = s.MPesaShortCode
	c.MPesa.Passkey = s.MPesaPasskey
	if s.MPesaBaseURL != "" {
		c.MPesa.BaseURL = s.MPesaBaseURL
	}

	c.SMTP.Password = s.SMTPPassword

	if s.ModelsDir != "" {
		c.Models.Dir = s.ModelsDir
	}
	if s.RedisURL != "" {
		c.Redis.URL = s.RedisURL
	}
}

// Validate checks the values the services cannot run without.
func (c *Config) Validate() error {
	if c.Models.Dir == "" {
		return fmt.Errorf("models.dir must be set")
	}
	if c.Analytics.RiskDays < 1 || c.Analytics.HotspotDays < 1 {
		return fmt.Errorf("analytics windows must be at least one day")
	}
	if c.Analytics.MaxRange < 1 {
		return fmt.Errorf("analytics.max_range must be positive")
	}
	if c.Alerts.Concurrency < 1 {
		return fmt.Errorf("alerts.concurrency must be positive")
	}
	return nil
}

// TwilioConfigured reports whether SMS/WhatsApp credentials are present.
func (c *Config) TwilioConfigured() bool {
	return c.Twilio.AccountSID != "" && c.Twilio.AuthToken != ""
}

// MPesaConfigured reports whether Daraja credentials are present.
func (c *Config) MPesaConfigured() bool {
	return c.MPesa.ConsumerKey != "" && c.MPesa.ConsumerSecret != "" && c.MPesa.ShortCode != ""
}

// SMTPConfigured reports whether the trainer can email run reports.
func (c *Config) SMTPConfigured() bool {
	return c.SMTP.Host != "" && c.SMTP.From != ""
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	NATS         NATSConfig
	Cache        CacheConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Tracing      TracingConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	WorkerPort            string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32

	// SlowQueryThreshold logs statements at or above this duration; 0 disables it.
	SlowQueryThreshold time.Duration
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
	OpTimeout   time.Duration
}

// NATSConfig configures the assignment queue.
type NATSConfig struct {
	URL             string
	Stream          string
	Subject         string
	Durable         string
	ConnectAttempts int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	FetchBatch      int
	FetchWait       time.Duration
	NakDelay        time.Duration
}

// CacheConfig controls the cache-aside layer.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// TracingConfig points the OTLP exporter at a collector. An empty endpoint
// disables export.
type TracingConfig struct {
	Endpoint    string
	Insecure    bool
	SampleRatio float64
}

// Load reads configuration from environment variables and an optional .env
// file, applying defaults where possible. Keys map to env vars by replacing
// dots with underscores, so postgres.dsn is read from POSTGRES_DSN.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name:                  v.GetString("app.name"),
			Env:                   v.GetString("app.env"),
			Host:                  v.GetString("app.host"),
			Port:                  v.GetString("app.port"),
			WorkerPort:            v.GetString("app.worker_port"),
			Version:               v.GetString("app.version"),
			RequestTimeoutSeconds: v.GetInt("http.request_timeout_seconds"),
		},
		Postgres: PostgresConfig{
			DSN:                v.GetString("postgres.dsn"),
			MaxConns:           v.GetInt32("postgres.max_conns"),
			MinConns:           v.GetInt32("postgres.min_conns"),
			RunMigrations:      v.GetBool("postgres.run_migrations"),
			ConnMaxIdleSec:     v.GetInt32("postgres.conn_max_idle_seconds"),
			ConnMaxLifeSec:     v.GetInt32("postgres.conn_max_life_seconds"),
			SlowQueryThreshold: v.GetDuration("postgres.slow_query_threshold"),
		},
		Redis: RedisConfig{
			Addr:        v.GetString("redis.addr"),
			Password:    v.GetString("redis.password"),
			DB:          v.GetInt("redis.db"),
			PoolSize:    v.GetInt("redis.pool_size"),
			DialTimeout: v.GetDuration("redis.dial_timeout"),
			OpTimeout:   v.GetDuration("redis.op_timeout"),
		},
		NATS: NATSConfig{
			URL:             v.GetString("nats.url"),
			Stream:          v.GetString("nats.stream"),
			Subject:         v.GetString("nats.subject"),
			Durable:         v.GetString("nats.durable"),
			ConnectAttempts: v.GetInt("nats.connect_attempts"),
			InitialBackoff:  v.GetDuration("nats.initial_backoff"),
			MaxBackoff:      v.GetDuration("nats.max_backoff"),
			FetchBatch:      v.GetInt("nats.fetch_batch"),
			FetchWait:       v.GetDuration("nats.fetch_wait"),
			NakDelay:        v.GetDuration("nats.nak_delay"),
		},
		Cache: CacheConfig{
			Enabled: v.GetBool("cache.enabled"),
			TTL:     v.GetDuration("cache.ttl"),
		},
		Logger: LoggerConfig{
			Level:      v.GetString("log.level"),
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
		},
		Auth: AuthConfig{
			JWTSecret:             v.GetString("auth.jwt_secret"),
			AccessTokenTTLMinutes: v.GetInt("auth.access_token_ttl_minutes"),
			BcryptCost:            v.GetInt("auth.bcrypt_cost"),
		},
		Notification: NotificationConfig{
			EmailFrom:  v.GetString("notify.email_from"),
			WebhookURL: v.GetString("notify.webhook_url"),
		},
		Tracing: TracingConfig{
			Endpoint:    v.GetString("tracing.endpoint"),
			Insecure:    v.GetBool("tracing.insecure"),
			SampleRatio: v.GetFloat64("tracing.sample_ratio"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "demand-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.worker_port", "9090")
	v.SetDefault("app.version", "dev")
	v.SetDefault("http.request_timeout_seconds", 30)

	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.run_migrations", true)
	v.SetDefault("postgres.conn_max_idle_seconds", 30)
	v.SetDefault("postgres.conn_max_life_seconds", 300)
	v.SetDefault("postgres.slow_query_threshold", "500ms")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "2s")
	v.SetDefault("redis.op_timeout", "500ms")

	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.stream", "DEMANDS")
	v.SetDefault("nats.subject", "demands.assign")
	v.SetDefault("nats.durable", "assign-resolver")
	v.SetDefault("nats.connect_attempts", 5)
	v.SetDefault("nats.initial_backoff", "1s")
	v.SetDefault("nats.max_backoff", "30s")
	v.SetDefault("nats.fetch_batch", 10)
	v.SetDefault("nats.fetch_wait", "5s")
	v.SetDefault("nats.nak_delay", "2s")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "5m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("auth.jwt_secret", "dev-secret")
	v.SetDefault("auth.access_token_ttl_minutes", 60)
	v.SetDefault("auth.bcrypt_cost", 12)

	v.SetDefault("notify.email_from", "noreply@example.com")

	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sample_ratio", 0.1)
}

func (c *Config) validate() error {
	if c.NATS.ConnectAttempts <= 0 {
		return fmt.Errorf("invalid NATS_CONNECT_ATTEMPTS: must be positive")
	}
	if c.NATS.Subject == "" || c.NATS.Stream == "" {
		return fmt.Errorf("NATS_STREAM and NATS_SUBJECT must be provided")
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("invalid CACHE_TTL: must be positive when caching is enabled")
	}
	if c.App.Env == "production" && c.Auth.JWTSecret == "dev-secret" {
		return fmt.Errorf("AUTH_JWT_SECRET must be set in production")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// WorkerAddr is where the worker serves health and metrics.
func (a AppConfig) WorkerAddr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.WorkerPort)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the lifetime of issued tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

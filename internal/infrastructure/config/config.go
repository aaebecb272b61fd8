package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Sync        SyncConfig
	Webhook     WebhookConfig
	Credentials CredentialsConfig
	Platforms   PlatformsConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Enabled  bool // falls back to the in-memory dedup store when false
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// SyncConfig holds sync scheduler and executor configuration
type SyncConfig struct {
	WorkerCount            int
	QueueSize              int
	JobTimeout             time.Duration
	RetryMaxAttempts       int
	RetryInitialInterval   time.Duration
	RetryMaxInterval       time.Duration
	CronCheckInterval      time.Duration
	DefaultIntervalMinutes int
	PageSize               int
	JobHistorySize         int
}

// WebhookConfig holds inbound webhook processing configuration
type WebhookConfig struct {
	DedupEnabled       bool
	DedupTTL           time.Duration
	MaxPayloadBytes    int64
	RateLimitPerMinute int
}

// CredentialsConfig holds credential sealing configuration
type CredentialsConfig struct {
	// SealingKey is the hex-encoded 256-bit key used to seal stored
	// platform credentials. Required in production.
	SealingKey string
}

// MetaPlatformConfig holds the Meta app credentials shared by the
// Facebook Ads and Instagram adapters
type MetaPlatformConfig struct {
	AppID     string
	AppSecret string
}

// GoogleAdsPlatformConfig holds the Google Ads API credentials
type GoogleAdsPlatformConfig struct {
	ClientID       string
	ClientSecret   string
	DeveloperToken string
	WebhookSecret  string
}

// PlatformsConfig holds per-platform API credentials. A platform whose
// credentials are absent is simply not registered at startup.
type PlatformsConfig struct {
	Meta      MetaPlatformConfig
	GoogleAds GoogleAdsPlatformConfig
}

// MetaConfigured reports whether the Meta adapters can be registered
func (p *PlatformsConfig) MetaConfigured() bool {
	return p.Meta.AppID != "" && p.Meta.AppSecret != ""
}

// GoogleAdsConfigured reports whether the Google Ads adapter can be registered
func (p *PlatformsConfig) GoogleAdsConfigured() bool {
	return p.GoogleAds.ClientID != "" && p.GoogleAds.ClientSecret != "" && p.GoogleAds.DeveloperToken != ""
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with ADBOARD_ prefix (e.g., ADBOARD_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("ADBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Enabled:  v.GetBool("redis.enabled"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Sync: SyncConfig{
			WorkerCount:            v.GetInt("sync.worker_count"),
			QueueSize:              v.GetInt("sync.queue_size"),
			JobTimeout:             v.GetDuration("sync.job_timeout"),
			RetryMaxAttempts:       v.GetInt("sync.retry_max_attempts"),
			RetryInitialInterval:   v.GetDuration("sync.retry_initial_interval"),
			RetryMaxInterval:       v.GetDuration("sync.retry_max_interval"),
			CronCheckInterval:      v.GetDuration("sync.cron_check_interval"),
			DefaultIntervalMinutes: v.GetInt("sync.default_interval_minutes"),
			PageSize:               v.GetInt("sync.page_size"),
			JobHistorySize:         v.GetInt("sync.job_history_size"),
		},
		Webhook: WebhookConfig{
			DedupEnabled:       v.GetBool("webhook.dedup_enabled"),
			DedupTTL:           v.GetDuration("webhook.dedup_ttl"),
			MaxPayloadBytes:    v.GetInt64("webhook.max_payload_bytes"),
			RateLimitPerMinute: v.GetInt("webhook.rate_limit_per_minute"),
		},
		Credentials: CredentialsConfig{
			SealingKey: v.GetString("credentials.sealing_key"),
		},
		Platforms: PlatformsConfig{
			Meta: MetaPlatformConfig{
				AppID:     v.GetString("platforms.meta.app_id"),
				AppSecret: v.GetString("platforms.meta.app_secret"),
			},
			GoogleAds: GoogleAdsPlatformConfig{
				ClientID:       v.GetString("platforms.googleads.client_id"),
				ClientSecret:   v.GetString("platforms.googleads.client_secret"),
				DeveloperToken: v.GetString("platforms.googleads.developer_token"),
				WebhookSecret:  v.GetString("platforms.googleads.webhook_secret"),
			},
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "adboard-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "adboard"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB, webhook payloads are small
	}
	// NOTE: CORS origins are intentionally not given a default fallback to "*".
	// An empty list means no cross-origin requests are allowed until explicitly configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Tenant-ID"}
	}
	if cfg.Sync.WorkerCount == 0 {
		cfg.Sync.WorkerCount = 4
	}
	if cfg.Sync.QueueSize == 0 {
		cfg.Sync.QueueSize = 256
	}
	if cfg.Sync.JobTimeout == 0 {
		cfg.Sync.JobTimeout = 10 * time.Minute
	}
	if cfg.Sync.RetryMaxAttempts == 0 {
		cfg.Sync.RetryMaxAttempts = 5
	}
	if cfg.Sync.RetryInitialInterval == 0 {
		cfg.Sync.RetryInitialInterval = 5 * time.Second
	}
	if cfg.Sync.RetryMaxInterval == 0 {
		cfg.Sync.RetryMaxInterval = 5 * time.Minute
	}
	if cfg.Sync.CronCheckInterval == 0 {
		cfg.Sync.CronCheckInterval = time.Minute
	}
	if cfg.Sync.DefaultIntervalMinutes == 0 {
		cfg.Sync.DefaultIntervalMinutes = 15
	}
	if cfg.Sync.PageSize == 0 {
		cfg.Sync.PageSize = 100
	}
	if cfg.Sync.JobHistorySize == 0 {
		cfg.Sync.JobHistorySize = 100
	}
	if cfg.Webhook.DedupTTL == 0 {
		cfg.Webhook.DedupTTL = 24 * time.Hour
	}
	if cfg.Webhook.RateLimitPerMinute == 0 {
		cfg.Webhook.RateLimitPerMinute = 120
	}
	if cfg.Webhook.MaxPayloadBytes == 0 {
		cfg.Webhook.MaxPayloadBytes = 256 << 10 // 256KB
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate connection pool settings
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	// Sync bounds
	if c.Sync.WorkerCount < 1 {
		return fmt.Errorf("sync.worker_count must be at least 1")
	}
	if c.Sync.RetryMaxAttempts < 1 {
		return fmt.Errorf("sync.retry_max_attempts must be at least 1")
	}
	if c.Sync.DefaultIntervalMinutes < 5 || c.Sync.DefaultIntervalMinutes > 1440 {
		return fmt.Errorf("sync.default_interval_minutes must be between 5 and 1440, got %d",
			c.Sync.DefaultIntervalMinutes)
	}

	// Sealing key must decode to a 256-bit key when set
	if c.Credentials.SealingKey != "" {
		key, err := hex.DecodeString(c.Credentials.SealingKey)
		if err != nil {
			return fmt.Errorf("credentials.sealing_key must be hex encoded: %w", err)
		}
		if len(key) != 32 {
			return fmt.Errorf("credentials.sealing_key must decode to 32 bytes, got %d", len(key))
		}
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Credentials.SealingKey == "" {
			return fmt.Errorf("credentials.sealing_key is required in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		// CORS must not use wildcard with credentials
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// SealingKeyBytes returns the decoded credential sealing key.
// validate already checked the encoding and length.
func (c *CredentialsConfig) SealingKeyBytes() []byte {
	key, err := hex.DecodeString(c.SealingKey)
	if err != nil {
		return nil
	}
	return key
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

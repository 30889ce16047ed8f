package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Ingestion IngestionConfig
	Resolver  ResolverConfig
	Archive   ArchiveConfig
	Telemetry TelemetryConfig
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

// RedisConfig holds Redis connection settings. Redis backs the per-source
// run locks; when disabled the in-process lock is used instead.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings for the operator-facing API
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// IngestionConfig holds the driver settings and the run scheduler cadence
type IngestionConfig struct {
	SchedulerEnabled bool
	RunTimeout       time.Duration
	RetryDelay       time.Duration
	MaxRetryDelay    time.Duration

	Sheets SheetsSourceConfig
	CSV    CSVSourceConfig
	Gmail  GmailSourceConfig
	Mbox   MboxSourceConfig
}

// SheetsSourceConfig configures the weekly order workbook driver
type SheetsSourceConfig struct {
	Enabled         bool
	Interval        time.Duration
	SpreadsheetID   string
	CredentialsFile string // Google service account or OAuth client JSON
	TokenFile       string // cached OAuth token, unused for service accounts
}

// CSVSourceConfig configures the CSV drop-folder driver
type CSVSourceConfig struct {
	Enabled    bool
	Interval   time.Duration
	DropDir    string // directory watched for CSV drops
	MappingDir string // directory of YAML column-mapping files
}

// GmailSourceConfig configures the order-mailbox driver
type GmailSourceConfig struct {
	Enabled         bool
	Interval        time.Duration
	Label           string // Gmail label holding order mail
	Query           string // extra Gmail search query, optional
	CredentialsFile string
	TokenFile       string
	MaxMessages     int64
}

// MboxSourceConfig configures the exported-archive driver
type MboxSourceConfig struct {
	Enabled  bool
	Interval time.Duration
	Path     string // mbox file path
}

// ResolverConfig holds the entity-resolution thresholds
type ResolverConfig struct {
	AcceptThreshold    float64
	AmbiguityMargin    float64
	AutoCreateAccounts bool
}

// ArchiveConfig holds the raw-payload archive (S3-compatible) settings
type ArchiveConfig struct {
	Enabled         bool
	Endpoint        string // custom endpoint for MinIO et al, empty for AWS
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	ProfilingEnabled  bool    // Enable continuous profiling (Pyroscope)
	ProfilingEndpoint string  // Pyroscope server address
	DBTraceEnabled    bool    // Enable database query tracing (otelgorm)
	DBSlowQueryThresh time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with MEZZE_ prefix (e.g., MEZZE_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("MEZZE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("jwt.secret"),
			Expiration: v.GetDuration("jwt.expiration"),
			Issuer:     v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Ingestion: IngestionConfig{
			SchedulerEnabled: v.GetBool("ingestion.scheduler_enabled"),
			RunTimeout:       v.GetDuration("ingestion.run_timeout"),
			RetryDelay:       v.GetDuration("ingestion.retry_delay"),
			MaxRetryDelay:    v.GetDuration("ingestion.max_retry_delay"),
			Sheets: SheetsSourceConfig{
				Enabled:         v.GetBool("ingestion.sheets.enabled"),
				Interval:        v.GetDuration("ingestion.sheets.interval"),
				SpreadsheetID:   v.GetString("ingestion.sheets.spreadsheet_id"),
				CredentialsFile: v.GetString("ingestion.sheets.credentials_file"),
				TokenFile:       v.GetString("ingestion.sheets.token_file"),
			},
			CSV: CSVSourceConfig{
				Enabled:    v.GetBool("ingestion.csv.enabled"),
				Interval:   v.GetDuration("ingestion.csv.interval"),
				DropDir:    v.GetString("ingestion.csv.drop_dir"),
				MappingDir: v.GetString("ingestion.csv.mapping_dir"),
			},
			Gmail: GmailSourceConfig{
				Enabled:         v.GetBool("ingestion.gmail.enabled"),
				Interval:        v.GetDuration("ingestion.gmail.interval"),
				Label:           v.GetString("ingestion.gmail.label"),
				Query:           v.GetString("ingestion.gmail.query"),
				CredentialsFile: v.GetString("ingestion.gmail.credentials_file"),
				TokenFile:       v.GetString("ingestion.gmail.token_file"),
				MaxMessages:     v.GetInt64("ingestion.gmail.max_messages"),
			},
			Mbox: MboxSourceConfig{
				Enabled:  v.GetBool("ingestion.mbox.enabled"),
				Interval: v.GetDuration("ingestion.mbox.interval"),
				Path:     v.GetString("ingestion.mbox.path"),
			},
		},
		Resolver: ResolverConfig{
			AcceptThreshold:    v.GetFloat64("resolver.accept_threshold"),
			AmbiguityMargin:    v.GetFloat64("resolver.ambiguity_margin"),
			AutoCreateAccounts: !v.IsSet("resolver.auto_create_accounts") || v.GetBool("resolver.auto_create_accounts"),
		},
		Archive: ArchiveConfig{
			Enabled:         v.GetBool("archive.enabled"),
			Endpoint:        v.GetString("archive.endpoint"),
			Region:          v.GetString("archive.region"),
			Bucket:          v.GetString("archive.bucket"),
			AccessKeyID:     v.GetString("archive.access_key_id"),
			SecretAccessKey: v.GetString("archive.secret_access_key"),
			UsePathStyle:    v.GetBool("archive.use_path_style"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			ProfilingEndpoint: v.GetString("telemetry.profiling_endpoint"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "mezze-backend"
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
		cfg.Database.DBName = "mezze"
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
	if cfg.JWT.Expiration == 0 {
		cfg.JWT.Expiration = 12 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "mezze-backend"
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
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	// NOTE: CORS origins deliberately have no "*" fallback. An empty list
	// allows no cross-origin requests until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Ingestion.RunTimeout == 0 {
		cfg.Ingestion.RunTimeout = 15 * time.Minute
	}
	if cfg.Ingestion.RetryDelay == 0 {
		cfg.Ingestion.RetryDelay = time.Minute
	}
	if cfg.Ingestion.MaxRetryDelay == 0 {
		cfg.Ingestion.MaxRetryDelay = 30 * time.Minute
	}
	if cfg.Ingestion.Sheets.Interval == 0 {
		cfg.Ingestion.Sheets.Interval = time.Hour
	}
	if cfg.Ingestion.CSV.Interval == 0 {
		cfg.Ingestion.CSV.Interval = 15 * time.Minute
	}
	if cfg.Ingestion.Gmail.Interval == 0 {
		cfg.Ingestion.Gmail.Interval = 30 * time.Minute
	}
	if cfg.Ingestion.Gmail.Label == "" {
		cfg.Ingestion.Gmail.Label = "orders"
	}
	if cfg.Ingestion.Gmail.MaxMessages == 0 {
		cfg.Ingestion.Gmail.MaxMessages = 500
	}
	if cfg.Ingestion.Mbox.Interval == 0 {
		cfg.Ingestion.Mbox.Interval = 24 * time.Hour
	}
	// Resolver thresholds: 0.72 accepts common typo distance on short trade
	// names, and the 0.08 margin keeps near-ties out of auto-merge.
	if cfg.Resolver.AcceptThreshold == 0 {
		cfg.Resolver.AcceptThreshold = 0.72
	}
	if cfg.Resolver.AmbiguityMargin == 0 {
		cfg.Resolver.AmbiguityMargin = 0.08
	}
	if cfg.Archive.Region == "" {
		cfg.Archive.Region = "us-west-2"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "mezze-backend"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
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

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Resolver.AcceptThreshold <= 0 || c.Resolver.AcceptThreshold > 1 {
		return fmt.Errorf("resolver.accept_threshold must be in (0, 1], got %f", c.Resolver.AcceptThreshold)
	}
	if c.Resolver.AmbiguityMargin < 0 || c.Resolver.AmbiguityMargin >= 1 {
		return fmt.Errorf("resolver.ambiguity_margin must be in [0, 1), got %f", c.Resolver.AmbiguityMargin)
	}

	if c.Ingestion.Sheets.Enabled && c.Ingestion.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("ingestion.sheets.spreadsheet_id is required when the sheets source is enabled")
	}
	if c.Ingestion.CSV.Enabled && c.Ingestion.CSV.DropDir == "" {
		return fmt.Errorf("ingestion.csv.drop_dir is required when the csv source is enabled")
	}
	if c.Ingestion.Mbox.Enabled && c.Ingestion.Mbox.Path == "" {
		return fmt.Errorf("ingestion.mbox.path is required when the mbox source is enabled")
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket is required when the archive is enabled")
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
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

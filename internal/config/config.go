package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from a .env file or environment variables.
type Config struct {
	Web      WebConfig      `mapstructure:"web"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Session  SessionConfig  `mapstructure:"session"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Clamd    ClamdConfig    `mapstructure:"clamd"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Log      LogConfig      `mapstructure:"log"`
}

// WebConfig contains HTTP server settings.
type WebConfig struct {
	Port           int      `mapstructure:"port"`
	BaseURL        string   `mapstructure:"base_url"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`
	SessionSecret  string   `mapstructure:"session_secret"`
	CookieSecure   bool     `mapstructure:"cookie_secure"`
	InternalSecret string   `mapstructure:"internal_secret"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AnalysisConfig points at the external analysis service.
type AnalysisConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	UploadPath  string        `mapstructure:"upload_path"`
	AnalyzePath string        `mapstructure:"analyze_path"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// SessionConfig selects the tab-scoped storage backend.
type SessionConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// WorkflowConfig bounds how often and how long a session may run analyses.
type WorkflowConfig struct {
	MaxRunsPerHour int           `mapstructure:"max_runs_per_hour"`
	InflightTTL    time.Duration `mapstructure:"inflight_ttl"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the host:port pair go-redis and asynq expect.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// ClamdConfig enables upload scanning when Addr is set.
type ClamdConfig struct {
	Addr string `mapstructure:"addr"`
}

// WorkerConfig contains export worker settings.
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

// Load reads configuration from environment variables (with optional defaults).
// A .env file in the working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Web.AllowedOrigins = splitOrigins(cfg.Web.AllowedOrigins)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("web.port", 8080)
	v.SetDefault("web.base_url", "http://localhost:8080")
	v.SetDefault("web.max_upload_bytes", 10<<20)
	v.SetDefault("web.cookie_secure", false)
	v.SetDefault("analysis.base_url", "http://localhost:8000")
	v.SetDefault("analysis.upload_path", "/upload_resume")
	v.SetDefault("analysis.analyze_path", "/analyze")
	v.SetDefault("analysis.timeout", time.Duration(0))
	v.SetDefault("session.backend", SessionBackendRedis)
	v.SetDefault("session.ttl", 2*time.Hour)
	v.SetDefault("workflow.max_runs_per_hour", 30)
	v.SetDefault("workflow.inflight_ttl", 5*time.Minute)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "result-exports")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"web.port":                   "WEB_PORT",
		"web.base_url":               "WEB_BASE_URL",
		"web.max_upload_bytes":       "MAX_UPLOAD_BYTES",
		"web.session_secret":         "SESSION_SECRET",
		"web.cookie_secure":          "COOKIE_SECURE",
		"web.internal_secret":        "INTERNAL_API_SECRET",
		"web.allowed_origins":        "ALLOWED_ORIGINS",
		"analysis.base_url":          "ANALYSIS_BASE_URL",
		"analysis.upload_path":       "ANALYSIS_UPLOAD_PATH",
		"analysis.analyze_path":      "ANALYSIS_ANALYZE_PATH",
		"analysis.timeout":           "ANALYSIS_TIMEOUT",
		"session.backend":            "SESSION_BACKEND",
		"session.ttl":                "SESSION_TTL",
		"workflow.max_runs_per_hour": "MAX_RUNS_PER_HOUR",
		"workflow.inflight_ttl":      "INFLIGHT_TTL",
		"redis.host":                 "REDIS_HOST",
		"redis.port":                 "REDIS_PORT",
		"redis.password":             "REDIS_PASSWORD",
		"redis.db":                   "REDIS_DB",
		"minio.endpoint":             "MINIO_ENDPOINT",
		"minio.public_endpoint":      "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":        "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":    "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":              "MINIO_USE_SSL",
		"minio.bucket":               "MINIO_BUCKET",
		"minio.region":               "MINIO_REGION",
		"minio.bucket_lookup":        "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket":   "MINIO_AUTO_CREATE_BUCKET",
		"clamd.addr":                 "CLAMD_ADDR",
		"worker.concurrency":         "WORKER_CONCURRENCY",
		"log.level":                  "LOG_LEVEL",
		"log.format":                 "LOG_FORMAT",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

// splitOrigins accepts both a real list and a single comma separated env value.
func splitOrigins(raw []string) []string {
	var out []string
	for _, entry := range raw {
		for _, part := range strings.Split(entry, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func validate(cfg Config) error {
	if cfg.Web.Port <= 0 {
		return errors.New("web port must be positive")
	}
	if cfg.Web.MaxUploadBytes <= 0 {
		return errors.New("max upload bytes must be positive")
	}
	if len(strings.TrimSpace(cfg.Web.SessionSecret)) < 16 {
		return errors.New("session secret must be at least 16 characters")
	}
	if _, err := url.ParseRequestURI(cfg.Web.BaseURL); err != nil {
		return fmt.Errorf("invalid web base url: %w", err)
	}
	if _, err := url.ParseRequestURI(cfg.Analysis.BaseURL); err != nil {
		return fmt.Errorf("invalid analysis base url: %w", err)
	}
	if !strings.HasPrefix(cfg.Analysis.UploadPath, "/") {
		return errors.New("analysis upload path must start with /")
	}
	if !strings.HasPrefix(cfg.Analysis.AnalyzePath, "/") {
		return errors.New("analysis analyze path must start with /")
	}
	if cfg.Analysis.Timeout < 0 {
		return errors.New("analysis timeout must not be negative")
	}
	switch cfg.Session.Backend {
	case SessionBackendRedis, SessionBackendMemory:
	default:
		return fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
	if cfg.Session.TTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if cfg.Workflow.MaxRunsPerHour < 0 {
		return errors.New("max runs per hour must not be negative")
	}
	if cfg.Workflow.InflightTTL <= 0 {
		return errors.New("inflight ttl must be positive")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.Worker.Concurrency <= 0 {
		return errors.New("worker concurrency must be positive")
	}
	return nil
}

// ValidateExport checks the settings only the export path needs (object storage and the internal secret).
func (c *Config) ValidateExport() error {
	if strings.TrimSpace(c.Web.InternalSecret) == "" {
		return errors.New("internal api secret is required")
	}
	if c.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if c.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if c.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if c.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	return nil
}

// ExportEnabled reports whether every export dependency is configured.
func (c *Config) ExportEnabled() bool {
	return c.ValidateExport() == nil
}

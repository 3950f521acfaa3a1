package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Backend  BackendConfig
	Polling  PollingConfig
	Cache    CacheConfig
	Redis    RedisConfig
	GCP      GCPConfig
	BigQuery BigQueryConfig
	Warmer   WarmerConfig

	// RateLimit throttles analytics reads per client; requires Redis.
	RateLimit RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"INSIGHTS_APP_ENV" required:"true"`
	Port         string `envconfig:"INSIGHTS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"INSIGHTS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"INSIGHTS_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"INSIGHTS_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	return splitList(a.CORSOrigins)
}

// BackendConfig selects the computation service the resolver talks to.
type BackendConfig struct {
	Kind           string        `envconfig:"INSIGHTS_BACKEND_KIND" default:"http"`
	BaseURL        string        `envconfig:"INSIGHTS_BACKEND_BASE_URL"`
	APIKey         string        `envconfig:"INSIGHTS_BACKEND_API_KEY"`
	RequestTimeout time.Duration `envconfig:"INSIGHTS_BACKEND_REQUEST_TIMEOUT" default:"15s"`
}

type PollingConfig struct {
	Interval time.Duration `envconfig:"INSIGHTS_POLL_INTERVAL" default:"2s"`
	// MaxWait of zero polls until a terminal state or cancellation.
	MaxWait time.Duration `envconfig:"INSIGHTS_POLL_MAX_WAIT" default:"0s"`
}

type CacheConfig struct {
	Capacity     int           `envconfig:"INSIGHTS_CACHE_CAPACITY" default:"2"`
	RedisEnabled bool          `envconfig:"INSIGHTS_CACHE_REDIS_ENABLED" default:"false"`
	RedisTTL     time.Duration `envconfig:"INSIGHTS_CACHE_REDIS_TTL" default:"1h"`
}

type RedisConfig struct {
	URL          string        `envconfig:"INSIGHTS_REDIS_URL"`
	Address      string        `envconfig:"INSIGHTS_REDIS_ADDR"`
	Password     string        `envconfig:"INSIGHTS_REDIS_PASSWORD"`
	DB           int           `envconfig:"INSIGHTS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"INSIGHTS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"INSIGHTS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"INSIGHTS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"INSIGHTS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"INSIGHTS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether a Redis endpoint was supplied.
func (r RedisConfig) Configured() bool {
	return r.URL != "" || r.Address != ""
}

type GCPConfig struct {
	ProjectID              string `envconfig:"INSIGHTS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"INSIGHTS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"INSIGHTS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type BigQueryConfig struct {
	Dataset           string `envconfig:"INSIGHTS_BIGQUERY_DATASET" default:"insights"`
	DailyMetricsTable string `envconfig:"INSIGHTS_BIGQUERY_DAILY_TABLE" default:"daily_metrics"`
	Location          string `envconfig:"INSIGHTS_BIGQUERY_LOCATION" default:"US"`
}

type WarmerConfig struct {
	Interval    time.Duration `envconfig:"INSIGHTS_WARMER_INTERVAL" default:"15m"`
	EntityIDs   string        `envconfig:"INSIGHTS_WARMER_ENTITY_IDS"`
	MetricKinds string        `envconfig:"INSIGHTS_WARMER_METRIC_KINDS" default:"kpi_summary,time_series"`
	Presets     string        `envconfig:"INSIGHTS_WARMER_PRESETS" default:"this_month,last_30_days"`
	LockTTL     time.Duration `envconfig:"INSIGHTS_WARMER_LOCK_TTL" default:"10m"`
}

type RateLimitConfig struct {
	Window   time.Duration `envconfig:"INSIGHTS_RATE_LIMIT_WINDOW" default:"1m"`
	Requests int           `envconfig:"INSIGHTS_RATE_LIMIT_REQUESTS" default:"120"`
}

func (w WarmerConfig) Entities() []string {
	return splitList(w.EntityIDs)
}

func (w WarmerConfig) Kinds() []string {
	return splitList(w.MetricKinds)
}

func (w WarmerConfig) PresetList() []string {
	return splitList(w.Presets)
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Backend.Kind)) {
	case BackendKindHTTP:
		if c.Backend.BaseURL == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvBackendBaseURL, EnvBackendKind, BackendKindHTTP)
		}
	case BackendKindBigQuery:
		if c.GCP.ProjectID == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvGCPProjectID, EnvBackendKind, BackendKindBigQuery)
		}
	default:
		return fmt.Errorf("%s must be one of %s, %s", EnvBackendKind, BackendKindHTTP, BackendKindBigQuery)
	}
	if c.Polling.Interval <= 0 {
		return fmt.Errorf("%s must be positive", EnvPollInterval)
	}
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("%s must be positive", EnvCacheCapacity)
	}
	if c.Cache.RedisEnabled && !c.Redis.Configured() {
		return fmt.Errorf("%s requires %s or %s", EnvCacheRedisEnabled, EnvRedisURL, EnvRedisAddr)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

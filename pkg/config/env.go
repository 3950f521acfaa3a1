package config

const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	BackendKindHTTP     = "http"
	BackendKindBigQuery = "bigquery"
)

const (
	EnvAppEnv            = "INSIGHTS_APP_ENV"
	EnvPort              = "INSIGHTS_APP_PORT"
	EnvBackendKind       = "INSIGHTS_BACKEND_KIND"
	EnvBackendBaseURL    = "INSIGHTS_BACKEND_BASE_URL"
	EnvPollInterval      = "INSIGHTS_POLL_INTERVAL"
	EnvPollMaxWait       = "INSIGHTS_POLL_MAX_WAIT"
	EnvCacheCapacity     = "INSIGHTS_CACHE_CAPACITY"
	EnvCacheRedisEnabled = "INSIGHTS_CACHE_REDIS_ENABLED"
	EnvRedisURL          = "INSIGHTS_REDIS_URL"
	EnvRedisAddr         = "INSIGHTS_REDIS_ADDR"
	EnvGCPProjectID      = "INSIGHTS_GCP_PROJECT_ID"
	EnvWarmerEntityIDs   = "INSIGHTS_WARMER_ENTITY_IDS"
	EnvWarmerMetricKinds = "INSIGHTS_WARMER_METRIC_KINDS"
	EnvWarmerPresets     = "INSIGHTS_WARMER_PRESETS"
)

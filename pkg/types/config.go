package types

// Config represents the overall application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server" json:"server"`
	Logging      LoggingConfig      `yaml:"logging" json:"logging"`
	Storage      StorageConfig      `yaml:"storage" json:"storage"`
	Providers    ProvidersConfig    `yaml:"providers" json:"providers"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator" json:"orchestrator"`
	Devices      DevicesConfig      `yaml:"devices" json:"devices"`
	Sync         SyncConfig         `yaml:"sync" json:"sync"`
	Gateway      GatewayConfig      `yaml:"gateway" json:"gateway"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string `yaml:"host" json:"host"`
	Port         int    `yaml:"port" json:"port"`
	ReadTimeout  int    `yaml:"read_timeout" json:"read_timeout"`   // seconds
	WriteTimeout int    `yaml:"write_timeout" json:"write_timeout"` // seconds
}

// LoggingConfig controls the zerolog output
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // trace..panic
	Pretty bool   `yaml:"pretty" json:"pretty"` // console writer instead of JSON
}

// StorageConfig defines storage adapter settings
type StorageConfig struct {
	Adapter string            `yaml:"adapter" json:"adapter"` // "local" or "s3"
	Local   LocalStorageOpts  `yaml:"local" json:"local"`
	S3      S3StorageOpts     `yaml:"s3" json:"s3"`
	Options map[string]string `yaml:"options" json:"options"`
}

// LocalStorageOpts configures the local filesystem adapter
type LocalStorageOpts struct {
	BasePath string `yaml:"base_path" json:"base_path"`
}

// S3StorageOpts configures the S3-compatible adapter
type S3StorageOpts struct {
	Endpoint        string `yaml:"endpoint" json:"endpoint"`
	Region          string `yaml:"region" json:"region"`
	Bucket          string `yaml:"bucket" json:"bucket"`
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key"`
	UseSSL          bool   `yaml:"use_ssl" json:"use_ssl"`
}

// ProvidersConfig holds all remote provider configurations
type ProvidersConfig struct {
	TTS        []ProviderConfig `yaml:"tts" json:"tts"`
	STT        []ProviderConfig `yaml:"stt" json:"stt"`
	Vision     []ProviderConfig `yaml:"vision" json:"vision"`
	Audio      []ProviderConfig `yaml:"audio" json:"audio"`
	Classifier []ProviderConfig `yaml:"classifier" json:"classifier"`
}

// ProviderConfig configures one remote provider instance
type ProviderConfig struct {
	Name         string            `yaml:"name" json:"name"`
	Enabled      bool              `yaml:"enabled" json:"enabled"`
	Endpoint     string            `yaml:"endpoint" json:"endpoint"`
	APIKey       string            `yaml:"api_key" json:"api_key"`
	Model        string            `yaml:"model" json:"model"`
	Concurrency  int               `yaml:"concurrency" json:"concurrency"`
	RateLimitQPS float64           `yaml:"rate_limit_qps" json:"rate_limit_qps"`
	Options      map[string]string `yaml:"options" json:"options"`
}

// OrchestratorConfig holds session and scheduling settings
type OrchestratorConfig struct {
	SessionTTLMinutes  int     `yaml:"session_ttl_minutes" json:"session_ttl_minutes"`
	ReadingWPM         float64 `yaml:"reading_wpm" json:"reading_wpm"`
	MaxChunkChars      int     `yaml:"max_chunk_chars" json:"max_chunk_chars"`
	MaxInflightPerSess int     `yaml:"max_inflight_per_session" json:"max_inflight_per_session"`
	CallTimeoutSeconds int     `yaml:"call_timeout_seconds" json:"call_timeout_seconds"`
}

// DevicesConfig holds fan-out settings
type DevicesConfig struct {
	DispatchTimeoutMs  int `yaml:"dispatch_timeout_ms" json:"dispatch_timeout_ms"`
	RetryInitialMs     int `yaml:"retry_initial_ms" json:"retry_initial_ms"`
	RetryMaxAttempts   int `yaml:"retry_max_attempts" json:"retry_max_attempts"`
	HeartbeatPeriodSec int `yaml:"heartbeat_period_seconds" json:"heartbeat_period_seconds"`
}

// SyncConfig holds content sync settings
type SyncConfig struct {
	// Whitelist maps category name to a path prefix inside the storage
	// adapter. Only files under these prefixes are syncable.
	Whitelist          map[string]string `yaml:"whitelist" json:"whitelist"`
	CacheTTLSeconds    int               `yaml:"cache_ttl_seconds" json:"cache_ttl_seconds"`
	FileTimeoutSeconds int               `yaml:"file_timeout_seconds" json:"file_timeout_seconds"`
	OutboxSize         int               `yaml:"outbox_size" json:"outbox_size"`
}

// GatewayConfig holds auth, quota and rate limit settings
type GatewayConfig struct {
	// APIKeys is normally populated from the SR_API_KEYS environment
	// variable (comma-separated) rather than the config file.
	APIKeys     []string       `yaml:"api_keys" json:"-"`
	RatePerSec  float64        `yaml:"rate_per_sec" json:"rate_per_sec"`
	RateBurst   int            `yaml:"rate_burst" json:"rate_burst"`
	DailyQuotas map[string]int `yaml:"daily_quotas" json:"daily_quotas"` // route class -> count
}

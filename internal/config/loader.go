package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/yichenlu/sensereader/pkg/types"
	"gopkg.in/yaml.v3"
)

// Load reads and parses the configuration file.
// It also supports environment variable overrides with SR_ prefix.
func Load(configPath string) (*types.Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := GetDefault()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func Validate(cfg *types.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	if cfg.Storage.Adapter != "local" && cfg.Storage.Adapter != "s3" {
		return fmt.Errorf("invalid storage adapter: %s (must be 'local' or 's3')", cfg.Storage.Adapter)
	}

	if cfg.Storage.Adapter == "local" && cfg.Storage.Local.BasePath == "" {
		return fmt.Errorf("local storage base_path is required")
	}

	if cfg.Storage.Adapter == "s3" {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket is required")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("s3 region is required")
		}
	}

	if cfg.Orchestrator.ReadingWPM <= 0 {
		cfg.Orchestrator.ReadingWPM = 200
	}
	if cfg.Orchestrator.MaxChunkChars <= 0 {
		cfg.Orchestrator.MaxChunkChars = 500
	}
	if cfg.Orchestrator.SessionTTLMinutes <= 0 {
		cfg.Orchestrator.SessionTTLMinutes = 30
	}
	if cfg.Orchestrator.MaxInflightPerSess <= 0 {
		cfg.Orchestrator.MaxInflightPerSess = 32
	}
	if cfg.Orchestrator.CallTimeoutSeconds <= 0 {
		cfg.Orchestrator.CallTimeoutSeconds = 10
	}

	if cfg.Devices.DispatchTimeoutMs <= 0 {
		cfg.Devices.DispatchTimeoutMs = 2000
	}
	if cfg.Devices.RetryInitialMs <= 0 {
		cfg.Devices.RetryInitialMs = 200
	}
	if cfg.Devices.RetryMaxAttempts < 0 {
		cfg.Devices.RetryMaxAttempts = 2
	}
	if cfg.Devices.HeartbeatPeriodSec <= 0 {
		cfg.Devices.HeartbeatPeriodSec = 10
	}

	if cfg.Sync.CacheTTLSeconds <= 0 {
		cfg.Sync.CacheTTLSeconds = 5
	}
	if cfg.Sync.FileTimeoutSeconds <= 0 {
		cfg.Sync.FileTimeoutSeconds = 5
	}
	if cfg.Sync.OutboxSize <= 0 {
		cfg.Sync.OutboxSize = 16
	}
	for category, prefix := range cfg.Sync.Whitelist {
		if strings.Contains(prefix, "..") {
			return fmt.Errorf("sync whitelist %s: prefix must not contain '..': %s", category, prefix)
		}
	}

	if cfg.Gateway.RatePerSec <= 0 {
		cfg.Gateway.RatePerSec = 20
	}
	if cfg.Gateway.RateBurst <= 0 {
		cfg.Gateway.RateBurst = 40
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
// Environment variables are prefixed with SR_ (SenseReader).
func applyEnvOverrides(cfg *types.Config) {
	if val := os.Getenv("SR_SERVER_HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := os.Getenv("SR_SERVER_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = port
		}
	}
	if val := os.Getenv("SR_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}

	if val := os.Getenv("SR_STORAGE_ADAPTER"); val != "" {
		cfg.Storage.Adapter = val
	}
	if val := os.Getenv("SR_STORAGE_LOCAL_BASE_PATH"); val != "" {
		cfg.Storage.Local.BasePath = val
	}
	if val := os.Getenv("SR_STORAGE_S3_BUCKET"); val != "" {
		cfg.Storage.S3.Bucket = val
	}
	if val := os.Getenv("SR_STORAGE_S3_REGION"); val != "" {
		cfg.Storage.S3.Region = val
	}
	if val := os.Getenv("SR_STORAGE_S3_ENDPOINT"); val != "" {
		cfg.Storage.S3.Endpoint = val
	}
	if val := os.Getenv("SR_STORAGE_S3_ACCESS_KEY_ID"); val != "" {
		cfg.Storage.S3.AccessKeyID = val
	}
	if val := os.Getenv("SR_STORAGE_S3_SECRET_ACCESS_KEY"); val != "" {
		cfg.Storage.S3.SecretAccessKey = val
	}

	// Comma-separated API keys; the config file never carries credentials.
	if val := os.Getenv("SR_API_KEYS"); val != "" {
		keys := make([]string, 0)
		for _, k := range strings.Split(val, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
		cfg.Gateway.APIKeys = keys
	}

	applyProviderEnvOverrides(cfg)
}

// applyProviderEnvOverrides applies provider-specific env vars, e.g.
// SR_TTS_OPENAI_API_KEY overrides the api_key of the TTS provider "openai".
func applyProviderEnvOverrides(cfg *types.Config) {
	groups := map[string][]types.ProviderConfig{
		"TTS":        cfg.Providers.TTS,
		"STT":        cfg.Providers.STT,
		"VISION":     cfg.Providers.Vision,
		"AUDIO":      cfg.Providers.Audio,
		"CLASSIFIER": cfg.Providers.Classifier,
	}
	for group, providers := range groups {
		for i := range providers {
			prefix := fmt.Sprintf("SR_%s_%s_", group, strings.ToUpper(providers[i].Name))
			if val := os.Getenv(prefix + "API_KEY"); val != "" {
				providers[i].APIKey = val
			}
			if val := os.Getenv(prefix + "ENDPOINT"); val != "" {
				providers[i].Endpoint = val
			}
		}
	}
}

// GetDefault returns a default configuration
func GetDefault() *types.Config {
	return &types.Config{
		Server: types.ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15,
			WriteTimeout: 15,
		},
		Logging: types.LoggingConfig{
			Level: "info",
		},
		Storage: types.StorageConfig{
			Adapter: "local",
			Local: types.LocalStorageOpts{
				BasePath: "/var/lib/sensereader/storage",
			},
		},
		Orchestrator: types.OrchestratorConfig{
			SessionTTLMinutes:  30,
			ReadingWPM:         200,
			MaxChunkChars:      500,
			MaxInflightPerSess: 32,
			CallTimeoutSeconds: 10,
		},
		Devices: types.DevicesConfig{
			DispatchTimeoutMs:  2000,
			RetryInitialMs:     200,
			RetryMaxAttempts:   2,
			HeartbeatPeriodSec: 10,
		},
		Sync: types.SyncConfig{
			Whitelist: map[string]string{
				"content": "content",
			},
			CacheTTLSeconds:    5,
			FileTimeoutSeconds: 5,
			OutboxSize:         16,
		},
		Gateway: types.GatewayConfig{
			RatePerSec: 20,
			RateBurst:  40,
			DailyQuotas: map[string]int{
				"play":  500,
				"tts":   1000,
				"image": 100,
			},
		},
	}
}

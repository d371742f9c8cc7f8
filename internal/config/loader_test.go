package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

const minimalConfig = `
server:
  host: "127.0.0.1"
  port: 9090
storage:
  adapter: local
  local:
    base_path: /tmp/sensereader-test
`

func TestLoad(t *testing.T) {
	t.Run("Minimal config with defaults", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, minimalConfig))
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		if cfg.Server.Port != 9090 {
			t.Errorf("Port = %d, want 9090", cfg.Server.Port)
		}
		if cfg.Orchestrator.ReadingWPM != 200 {
			t.Errorf("ReadingWPM = %f, want default 200", cfg.Orchestrator.ReadingWPM)
		}
		if cfg.Orchestrator.SessionTTLMinutes != 30 {
			t.Errorf("SessionTTL = %d, want default 30", cfg.Orchestrator.SessionTTLMinutes)
		}
		if cfg.Devices.DispatchTimeoutMs != 2000 {
			t.Errorf("DispatchTimeout = %d, want default 2000", cfg.Devices.DispatchTimeoutMs)
		}
		if cfg.Gateway.RatePerSec != 20 {
			t.Errorf("RatePerSec = %f, want default 20", cfg.Gateway.RatePerSec)
		}
		if cfg.Sync.CacheTTLSeconds != 5 {
			t.Errorf("CacheTTL = %d, want default 5", cfg.Sync.CacheTTLSeconds)
		}
	})

	t.Run("Missing file", func(t *testing.T) {
		if _, err := Load("/nonexistent/config.yaml"); err == nil {
			t.Error("Expected error for missing file")
		}
	})

	t.Run("Invalid port", func(t *testing.T) {
		bad := `
server:
  port: 99999
storage:
  adapter: local
  local:
    base_path: /tmp/x
`
		if _, err := Load(writeConfig(t, bad)); err == nil {
			t.Error("Expected validation error for bad port")
		}
	})

	t.Run("Invalid storage adapter", func(t *testing.T) {
		bad := `
server:
  port: 8080
storage:
  adapter: floppy
`
		if _, err := Load(writeConfig(t, bad)); err == nil {
			t.Error("Expected validation error for unknown adapter")
		}
	})

	t.Run("S3 requires bucket and region", func(t *testing.T) {
		bad := `
server:
  port: 8080
storage:
  adapter: s3
  s3:
    bucket: ""
`
		if _, err := Load(writeConfig(t, bad)); err == nil {
			t.Error("Expected validation error for missing bucket")
		}
	})
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SR_SERVER_PORT", "7070")
	t.Setenv("SR_API_KEYS", "key-one, key-two,")
	t.Setenv("SR_STORAGE_LOCAL_BASE_PATH", "/tmp/override")

	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Storage.Local.BasePath != "/tmp/override" {
		t.Errorf("BasePath = %s, want /tmp/override", cfg.Storage.Local.BasePath)
	}
	if len(cfg.Gateway.APIKeys) != 2 || cfg.Gateway.APIKeys[0] != "key-one" || cfg.Gateway.APIKeys[1] != "key-two" {
		t.Errorf("APIKeys = %v, want [key-one key-two]", cfg.Gateway.APIKeys)
	}
}

func TestProviderEnvOverrides(t *testing.T) {
	t.Setenv("SR_TTS_OPENAI_API_KEY", "sk-from-env")

	content := minimalConfig + `
providers:
  tts:
    - name: openai
      enabled: true
      endpoint: https://api.example.com/v1
      model: tts-1
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Providers.TTS[0].APIKey != "sk-from-env" {
		t.Errorf("APIKey = %s, want env override", cfg.Providers.TTS[0].APIKey)
	}
}

func TestGetDefault(t *testing.T) {
	cfg := GetDefault()
	if err := Validate(cfg); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
	if cfg.Gateway.DailyQuotas["play"] == 0 {
		t.Error("Default play quota missing")
	}
}

package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}
	if cfg.Polling.Interval != 2*time.Second {
		t.Fatalf("expected default poll interval 2s, got %v", cfg.Polling.Interval)
	}
	if cfg.Polling.MaxWait != 0 {
		t.Fatalf("expected unlimited max wait, got %v", cfg.Polling.MaxWait)
	}
	if cfg.Cache.Capacity != 2 {
		t.Fatalf("expected default capacity 2, got %d", cfg.Cache.Capacity)
	}
	if got := cfg.Warmer.Kinds(); len(got) != 2 || got[0] != "kpi_summary" {
		t.Fatalf("unexpected warmer kinds %v", got)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_BackendValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "http without base url", env: map[string]string{EnvBackendBaseURL: ""}},
		{name: "bigquery without project", env: map[string]string{EnvBackendKind: "bigquery"}},
		{name: "unknown kind", env: map[string]string{EnvBackendKind: "grpc"}},
		{name: "zero capacity", env: map[string]string{EnvCacheCapacity: "0"}},
		{name: "redis tier without redis", env: map[string]string{EnvCacheRedisEnabled: "true"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setMinimalEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "production")
	t.Setenv(EnvPort, "8081")
	t.Setenv(EnvBackendKind, "http")
	t.Setenv(EnvBackendBaseURL, "https://analytics.internal")
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "prod"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
	if prodConfig.IsDev() {
		t.Fatalf("expected IsDev false for %q", prodConfig.Env)
	}

	if got := (AppConfig{CORSOrigins: " https://a.io, ,https://b.io "}).AllowedOrigins(); len(got) != 2 {
		t.Fatalf("expected 2 origins, got %v", got)
	}
}

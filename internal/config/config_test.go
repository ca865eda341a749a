package config

import (
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so host environment cannot leak
// into the assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT", "READ_TIMEOUT", "READ_HEADER_TIMEOUT", "WRITE_TIMEOUT",
		"IDLE_TIMEOUT", "MAX_HEADER_BYTES", "GIN_MODE",
		"LOG_LEVEL", "LOG_PRETTY",
		"DB_PATH", "UPLOAD_DIR", "STORAGE_BACKEND", "MAX_UPLOAD_BYTES",
		"RATE_RPS", "RATE_BURST",
		"CORS_ALLOWED_ORIGINS", "ENABLE_HSTS", "HSTS_MAX_AGE",
		"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT",
		"OTEL_EXPORTER_OTLP_INSECURE", "OTEL_SERVICE_NAME",
		"OTEL_TRACES_SAMPLER_ARG",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q", cfg.GinMode)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.DBPath != "audio_messages.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.UploadDir != "uploads" {
		t.Errorf("UploadDir = %q", cfg.UploadDir)
	}
	if cfg.StorageBackend != "fs" {
		t.Errorf("StorageBackend = %q", cfg.StorageBackend)
	}
	if cfg.MaxUploadBytes != 50<<20 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if cfg.ReadTimeout != 15*time.Second {
		t.Errorf("ReadTimeout = %v", cfg.ReadTimeout)
	}
	if cfg.RateRPS != 10.0 || cfg.RateBurst != 20 {
		t.Errorf("rate = %v/%d", cfg.RateRPS, cfg.RateBurst)
	}
	if cfg.OTEL.Enabled {
		t.Error("OTEL enabled by default")
	}
	if cfg.OTEL.ServiceName != "audio-backend" {
		t.Errorf("OTEL.ServiceName = %q", cfg.OTEL.ServiceName)
	}
	if len(cfg.CORS.AllowedOrigins) != 0 {
		t.Errorf("CORS.AllowedOrigins = %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("STORAGE_BACKEND", "MEMORY")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("LOG_LEVEL", "warning")
	t.Setenv("READ_TIMEOUT", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.StorageBackend != "memory" {
		t.Errorf("StorageBackend = %q", cfg.StorageBackend)
	}
	if cfg.MaxUploadBytes != 1024 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("warning alias not normalized: %q", cfg.LogLevel)
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v", cfg.ReadTimeout)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.CORS.AllowedOrigins) != len(want) {
		t.Fatalf("origins = %v", cfg.CORS.AllowedOrigins)
	}
	for i := range want {
		if cfg.CORS.AllowedOrigins[i] != want[i] {
			t.Errorf("origin[%d] = %q", i, cfg.CORS.AllowedOrigins[i])
		}
	}
}

func TestLoad_InvalidGinModeFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("GIN_MODE", "weird")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q, want release", cfg.GinMode)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		k, v string
	}{
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"bad storage backend", "STORAGE_BACKEND", "s3"},
		{"negative rate", "RATE_RPS", "-1"},
		{"zero burst", "RATE_BURST", "0"},
		{"bad sample ratio", "OTEL_TRACES_SAMPLER_ARG", "2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.k, tc.v)
			if _, err := Load(); err == nil {
				t.Fatalf("Load accepted %s=%s", tc.k, tc.v)
			}
		})
	}
}

func TestLoad_UnparseableValuesFallBackToDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_UPLOAD_BYTES", "lots")
	t.Setenv("READ_TIMEOUT", "soon")
	t.Setenv("LOG_PRETTY", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxUploadBytes != 50<<20 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if cfg.ReadTimeout != 15*time.Second {
		t.Errorf("ReadTimeout = %v", cfg.ReadTimeout)
	}
	if cfg.LogPretty {
		t.Error("LogPretty = true")
	}
}

package common

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORAGE_BUCKET", "")
	t.Setenv("S3_BUCKET_NAME", "legacy-bucket")
	t.Setenv("DYNAMODB_TABLE_UPLOADS", "")
	t.Setenv("UPLOADS_TABLE", "")
	t.Setenv("LLM_TIMEOUT", "")
	t.Setenv("LLM_MAX_ATTEMPTS", "")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "proj-1")
	t.Setenv("GEMINI_PROJECT_ID", "")

	cfg := LoadConfig()
	if cfg.Storage.Bucket != "legacy-bucket" {
		t.Errorf("bucket fallback = %q", cfg.Storage.Bucket)
	}
	if cfg.Store.UploadsTable != "Uploads" {
		t.Errorf("uploads table = %q", cfg.Store.UploadsTable)
	}
	if cfg.LLM.Timeout != 45*time.Second || cfg.LLM.MaxAttempts != 3 {
		t.Errorf("llm defaults = %v / %d", cfg.LLM.Timeout, cfg.LLM.MaxAttempts)
	}
	if cfg.Store.ProjectID != "proj-1" {
		t.Errorf("store project = %q", cfg.Store.ProjectID)
	}
	if cfg.LLM.GeminiProjectID != "" {
		t.Errorf("gemini project must be explicit, got %q", cfg.LLM.GeminiProjectID)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("STORAGE_BUCKET", "primary")
	t.Setenv("S3_BUCKET_NAME", "legacy")
	t.Setenv("LLM_RETRY_BASE", "10ms")
	t.Setenv("LLM_TEMPERATURE", "0.5")
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg := LoadConfig()
	if cfg.Storage.Bucket != "primary" {
		t.Errorf("bucket = %q", cfg.Storage.Bucket)
	}
	if cfg.LLM.RetryBase != 10*time.Millisecond {
		t.Errorf("retry base = %v", cfg.LLM.RetryBase)
	}
	if cfg.LLM.Temperature != 0.5 {
		t.Errorf("temperature = %v", cfg.LLM.Temperature)
	}
	if cfg.Database.MaxConns != 20 {
		t.Errorf("bad int should keep default, got %d", cfg.Database.MaxConns)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Storage: StorageConfig{Backend: "fs", Root: "/tmp"},
			Store:   StoreConfig{Backend: "sqlite", SQLitePath: "x.db", UploadsTable: "Uploads", ExtractedTable: "ExtractedData"},
			LLM:     LLMConfig{MaxAttempts: 3, Timeout: time.Second},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := map[string]func(c *Config){
		"gcs without bucket":       func(c *Config) { c.Storage = StorageConfig{Backend: "gcs"} },
		"unknown storage":          func(c *Config) { c.Storage.Backend = "s3" },
		"postgres without dsn":     func(c *Config) { c.Store.Backend = "postgres" },
		"firestore without proj":   func(c *Config) { c.Store.Backend = "firestore" },
		"zero attempts":            func(c *Config) { c.LLM.MaxAttempts = 0 },
		"empty extracted table":    func(c *Config) { c.Store.ExtractedTable = "" },
		"non-positive llm timeout": func(c *Config) { c.LLM.Timeout = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if KindOf(err) != KindConfigError || !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	if (LogConfig{Level: "debug"}).SlogLevel() != slog.LevelDebug {
		t.Fatal("debug")
	}
	if (LogConfig{Level: "WARNING"}).SlogLevel() != slog.LevelWarn {
		t.Fatal("warning")
	}
	if (LogConfig{Level: ""}).SlogLevel() != slog.LevelInfo {
		t.Fatal("default")
	}
}

package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Storage  StorageConfig
	Store    StoreConfig
	Database DatabaseConfig
	LLM      LLMConfig
	Worker   WorkerConfig
	Log      LogConfig
}

// StorageConfig selects and configures the object store holding uploads.
type StorageConfig struct {
	Backend string // "gcs" | "fs"
	Bucket  string
	Root    string
}

// StoreConfig selects the status/extracted-record store.
type StoreConfig struct {
	Backend        string // "firestore" | "postgres" | "sqlite"
	ProjectID      string
	UploadsTable   string
	ExtractedTable string
	SQLitePath     string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// LLMConfig holds model provider credentials and call policy.
type LLMConfig struct {
	// GeminiProjectID turns on Vertex AI. It is never taken from
	// GOOGLE_CLOUD_PROJECT, which is set on every GCP runtime.
	GeminiProjectID string
	GeminiRegion    string
	GeminiModel     string
	GeminiAPIKey    string
	GeminiBaseURL   string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	MaxAttempts int
	RetryBase   time.Duration
}

// WorkerConfig holds settings for the long-running daemon.
type WorkerConfig struct {
	GRPCAddr       string
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
	PollInterval   time.Duration
	PollBatch      int
}

// LogConfig controls the process-wide slog handler.
type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	project := getEnv("GOOGLE_CLOUD_PROJECT", getEnv("PROJECT_ID", ""))
	return &Config{
		Storage: StorageConfig{
			Backend: getEnv("STORAGE_BACKEND", "gcs"),
			Bucket:  getEnv("STORAGE_BUCKET", getEnv("S3_BUCKET_NAME", "")),
			Root:    getEnv("STORAGE_ROOT", "."),
		},
		Store: StoreConfig{
			Backend:        getEnv("STORE_BACKEND", "firestore"),
			ProjectID:      project,
			UploadsTable:   getEnv("UPLOADS_TABLE", getEnv("DYNAMODB_TABLE_UPLOADS", "Uploads")),
			ExtractedTable: getEnv("EXTRACTED_TABLE", getEnv("DYNAMODB_TABLE_EXTRACTED_DATA", "ExtractedData")),
			SQLitePath:     getEnv("SQLITE_PATH", "./extractor.db"),
		},
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		LLM: LLMConfig{
			GeminiProjectID: getEnv("GEMINI_PROJECT_ID", ""),
			GeminiRegion:    getEnv("GEMINI_REGION", "us-central1"),
			GeminiModel:     getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
			GeminiBaseURL:   getEnv("GEMINI_BASE_URL", ""),
			OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
			Temperature:     getEnvAsFloat32("LLM_TEMPERATURE", 0.1),
			MaxTokens:       getEnvAsInt("LLM_MAX_TOKENS", 2000),
			Timeout:         getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
			MaxAttempts:     getEnvAsInt("LLM_MAX_ATTEMPTS", 3),
			RetryBase:       getEnvAsDuration("LLM_RETRY_BASE", time.Second),
		},
		Worker: WorkerConfig{
			GRPCAddr:       getEnv("GRPC_ADDR", ":8081"),
			Workers:        getEnvAsInt("WORKER_COUNT", 4),
			QueueSize:      getEnvAsInt("QUEUE_SIZE", 64),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 5*time.Minute),
			PollInterval:   getEnvAsDuration("POLL_INTERVAL", 5*time.Second),
			PollBatch:      getEnvAsInt("POLL_BATCH", 10),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "INFO"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "gcs":
		if c.Storage.Bucket == "" {
			return NewAppError(KindConfigError, "STORAGE_BUCKET is required for gcs storage", ErrInvalidInput)
		}
	case "fs":
		if c.Storage.Root == "" {
			return NewAppError(KindConfigError, "STORAGE_ROOT is required for fs storage", ErrInvalidInput)
		}
	default:
		return NewAppError(KindConfigError, "unknown STORAGE_BACKEND "+c.Storage.Backend, ErrInvalidInput)
	}

	switch c.Store.Backend {
	case "firestore":
		if c.Store.ProjectID == "" {
			return NewAppError(KindConfigError, "GOOGLE_CLOUD_PROJECT is required for firestore", ErrInvalidInput)
		}
	case "postgres":
		if c.Database.DSN == "" {
			return NewAppError(KindConfigError, "DB_URL is required for postgres", ErrInvalidInput)
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return NewAppError(KindConfigError, "SQLITE_PATH is required for sqlite", ErrInvalidInput)
		}
	default:
		return NewAppError(KindConfigError, "unknown STORE_BACKEND "+c.Store.Backend, ErrInvalidInput)
	}

	if c.Store.UploadsTable == "" || c.Store.ExtractedTable == "" {
		return NewAppError(KindConfigError, "table names must not be empty", ErrInvalidInput)
	}
	if c.LLM.MaxAttempts < 1 {
		return NewAppError(KindConfigError, "LLM_MAX_ATTEMPTS must be >= 1", ErrInvalidInput)
	}
	if c.LLM.Timeout <= 0 {
		return NewAppError(KindConfigError, "LLM_TIMEOUT must be positive", ErrInvalidInput)
	}
	return nil
}

// SlogLevel converts the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToUpper(strings.TrimSpace(l.Level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger from LogConfig.
func NewLogger(l LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if strings.EqualFold(l.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

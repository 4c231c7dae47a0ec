// Package config loads ledger service configuration from environment
// variables, an optional .env file and an optional YAML rules file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

// Config represents the application configuration.
type Config struct {
	Store  StoreConfig
	Log    LogConfig
	HTTP   HTTPConfig
	GCP    GCPConfig
	Gemini GeminiConfig
	Notion NotionConfig
	Jobs   JobsConfig
	Worker WorkerConfig

	// RulesPath is the optional YAML rules file; Rules holds its content.
	RulesPath string
	Rules     Rules
}

// StoreConfig selects and configures the ledger store.
type StoreConfig struct {
	Driver      string
	BoltPath    string
	PostgresDSN string
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string
	Format string
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// GCPConfig configures BigQuery exports and GCS backups.
type GCPConfig struct {
	ProjectID    string
	Dataset      string
	BackupBucket string
}

// GeminiConfig configures the insights generator.
type GeminiConfig struct {
	Model string
}

// NotionConfig configures the Notion mirror.
type NotionConfig struct {
	Token      string
	DatabaseID string
}

// JobsConfig configures the in-memory job queue.
type JobsConfig struct {
	Workers    int
	QueueSize  int
	MaxRetries int
}

// WorkerConfig configures the periodic scheduler.
type WorkerConfig struct {
	BackupInterval time.Duration
	ExportInterval time.Duration
	NotionInterval time.Duration
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{
		Store: StoreConfig{
			Driver:      strings.ToLower(getEnvOrDefault("LEDGER_STORE", DriverBolt)),
			BoltPath:    getEnvOrDefault("LEDGER_BOLT_PATH", "ledger.db"),
			PostgresDSN: os.Getenv("DATABASE_URL"),
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "console"),
		},
		HTTP: HTTPConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		GCP: GCPConfig{
			ProjectID:    os.Getenv("GCP_PROJECT_ID"),
			Dataset:      getEnvOrDefault("BQ_DATASET", "finance_ledger"),
			BackupBucket: os.Getenv("GCS_BUCKET"),
		},
		Gemini: GeminiConfig{
			Model: getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Notion: NotionConfig{
			Token:      os.Getenv("NOTION_TOKEN"),
			DatabaseID: os.Getenv("NOTION_DATABASE_ID"),
		},
		RulesPath: os.Getenv("LEDGER_RULES_FILE"),
	}

	var err error
	if cfg.HTTP.ShutdownTimeout, err = parseDurationEnv("HTTP_SHUTDOWN_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Jobs.Workers, err = parseIntEnv("JOB_WORKERS", 5); err != nil {
		return nil, err
	}
	if cfg.Jobs.QueueSize, err = parseIntEnv("JOB_QUEUE_SIZE", 100); err != nil {
		return nil, err
	}
	if cfg.Jobs.MaxRetries, err = parseIntEnv("JOB_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.Worker.BackupInterval, err = parseDurationEnv("BACKUP_INTERVAL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Worker.ExportInterval, err = parseDurationEnv("EXPORT_INTERVAL", 6*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Worker.NotionInterval, err = parseDurationEnv("NOTION_SYNC_INTERVAL", 0); err != nil {
		return nil, err
	}

	if cfg.RulesPath != "" {
		rules, err := LoadRules(cfg.RulesPath)
		if err != nil {
			return nil, err
		}
		cfg.Rules = *rules
	}

	return cfg, nil
}

// Validate checks the store settings and that every named feature has the
// settings it needs. Features: "backup", "export", "notion".
func (c *Config) Validate(features ...string) error {
	var missing []string

	switch c.Store.Driver {
	case DriverMemory:
	case DriverBolt:
		if c.Store.BoltPath == "" {
			missing = append(missing, "LEDGER_BOLT_PATH")
		}
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			missing = append(missing, "DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown LEDGER_STORE %q (want %s, %s or %s)", c.Store.Driver, DriverMemory, DriverBolt, DriverPostgres)
	}

	for _, f := range features {
		switch f {
		case "backup":
			if c.GCP.BackupBucket == "" {
				missing = append(missing, "GCS_BUCKET")
			}
		case "export":
			if c.GCP.ProjectID == "" {
				missing = append(missing, "GCP_PROJECT_ID")
			}
			if c.GCP.Dataset == "" {
				missing = append(missing, "BQ_DATASET")
			}
		case "notion":
			if c.Notion.Token == "" {
				missing = append(missing, "NOTION_TOKEN")
			}
			if c.Notion.DatabaseID == "" {
				missing = append(missing, "NOTION_DATABASE_ID")
			}
		default:
			return fmt.Errorf("unknown feature %q", f)
		}
	}

	if c.Jobs.Workers < 1 {
		return fmt.Errorf("JOB_WORKERS must be at least 1, got %d", c.Jobs.Workers)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}
	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an int from an environment variable.
// Returns defaultValue if the environment variable is not set.
func parseIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}
	return parsed, nil
}

// parseDurationEnv parses a time.Duration such as "6h" or "90s".
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value for %s: %s", key, value)
	}
	return parsed, nil
}

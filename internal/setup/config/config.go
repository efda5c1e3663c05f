package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// CurrentConfigVersion is the expected version of config.toml.
const CurrentConfigVersion = 1

// Config represents the entire application configuration.
type Config struct {
	// Version of the config file.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	Retry      Retry      `koanf:"retry"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
	OpenAI     OpenAI     `koanf:"openai"`
	Worker     Worker     `koanf:"worker"`
	API        API        `koanf:"api"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log sessions to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
}

// Retry contains retry configuration for generation jobs.
type Retry struct {
	// Maximum retry attempts per job execution.
	MaxRetries uint64 `koanf:"max_retries"`
	// Initial retry delay in milliseconds.
	Delay int `koanf:"delay"`
	// Maximum retry delay in milliseconds.
	MaxDelay int `koanf:"max_delay"`
	// Maximum times a job is re-enqueued before it is dropped.
	MaxJobAttempts int `koanf:"max_job_attempts"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// OpenAI contains configuration for the OpenAI-compatible inference gateway.
type OpenAI struct {
	// Base URL for the API.
	BaseURL string `koanf:"base_url"`
	// API key for authentication.
	APIKey string `koanf:"api_key"`
	// Maximum concurrent requests.
	MaxConcurrent int64 `koanf:"max_concurrent"`
	// Model name mappings from logical names to gateway names.
	ModelMappings map[string]string `koanf:"model_mappings"`
	// Model to use for project idea generation.
	ProjectIdeasModel string `koanf:"project_ideas_model"`
	// Ordered fallback models for project idea generation.
	ProjectIdeasFallbackModels []string `koanf:"project_ideas_fallback_models"`
	// Model to use for skill roadmap generation.
	SkillRoadmapModel string `koanf:"skill_roadmap_model"`
	// Ordered fallback models for skill roadmap generation.
	SkillRoadmapFallbackModels []string `koanf:"skill_roadmap_fallback_models"`
}

// Worker contains configuration for background workers.
type Worker struct {
	// Number of users regenerated concurrently per sweep batch.
	BatchSize int `koanf:"batch_size"`
	// Pause between sweep batches in seconds.
	BatchDelay int `koanf:"batch_delay"`
	// Maximum candidates per hourly sweep (0 for unbounded).
	HourlySweepLimit int `koanf:"hourly_sweep_limit"`
	// Hour of day (UTC) for the full nightly sweep.
	NightlySweepHour int `koanf:"nightly_sweep_hour"`
	// Number of queued jobs pulled per iteration.
	QueueBatchSize int `koanf:"queue_batch_size"`
}

// API contains REST API configuration.
type API struct {
	// Address the REST server listens on.
	ListenAddr string `koanf:"listen_addr"`
	// Request timeout in milliseconds.
	RequestTimeout int `koanf:"request_timeout"`
}

// LoadConfig loads the configuration from config.toml.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	// Get user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	// List search paths
	configPaths := []string{
		".forgelink",
		homeDir + "/.forgelink/config",
		"/etc/forgelink/config",
		"/app/config",
		"config",
		".",
	}

	var usedConfigPath string

	for _, path := range configPaths {
		configPath := fmt.Sprintf("%s/config.toml", path)
		if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
			usedConfigPath = path
			break
		}
	}

	if usedConfigPath == "" {
		return nil, "", fmt.Errorf("%w: config.toml", ErrConfigFileNotFound)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion(config.Version, CurrentConfigVersion); err != nil {
		return nil, "", err
	}

	return &config, usedConfigPath, nil
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: config.toml", ErrConfigVersionMissing)
	}

	if current != expected {
		return fmt.Errorf("%w: config.toml has version %d, expected %d", ErrConfigVersionMismatch, current, expected)
	}

	return nil
}

// Package config loads application configuration from a JSON file backend
// with environment overrides. The file lives at
// $XDG_CONFIG_HOME/shiftbrief/config.json; SHIFTBRIEF_* environment
// variables override file values.
package config

import (
	"path/filepath"
	"time"
)

type Config struct {
	Server    ServerConfig
	Ollama    OllamaConfig
	MES       MESConfig
	Cache     CacheConfig
	Scheduler SchedulerConfig
	Meeting   MeetingConfig
	API       APIConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

// MESConfig points at the manufacturing execution system database snapshot.
type MESConfig struct {
	DatabasePath string
}

type CacheConfig struct {
	Dir            string
	RetentionDays  int
	FreshnessHours int
}

type SchedulerConfig struct {
	// DataGenCommand is a shell-style command line that regenerates the MES
	// dataset; empty disables regeneration.
	DataGenCommand        string
	DataGenTimeoutSeconds int
	MaxConcurrent         int
}

type MeetingConfig struct {
	DefaultTimeoutSeconds int
	QuickTimeoutSeconds   int
}

// APIConfig carries the management API bearer token. The token is a secret
// and can only be provided via SHIFTBRIEF_API_TOKEN; empty disables auth.
type APIConfig struct {
	Token string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port: 4000,
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "llama3.1:latest",
		},
		MES: MESConfig{
			DatabasePath: filepath.Join(dataDir, "mes.db"),
		},
		Cache: CacheConfig{
			Dir:            filepath.Join(dataDir, "analysis_cache"),
			RetentionDays:  30,
			FreshnessHours: 6,
		},
		Scheduler: SchedulerConfig{
			DataGenTimeoutSeconds: 300,
			MaxConcurrent:         3,
		},
		Meeting: MeetingConfig{
			DefaultTimeoutSeconds: 120,
			QuickTimeoutSeconds:   30,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend and applies
// environment overrides. A missing config file is not an error.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()
	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// DefaultTimeout returns the standing per-analysis deadline.
func (c MeetingConfig) DefaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutSeconds) * time.Second
}

// QuickTimeout returns the compressed deadline used under meeting pressure.
func (c MeetingConfig) QuickTimeout() time.Duration {
	return time.Duration(c.QuickTimeoutSeconds) * time.Second
}

// Freshness returns the cache freshness window.
func (c CacheConfig) Freshness() time.Duration {
	return time.Duration(c.FreshnessHours) * time.Hour
}

// DataGenTimeout returns the hard deadline for the dataset generator.
func (c SchedulerConfig) DataGenTimeout() time.Duration {
	return time.Duration(c.DataGenTimeoutSeconds) * time.Second
}

package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "SHIFTBRIEF_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "ollama.base_url", typ: kString, env: "SHIFTBRIEF_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.model", typ: kString, env: "SHIFTBRIEF_OLLAMA_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.Model },
	},
	{
		key: "mes.database_path", typ: kString, env: "SHIFTBRIEF_MES_DATABASE_PATH",
		apply:   func(cfg *Config, v any) { cfg.MES.DatabasePath = v.(string) },
		extract: func(cfg Config) any { return cfg.MES.DatabasePath },
	},
	{
		key: "cache.dir", typ: kString, env: "SHIFTBRIEF_CACHE_DIR",
		apply:   func(cfg *Config, v any) { cfg.Cache.Dir = v.(string) },
		extract: func(cfg Config) any { return cfg.Cache.Dir },
	},
	{
		key: "cache.retention_days", typ: kInt, env: "SHIFTBRIEF_CACHE_RETENTION_DAYS",
		apply:   func(cfg *Config, v any) { cfg.Cache.RetentionDays = v.(int) },
		extract: func(cfg Config) any { return cfg.Cache.RetentionDays },
	},
	{
		key: "cache.freshness_hours", typ: kInt, env: "SHIFTBRIEF_CACHE_FRESHNESS_HOURS",
		apply:   func(cfg *Config, v any) { cfg.Cache.FreshnessHours = v.(int) },
		extract: func(cfg Config) any { return cfg.Cache.FreshnessHours },
	},
	{
		key: "scheduler.data_gen_command", typ: kString, env: "SHIFTBRIEF_SCHEDULER_DATA_GEN_COMMAND",
		apply:   func(cfg *Config, v any) { cfg.Scheduler.DataGenCommand = v.(string) },
		extract: func(cfg Config) any { return cfg.Scheduler.DataGenCommand },
	},
	{
		key: "scheduler.data_gen_timeout_seconds", typ: kInt, env: "SHIFTBRIEF_SCHEDULER_DATA_GEN_TIMEOUT_SECONDS",
		apply:   func(cfg *Config, v any) { cfg.Scheduler.DataGenTimeoutSeconds = v.(int) },
		extract: func(cfg Config) any { return cfg.Scheduler.DataGenTimeoutSeconds },
	},
	{
		key: "scheduler.max_concurrent", typ: kInt, env: "SHIFTBRIEF_SCHEDULER_MAX_CONCURRENT",
		apply:   func(cfg *Config, v any) { cfg.Scheduler.MaxConcurrent = v.(int) },
		extract: func(cfg Config) any { return cfg.Scheduler.MaxConcurrent },
	},
	{
		key: "meeting.default_timeout_seconds", typ: kInt, env: "SHIFTBRIEF_MEETING_DEFAULT_TIMEOUT_SECONDS",
		apply:   func(cfg *Config, v any) { cfg.Meeting.DefaultTimeoutSeconds = v.(int) },
		extract: func(cfg Config) any { return cfg.Meeting.DefaultTimeoutSeconds },
	},
	{
		key: "meeting.quick_timeout_seconds", typ: kInt, env: "SHIFTBRIEF_MEETING_QUICK_TIMEOUT_SECONDS",
		apply:   func(cfg *Config, v any) { cfg.Meeting.QuickTimeoutSeconds = v.(int) },
		extract: func(cfg Config) any { return cfg.Meeting.QuickTimeoutSeconds },
	},
	{
		key: "api.token", typ: kString, env: "SHIFTBRIEF_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.API.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.API.Token },
	},
	{
		key: "log.level", typ: kString, env: "SHIFTBRIEF_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}

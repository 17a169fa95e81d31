package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
	// SyncWait is how long the convenience chat endpoint waits before
	// falling back to returning a job id.
	SyncWait time.Duration `yaml:"sync_wait"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type StorageConfig struct {
	// Dir holds one JSON record per job plus the metrics journal.
	Dir       string        `yaml:"dir"`
	Retention time.Duration `yaml:"retention"` // terminal jobs older than this are swept
	// OrphanAge is the ceiling after which a still-processing job is
	// reported as crash-orphaned. Never auto-resolved.
	OrphanAge time.Duration `yaml:"orphan_age"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// StartLimit caps job starts per user per window.
	StartLimit  int           `yaml:"start_limit"`
	LimitWindow time.Duration `yaml:"limit_window"`
}

type AIConfig struct {
	OpenAIKey     string `yaml:"openai_key"`
	GeminiKey     string `yaml:"gemini_key"`
	GeminiURL     string `yaml:"gemini_url"`
	CompatKey     string `yaml:"compat_key"`      // OpenAI-compatible gateway
	CompatBaseURL string `yaml:"compat_base_url"` // e.g. a self-hosted vLLM/Ollama front
	DefaultModel  string `yaml:"default_model"`
	MaxTokens     int    `yaml:"max_tokens"`
}

type PipelineConfig struct {
	// MinChars is the well-formedness threshold below which a tier's
	// candidate is rejected.
	MinChars int `yaml:"min_chars"`
	// PromptBudget caps prompt size in tokens before a generator call.
	PromptBudget int `yaml:"prompt_budget"`
	Workers      int `yaml:"workers"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Pipeline PipelineConfig `yaml:"pipeline"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.SyncWait <= 0 {
		cfg.Server.SyncWait = 500 * time.Millisecond
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "./data/jobs"
	}
	if cfg.Storage.Retention <= 0 {
		cfg.Storage.Retention = 24 * time.Hour
	}
	if cfg.Storage.OrphanAge <= 0 {
		cfg.Storage.OrphanAge = 2 * time.Hour
	}
	if cfg.Redis.StartLimit <= 0 {
		cfg.Redis.StartLimit = 10
	}
	if cfg.Redis.LimitWindow <= 0 {
		cfg.Redis.LimitWindow = time.Minute
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.AI.MaxTokens <= 0 {
		cfg.AI.MaxTokens = 2048
	}
	if cfg.Pipeline.MinChars <= 0 {
		cfg.Pipeline.MinChars = 200
	}
	if cfg.Pipeline.PromptBudget <= 0 {
		cfg.Pipeline.PromptBudget = 6000
	}
	if cfg.Pipeline.Workers <= 0 {
		cfg.Pipeline.Workers = 8
	}

	// Minimal validation
	if cfg.Server.JWTSecret == "" && !dev {
		return nil, errors.New("server.jwt_secret is required outside dev mode")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/m2tx/manualchat/internal/logger"
	"github.com/m2tx/manualchat/internal/model"
)

const (
	ModeCache  = "cache"
	ModeInline = "inline"
)

type Config struct {
	Port               int           `json:"port"`
	Model              string        `json:"model"`
	APIKey             string        `json:"api_key"`
	DocsDir            string        `json:"docs_dir"`
	Extensions         []string      `json:"extensions"`
	Mode               string        `json:"mode"`
	Temperature        *float32      `json:"temperature"`
	CacheTTLMinutes    int           `json:"cache_ttl_minutes"`
	SessionIdleMinutes int           `json:"session_idle_minutes"`
	InlineStoreSize    int           `json:"inline_store_size"`
	Poll               PollConfig    `json:"poll"`
	Safety             SafetyConfig  `json:"safety"`
	Log                logger.Config `json:"log"`
	Mongo              MongoConfig   `json:"mongo"`
}

type PollConfig struct {
	IntervalMS  int `json:"interval_ms"`
	MaxAttempts int `json:"max_attempts"`
}

// SafetyConfig lists the harm categories that are not filtered at all.
type SafetyConfig struct {
	RelaxedCategories []string `json:"relaxed_categories"`
}

type MongoConfig struct {
	Enabled    bool   `json:"enabled"`
	URI        string `json:"uri"`
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

// Load reads the JSON file at path, applies .env and environment overrides
// and fills in defaults. An empty path loads defaults and the environment
// only.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("DOCS_DIR"); v != "" {
		c.DocsDir = v
	}
	if v := os.Getenv("MONGODB_URI"); v != "" {
		c.Mongo.URI = v
		c.Mongo.Enabled = true
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse HTTP_PORT: %w", err)
		}
		c.Port = port
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.Model == "" {
		c.Model = "gemini-2.5-flash"
	}
	if c.DocsDir == "" {
		c.DocsDir = "docs"
	}
	if c.Mode == "" {
		c.Mode = ModeCache
	}
	if c.Temperature == nil {
		t := float32(0.5)
		c.Temperature = &t
	}
	if c.CacheTTLMinutes == 0 {
		c.CacheTTLMinutes = 60
	}
	if c.SessionIdleMinutes == 0 {
		c.SessionIdleMinutes = 120
	}
	if c.InlineStoreSize == 0 {
		c.InlineStoreSize = 64
	}
	if c.Poll.IntervalMS == 0 {
		c.Poll.IntervalMS = 1500
	}
	if c.Poll.MaxAttempts == 0 {
		c.Poll.MaxAttempts = 120
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Mongo.URI == "" {
		c.Mongo.URI = "mongodb://localhost:27017"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "manualchat"
	}
	if c.Mongo.Collection == "" {
		c.Mongo.Collection = "transcripts"
	}
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.Port)
	}
	switch c.Mode {
	case ModeCache, ModeInline:
	default:
		return fmt.Errorf("mode must be %s or %s", ModeCache, ModeInline)
	}
	if c.CacheTTLMinutes < 0 {
		return fmt.Errorf("cache_ttl_minutes must not be negative")
	}
	if c.Poll.IntervalMS < 0 || c.Poll.MaxAttempts < 0 {
		return fmt.Errorf("poll interval_ms and max_attempts must not be negative")
	}
	if t := c.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("temperature %.2f is out of range", *t)
	}
	for _, name := range c.Safety.RelaxedCategories {
		if _, err := model.ParseHarmCategory(name); err != nil {
			return fmt.Errorf("safety.relaxed_categories: %w", err)
		}
	}
	return nil
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalMS) * time.Millisecond
}

// SafetyPolicy starts from the strict policy and relaxes the configured
// categories.
func (c *Config) SafetyPolicy() model.SafetyPolicy {
	policy := model.StrictSafetyPolicy()
	var relaxed []model.HarmCategory
	for _, name := range c.Safety.RelaxedCategories {
		if cat, err := model.ParseHarmCategory(name); err == nil {
			relaxed = append(relaxed, cat)
		}
	}
	return policy.Relax(relaxed...)
}

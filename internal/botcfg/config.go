// Package botcfg loads the bot runtime configuration: defaults, an optional
// sk0ppbot.yaml next to the binary, then environment variables on top. A
// .env file in the working directory is honored the same way the deployed
// bot reads its token.
package botcfg

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigFile is the optional per-deployment config file name.
const ConfigFile = "sk0ppbot.yaml"

const defaultSystemPrompt = "Отвечай на русском. Кратко, структурно, без воды. " +
	"Если не уверен — прямо так и скажи."

type Config struct {
	// Token is only read from the environment, never from the yaml file.
	Token string `yaml:"-"`

	OllamaURL     string `yaml:"ollama_url"`
	DefaultModel  string `yaml:"default_model"`
	FallbackModel string `yaml:"fallback_model"`
	SystemPrompt  string `yaml:"system_prompt"`

	RateWindowSec int `yaml:"rate_window_sec"`
	RateMaxHits   int `yaml:"rate_max_hits"`
}

func DefaultConfig() *Config {
	return &Config{
		OllamaURL:     "http://127.0.0.1:11434",
		DefaultModel:  "qwen2.5:1.5b",
		FallbackModel: "qwen2.5:1.5b",
		SystemPrompt:  defaultSystemPrompt,
		RateWindowSec: 10,
		RateMaxHits:   4,
	}
}

// Load builds the effective config. Missing .env and yaml files are fine;
// a missing TELEGRAM_BOT_TOKEN is not.
func Load() (*Config, error) {
	return load(ConfigFile)
}

func load(yamlPath string) (*Config, error) {
	// Ignored when absent; the token may come from the real environment.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if data, err := os.ReadFile(yamlPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", yamlPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", yamlPath, err)
	}

	if v := os.Getenv("OLLAMA_URL"); v != "" {
		cfg.OllamaURL = v
	}
	if v := os.Getenv("DEFAULT_MODEL"); v != "" {
		cfg.DefaultModel = v
	}
	if v := os.Getenv("FALLBACK_MODEL"); v != "" {
		cfg.FallbackModel = v
	}
	cfg.Token = os.Getenv("TELEGRAM_BOT_TOKEN")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is not set")
	}
	if c.RateWindowSec <= 0 || c.RateMaxHits <= 0 {
		return fmt.Errorf("invalid rate limit: %ds / %d", c.RateWindowSec, c.RateMaxHits)
	}
	return nil
}

// RateWindow returns the sliding-window size as a duration.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.RateWindowSec) * time.Second
}

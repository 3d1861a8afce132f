package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads the configuration from the config file (optional) and
// overlays environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := configPath(); path != "" {
		if err := loadFromFile(cfg, path); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}
	loadFromEnv(cfg)
	return cfg, nil
}

// configPath returns the config file location, XDG-style.
func configPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "codeloom", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "codeloom", "config.yaml")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Values in the file may reference environment variables.
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("CODELOOM_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CODELOOM_MODEL"); v != "" {
		cfg.Engine.DefaultModel = v
	}
	if v := os.Getenv("CODELOOM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.API.OpenAIKey == "" {
		cfg.API.OpenAIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && cfg.API.AnthropicKey == "" {
		cfg.API.AnthropicKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && cfg.API.GeminiKey == "" {
		cfg.API.GeminiKey = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.API.OllamaBaseURL = v
	}
}

// StateDir returns the directory for durable state (logs, checkpoint
// envelopes), creating it if needed.
func StateDir() (string, error) {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "state")
	}
	dir := filepath.Join(base, "codeloom")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating state dir: %w", err)
	}
	return dir, nil
}

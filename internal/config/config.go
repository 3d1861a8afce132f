// Package config loads the engine configuration from YAML, the
// environment, and the OS keyring.
package config

import "time"

// Config is the full application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	API        APIConfig        `yaml:"api"`
	Engine     EngineConfig     `yaml:"engine"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Workspace  WorkspaceConfig  `yaml:"workspace"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// APIConfig holds per-provider API keys. A key left empty here falls
// back to the environment and then the OS keyring.
type APIConfig struct {
	OpenAIKey    string `yaml:"openai_key,omitempty"`
	AnthropicKey string `yaml:"anthropic_key,omitempty"`
	GeminiKey    string `yaml:"gemini_key,omitempty"`

	// OllamaBaseURL points at the local Ollama server.
	OllamaBaseURL string `yaml:"ollama_base_url,omitempty"`
}

// EngineConfig holds run behavior settings.
type EngineConfig struct {
	DefaultModel string `yaml:"default_model"`
	DefaultMode  string `yaml:"default_mode"`
}

// CheckpointConfig holds checkpoint retention ceilings.
type CheckpointConfig struct {
	MaxAge   time.Duration `yaml:"max_age"`
	MaxCount int           `yaml:"max_count"`
}

// WorkspaceConfig selects the project store backend.
type WorkspaceConfig struct {
	// Backend is "dir", "sqlite", or "sftp".
	Backend string `yaml:"backend"`

	// Root is the project root for the dir backend.
	Root string `yaml:"root,omitempty"`

	// DBPath is the database file for the sqlite backend.
	DBPath string `yaml:"db_path,omitempty"`

	SFTP SFTPConfig `yaml:"sftp,omitempty"`
}

// SFTPConfig holds remote-root settings for the sftp backend.
type SFTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	KeyFile  string `yaml:"key_file,omitempty"`
	Password string `yaml:"password,omitempty"`
	Root     string `yaml:"root"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  bool   `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8787"},
		API: APIConfig{
			OllamaBaseURL: "http://localhost:11434",
		},
		Engine: EngineConfig{
			DefaultModel: "claude-sonnet-4-5",
			DefaultMode:  "agent",
		},
		Checkpoint: CheckpointConfig{
			MaxAge:   14 * 24 * time.Hour,
			MaxCount: 50,
		},
		Workspace: WorkspaceConfig{
			Backend: "dir",
			Root:    ".",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

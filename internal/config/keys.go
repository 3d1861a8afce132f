package config

import (
	"os"
	"strings"

	"codeloom/internal/logging"

	"github.com/zalando/go-keyring"
)

const keyringService = "codeloom"

// envVarByProvider maps providers to their conventional key variables.
var envVarByProvider = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

// ResolveKey returns the API key for a provider: config file first,
// then environment, then the OS keyring. Empty means unresolved.
func (c *Config) ResolveKey(provider string) string {
	switch provider {
	case "openai":
		if c.API.OpenAIKey != "" {
			return c.API.OpenAIKey
		}
	case "anthropic":
		if c.API.AnthropicKey != "" {
			return c.API.AnthropicKey
		}
	case "gemini":
		if c.API.GeminiKey != "" {
			return c.API.GeminiKey
		}
	}

	if envVar, ok := envVarByProvider[provider]; ok {
		if key := os.Getenv(envVar); key != "" {
			return key
		}
	}

	key, err := keyring.Get(keyringService, provider)
	if err != nil {
		if err != keyring.ErrNotFound {
			logging.Debug("keyring lookup failed", "provider", provider, "error", err)
		}
		return ""
	}
	return strings.TrimSpace(key)
}

// StoreKey saves a provider key in the OS keyring.
func StoreKey(provider, key string) error {
	return keyring.Set(keyringService, provider, key)
}

// DeleteKey removes a provider key from the OS keyring.
func DeleteKey(provider string) error {
	return keyring.Delete(keyringService, provider)
}

// Package config provides YAML-based configuration for lochat.
// Configuration is loaded with a layered precedence: defaults → YAML file → env vars.
// Environment variables always win, so existing workflows are unaffected.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. LOCHAT_CONFIG environment variable
//  3. ~/.lochat/config.yaml
//  4. ./lochat.yaml
//
// If no file is found the system runs entirely from env vars (backwards compatible).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// Ollama configures the local model server connection.
	Ollama OllamaConfig `yaml:"ollama"`

	// Chat configures the plain-chat request profile.
	Chat ChatConfig `yaml:"chat"`

	// RAG configures retrieval: the augmented request profile, the
	// embedding model, and the chunking/retrieval knobs.
	RAG RAGConfig `yaml:"rag"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`
}

// OllamaConfig holds model server connection settings.
type OllamaConfig struct {
	// Host is the Ollama API endpoint.
	Host string `yaml:"host"`
	// Model is the default chat model name.
	Model string `yaml:"model"`
}

// ChatConfig holds the plain-chat request profile.
type ChatConfig struct {
	// SystemPrompt is the default system prompt for new conversations.
	SystemPrompt string `yaml:"system_prompt"`
	// KeepAlive is how long the model stays resident between turns.
	KeepAlive string `yaml:"keep_alive"`
	// NumCtx is the context window size, in tokens.
	NumCtx int `yaml:"num_ctx"`
	// Temperature controls response randomness (0.0–1.0).
	Temperature float64 `yaml:"temperature"`
	// HistoryTokens bounds the outbound message window per request.
	HistoryTokens int `yaml:"history_tokens"`
}

// RAGConfig holds retrieval settings.
type RAGConfig struct {
	// KeepAlive is the model residency for augmented requests.
	KeepAlive string `yaml:"keep_alive"`
	// NumCtx is the enlarged context window for augmented requests.
	NumCtx int `yaml:"num_ctx"`
	// Temperature is the sampling temperature for augmented requests.
	Temperature float64 `yaml:"temperature"`
	// EmbedModel is the embedding model for chunks and queries.
	EmbedModel string `yaml:"embed_model"`
	// TopK is the number of chunks retrieved per query.
	TopK int `yaml:"top_k"`
	// MaxContextChars caps the injected context block.
	MaxContextChars int `yaml:"max_context_chars"`
	// ChunkSize is the document chunk size, in characters.
	ChunkSize int `yaml:"chunk_size"`
	// ChunkOverlap is the overlap between adjacent chunks, in characters.
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var LOCHAT_API_KEY.
	APIKey string `yaml:"api_key"`
	// RateLimit is the per-client requests-per-second limit.
	RateLimit float64 `yaml:"rate_limit"`
	// RateBurst is the per-client burst allowance.
	RateBurst int `yaml:"rate_burst"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"OLLAMA_HOST", func(c *Config) string { return c.Ollama.Host }},
	{"LOCHAT_MODEL", func(c *Config) string { return c.Ollama.Model }},
	{"LOCHAT_SYSTEM_PROMPT", func(c *Config) string { return c.Chat.SystemPrompt }},
	{"LOCHAT_KEEP_ALIVE", func(c *Config) string { return c.Chat.KeepAlive }},
	{"LOCHAT_NUM_CTX", func(c *Config) string { return intStr(c.Chat.NumCtx) }},
	{"LOCHAT_TEMPERATURE", func(c *Config) string { return floatStr(c.Chat.Temperature) }},
	{"LOCHAT_HISTORY_TOKENS", func(c *Config) string { return intStr(c.Chat.HistoryTokens) }},
	{"LOCHAT_RAG_KEEP_ALIVE", func(c *Config) string { return c.RAG.KeepAlive }},
	{"LOCHAT_RAG_NUM_CTX", func(c *Config) string { return intStr(c.RAG.NumCtx) }},
	{"LOCHAT_RAG_TEMPERATURE", func(c *Config) string { return floatStr(c.RAG.Temperature) }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.RAG.EmbedModel }},
	{"LOCHAT_TOP_K", func(c *Config) string { return intStr(c.RAG.TopK) }},
	{"LOCHAT_MAX_CONTEXT_CHARS", func(c *Config) string { return intStr(c.RAG.MaxContextChars) }},
	{"LOCHAT_CHUNK_SIZE", func(c *Config) string { return intStr(c.RAG.ChunkSize) }},
	{"LOCHAT_CHUNK_OVERLAP", func(c *Config) string { return intStr(c.RAG.ChunkOverlap) }},
	{"LOCHAT_HOST", func(c *Config) string { return c.Server.Host }},
	{"LOCHAT_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"LOCHAT_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"LOCHAT_RATE_LIMIT", func(c *Config) string { return floatStr(c.Server.RateLimit) }},
	{"LOCHAT_RATE_BURST", func(c *Config) string { return intStr(c.Server.RateBurst) }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" || yamlVal == "0" || yamlVal == "false" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set — do not override
		}
		os.Setenv(m.envKey, yamlVal)
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("LOCHAT_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".lochat", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("lochat.yaml"); err == nil {
		return "lochat.yaml"
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// floatStr converts a float64 to string, returning "" for zero values.
func floatStr(v float64) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	log := slog.Default()
	path, err := Load("/nonexistent/path/config.yaml", log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
ollama:
  host: http://gpu-box:11434
  model: llama3.1
chat:
  system_prompt: You are terse.
  keep_alive: 2h
  num_ctx: 8192
  temperature: 0.7
rag:
  embed_model: nomic-embed-text
  num_ctx: 32768
  top_k: 6
  chunk_size: 800
  chunk_overlap: 100
logging:
  level: debug
  format: text
`)

	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Clear env vars that the YAML should set.
	envKeys := []string{
		"OLLAMA_HOST", "LOCHAT_MODEL",
		"LOCHAT_SYSTEM_PROMPT", "LOCHAT_KEEP_ALIVE", "LOCHAT_NUM_CTX", "LOCHAT_TEMPERATURE",
		"EMBEDDING_MODEL", "LOCHAT_RAG_NUM_CTX", "LOCHAT_TOP_K",
		"LOCHAT_CHUNK_SIZE", "LOCHAT_CHUNK_OVERLAP",
		"LOG_LEVEL", "LOG_FORMAT",
	}
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	log := slog.Default()
	loaded, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	checks := map[string]string{
		"OLLAMA_HOST":          "http://gpu-box:11434",
		"LOCHAT_MODEL":         "llama3.1",
		"LOCHAT_SYSTEM_PROMPT": "You are terse.",
		"LOCHAT_KEEP_ALIVE":    "2h",
		"LOCHAT_NUM_CTX":       "8192",
		"LOCHAT_TEMPERATURE":   "0.7",
		"EMBEDDING_MODEL":      "nomic-embed-text",
		"LOCHAT_RAG_NUM_CTX":   "32768",
		"LOCHAT_TOP_K":         "6",
		"LOCHAT_CHUNK_SIZE":    "800",
		"LOCHAT_CHUNK_OVERLAP": "100",
		"LOG_LEVEL":            "debug",
		"LOG_FORMAT":           "text",
	}
	for k, want := range checks {
		got := os.Getenv(k)
		if got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
ollama:
  model: llama3.1
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Set env var BEFORE loading — it should NOT be overwritten.
	t.Setenv("LOCHAT_MODEL", "qwen3")

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := os.Getenv("LOCHAT_MODEL"); got != "qwen3" {
		t.Errorf("LOCHAT_MODEL: expected env override %q, got %q", "qwen3", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestFloatStr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   float64
		want string
	}{
		{0.0, ""},
		{0.2, "0.2"},
		{0.3, "0.3"},
		{1.0, "1"},
	}
	for _, tt := range tests {
		if got := floatStr(tt.in); got != tt.want {
			t.Errorf("floatStr(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

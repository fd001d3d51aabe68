package session

import (
	"os"
	"strconv"

	"lochat/internal/chunker"
)

// Defaults for the two request profiles and the retrieval pipeline.
const (
	// DefaultKeepAlive keeps the chat model resident between turns.
	DefaultKeepAlive = "1.5h"
	// DefaultNumCtx is the plain-chat context window, in tokens.
	DefaultNumCtx = 4096
	// DefaultTemperature is the plain-chat sampling temperature.
	DefaultTemperature = 0.5

	// DefaultRAGKeepAlive is shorter: RAG models are bigger and colder.
	DefaultRAGKeepAlive = "15m"
	// DefaultRAGNumCtx is the enlarged context window for injected chunks.
	DefaultRAGNumCtx = 40960
	// DefaultRAGTemperature biases RAG answers toward the provided context.
	DefaultRAGTemperature = 0.3

	// DefaultEmbedModel is the embedding model used for chunks and queries.
	DefaultEmbedModel = "nomic-embed-text"
	// DefaultTopK is the number of chunks retrieved per query.
	DefaultTopK = 4
	// DefaultMaxContextChars caps the injected context block.
	DefaultMaxContextChars = 8000
)

// Options configures a Session. The zero value is usable: applyDefaults
// fills every unset field.
type Options struct {
	// SystemPrompt is the prompt installed by Reset when none is given.
	SystemPrompt string

	// KeepAlive, NumCtx and Temperature form the plain-chat profile.
	KeepAlive   string
	NumCtx      int
	Temperature float64

	// RAGKeepAlive, RAGNumCtx and RAGTemperature form the RAG profile.
	RAGKeepAlive   string
	RAGNumCtx      int
	RAGTemperature float64

	// EmbedModel is the embedding model for index building and queries.
	EmbedModel string
	// TopK is the default number of chunks retrieved per RAG turn.
	TopK int
	// MaxContextChars caps the injected context block, in characters.
	// Zero or negative disables the cap.
	MaxContextChars int

	// ChunkSize and ChunkOverlap control document splitting, in characters.
	ChunkSize    int
	ChunkOverlap int

	// MaxHistoryTokens bounds the outbound message window per request.
	// Zero disables trimming; memory itself is never truncated.
	MaxHistoryTokens int
}

func (o *Options) applyDefaults() {
	if o.KeepAlive == "" {
		o.KeepAlive = DefaultKeepAlive
	}
	if o.NumCtx == 0 {
		o.NumCtx = DefaultNumCtx
	}
	if o.Temperature == 0 {
		o.Temperature = DefaultTemperature
	}
	if o.RAGKeepAlive == "" {
		o.RAGKeepAlive = DefaultRAGKeepAlive
	}
	if o.RAGNumCtx == 0 {
		o.RAGNumCtx = DefaultRAGNumCtx
	}
	if o.RAGTemperature == 0 {
		o.RAGTemperature = DefaultRAGTemperature
	}
	if o.EmbedModel == "" {
		o.EmbedModel = DefaultEmbedModel
	}
	if o.TopK == 0 {
		o.TopK = DefaultTopK
	}
	if o.MaxContextChars == 0 {
		o.MaxContextChars = DefaultMaxContextChars
	}
	if o.ChunkSize == 0 {
		o.ChunkSize = chunker.DefaultSize
	}
	if o.ChunkOverlap == 0 {
		o.ChunkOverlap = chunker.DefaultOverlap
	}
}

// OptionsFromEnv builds Options from the process environment, falling back
// to the defaults above for anything unset.
func OptionsFromEnv() Options {
	return Options{
		SystemPrompt:     os.Getenv("LOCHAT_SYSTEM_PROMPT"),
		KeepAlive:        getEnv("LOCHAT_KEEP_ALIVE", DefaultKeepAlive),
		NumCtx:           getEnvInt("LOCHAT_NUM_CTX", DefaultNumCtx),
		Temperature:      getEnvFloat("LOCHAT_TEMPERATURE", DefaultTemperature),
		RAGKeepAlive:     getEnv("LOCHAT_RAG_KEEP_ALIVE", DefaultRAGKeepAlive),
		RAGNumCtx:        getEnvInt("LOCHAT_RAG_NUM_CTX", DefaultRAGNumCtx),
		RAGTemperature:   getEnvFloat("LOCHAT_RAG_TEMPERATURE", DefaultRAGTemperature),
		EmbedModel:       getEnv("EMBEDDING_MODEL", DefaultEmbedModel),
		TopK:             getEnvInt("LOCHAT_TOP_K", DefaultTopK),
		MaxContextChars:  getEnvInt("LOCHAT_MAX_CONTEXT_CHARS", DefaultMaxContextChars),
		ChunkSize:        getEnvInt("LOCHAT_CHUNK_SIZE", chunker.DefaultSize),
		ChunkOverlap:     getEnvInt("LOCHAT_CHUNK_OVERLAP", chunker.DefaultOverlap),
		MaxHistoryTokens: getEnvInt("LOCHAT_HISTORY_TOKENS", 0),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

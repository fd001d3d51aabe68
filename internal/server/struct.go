package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"lochat/internal/ollama"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// ChatTimeout bounds a single /api/chat turn, including streaming.
	ChatTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [slog.Default] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives all server metric registrations. Defaults to
	// prometheus.DefaultRegisterer; tests inject a fresh registry.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// chatter is the interface the handlers drive. *session.Session satisfies
// it; tests inject a fake. The server serializes all calls through its own
// mutex, so implementations need not be concurrency-safe.
type chatter interface {
	// SetOnDelta installs (or clears, with nil) the per-fragment observer.
	SetOnDelta(fn func(delta string))
	// SendChat runs one plain chat turn.
	SendChat(ctx context.Context, userText string) error
	// SendChatWithRAG runs one retrieval-augmented chat turn.
	SendChatWithRAG(ctx context.Context, userText string) error
	// BuildIndex replaces the retrieval index from the given document text.
	BuildIndex(ctx context.Context, text string) error
	// FetchModels refreshes the chat-capable model list from the backend.
	FetchModels(ctx context.Context) error
	// Models returns the known chat-capable models.
	Models() []ollama.ModelInfo
	// InitChat selects a model and seeds a fresh conversation.
	InitChat(ctx context.Context, model, systemPrompt string) error
	// Reset replaces memory with a single system message.
	Reset(systemPrompt string)
	// RAGEnabled reports whether a retrieval index is available.
	RAGEnabled() bool
	// IndexLen returns the number of indexed chunks.
	IndexLen() int
}

// Server is the HTTP server that wraps a conversational session.
type Server struct {
	// chat is the session driven by the handlers.
	chat chatter
	// mu serializes all session access: the session is single-owner state
	// and concurrent requests must not interleave turns.
	mu sync.Mutex
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// Message is the user's chat prompt.
	Message string `json:"message"`
	// Model selects the chat model; required on the first turn.
	Model string `json:"model,omitempty"`
	// RAG selects the retrieval-augmented path for this turn.
	RAG bool `json:"rag,omitempty"`
}

// indexRequest is the JSON body for POST /api/index.
type indexRequest struct {
	// Text is the raw document text to chunk, embed, and index.
	Text string `json:"text"`
}

// indexResponse is the JSON response for POST /api/index.
type indexResponse struct {
	// Chunks is the number of chunks in the freshly built index.
	Chunks int `json:"chunks"`
}

// resetRequest is the JSON body for POST /api/reset.
type resetRequest struct {
	// SystemPrompt replaces the conversation's system message. Empty uses
	// the default prompt.
	SystemPrompt string `json:"systemPrompt,omitempty"`
}

// modelsResponse is the JSON response for GET /api/models.
type modelsResponse struct {
	// Models is the chat-capable model list, sorted by name descending.
	Models []modelEntry `json:"models"`
}

// modelEntry is one model in the GET /api/models response.
type modelEntry struct {
	// Name is the model name as reported by the backend.
	Name string `json:"name"`
	// Families are the architecture family tags, when reported.
	Families []string `json:"families,omitempty"`
}

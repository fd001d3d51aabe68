// Package session implements the conversational session orchestrator: it
// owns the conversation memory, the retrieval index, and the visible
// response buffer, and composes the chunker, the retrieval index, and the
// Ollama boundary client into the full turn lifecycle for plain chat and
// retrieval-augmented chat.
//
// A Session is single-owner state. At most one operation is logically in
// flight at a time, tracked by the Loading flag; the Session itself does
// not enforce mutual exclusion, so callers driving it from multiple
// goroutines must serialize access (the HTTP server does this with a
// mutex, the TUI by its event loop).
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"lochat/internal/budget"
	"lochat/internal/chat"
	"lochat/internal/chunker"
	"lochat/internal/ollama"
	"lochat/internal/rag"
)

// Validation errors detected before any network activity. They are recorded
// on the session and returned; memory is never touched on these paths.
var (
	// ErrNoModel means no chat model has been selected yet.
	ErrNoModel = errors.New("no model selected")
	// ErrEmptyPrompt means the pending user text is empty or whitespace.
	ErrEmptyPrompt = errors.New("empty prompt")
)

// contextSeparator joins retrieved chunks inside the augmented system message.
const contextSeparator = "\n\n---\n\n"

// Backend is the model-serving boundary the session consumes.
// *ollama.Client satisfies it; tests inject a fake.
type Backend interface {
	// ListModels enumerates the models available on the server.
	ListModels(ctx context.Context) ([]ollama.ModelInfo, error)
	// Chat issues a non-streamed chat request.
	Chat(ctx context.Context, p ollama.ChatParams) (chat.Message, error)
	// ChatStream issues a streamed chat request, invoking fn per fragment
	// in delivery order.
	ChatStream(ctx context.Context, p ollama.ChatParams, fn func(delta string) error) error
	// Embeddings converts one text into its embedding vector.
	Embeddings(ctx context.Context, model, text string) ([]float32, error)
	// Abort best-effort cancels the in-flight generation.
	Abort()
}

// Session is the retrieval-augmented conversational session manager.
type Session struct {
	backend Backend
	opts    Options
	log     *slog.Logger

	// onDelta, when set, observes each streamed response fragment as it
	// arrives. Surfaces (TUI, SSE) use it to render tokens live.
	onDelta func(delta string)

	// models is the filtered, name-descending list of chat-capable models.
	models []ollama.ModelInfo
	// model is the currently selected chat model, empty until selected.
	model string
	// mem is the canonical conversation log.
	mem *chat.Memory
	// index is the retrieval index for the current document, nil until built.
	index *rag.Index
	// response is the visible response buffer for the in-flight turn.
	response strings.Builder
	// loading is true while an operation is in flight.
	loading bool
	// errMsg is the human-readable message of the last failed operation.
	// Cleared at the start of each new operation.
	errMsg string
}

// New constructs an idle Session with empty memory.
func New(backend Backend, opts Options, log *slog.Logger) *Session {
	opts.applyDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		backend: backend,
		opts:    opts,
		log:     log,
		mem:     &chat.Memory{},
	}
}

// SetOnDelta installs (or clears, with nil) the per-fragment observer.
// Must not be called while a turn is in flight.
func (s *Session) SetOnDelta(fn func(delta string)) { s.onDelta = fn }

// Model returns the selected chat model name, empty if none.
func (s *Session) Model() string { return s.model }

// Models returns the known chat-capable models, sorted by name descending.
func (s *Session) Models() []ollama.ModelInfo { return s.models }

// Messages returns a copy of the canonical conversation log.
func (s *Session) Messages() []chat.Message { return s.mem.Messages() }

// Response returns the visible response buffer. While a streamed turn is in
// flight it holds the partial accumulation; afterwards, the full reply.
func (s *Session) Response() string { return s.response.String() }

// Loading reports whether an operation is in flight.
func (s *Session) Loading() bool { return s.loading }

// Err returns the human-readable message of the last failed operation,
// empty if the last operation succeeded.
func (s *Session) Err() string { return s.errMsg }

// RAGEnabled reports whether a retrieval index is built and enabled.
func (s *Session) RAGEnabled() bool { return s.index.Enabled() && s.index.Len() > 0 }

// IndexLen returns the number of indexed chunks.
func (s *Session) IndexLen() int { return s.index.Len() }

// FetchModels enumerates the backend's models, hides embedding-only models,
// and stores the remainder sorted by name descending.
func (s *Session) FetchModels(ctx context.Context) error {
	s.begin()
	defer s.end()

	models, err := s.backend.ListModels(ctx)
	if err != nil {
		return s.fail("fetch models", err)
	}
	s.models = ollama.FilterChatModels(models)
	s.log.Info("models fetched",
		slog.Int("total", len(models)),
		slog.Int("chat_capable", len(s.models)),
	)
	return nil
}

// InitChat selects a model, resets memory with systemPrompt, and seeds the
// conversation with one non-streamed request over the system message alone,
// committing the returned assistant greeting. If no models are known yet
// the list is fetched first. On failure memory is left in whatever partial
// state the reset produced — the reset itself is not rolled back.
func (s *Session) InitChat(ctx context.Context, model, systemPrompt string) error {
	s.begin()
	defer s.end()

	if len(s.models) == 0 {
		models, err := s.backend.ListModels(ctx)
		if err != nil {
			return s.fail("init chat", err)
		}
		s.models = ollama.FilterChatModels(models)
	}

	s.model = model
	s.mem.Reset(s.systemPrompt(systemPrompt))
	s.response.Reset()

	reply, err := s.backend.Chat(ctx, s.chatParams(s.mem.Messages()))
	if err != nil {
		return s.fail("init chat", err)
	}
	s.mem.AppendAssistant(reply.Content)
	s.log.Info("chat initialised", slog.String("model", model))
	return nil
}

// Reset replaces memory with a single system message, clears the visible
// response, and aborts any generation still running against the previous
// memory.
func (s *Session) Reset(systemPrompt string) {
	s.mem.Reset(s.systemPrompt(systemPrompt))
	s.response.Reset()
	s.backend.Abort()
}

// systemPrompt resolves the effective system prompt: the explicit one, the
// configured default, or (left to Memory) the built-in default.
func (s *Session) systemPrompt(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return s.opts.SystemPrompt
}

// SendChat runs one plain chat turn: append the user message, stream the
// reply over the full (budget-trimmed) memory window, and commit the
// assistant message once the stream completes.
//
// On a failure mid-stream the user message stays committed with no
// assistant reply — deliberate, so the caller can retry or continue the
// conversation without re-entering the prompt.
func (s *Session) SendChat(ctx context.Context, userText string) error {
	text, err := s.validate(userText)
	if err != nil {
		return s.invalid(err)
	}
	s.begin()
	defer s.end()

	s.mem.AppendUser(text)

	accum, err := s.stream(ctx, s.chatParams(s.window(s.mem)))
	if err != nil {
		return s.fail("chat", err)
	}
	s.mem.AppendAssistant(accum)
	return nil
}

// BuildIndex constructs a fresh retrieval index from text: chunk, embed
// every chunk in order, install. The replacement is atomic — on any
// failure the previous index (if any) is left untouched.
func (s *Session) BuildIndex(ctx context.Context, text string) error {
	s.begin()
	defer s.end()

	chunks, err := chunker.Chunk(text, s.opts.ChunkSize, s.opts.ChunkOverlap)
	if err != nil {
		return s.fail("build index", err)
	}

	embeddings := make([][]float32, 0, len(chunks))
	for i, c := range chunks {
		vec, err := s.backend.Embeddings(ctx, s.opts.EmbedModel, c)
		if err != nil {
			return s.fail("build index", fmt.Errorf("embedding chunk %d/%d: %w", i+1, len(chunks), err))
		}
		embeddings = append(embeddings, vec)
	}

	index, err := rag.NewIndex(chunks, embeddings)
	if err != nil {
		return s.fail("build index", err)
	}
	s.index = index
	s.log.Info("index built",
		slog.Int("chunks", len(chunks)),
		slog.String("embed_model", s.opts.EmbedModel),
	)
	return nil
}

// Retrieve embeds the query and returns the texts of the k best-matching
// chunks. A disabled or empty index yields an empty result without error.
// k < 1 falls back to the configured default top-K. Embedding failures
// propagate to the caller.
func (s *Session) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	if !s.RAGEnabled() {
		return nil, nil
	}
	if k < 1 {
		k = s.opts.TopK
	}
	qv, err := s.backend.Embeddings(ctx, s.opts.EmbedModel, query)
	if err != nil {
		return nil, fmt.Errorf("session: embed query: %w", err)
	}
	return s.index.TopK(qv, k), nil
}

// SendChatWithRAG runs one retrieval-augmented chat turn. Retrieved context
// is injected into the system message of a disposable working copy of
// memory; on success only the plain user and assistant turns are committed
// to the canonical log, whose system message is never augmented. On failure
// canonical memory is left entirely unmodified.
func (s *Session) SendChatWithRAG(ctx context.Context, userText string) error {
	text, err := s.validate(userText)
	if err != nil {
		return s.invalid(err)
	}
	s.begin()
	defer s.end()

	contextBlock := ""
	if s.RAGEnabled() {
		chunks, err := s.Retrieve(ctx, text, s.opts.TopK)
		if err != nil {
			return s.fail("retrieve", err)
		}
		contextBlock = truncate(strings.Join(chunks, contextSeparator), s.opts.MaxContextChars)
	}

	working := s.mem.Clone()
	working.UpsertSystem(s.augmentedSystem(contextBlock))
	working.AppendUser(text)

	accum, err := s.stream(ctx, s.ragParams(s.window(working)))
	if err != nil {
		return s.fail("rag chat", err)
	}

	// Commit to canonical memory: the canonical system message is already in
	// place (the augmented one lived only on the working copy), then the
	// plain user and assistant turns.
	s.mem.AppendUser(text)
	s.mem.AppendAssistant(accum)
	return nil
}

// stream resets the visible buffer and consumes a streamed chat response,
// folding each fragment into the visible buffer and the accumulator in
// delivery order. Returns the full accumulated text.
func (s *Session) stream(ctx context.Context, p ollama.ChatParams) (string, error) {
	s.response.Reset()
	var accum strings.Builder
	err := s.backend.ChatStream(ctx, p, func(delta string) error {
		accum.WriteString(delta)
		s.response.WriteString(delta)
		if s.onDelta != nil {
			s.onDelta(delta)
		}
		return nil
	})
	return accum.String(), err
}

// augmentedSystem builds the system message for a RAG turn: the canonical
// system prompt, then the answer-from-context instruction and the delimited
// context block. An empty context yields the bare canonical prompt.
func (s *Session) augmentedSystem(contextBlock string) string {
	base, ok := s.mem.System()
	if !ok {
		base = chat.DefaultSystemPrompt
	}
	if contextBlock == "" {
		return base
	}
	return base +
		"\n\nAnswer using only the information in the context below. " +
		"If the context does not contain the answer, say you do not know.\n\n" +
		"Context:\n---\n" + contextBlock + "\n---"
}

// window applies the outbound history budget to a memory's messages.
func (s *Session) window(m *chat.Memory) []chat.Message {
	return budget.TrimWindow(m.Messages(), s.opts.MaxHistoryTokens)
}

// chatParams builds the request parameters for the plain chat profile.
func (s *Session) chatParams(msgs []chat.Message) ollama.ChatParams {
	return ollama.ChatParams{
		Model:       s.model,
		Messages:    msgs,
		KeepAlive:   s.opts.KeepAlive,
		NumCtx:      s.opts.NumCtx,
		Temperature: s.opts.Temperature,
	}
}

// ragParams builds the request parameters for the RAG profile (larger
// context window, lower temperature, shorter keep-alive).
func (s *Session) ragParams(msgs []chat.Message) ollama.ChatParams {
	return ollama.ChatParams{
		Model:       s.model,
		Messages:    msgs,
		KeepAlive:   s.opts.RAGKeepAlive,
		NumCtx:      s.opts.RAGNumCtx,
		Temperature: s.opts.RAGTemperature,
	}
}

// validate is the pure readiness check: a model must be selected and the
// trimmed user text non-empty. It observes, never mutates — the state
// transition into Loading is begin's job.
func (s *Session) validate(userText string) (string, error) {
	if s.model == "" {
		return "", ErrNoModel
	}
	text := strings.TrimSpace(userText)
	if text == "" {
		return "", ErrEmptyPrompt
	}
	return text, nil
}

// begin marks the start of an operation: Loading set, previous error cleared.
func (s *Session) begin() {
	s.loading = true
	s.errMsg = ""
}

// end clears the Loading flag regardless of outcome.
func (s *Session) end() { s.loading = false }

// invalid records a validation failure without starting the operation.
func (s *Session) invalid(err error) error {
	s.errMsg = err.Error()
	s.log.Warn("validation failed", slog.Any("error", err))
	return err
}

// fail records an operation failure and returns the wrapped error.
func (s *Session) fail(op string, err error) error {
	s.errMsg = fmt.Sprintf("%s failed: %v", op, err)
	s.log.Error("operation failed",
		slog.String("op", op),
		slog.Any("error", err),
	)
	return fmt.Errorf("session: %s: %w", op, err)
}

// truncate caps s at max bytes without splitting a rune; max <= 0 means no
// cap. A byte count stands in for a token budget here — close enough to
// keep the injected context bounded.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

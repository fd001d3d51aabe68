// Package ollama is the boundary client for a locally running Ollama
// instance. It covers the four calls the session orchestrator consumes:
// model enumeration, chat (single-shot and streamed), embeddings, and
// best-effort abort of an in-flight generation. No API key is required —
// Ollama runs locally.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"lochat/internal/chat"
)

// DefaultHost is the Ollama API endpoint used when none is configured.
const DefaultHost = "http://localhost:11434"

// Client talks to the Ollama HTTP API. It is safe for concurrent use,
// though the session layer issues at most one generation at a time.
type Client struct {
	// host is the Ollama server base URL (e.g. "http://localhost:11434").
	host string
	// client is the shared HTTP client. No timeout is set — streamed
	// generations can legitimately run for minutes; callers impose
	// deadlines through the request context.
	client *http.Client

	// mu guards cancel.
	mu sync.Mutex
	// cancel aborts the in-flight generation, if any.
	cancel context.CancelFunc
}

// New constructs a Client for the given host. An empty host falls back to
// DefaultHost.
func New(host string) *Client {
	if host == "" {
		host = DefaultHost
	}
	return &Client{host: host, client: &http.Client{}}
}

// ChatParams carries one chat request: the model, the full message window,
// and the generation options the session profile selects.
type ChatParams struct {
	// Model is the chat model name (e.g. "llama3.2").
	Model string
	// Messages is the ordered conversation window to send.
	Messages []chat.Message
	// KeepAlive controls how long the backend retains the model in memory
	// after the request (e.g. "1.5h", "15m").
	KeepAlive string
	// NumCtx is the generation context window size in tokens.
	NumCtx int
	// Temperature controls sampling randomness.
	Temperature float64
}

// chatRequest is the JSON body sent to POST /api/chat.
type chatRequest struct {
	Model     string         `json:"model"`
	Messages  []chat.Message `json:"messages"`
	Stream    bool           `json:"stream"`
	KeepAlive string         `json:"keep_alive,omitempty"`
	Options   chatOptions    `json:"options"`
}

// chatOptions is the nested generation options object.
type chatOptions struct {
	NumCtx      int     `json:"num_ctx,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// chatResponse is one JSON object from POST /api/chat — the single body of
// a non-streamed call, or one NDJSON line of a streamed one.
type chatResponse struct {
	Message chat.Message `json:"message"`
	Done    bool         `json:"done"`
	Error   string       `json:"error,omitempty"`
}

// Chat sends a non-streamed chat request and returns the complete assistant
// message.
func (c *Client) Chat(ctx context.Context, p ChatParams) (chat.Message, error) {
	ctx, done := c.track(ctx)
	defer done()

	resp, err := c.post(ctx, "/api/chat", chatRequest{
		Model:     p.Model,
		Messages:  p.Messages,
		Stream:    false,
		KeepAlive: p.KeepAlive,
		Options:   chatOptions{NumCtx: p.NumCtx, Temperature: p.Temperature},
	})
	if err != nil {
		return chat.Message{}, err
	}
	defer resp.Body.Close()

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return chat.Message{}, fmt.Errorf("ollama: decode chat response: %w", err)
	}
	if err := statusError(resp, result.Error); err != nil {
		return chat.Message{}, err
	}
	return result.Message, nil
}

// ChatStream sends a streamed chat request and invokes fn once per content
// fragment, in delivery order. It returns when the backend reports the
// stream done, fn returns an error, or the connection fails. Fragments
// already delivered before a failure are not retracted — the caller decides
// what to do with a partial accumulation.
func (c *Client) ChatStream(ctx context.Context, p ChatParams, fn func(delta string) error) error {
	ctx, done := c.track(ctx)
	defer done()

	resp, err := c.post(ctx, "/api/chat", chatRequest{
		Model:     p.Model,
		Messages:  p.Messages,
		Stream:    true,
		KeepAlive: p.KeepAlive,
		Options:   chatOptions{NumCtx: p.NumCtx, Temperature: p.Temperature},
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var result chatResponse
		_ = json.NewDecoder(resp.Body).Decode(&result)
		return statusError(resp, result.Error)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var part chatResponse
		if err := json.Unmarshal(line, &part); err != nil {
			return fmt.Errorf("ollama: decode stream fragment: %w", err)
		}
		if part.Error != "" {
			return fmt.Errorf("ollama: stream error: %s", part.Error)
		}
		if part.Message.Content != "" {
			if err := fn(part.Message.Content); err != nil {
				return err
			}
		}
		if part.Done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("ollama: stream read: %w", err)
	}
	// Stream ended without a done marker — treat as a dropped connection.
	return fmt.Errorf("ollama: stream ended before completion")
}

// embeddingsRequest is the JSON body sent to POST /api/embeddings.
// One call embeds one text; Ollama's legacy endpoint has no batching.
type embeddingsRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// embeddingsResponse is the JSON body returned from POST /api/embeddings.
type embeddingsResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// Embeddings converts one text into its embedding vector using the given
// embedding model.
func (c *Client) Embeddings(ctx context.Context, model, text string) ([]float32, error) {
	resp, err := c.post(ctx, "/api/embeddings", embeddingsRequest{Model: model, Prompt: text})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ollama: decode embeddings response: %w", err)
	}
	if err := statusError(resp, result.Error); err != nil {
		return nil, err
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("ollama: model %q returned an empty embedding", model)
	}
	return result.Embedding, nil
}

// Abort cancels the in-flight generation, if any. It is a no-op when
// nothing is running.
func (c *Client) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Ping checks that the Ollama server is reachable. Used by readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/version", nil)
	if err != nil {
		return fmt.Errorf("ollama: create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama: version probe returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// track wraps ctx in a cancellable context registered for Abort. The
// returned done func deregisters it; only the generation endpoints register,
// matching the one-generation-at-a-time session model.
func (c *Client) track(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	return ctx, func() {
		c.mu.Lock()
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		c.mu.Unlock()
	}
}

// post marshals body and issues a POST to the given API path.
func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ollama: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: request failed: %w", err)
	}
	return resp, nil
}

// statusError converts a non-2xx response into an error, preferring the
// backend-reported message over the bare status code.
func statusError(resp *http.Response, errMsg string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if errMsg != "" {
		return fmt.Errorf("ollama: %s", errMsg)
	}
	return fmt.Errorf("ollama: HTTP %d", resp.StatusCode)
}

// defaultListTimeout bounds model enumeration, which should be fast even on
// a cold server.
const defaultListTimeout = 10 * time.Second

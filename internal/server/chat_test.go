package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"lochat/internal/ollama"
)

// ---------------------------------------------------------------------------
// Fake chatter for handler tests
// ---------------------------------------------------------------------------

// fakeChatter implements the chatter interface for tests. It emits the
// configured fragments through the installed delta observer and returns
// configurable values.
type fakeChatter struct {
	// fragments are pushed through the delta observer on each chat call.
	fragments []string
	// chatErr is returned by SendChat / SendChatWithRAG.
	chatErr error
	// indexErr is returned by BuildIndex.
	indexErr error
	// chunks is the value returned by IndexLen.
	chunks int
	// models is returned by Models after FetchModels has run.
	models []ollama.ModelInfo
	// fetchErr is returned by FetchModels.
	fetchErr error

	onDelta    func(string)
	fetched    bool
	ragCalled  bool
	initModel  string
	resetWith  string
	resetCalls int
}

func (f *fakeChatter) SetOnDelta(fn func(string)) { f.onDelta = fn }

func (f *fakeChatter) SendChat(_ context.Context, _ string) error {
	return f.emit()
}

func (f *fakeChatter) SendChatWithRAG(_ context.Context, _ string) error {
	f.ragCalled = true
	return f.emit()
}

func (f *fakeChatter) emit() error {
	if f.chatErr != nil {
		return f.chatErr
	}
	for _, frag := range f.fragments {
		if f.onDelta != nil {
			f.onDelta(frag)
		}
	}
	return nil
}

func (f *fakeChatter) BuildIndex(_ context.Context, _ string) error { return f.indexErr }

func (f *fakeChatter) FetchModels(_ context.Context) error {
	f.fetched = true
	return f.fetchErr
}

func (f *fakeChatter) Models() []ollama.ModelInfo {
	if !f.fetched {
		return nil
	}
	return f.models
}

func (f *fakeChatter) InitChat(_ context.Context, model, _ string) error {
	f.initModel = model
	return nil
}

func (f *fakeChatter) Reset(systemPrompt string) {
	f.resetWith = systemPrompt
	f.resetCalls++
}

func (f *fakeChatter) RAGEnabled() bool { return f.chunks > 0 }
func (f *fakeChatter) IndexLen() int    { return f.chunks }

// newTestServer builds a *Server wired with a fresh metrics registry so
// tests never touch the default registerer.
func newTestServer() *Server {
	return newChatTestServer(&fakeChatter{})
}

func newChatTestServer(c chatter) *Server {
	reg := prometheus.NewRegistry()
	return &Server{
		chat: c,
		cfg: &Config{
			Port:            8080,
			ChatTimeout:     5 * time.Minute,
			MetricsRegistry: reg,
			MetricsGatherer: reg,
		},
		log:     slog.Default(),
		metrics: newServerMetrics(reg),
	}
}

// ---------------------------------------------------------------------------
// POST /api/chat — validation error paths
// ---------------------------------------------------------------------------

func TestHandleChat_MissingMessage(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"rag":true}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleChat_InvalidJSON(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`not-json`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// POST /api/chat — happy path (fake chatter, SSE response)
// ---------------------------------------------------------------------------

// TestHandleChat_Success verifies that a valid request produces an SSE
// stream carrying the response fragments and a terminating "done" event.
// httptest.ResponseRecorder implements http.Flusher so the handler's
// flusher check passes without a real connection.
func TestHandleChat_Success(t *testing.T) {
	t.Parallel()

	c := &fakeChatter{fragments: []string{"Hel", "lo, ", "world"}}
	s := newChatTestServer(c)

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	body := w.Body.String()

	for _, frag := range []string{"data: Hel", "data: lo, ", "data: world"} {
		if !strings.Contains(body, frag) {
			t.Errorf("expected %q in SSE body, got: %s", frag, body)
		}
	}
	if !strings.Contains(body, "event: done") {
		t.Errorf("expected SSE done event in body, got: %s", body)
	}
	if !strings.Contains(body, "[DONE]") {
		t.Errorf("expected [DONE] sentinel in body, got: %s", body)
	}
	if c.ragCalled {
		t.Error("RAG path taken without rag flag")
	}
	if c.onDelta != nil {
		t.Error("delta observer not cleared after the turn")
	}
}

// TestHandleChat_RAGFlag verifies the rag flag routes the turn through the
// retrieval-augmented path.
func TestHandleChat_RAGFlag(t *testing.T) {
	t.Parallel()

	c := &fakeChatter{fragments: []string{"ok"}}
	s := newChatTestServer(c)

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"message":"hi","rag":true}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	if !c.ragCalled {
		t.Error("expected SendChatWithRAG to be called")
	}
}

// TestHandleChat_ModelSelection verifies a model named in the request is
// installed via InitChat before the turn runs.
func TestHandleChat_ModelSelection(t *testing.T) {
	t.Parallel()

	c := &fakeChatter{fragments: []string{"ok"}}
	s := newChatTestServer(c)

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"message":"hi","model":"llama3.1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	if c.initModel != "llama3.1" {
		t.Errorf("InitChat model = %q, want llama3.1", c.initModel)
	}
}

// TestHandleChat_SessionError verifies that when the session returns an
// error, the SSE stream includes an "error" event and the response is
// still 200 (SSE errors are delivered in-band, not via HTTP status).
func TestHandleChat_SessionError(t *testing.T) {
	t.Parallel()

	c := &fakeChatter{chatErr: fmt.Errorf("model unavailable")}
	s := newChatTestServer(c)

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "event: error") {
		t.Errorf("expected error event in body, got: %s", body)
	}
	if !strings.Contains(body, "model unavailable") {
		t.Errorf("expected error message in body, got: %s", body)
	}
}

// ---------------------------------------------------------------------------
// POST /api/index
// ---------------------------------------------------------------------------

func TestHandleIndex_Success(t *testing.T) {
	t.Parallel()

	c := &fakeChatter{chunks: 3}
	s := newChatTestServer(c)

	req := httptest.NewRequest(http.MethodPost, "/api/index",
		strings.NewReader(`{"text":"some document"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleIndex(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}
	var resp indexResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Chunks != 3 {
		t.Errorf("chunks = %d, want 3", resp.Chunks)
	}
}

func TestHandleIndex_EmptyText(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/index",
		strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	s.handleIndex(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleIndex_BuildFailure(t *testing.T) {
	t.Parallel()

	c := &fakeChatter{indexErr: fmt.Errorf("embedding model missing")}
	s := newChatTestServer(c)

	req := httptest.NewRequest(http.MethodPost, "/api/index",
		strings.NewReader(`{"text":"doc"}`))
	w := httptest.NewRecorder()

	s.handleIndex(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// GET /api/models
// ---------------------------------------------------------------------------

func TestHandleModels_FetchesOnFirstUse(t *testing.T) {
	t.Parallel()

	c := &fakeChatter{models: []ollama.ModelInfo{{Name: "qwen3"}, {Name: "llama3"}}}
	s := newChatTestServer(c)

	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	w := httptest.NewRecorder()

	s.handleModels(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}
	if !c.fetched {
		t.Error("expected FetchModels on first use")
	}
	var resp modelsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Models) != 2 || resp.Models[0].Name != "qwen3" {
		t.Errorf("models = %+v", resp.Models)
	}
}

func TestHandleModels_BackendDown(t *testing.T) {
	t.Parallel()

	c := &fakeChatter{fetchErr: fmt.Errorf("connection refused")}
	s := newChatTestServer(c)

	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	w := httptest.NewRecorder()

	s.handleModels(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// POST /api/reset
// ---------------------------------------------------------------------------

func TestHandleReset(t *testing.T) {
	t.Parallel()

	c := &fakeChatter{}
	s := newChatTestServer(c)

	req := httptest.NewRequest(http.MethodPost, "/api/reset",
		strings.NewReader(`{"systemPrompt":"fresh start"}`))
	w := httptest.NewRecorder()

	s.handleReset(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	if c.resetCalls != 1 || c.resetWith != "fresh start" {
		t.Errorf("Reset called %d times with %q", c.resetCalls, c.resetWith)
	}
}

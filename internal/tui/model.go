// Package tui implements the interactive terminal chat client built on
// Bubble Tea. It drives a conversational session: streamed chat turns,
// document indexing, and retrieval-augmented answers, rendered into a
// scrollable transcript.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lochat/internal/chat"
	"lochat/internal/ollama"
)

// SessionPort is the TUI-facing subset of the conversational session.
type SessionPort interface {
	SetOnDelta(fn func(delta string))
	FetchModels(ctx context.Context) error
	Models() []ollama.ModelInfo
	InitChat(ctx context.Context, model, systemPrompt string) error
	SendChat(ctx context.Context, userText string) error
	SendChatWithRAG(ctx context.Context, userText string) error
	BuildIndex(ctx context.Context, text string) error
	Reset(systemPrompt string)
	Messages() []chat.Message
	RAGEnabled() bool
	IndexLen() int
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	session SessionPort
	// model is the chat model to select at startup; empty picks the first
	// available one.
	model string

	input      textinput.Model
	viewport   viewport.Model
	transcript string
	status     string
	ready      bool
	streaming  bool
	booted     bool

	// events carries streamed fragments and the turn outcome from the
	// worker goroutine into the Bubble Tea loop, in order.
	events chan tea.Msg
}

// Messages exchanged between the worker goroutines and Update.
type (
	// bootMsg reports startup: model list fetched, conversation seeded.
	bootMsg struct {
		model string
		err   error
	}
	// deltaMsg is one streamed response fragment.
	deltaMsg string
	// turnDoneMsg reports a finished chat turn.
	turnDoneMsg struct{ err error }
	// indexedMsg reports a finished document indexing run.
	indexedMsg struct {
		path   string
		chunks int
		err    error
	}
)

// New creates the TUI model. model may be empty, in which case the first
// chat-capable model reported by the backend is selected at startup.
func New(session SessionPort, model string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message, or /doc <path>, /reset, /quit"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		session:  session,
		model:    model,
		input:    ti,
		viewport: vp,
		status:   "Connecting to Ollama...",
		events:   make(chan tea.Msg, 64),
	}
}

// Init starts the cursor blink and the backend bootstrap.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.bootstrap())
}

// bootstrap fetches the model list and seeds the conversation.
func (m Model) bootstrap() tea.Cmd {
	session, model := m.session, m.model
	return func() tea.Msg {
		ctx := context.Background()
		if err := session.FetchModels(ctx); err != nil {
			return bootMsg{err: err}
		}
		if model == "" {
			models := session.Models()
			if len(models) == 0 {
				return bootMsg{err: fmt.Errorf("no chat-capable models installed")}
			}
			model = models[0].Name
		}
		if err := session.InitChat(ctx, model, ""); err != nil {
			return bootMsg{model: model, err: err}
		}
		return bootMsg{model: model}
	}
}

// startTurn runs one chat turn on a worker goroutine, forwarding streamed
// fragments through the events channel so they render in arrival order.
// The RAG path is taken automatically once an index is built.
func (m Model) startTurn(text string) tea.Cmd {
	session, events := m.session, m.events
	go func() {
		session.SetOnDelta(func(d string) { events <- deltaMsg(d) })
		var err error
		if session.RAGEnabled() {
			err = session.SendChatWithRAG(context.Background(), text)
		} else {
			err = session.SendChat(context.Background(), text)
		}
		session.SetOnDelta(nil)
		events <- turnDoneMsg{err: err}
	}()
	return m.listen()
}

// listen waits for the next worker event.
func (m Model) listen() tea.Cmd {
	events := m.events
	return func() tea.Msg { return <-events }
}

// indexDocument reads a file and builds the retrieval index from it.
func (m Model) indexDocument(path string) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return indexedMsg{path: path, err: err}
		}
		if err := session.BuildIndex(context.Background(), string(data)); err != nil {
			return indexedMsg{path: path, err: err}
		}
		return indexedMsg{path: path, chunks: session.IndexLen()}
	}
}

// Update handles key, window, and worker events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		reserved := 2 + ih + 1 // header, input frame, status
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-th)
		m.refreshViewport()
		return m, nil

	case bootMsg:
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		m.booted = true
		m.status = "Chatting with " + msg.model + ". /doc <path> to index a document."
		// InitChat seeds an assistant greeting; show it.
		msgs := m.session.Messages()
		if n := len(msgs); n > 0 && msgs[n-1].Role == chat.RoleAssistant {
			m.transcript += aiLabel.Render("AI: ") + msgs[n-1].Content + "\n\n"
			m.refreshViewport()
		}
		return m, nil

	case deltaMsg:
		m.transcript += string(msg)
		m.refreshViewport()
		return m, m.listen()

	case turnDoneMsg:
		m.streaming = false
		m.transcript += "\n\n"
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else if m.session.RAGEnabled() {
			m.status = fmt.Sprintf("Answered from %d indexed chunks.", m.session.IndexLen())
		} else {
			m.status = "Ready."
		}
		m.refreshViewport()
		return m, nil

	case indexedMsg:
		if msg.err != nil {
			m.status = "Index error: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("Indexed %s (%d chunks). Answers now use the document.", msg.path, msg.chunks)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" && !m.streaming {
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit interprets the input line: a slash command or a chat turn.
func (m Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return m, nil
	}
	m.input.SetValue("")

	switch {
	case line == "/quit" || line == "/exit":
		return m, tea.Quit

	case line == "/reset":
		m.session.Reset("")
		m.transcript = ""
		m.status = "Conversation reset."
		m.refreshViewport()
		return m, nil

	case line == "/models":
		models := m.session.Models()
		if len(models) == 0 {
			m.status = "No chat models available."
			return m, nil
		}
		names := make([]string, len(models))
		for i, mi := range models {
			names[i] = mi.Name
		}
		m.transcript += statusStyle.Render("Models: "+strings.Join(names, ", ")) + "\n"
		m.status = "Current model: " + m.model
		m.refreshViewport()
		return m, nil

	case strings.HasPrefix(line, "/doc "):
		path := strings.TrimSpace(strings.TrimPrefix(line, "/doc "))
		m.status = "Indexing " + path + "..."
		return m, m.indexDocument(path)

	case strings.HasPrefix(line, "/"):
		m.status = "Unknown command: " + line
		return m, nil
	}

	if !m.booted {
		m.status = "Still connecting — try again in a moment."
		return m, nil
	}

	m.transcript += userLabel.Render("You: ") + line + "\n"
	m.transcript += aiLabel.Render("AI: ")
	m.streaming = true
	m.status = "Thinking..."
	m.refreshViewport()
	return m, m.startTurn(line)
}

// refreshViewport re-renders the transcript and keeps the view pinned to
// the latest output.
func (m *Model) refreshViewport() {
	content := m.transcript
	if content == "" {
		content = "No messages yet."
	}
	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("lochat")
	transcript := transcriptStyle.Render(m.viewport.View())
	input := inputStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

var (
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userLabel       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	aiLabel         = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

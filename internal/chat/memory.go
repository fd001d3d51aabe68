package chat

// Memory is the ordered, append-only conversation log for one session.
// It is single-owner: only the session orchestrator mutates it. Memory has
// no length cap and no eviction — bounding the outbound request window is
// the budget package's job, applied at send time without touching the log.
type Memory struct {
	// msgs is the chronological message log.
	msgs []Message
}

// NewMemory constructs a Memory containing exactly one system message.
// An empty systemPrompt falls back to DefaultSystemPrompt.
func NewMemory(systemPrompt string) *Memory {
	m := &Memory{}
	m.Reset(systemPrompt)
	return m
}

// Reset replaces the log wholesale with a single system message.
// An empty systemPrompt falls back to DefaultSystemPrompt.
func (m *Memory) Reset(systemPrompt string) {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	m.msgs = []Message{{Role: RoleSystem, Content: systemPrompt}}
}

// AppendUser appends a user turn to the end of the log.
func (m *Memory) AppendUser(text string) {
	m.msgs = append(m.msgs, Message{Role: RoleUser, Content: text})
}

// AppendAssistant appends an assistant turn to the end of the log.
func (m *Memory) AppendAssistant(text string) {
	m.msgs = append(m.msgs, Message{Role: RoleAssistant, Content: text})
}

// UpsertSystem replaces the content of the existing system message in place,
// preserving its position. If no system message exists one is inserted at
// position 0.
func (m *Memory) UpsertSystem(content string) {
	for i := range m.msgs {
		if m.msgs[i].Role == RoleSystem {
			m.msgs[i].Content = content
			return
		}
	}
	m.msgs = append([]Message{{Role: RoleSystem, Content: content}}, m.msgs...)
}

// System returns the content of the system message and whether one exists.
func (m *Memory) System() (string, bool) {
	for i := range m.msgs {
		if m.msgs[i].Role == RoleSystem {
			return m.msgs[i].Content, true
		}
	}
	return "", false
}

// Messages returns a copy of the log. Callers may pass the copy to the
// backend or mutate it freely without affecting the canonical memory.
func (m *Memory) Messages() []Message {
	out := make([]Message, len(m.msgs))
	copy(out, m.msgs)
	return out
}

// Len returns the number of messages in the log.
func (m *Memory) Len() int { return len(m.msgs) }

// Clone returns an independent copy of the memory. The session uses clones
// as disposable working copies for context-augmented requests so the
// augmented system message is never committed to the canonical log.
func (m *Memory) Clone() *Memory {
	return &Memory{msgs: m.Messages()}
}

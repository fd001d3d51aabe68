// Package chat holds the conversation domain types for lochat: message
// roles, the Message value itself, and the in-memory conversation log the
// session orchestrator owns. The JSON tags on Message match the Ollama
// chat wire format so the boundary client can send messages unmodified.
package chat

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleSystem is the instruction message that frames the conversation.
	RoleSystem Role = "system"
	// RoleUser is a message sent by the human operator.
	RoleUser Role = "user"
	// RoleAssistant is a message produced by the model.
	RoleAssistant Role = "assistant"
)

// DefaultSystemPrompt is used whenever a reset is requested without an
// explicit system prompt.
const DefaultSystemPrompt = "You are a helpful assistant."

// Message is a single turn in a conversation. Ordering is chronological;
// by convention at most one system message exists and sits at index 0,
// enforced operationally by Memory rather than by the type.
type Message struct {
	// Role is the author of the message.
	Role Role `json:"role"`
	// Content is the text of the message.
	Content string `json:"content"`
}

// Package budget provides token budget estimation and outbound window
// trimming for lochat. The local models lochat talks to ship different
// tokenizers, so this package uses a conservative character-based heuristic:
// 1 token ≈ 4 characters. Trimming applies only to the request payload —
// the conversation log itself is never shortened.
package budget

import "lochat/internal/chat"

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English prose and code.
	charsPerToken = 4

	// messageOverheadTokens is the per-message framing overhead most chat
	// APIs charge on top of the content.
	messageOverheadTokens = 4
)

// Estimate returns a rough token count for s using the character heuristic.
// Non-empty strings estimate to at least 1.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated token count for a message window,
// summing role + content + per-message overhead.
func EstimateMessages(msgs []chat.Message) int {
	total := 0
	for _, m := range msgs {
		total += messageOverheadTokens
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimWindow bounds an outbound message window to maxTokens by dropping the
// oldest conversation turns. The first message (the system message) and the
// last message (the current user turn) are always kept; turns in between
// are dropped oldest-first until the estimate fits. maxTokens <= 0 disables
// trimming. Windows of two or fewer messages are returned unchanged.
func TrimWindow(msgs []chat.Message, maxTokens int) []chat.Message {
	if maxTokens <= 0 || len(msgs) <= 2 {
		return msgs
	}

	head := msgs[:1]
	tail := msgs[len(msgs)-1:]
	middle := msgs[1 : len(msgs)-1]

	fixedTokens := EstimateMessages(head) + EstimateMessages(tail)
	for len(middle) > 0 && fixedTokens+EstimateMessages(middle) > maxTokens {
		middle = middle[1:]
	}

	out := make([]chat.Message, 0, 1+len(middle)+1)
	out = append(out, head...)
	out = append(out, middle...)
	out = append(out, tail...)
	return out
}

package session

import "github.com/quillmate/quillmate/internal/provider"

// DefaultContextMessages is how many earlier messages accompany a new prompt.
const DefaultContextMessages = 10

// Context returns the last n messages of the chat as provider messages,
// oldest first. It is taken before the new user message is appended, so the
// prompt is never sent twice. n <= 0 sends no history.
func (c *Chat) Context(n int) []provider.Message {
	if n <= 0 || len(c.Messages) == 0 {
		return nil
	}
	start := max(0, len(c.Messages)-n)
	out := make([]provider.Message, 0, len(c.Messages)-start)
	for _, m := range c.Messages[start:] {
		if m.Content == "" {
			continue
		}
		out = append(out, provider.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// EstimateTokens returns a rough token estimate (total chars / 4).
func (c *Chat) EstimateTokens() int {
	total := 0
	for _, m := range c.Messages {
		total += len(m.Content)
	}
	return total / 4
}

package models

// Message roles as used by the completion backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the durable per-user record. The first message is
// always the system persona; one user/assistant message is appended
// per turn and the record is never truncated.
type Conversation struct {
	History []Message `json:"history"`
}

// NewConversation returns a fresh record containing only the persona.
func NewConversation(persona string) *Conversation {
	return &Conversation{
		History: []Message{{Role: RoleSystem, Content: persona}},
	}
}

// Append adds one message to the end of the history.
func (c *Conversation) Append(role, content string) {
	c.History = append(c.History, Message{Role: role, Content: content})
}

// LastUserContents returns up to max user-authored contents found in
// the last window messages, oldest-first.
func (c *Conversation) LastUserContents(window, max int) []string {
	start := len(c.History) - window
	if start < 0 {
		start = 0
	}
	var contents []string
	for _, m := range c.History[start:] {
		if m.Role == RoleUser {
			contents = append(contents, m.Content)
		}
	}
	if len(contents) > max {
		contents = contents[len(contents)-max:]
	}
	return contents
}

// Clone returns a deep copy of the record.
func (c *Conversation) Clone() *Conversation {
	out := &Conversation{History: make([]Message, len(c.History))}
	copy(out.History, c.History)
	return out
}

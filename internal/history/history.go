// Package history holds the process-wide conversation transcript. There is
// deliberately a single conversation with no per-session identity; every
// prior turn is replayed into every subsequent prompt and growth is
// unbounded until an explicit reset.
package history

import "sync"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one utterance in the conversation.
type Turn struct {
	Role    Role
	Content string
}

// Conversation is an ordered transcript of turns, safe for concurrent use.
type Conversation struct {
	mu    sync.RWMutex
	turns []Turn
}

func NewConversation() *Conversation {
	return &Conversation{}
}

// Append adds turns to the end of the transcript.
func (c *Conversation) Append(turns ...Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, turns...)
}

// Snapshot returns a copy of the transcript in order.
func (c *Conversation) Snapshot() []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len reports the number of turns.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

// Reset clears all turns. It has no effect on the vector store.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
}

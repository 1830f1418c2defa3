// Package chat models the per-session conversation transcript.
package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/glucomeal/web/internal/domain/recipe"
)

// Role identifies the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in the transcript. Messages are never mutated after
// creation; the transcript is append-only until reinitialization.
type Message struct {
	ID     string
	Role   Role
	Text   string
	Recipe *recipe.Payload
}

// NewMessage creates a message with a time-prefixed unique id
func NewMessage(role Role, text string) Message {
	return Message{
		ID:   fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8]),
		Role: role,
		Text: text,
	}
}

// Transcript is the ordered message sequence for one chat session together
// with a generation counter. Reinitializing the conversation bumps the
// generation; a backend response carrying a stale generation is discarded
// instead of applied.
type Transcript struct {
	Messages   []Message
	Generation int
}

// Append adds a message to the transcript
func (t *Transcript) Append(m Message) {
	t.Messages = append(t.Messages, m)
}

// Reset clears the transcript and starts a new generation
func (t *Transcript) Reset() {
	t.Messages = nil
	t.Generation++
}

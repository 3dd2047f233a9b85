package convo

import (
	"context"
	"time"
)

// Message is a single utterance in a stored conversation.
type Message struct {
	// ID is a unique identifier for the message
	ID string

	// ConversationID groups messages into one conversation
	ConversationID string

	// Role is the speaker (user, assistant, system)
	Role string

	// Content is the message text
	Content string

	// CreatedAt orders messages within a conversation
	CreatedAt time.Time
}

// History is the interface that conversation storage adapters must implement.
//
// Adapters wrap persistence failures in errors.ErrStorage.
type History interface {
	// Append stores a message at the end of its conversation.
	Append(ctx context.Context, message Message) (string, error)

	// Messages returns the full conversation ordered by creation time.
	// An unknown conversation yields an empty slice, not an error.
	Messages(ctx context.Context, conversationID string) ([]Message, error)
}

package session

// ID represents a unique identifier for a conversational session.
// Working memory is scoped per session.
type ID string

// Scope holds information about the current session and user.
type Scope struct {
	// SessionID identifies the working-memory scratchpad for this conversation
	SessionID ID

	// UserID is optional and marks ownership of long-term memories
	UserID string
}

// NewScope creates a new Scope with the specified session ID and optional user ID.
func NewScope(sessionID ID, userID string) Scope {
	return Scope{
		SessionID: sessionID,
		UserID:    userID,
	}
}

package session

import (
	"context"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey int

const (
	// scopeKey is the key for storing a session.Scope in a context.Context
	scopeKey contextKey = iota
)

// ContextWithSessionID adds a session ID to a context.Context.
func ContextWithSessionID(ctx context.Context, sessionID ID) context.Context {
	return context.WithValue(ctx, scopeKey, Scope{SessionID: sessionID})
}

// ContextWithScope adds a full session.Scope to a context.Context.
func ContextWithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey, scope)
}

// GetScope retrieves the session.Scope from a context.Context.
// If no session.Scope is found, it returns a zero-valued Scope and false.
func GetScope(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(scopeKey).(Scope)
	return scope, ok
}

// MustGetScope retrieves the session.Scope from a context.Context.
// Panics if no Scope is found, so only use when you are sure one exists.
func MustGetScope(ctx context.Context) Scope {
	scope, ok := GetScope(ctx)
	if !ok {
		panic("session.Scope not found in context.Context")
	}
	return scope
}

package logger

import (
	"context"
	"strconv"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// Context keys for fields lifted into every log record by ContextHandler.
const (
	// ContextKeySessionID identifies the local recording session.
	ContextKeySessionID contextKey = "session_id"

	// ContextKeyVariant identifies the product variant (message, meeting, file).
	ContextKeyVariant contextKey = "variant"

	// ContextKeyServerSessionID identifies the backend meeting-recording session.
	ContextKeyServerSessionID contextKey = "server_session_id"

	// ContextKeyChunkIndex identifies the chunk being uploaded.
	ContextKeyChunkIndex contextKey = "chunk_index"
)

var allContextKeys = []contextKey{
	ContextKeySessionID,
	ContextKeyVariant,
	ContextKeyServerSessionID,
	ContextKeyChunkIndex,
}

// WithSessionID returns a new context with the session ID set.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, sessionID)
}

// WithVariant returns a new context with the product variant set.
func WithVariant(ctx context.Context, variant string) context.Context {
	return context.WithValue(ctx, ContextKeyVariant, variant)
}

// WithServerSessionID returns a new context with the backend session ID set.
func WithServerSessionID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, ContextKeyServerSessionID, strconv.FormatInt(id, 10))
}

// WithChunkIndex returns a new context with the chunk index set.
func WithChunkIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, ContextKeyChunkIndex, strconv.Itoa(index))
}

// LoggingFields holds the values ContextHandler extracts from a context.
type LoggingFields struct {
	SessionID       string
	Variant         string
	ServerSessionID string
	ChunkIndex      string
}

// ExtractLoggingFields extracts all logging fields from a context.
func ExtractLoggingFields(ctx context.Context) LoggingFields {
	get := func(k contextKey) string {
		s, _ := ctx.Value(k).(string)
		return s
	}
	return LoggingFields{
		SessionID:       get(ContextKeySessionID),
		Variant:         get(ContextKeyVariant),
		ServerSessionID: get(ContextKeyServerSessionID),
		ChunkIndex:      get(ContextKeyChunkIndex),
	}
}

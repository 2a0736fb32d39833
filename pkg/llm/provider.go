package llm

import (
	"context"
	"iter"
)

// Provider starts conversational sessions against an LLM backend.
// Implementations handle protocol-specific details such as request formatting,
// authentication, and response parsing.
type Provider interface {
	// Start opens a session seeded with the system prompt and prior turns.
	// Failures are reported as *InitError.
	Start(ctx context.Context, systemPrompt string, history []Message) (Session, error)
}

// Session is an owned handle on one remote conversation.
type Session interface {
	// SendTurn returns a lazy sequence for one user turn. Ranging over it
	// issues the request; ranging again issues a fresh one. Every yielded
	// string is the full text generated so far in the turn. A fault ends
	// the sequence with a *StreamError.
	SendTurn(ctx context.Context, text string, image *InlineData) iter.Seq2[string, error]
}

// Config holds common configuration for LLM providers.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	TopP        float32
	TopK        float32
	// MaxAttempts above 1 retries transient failures to open a turn.
	MaxAttempts int
}

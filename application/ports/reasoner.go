package ports

import "context"

// Reasoner is the outbound port to the language-model reasoning service.
// Implementations handle transport, retries, and transient failures; callers
// receive either the raw completion text or a terminal error.
type Reasoner interface {
	// Complete sends a system and user prompt and returns the completion text
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

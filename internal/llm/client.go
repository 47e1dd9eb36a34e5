// Package llm provides the completion clients used for parser generation
// and repair. Both providers expose the same minimal interface; rate
// limiting, retries, and timeouts live inside the implementations.
package llm

import (
	"context"
	"time"
)

// minRequestSpacing is the minimum gap between two outgoing requests from
// one client.
const minRequestSpacing = 100 * time.Millisecond

// Client is the completion interface the generator consumes.
type Client interface {
	// Complete sends a prompt and returns the model's text response.
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteWithSystem sends a system prompt alongside the user prompt.
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

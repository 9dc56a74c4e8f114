package outbound

import (
	"context"
	"fmt"

	"github.com/alchemorsel/mealplan/internal/domain/ai"
)

// CompletionRequest is one prompt submitted to one model
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	Prompt       string
	Temperature  float64
	MaxTokens    int
	// JSONResponse asks the provider for strict structured output
	JSONResponse bool
}

// CompletionClient is a model provider adapter. Implementations make exactly
// one request per call and honor ctx cancellation.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (*ai.Completion, error)
	Provider() ai.ProviderType
}

// StatusError is returned by provider adapters for non-success HTTP responses
type StatusError struct {
	Provider   ai.ProviderType
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.StatusCode, e.Body)
}

// DecodeError is returned when a provider's response envelope cannot be read
type DecodeError struct {
	Provider ai.ProviderType
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s response decode failed: %v", e.Provider, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

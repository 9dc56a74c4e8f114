package mealplan

import (
	"context"
	"errors"

	aiapp "github.com/alchemorsel/mealplan/internal/application/ai"
	"github.com/alchemorsel/mealplan/internal/domain/ai"
	"github.com/alchemorsel/mealplan/internal/infrastructure/monitoring"
	"go.uber.org/zap"
)

// Invoker runs one prompt against one model
type Invoker interface {
	Invoke(ctx context.Context, prompt string, model ai.GenerationModel) (*ai.Completion, error)
}

type attemptState int

const (
	stateTryPrimary attemptState = iota
	stateTryFallback
	stateFailed
)

// FallbackResult is a successful completion and the model that produced it
type FallbackResult struct {
	Completion   *ai.Completion
	Model        ai.GenerationModel
	Attempts     int
	UsedFallback bool
}

// FallbackError is returned when the chain produced no completion
type FallbackError struct {
	Attempts int
	Last     error
}

func (e *FallbackError) Error() string {
	return e.Last.Error()
}

func (e *FallbackError) Unwrap() error {
	return e.Last
}

// Exhausted reports whether both models were tried
func (e *FallbackError) Exhausted() bool {
	return e.Attempts >= 2
}

// ModelFallback drives TryPrimary -> TryFallback -> Failed. The fallback
// model is tried at most once and only after a retryable primary failure.
type ModelFallback struct {
	invoker Invoker
	metrics *monitoring.MetricsCollector
	logger  *zap.Logger
}

// NewModelFallback creates the fallback runner
func NewModelFallback(invoker Invoker, metrics *monitoring.MetricsCollector, logger *zap.Logger) *ModelFallback {
	return &ModelFallback{
		invoker: invoker,
		metrics: metrics,
		logger:  logger.Named("model-fallback"),
	}
}

// Run invokes the chain
func (f *ModelFallback) Run(ctx context.Context, chain ai.ModelChain, prompt string) (*FallbackResult, error) {
	state := stateTryPrimary
	attempts := 0
	var lastErr error

	for {
		switch state {
		case stateTryPrimary:
			attempts++
			completion, err := f.invoker.Invoke(ctx, prompt, chain.Primary)
			if err == nil {
				return &FallbackResult{Completion: completion, Model: chain.Primary, Attempts: attempts}, nil
			}
			lastErr = err
			if !retryable(err) || ctx.Err() != nil {
				state = stateFailed
				continue
			}
			f.metrics.FallbackAttempt(failureKind(err))
			f.logger.Warn("Primary model failed, trying fallback",
				zap.String("primary", chain.Primary.ModelID),
				zap.String("fallback", chain.Fallback.ModelID),
				zap.Error(err))
			state = stateTryFallback

		case stateTryFallback:
			attempts++
			completion, err := f.invoker.Invoke(ctx, prompt, chain.Fallback)
			if err == nil {
				return &FallbackResult{Completion: completion, Model: chain.Fallback, Attempts: attempts, UsedFallback: true}, nil
			}
			lastErr = err
			state = stateFailed

		case stateFailed:
			return nil, &FallbackError{Attempts: attempts, Last: lastErr}
		}
	}
}

func retryable(err error) bool {
	var invErr *aiapp.InvocationError
	if errors.As(err, &invErr) {
		return invErr.Retryable()
	}
	return false
}

func failureKind(err error) string {
	var invErr *aiapp.InvocationError
	if errors.As(err, &invErr) {
		return string(invErr.Kind)
	}
	return "unknown"
}

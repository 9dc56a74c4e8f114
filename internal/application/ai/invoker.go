package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/ai"
	"github.com/alchemorsel/mealplan/internal/infrastructure/monitoring"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	apperrors "github.com/alchemorsel/mealplan/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// FailureKind classifies a failed invocation
type FailureKind string

const (
	FailureTimeout       FailureKind = "timeout"
	FailureRateLimited   FailureKind = "rate_limited"
	FailureServiceError  FailureKind = "service_error"
	FailureEmptyResponse FailureKind = "empty_response"
	FailureMalformed     FailureKind = "malformed"
	FailureTransport     FailureKind = "transport"
	FailureCanceled      FailureKind = "canceled"
)

var errEmptyCompletion = errors.New("empty completion")

// InvocationError is the classified failure of one model call
type InvocationError struct {
	Kind       FailureKind
	Model      string
	Provider   ai.ProviderType
	StatusCode int
	Err        error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("model %s (%s) failed: %s: %v", e.Model, e.Provider, e.Kind, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another model may be tried. Only caller
// cancellation is final.
func (e *InvocationError) Retryable() bool {
	return e.Kind != FailureCanceled
}

// AppError converts the failure into the caller-facing error kind
func (e *InvocationError) AppError() *apperrors.AppError {
	var code apperrors.ErrorCode
	switch e.Kind {
	case FailureTimeout:
		code = apperrors.CodeAITimeout
	case FailureRateLimited:
		code = apperrors.CodeAIRateLimited
	case FailureServiceError, FailureTransport:
		code = apperrors.CodeAIServiceError
	case FailureEmptyResponse, FailureMalformed:
		code = apperrors.CodeAIResponseInvalid
	default:
		code = apperrors.CodeUnknown
	}
	return apperrors.NewAppError(code, "Model invocation failed", string(e.Kind)).
		WithMetadata("model", e.Model).
		WithCause(e)
}

// InvokerConfig holds the generation parameters sent with every call
type InvokerConfig struct {
	SystemPrompt      string
	Timeout           time.Duration
	Temperature       float64
	MaxTokens         int
	RequestsPerSecond float64
	Burst             int
}

// DefaultInvokerConfig favors deterministic output sized for a full week
func DefaultInvokerConfig() InvokerConfig {
	return InvokerConfig{
		SystemPrompt: "You are a clinical nutritionist who plans meals. Respond only with valid JSON.",
		Timeout:      120 * time.Second,
		Temperature:  0.1,
		MaxTokens:    8000,
	}
}

// GenerationInvoker sends one prompt to one model. It never retries.
type GenerationInvoker struct {
	config          InvokerConfig
	clients         map[ai.ProviderType]outbound.CompletionClient
	defaultProvider ai.ProviderType
	limiters        map[ai.ProviderType]*rate.Limiter
	metrics         *monitoring.MetricsCollector
	logger          *zap.Logger
}

// NewGenerationInvoker creates an invoker over the given provider clients.
// Models whose provider has no client use the OpenAI-compatible client.
func NewGenerationInvoker(
	config InvokerConfig,
	clients []outbound.CompletionClient,
	metrics *monitoring.MetricsCollector,
	logger *zap.Logger,
) *GenerationInvoker {
	defaults := DefaultInvokerConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = defaults.MaxTokens
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = defaults.SystemPrompt
	}
	if config.Temperature < 0 {
		config.Temperature = defaults.Temperature
	}

	inv := &GenerationInvoker{
		config:          config,
		clients:         make(map[ai.ProviderType]outbound.CompletionClient, len(clients)),
		defaultProvider: ai.ProviderTypeOpenAI,
		limiters:        make(map[ai.ProviderType]*rate.Limiter),
		metrics:         metrics,
		logger:          logger.Named("generation-invoker"),
	}
	for _, c := range clients {
		inv.clients[c.Provider()] = c
		if config.RequestsPerSecond > 0 {
			burst := config.Burst
			if burst <= 0 {
				burst = 1
			}
			inv.limiters[c.Provider()] = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
		}
	}
	if _, ok := inv.clients[inv.defaultProvider]; !ok {
		for p := range inv.clients {
			inv.defaultProvider = p
			break
		}
	}
	return inv
}

// Invoke runs prompt against model under the client-side timeout. Every
// failure is returned as an *InvocationError.
func (g *GenerationInvoker) Invoke(ctx context.Context, prompt string, model ai.GenerationModel) (*ai.Completion, error) {
	provider := model.Provider
	client, ok := g.clients[provider]
	if !ok {
		provider = g.defaultProvider
		client, ok = g.clients[provider]
	}
	if !ok {
		return nil, &InvocationError{Kind: FailureTransport, Model: model.ModelID, Provider: model.Provider,
			Err: errors.New("no completion client configured")}
	}

	ctx, span := otel.Tracer("mealplan/invoker").Start(ctx, "GenerationInvoker.Invoke")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.model", model.ModelID),
		attribute.String("ai.provider", string(provider)),
	)

	if limiter := g.limiters[provider]; limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			kind := FailureRateLimited
			if ctx.Err() != nil {
				kind = FailureCanceled
			}
			return nil, &InvocationError{Kind: kind, Model: model.ModelID, Provider: provider, Err: err}
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	start := time.Now()
	completion, err := client.Complete(callCtx, outbound.CompletionRequest{
		Model:        model.ModelID,
		SystemPrompt: g.config.SystemPrompt,
		Prompt:       prompt,
		Temperature:  g.config.Temperature,
		MaxTokens:    g.config.MaxTokens,
		JSONResponse: true,
	})
	elapsed := time.Since(start)

	if err == nil && (completion == nil || strings.TrimSpace(completion.Content) == "") {
		err = errEmptyCompletion
	}
	if err != nil {
		invErr := g.classify(ctx, callCtx, err)
		invErr.Model = model.ModelID
		invErr.Provider = provider

		span.RecordError(invErr)
		span.SetStatus(codes.Error, string(invErr.Kind))
		g.metrics.AIRequest(string(provider), model.ModelID, string(invErr.Kind), elapsed)
		g.logger.Warn("Model invocation failed",
			zap.String("model", model.ModelID),
			zap.String("provider", string(provider)),
			zap.String("kind", string(invErr.Kind)),
			zap.Int("status_code", invErr.StatusCode),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, invErr
	}

	g.metrics.AIRequest(string(provider), model.ModelID, "success", elapsed)
	fields := []zap.Field{
		zap.String("model", model.ModelID),
		zap.String("provider", string(provider)),
		zap.Duration("elapsed", elapsed),
		zap.Int("content_length", len(completion.Content)),
	}
	if completion.Usage != nil {
		fields = append(fields, zap.Int("total_tokens", completion.Usage.TotalTokens))
		span.SetAttributes(attribute.Int("ai.total_tokens", completion.Usage.TotalTokens))
	}
	g.logger.Info("Model invocation succeeded", fields...)

	return completion, nil
}

func (g *GenerationInvoker) classify(parent, call context.Context, err error) *InvocationError {
	invErr := &InvocationError{Err: err}

	var statusErr *outbound.StatusError
	var decodeErr *outbound.DecodeError
	var netErr net.Error

	switch {
	case errors.Is(parent.Err(), context.Canceled):
		invErr.Kind = FailureCanceled
	case errors.Is(call.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		invErr.Kind = FailureTimeout
	case errors.As(err, &statusErr):
		invErr.StatusCode = statusErr.StatusCode
		if statusErr.StatusCode == http.StatusTooManyRequests {
			invErr.Kind = FailureRateLimited
		} else {
			invErr.Kind = FailureServiceError
		}
	case errors.As(err, &decodeErr):
		invErr.Kind = FailureMalformed
	case errors.As(err, &netErr) && netErr.Timeout():
		invErr.Kind = FailureTimeout
	case errors.Is(err, errEmptyCompletion):
		invErr.Kind = FailureEmptyResponse
	default:
		invErr.Kind = FailureTransport
	}
	return invErr
}

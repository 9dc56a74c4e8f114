// Package ollama provides the Ollama chat adapter for local inference
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/alchemorsel/mealplan/internal/domain/ai"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"go.uber.org/zap"
)

const maxErrorBody = 2048

// Client implements the completion client interface using the Ollama API
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates a new Ollama client
func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	logger.Info("Ollama client initialized", zap.String("base_url", baseURL))

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
		logger:  logger.Named("ollama-client"),
	}
}

// Ollama API structures
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model    string                 `json:"model"`
	Messages []ChatMessage          `json:"messages"`
	Stream   bool                   `json:"stream"`
	Format   string                 `json:"format,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type ChatResponse struct {
	Model           string      `json:"model"`
	Message         ChatMessage `json:"message"`
	Done            bool        `json:"done"`
	DoneReason      string      `json:"done_reason,omitempty"`
	TotalDuration   int64       `json:"total_duration,omitempty"`
	PromptEvalCount int         `json:"prompt_eval_count,omitempty"`
	EvalCount       int         `json:"eval_count,omitempty"`
	EvalDuration    int64       `json:"eval_duration,omitempty"`
}

var _ outbound.CompletionClient = (*Client)(nil)

// Provider returns the provider type served by this client
func (c *Client) Provider() ai.ProviderType {
	return ai.ProviderTypeOllama
}

// HealthCheck verifies the Ollama service is reachable
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check failed with status %d", resp.StatusCode)
	}
	return nil
}

// Complete makes one non-streaming chat call
func (c *Client) Complete(ctx context.Context, in outbound.CompletionRequest) (*ai.Completion, error) {
	reqBody := ChatRequest{
		Model:  in.Model,
		Stream: false,
		Options: map[string]interface{}{
			"temperature": in.Temperature,
		},
	}
	if in.MaxTokens > 0 {
		reqBody.Options["num_predict"] = in.MaxTokens
	}
	if in.SystemPrompt != "" {
		reqBody.Messages = append(reqBody.Messages, ChatMessage{Role: "system", Content: in.SystemPrompt})
	}
	reqBody.Messages = append(reqBody.Messages, ChatMessage{Role: "user", Content: in.Prompt})
	if in.JSONResponse {
		reqBody.Format = "json"
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &outbound.StatusError{Provider: ai.ProviderTypeOllama, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, &outbound.DecodeError{Provider: ai.ProviderTypeOllama, Err: err}
	}

	if !chatResp.Done {
		return nil, &outbound.DecodeError{Provider: ai.ProviderTypeOllama, Err: fmt.Errorf("incomplete response from Ollama")}
	}

	c.logger.Debug("Ollama chat completion successful",
		zap.String("model", chatResp.Model),
		zap.Int64("eval_duration", chatResp.EvalDuration),
		zap.Int("eval_count", chatResp.EvalCount))

	finish := ai.FinishReason(chatResp.DoneReason)
	if finish == "" {
		finish = ai.FinishReasonStop
	}
	model := chatResp.Model
	if model == "" {
		model = in.Model
	}

	return &ai.Completion{
		Content:      chatResp.Message.Content,
		Model:        model,
		FinishReason: finish,
		Usage: &ai.TokenUsage{
			PromptTokens:     chatResp.PromptEvalCount,
			CompletionTokens: chatResp.EvalCount,
			TotalTokens:      chatResp.PromptEvalCount + chatResp.EvalCount,
		},
	}, nil
}

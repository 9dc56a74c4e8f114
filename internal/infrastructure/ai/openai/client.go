// Package openai provides the OpenAI-compatible chat completions adapter
package openai

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

// Client implements the completion client interface using the OpenAI API
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates a new OpenAI client. Request deadlines come from the
// caller's context, so the HTTP client itself has no timeout.
func NewClient(baseURL, apiKey string, httpClient *http.Client, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if apiKey == "" {
		logger.Warn("OpenAI API key not set; requests will be unauthenticated")
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
		logger:  logger.Named("openai-client"),
	}
}

// OpenAI API structures
type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionResponse struct {
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage"`
}

type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

var _ outbound.CompletionClient = (*Client)(nil)

// Provider returns the provider type served by this client
func (c *Client) Provider() ai.ProviderType {
	return ai.ProviderTypeOpenAI
}

// Complete makes one chat completion call
func (c *Client) Complete(ctx context.Context, in outbound.CompletionRequest) (*ai.Completion, error) {
	reqBody := ChatCompletionRequest{
		Model:       in.Model,
		Temperature: in.Temperature,
		MaxTokens:   in.MaxTokens,
	}
	if in.SystemPrompt != "" {
		reqBody.Messages = append(reqBody.Messages, Message{Role: "system", Content: in.SystemPrompt})
	}
	reqBody.Messages = append(reqBody.Messages, Message{Role: "user", Content: in.Prompt})
	if in.JSONResponse {
		reqBody.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

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
		return nil, &outbound.StatusError{
			Provider:   ai.ProviderTypeOpenAI,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), maxErrorBody),
		}
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, &outbound.DecodeError{Provider: ai.ProviderTypeOpenAI, Err: err}
	}

	if len(chatResp.Choices) == 0 {
		return nil, &outbound.DecodeError{Provider: ai.ProviderTypeOpenAI, Err: fmt.Errorf("no response choices returned")}
	}

	completion := &ai.Completion{
		Content:      chatResp.Choices[0].Message.Content,
		Model:        chatResp.Model,
		FinishReason: ai.FinishReason(chatResp.Choices[0].FinishReason),
	}
	if completion.Model == "" {
		completion.Model = in.Model
	}
	if u := chatResp.Usage; u != nil {
		completion.Usage = &ai.TokenUsage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		}
		c.logger.Debug("OpenAI API call successful",
			zap.String("model", completion.Model),
			zap.Int("prompt_tokens", u.PromptTokens),
			zap.Int("completion_tokens", u.CompletionTokens),
			zap.Int("total_tokens", u.TotalTokens),
		)
	}

	return completion, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

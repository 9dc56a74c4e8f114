// Package ai defines model configuration and generation audit entities
package ai

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ProviderType identifies the completion backend serving a model
type ProviderType string

const (
	ProviderTypeOpenAI ProviderType = "openai"
	ProviderTypeOllama ProviderType = "ollama"
)

// Feature names used to look up model mappings
const FeatureMealPlan = "meal_plan"

// Last-resort model used when no configuration exists at all
const (
	FallbackModelID  = "gpt-4o-mini"
	FallbackProvider = ProviderTypeOpenAI
)

// GenerationModel is an administrator-managed model configuration entry
type GenerationModel struct {
	ModelID     string
	Provider    ProviderType
	DisplayName string
	IsActive    bool
	IsDefault   bool
}

// ConstantModel returns the hard-coded last-resort model
func ConstantModel() GenerationModel {
	return GenerationModel{
		ModelID:     FallbackModelID,
		Provider:    FallbackProvider,
		DisplayName: FallbackModelID,
		IsActive:    true,
	}
}

// ModelChain is the ordered primary/fallback pair for one feature
type ModelChain struct {
	Primary  GenerationModel
	Fallback GenerationModel
}

// FeatureMapping assigns models to a feature
type FeatureMapping struct {
	Feature  string
	Primary  *GenerationModel
	Fallback *GenerationModel
	IsActive bool
}

// TokenUsage tracks token consumption
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// FinishReason represents why the model stopped generating
type FinishReason string

const (
	FinishReasonStop   FinishReason = "stop"
	FinishReasonLength FinishReason = "length"
)

// Completion is the raw text returned by one model call
type Completion struct {
	Content      string
	Model        string
	FinishReason FinishReason
	Usage        *TokenUsage
}

// GenerationStatus is the lifecycle state of a log entry
type GenerationStatus string

const (
	GenerationStatusStarted   GenerationStatus = "started"
	GenerationStatusCompleted GenerationStatus = "completed"
	GenerationStatusFailed    GenerationStatus = "failed"
)

var (
	ErrEntryNotStarted = errors.New("generation log entry is not in started state")
)

// GenerationLogEntry is the append-only audit record of one generation attempt
type GenerationLogEntry struct {
	id             uuid.UUID
	userID         string
	generationType string
	promptData     map[string]interface{}
	status         GenerationStatus
	creditsUsed    int
	errorMessage   string
	metadata       map[string]interface{}
	createdAt      time.Time
	completedAt    *time.Time
}

// NewGenerationLogEntry creates a started entry charging one credit
func NewGenerationLogEntry(userID, generationType string, promptData map[string]interface{}) *GenerationLogEntry {
	return &GenerationLogEntry{
		id:             uuid.New(),
		userID:         userID,
		generationType: generationType,
		promptData:     promptData,
		status:         GenerationStatusStarted,
		creditsUsed:    1,
		metadata:       make(map[string]interface{}),
		createdAt:      time.Now().UTC(),
	}
}

// NewRejectedLogEntry records an attempt refused before any model call
func NewRejectedLogEntry(userID, generationType, reason string) *GenerationLogEntry {
	now := time.Now().UTC()
	return &GenerationLogEntry{
		id:             uuid.New(),
		userID:         userID,
		generationType: generationType,
		promptData:     map[string]interface{}{},
		status:         GenerationStatusFailed,
		errorMessage:   reason,
		metadata:       make(map[string]interface{}),
		createdAt:      now,
		completedAt:    &now,
	}
}

// RestoreGenerationLogEntry rebuilds an entry read from storage
func RestoreGenerationLogEntry(
	id uuid.UUID,
	userID, generationType string,
	promptData map[string]interface{},
	status GenerationStatus,
	creditsUsed int,
	errorMessage string,
	metadata map[string]interface{},
	createdAt time.Time,
	completedAt *time.Time,
) *GenerationLogEntry {
	return &GenerationLogEntry{
		id:             id,
		userID:         userID,
		generationType: generationType,
		promptData:     promptData,
		status:         status,
		creditsUsed:    creditsUsed,
		errorMessage:   errorMessage,
		metadata:       metadata,
		createdAt:      createdAt,
		completedAt:    completedAt,
	}
}

func (e *GenerationLogEntry) ID() uuid.UUID { return e.id }
func (e *GenerationLogEntry) UserID() string { return e.userID }
func (e *GenerationLogEntry) GenerationType() string { return e.generationType }
func (e *GenerationLogEntry) PromptData() map[string]interface{} { return e.promptData }
func (e *GenerationLogEntry) Status() GenerationStatus { return e.status }
func (e *GenerationLogEntry) CreditsUsed() int { return e.creditsUsed }
func (e *GenerationLogEntry) ErrorMessage() string { return e.errorMessage }
func (e *GenerationLogEntry) Metadata() map[string]interface{} { return e.metadata }
func (e *GenerationLogEntry) CreatedAt() time.Time { return e.createdAt }
func (e *GenerationLogEntry) CompletedAt() *time.Time { return e.completedAt }

// Complete marks the entry completed and attaches response metadata
func (e *GenerationLogEntry) Complete(metadata map[string]interface{}) error {
	if e.status != GenerationStatusStarted {
		return ErrEntryNotStarted
	}

	e.status = GenerationStatusCompleted
	if e.metadata == nil {
		e.metadata = make(map[string]interface{}, len(metadata))
	}
	for k, v := range metadata {
		e.metadata[k] = v
	}

	now := time.Now().UTC()
	e.completedAt = &now
	return nil
}

// Fail marks the entry failed. Failed attempts are never charged.
func (e *GenerationLogEntry) Fail(errorMessage string) error {
	if e.status != GenerationStatusStarted {
		return ErrEntryNotStarted
	}

	e.status = GenerationStatusFailed
	e.errorMessage = errorMessage
	e.creditsUsed = 0

	now := time.Now().UTC()
	e.completedAt = &now
	return nil
}

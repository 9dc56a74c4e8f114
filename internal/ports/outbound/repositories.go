// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces the meal plan pipeline uses to reach storage and model providers
package outbound

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/ai"
	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/domain/user"
	"github.com/google/uuid"
)

// ErrNotFound is returned by repositories when a row does not exist
var ErrNotFound = errors.New("record not found")

// ModelConfigRepository reads administrator model configuration. It is never
// written by the pipeline.
type ModelConfigRepository interface {
	// FindFeatureMapping returns nil, nil when the feature has no mapping
	FindFeatureMapping(ctx context.Context, feature string) (*ai.FeatureMapping, error)
	// FindDefaultModel returns nil, nil when no active default model exists
	FindDefaultModel(ctx context.Context) (*ai.GenerationModel, error)
	ListModels(ctx context.Context) ([]ai.GenerationModel, error)
}

// PlanRepository persists weekly plans and their meals
type PlanRepository interface {
	// ReplaceWeek upserts the plan for (user, week) and swaps its meals for cmd.Meals
	ReplaceWeek(ctx context.Context, cmd mealplan.ReplaceWeek) (*mealplan.WeeklyPlan, error)
	FindWeek(ctx context.Context, userID string, weekStart time.Time) (*mealplan.WeeklyPlan, error)
	CountMeals(ctx context.Context, planID uuid.UUID) (int64, error)
}

// ReplaceStage names the step of ReplaceWeek that failed
type ReplaceStage string

const (
	ReplaceStageLookup ReplaceStage = "lookup"
	ReplaceStageUpsert ReplaceStage = "upsert"
	ReplaceStageDelete ReplaceStage = "delete"
	ReplaceStageInsert ReplaceStage = "insert"
)

// ReplaceError reports a failed ReplaceWeek. MealsDeleted is true only when
// the old meals are gone for good and the new ones were not written.
type ReplaceError struct {
	Stage        ReplaceStage
	PlanID       uuid.UUID
	MealsDeleted bool
	Err          error
}

func (e *ReplaceError) Error() string {
	return fmt.Sprintf("replace week failed at %s: %v", e.Stage, e.Err)
}

func (e *ReplaceError) Unwrap() error {
	return e.Err
}

// QuotaRepository reads and decrements generation allowances
type QuotaRepository interface {
	FindAccount(ctx context.Context, userID string) (*user.QuotaAccount, error)
	// DecrementRemaining atomically takes one credit; false when none were left
	DecrementRemaining(ctx context.Context, userID string) (bool, error)
}

// GenerationLogRepository stores the append-only generation audit log
type GenerationLogRepository interface {
	Create(ctx context.Context, entry *ai.GenerationLogEntry) error
	// Update writes the final status of an entry; it never deletes
	Update(ctx context.Context, entry *ai.GenerationLogEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*ai.GenerationLogEntry, error)
	CountSince(ctx context.Context, userID, generationType string, since time.Time, statuses ...ai.GenerationStatus) (int64, error)
}

// ProfileRepository loads stored user profiles for callers that only have an id
type ProfileRepository interface {
	FindProfile(ctx context.Context, userID string) (*mealplan.UserProfile, error)
}

// GenerationLock serializes generations for the same key
type GenerationLock interface {
	// Acquire returns acquired=false without error when the key is already held
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}

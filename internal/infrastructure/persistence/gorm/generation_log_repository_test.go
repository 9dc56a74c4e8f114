package gorm_test

import (
	"context"
	"testing"
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/ai"
	gormRepo "github.com/alchemorsel/mealplan/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/alchemorsel/mealplan/test/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationLogRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := gormRepo.NewGenerationLogRepository(testutils.NewSQLiteDB(t))

	entry := ai.NewGenerationLogEntry("u-1", ai.FeatureMealPlan, map[string]interface{}{"daily_calories": 2100})
	require.NoError(t, repo.Create(ctx, entry))

	stored, err := repo.FindByID(ctx, entry.ID())
	require.NoError(t, err)
	assert.Equal(t, ai.GenerationStatusStarted, stored.Status())
	assert.EqualValues(t, 2100, stored.PromptData()["daily_calories"])
	assert.Nil(t, stored.CompletedAt())

	require.NoError(t, entry.Complete(map[string]interface{}{"model": "gpt-4o-mini"}))
	require.NoError(t, repo.Update(ctx, entry))

	stored, err = repo.FindByID(ctx, entry.ID())
	require.NoError(t, err)
	assert.Equal(t, ai.GenerationStatusCompleted, stored.Status())
	assert.Equal(t, 1, stored.CreditsUsed())
	assert.Equal(t, "gpt-4o-mini", stored.Metadata()["model"])
	assert.NotNil(t, stored.CompletedAt())
}

func TestGenerationLogRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := gormRepo.NewGenerationLogRepository(testutils.NewSQLiteDB(t))

	_, err := repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, outbound.ErrNotFound)

	err = repo.Update(ctx, ai.NewGenerationLogEntry("u-1", ai.FeatureMealPlan, nil))
	assert.ErrorIs(t, err, outbound.ErrNotFound)
}

func TestGenerationLogRepository_CountSince(t *testing.T) {
	ctx := context.Background()
	repo := gormRepo.NewGenerationLogRepository(testutils.NewSQLiteDB(t))

	started := ai.NewGenerationLogEntry("u-1", ai.FeatureMealPlan, nil)
	completed := ai.NewGenerationLogEntry("u-1", ai.FeatureMealPlan, nil)
	failed := ai.NewGenerationLogEntry("u-1", ai.FeatureMealPlan, nil)
	otherUser := ai.NewGenerationLogEntry("u-2", ai.FeatureMealPlan, nil)
	otherType := ai.NewGenerationLogEntry("u-1", "recipe_generation", nil)
	for _, e := range []*ai.GenerationLogEntry{started, completed, failed, otherUser, otherType} {
		require.NoError(t, repo.Create(ctx, e))
	}
	require.NoError(t, completed.Complete(nil))
	require.NoError(t, repo.Update(ctx, completed))
	require.NoError(t, failed.Fail("AI_TIMEOUT"))
	require.NoError(t, repo.Update(ctx, failed))

	since := time.Now().UTC().Add(-time.Hour)

	all, err := repo.CountSince(ctx, "u-1", ai.FeatureMealPlan, since)
	require.NoError(t, err)
	assert.Equal(t, int64(3), all)

	active, err := repo.CountSince(ctx, "u-1", ai.FeatureMealPlan, since,
		ai.GenerationStatusStarted, ai.GenerationStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, int64(2), active)

	later, err := repo.CountSince(ctx, "u-1", ai.FeatureMealPlan, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, later)
}

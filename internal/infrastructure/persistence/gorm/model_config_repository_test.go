package gorm_test

import (
	"context"
	"testing"

	"github.com/alchemorsel/mealplan/internal/domain/ai"
	gormRepo "github.com/alchemorsel/mealplan/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/mealplan/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func saveModel(t *testing.T, db *gorm.DB, modelID string, provider ai.ProviderType, active, isDefault bool) *gormRepo.AIModelModel {
	t.Helper()
	m := &gormRepo.AIModelModel{ModelID: modelID, Provider: string(provider), IsDefault: isDefault}
	require.NoError(t, gormRepo.NewModelConfigRepository(db).SaveModel(context.Background(), m))
	// is_active defaults to true on insert, so inactive rows are flipped afterwards
	if !active {
		require.NoError(t, db.Model(m).Update("is_active", false).Error)
	}
	return m
}

func TestModelConfigRepository_FindFeatureMapping(t *testing.T) {
	ctx := context.Background()
	db := testutils.NewSQLiteDB(t)
	repo := gormRepo.NewModelConfigRepository(db)

	t.Run("Missing", func(t *testing.T) {
		mapping, err := repo.FindFeatureMapping(ctx, ai.FeatureMealPlan)

		require.NoError(t, err)
		assert.Nil(t, mapping)
	})

	t.Run("LoadsBothModels", func(t *testing.T) {
		primary := saveModel(t, db, "gpt-4o", ai.ProviderTypeOpenAI, true, false)
		fallback := saveModel(t, db, "llama3.1:8b", ai.ProviderTypeOllama, false, false)
		require.NoError(t, repo.SaveFeatureMapping(ctx, &gormRepo.AIFeatureModelModel{
			Feature:         ai.FeatureMealPlan,
			PrimaryModelID:  &primary.ID,
			FallbackModelID: &fallback.ID,
		}))

		mapping, err := repo.FindFeatureMapping(ctx, ai.FeatureMealPlan)

		require.NoError(t, err)
		require.NotNil(t, mapping)
		assert.True(t, mapping.IsActive)
		require.NotNil(t, mapping.Primary)
		assert.Equal(t, "gpt-4o", mapping.Primary.ModelID)
		assert.Equal(t, ai.ProviderTypeOpenAI, mapping.Primary.Provider)
		require.NotNil(t, mapping.Fallback)
		assert.Equal(t, "llama3.1:8b", mapping.Fallback.ModelID)
		assert.False(t, mapping.Fallback.IsActive)
	})
}

func TestModelConfigRepository_FindDefaultModel(t *testing.T) {
	ctx := context.Background()
	db := testutils.NewSQLiteDB(t)
	repo := gormRepo.NewModelConfigRepository(db)

	model, err := repo.FindDefaultModel(ctx)
	require.NoError(t, err)
	assert.Nil(t, model)

	saveModel(t, db, "retired", ai.ProviderTypeOpenAI, false, true)
	saveModel(t, db, "llama3.1:8b", ai.ProviderTypeOllama, true, false)

	model, err = repo.FindDefaultModel(ctx)
	require.NoError(t, err)
	assert.Nil(t, model, "inactive defaults are ignored")

	saveModel(t, db, "gpt-4o-mini", ai.ProviderTypeOpenAI, true, true)

	model, err = repo.FindDefaultModel(ctx)
	require.NoError(t, err)
	require.NotNil(t, model)
	assert.Equal(t, "gpt-4o-mini", model.ModelID)
	assert.True(t, model.IsDefault)
}

func TestSeedModelConfig(t *testing.T) {
	ctx := context.Background()
	db := testutils.NewSQLiteDB(t)
	repo := gormRepo.NewModelConfigRepository(db)

	require.NoError(t, gormRepo.SeedModelConfig(ctx, db))
	require.NoError(t, gormRepo.SeedModelConfig(ctx, db))

	models, err := repo.ListModels(ctx)
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, ai.FallbackModelID, models[0].ModelID)
	assert.Equal(t, "llama3.1:8b", models[1].ModelID)

	mapping, err := repo.FindFeatureMapping(ctx, ai.FeatureMealPlan)
	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, ai.FallbackModelID, mapping.Primary.ModelID)
	assert.Equal(t, ai.ProviderTypeOllama, mapping.Fallback.Provider)

	def, err := repo.FindDefaultModel(ctx)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, ai.FallbackModelID, def.ModelID)
}

package ai

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationLogEntry_Lifecycle(t *testing.T) {
	t.Run("NewEntry_ShouldStartAndChargeOneCredit", func(t *testing.T) {
		entry := NewGenerationLogEntry("user-1", FeatureMealPlan, map[string]interface{}{"k": "v"})

		assert.NotEqual(t, uuid.Nil, entry.ID())
		assert.Equal(t, GenerationStatusStarted, entry.Status())
		assert.Equal(t, 1, entry.CreditsUsed())
		assert.Nil(t, entry.CompletedAt())
		assert.Equal(t, "v", entry.PromptData()["k"])
	})

	t.Run("Complete_ShouldMergeMetadataOnce", func(t *testing.T) {
		entry := NewGenerationLogEntry("user-1", FeatureMealPlan, nil)

		require.NoError(t, entry.Complete(map[string]interface{}{"model": "gpt-4o-mini"}))
		assert.Equal(t, GenerationStatusCompleted, entry.Status())
		assert.Equal(t, 1, entry.CreditsUsed())
		assert.Equal(t, "gpt-4o-mini", entry.Metadata()["model"])
		assert.NotNil(t, entry.CompletedAt())

		assert.ErrorIs(t, entry.Complete(nil), ErrEntryNotStarted)
		assert.ErrorIs(t, entry.Fail("late"), ErrEntryNotStarted)
		assert.Equal(t, GenerationStatusCompleted, entry.Status())
	})

	t.Run("Fail_ShouldRefundCredit", func(t *testing.T) {
		entry := NewGenerationLogEntry("user-1", FeatureMealPlan, nil)

		require.NoError(t, entry.Fail("AI_TIMEOUT"))
		assert.Equal(t, GenerationStatusFailed, entry.Status())
		assert.Equal(t, 0, entry.CreditsUsed())
		assert.Equal(t, "AI_TIMEOUT", entry.ErrorMessage())
		assert.ErrorIs(t, entry.Complete(nil), ErrEntryNotStarted)
	})

	t.Run("Rejected_ShouldBeFinalAndFree", func(t *testing.T) {
		entry := NewRejectedLogEntry("user-1", FeatureMealPlan, "quota exceeded: daily_cap")

		assert.Equal(t, GenerationStatusFailed, entry.Status())
		assert.Equal(t, 0, entry.CreditsUsed())
		assert.NotNil(t, entry.CompletedAt())
		assert.ErrorIs(t, entry.Fail("again"), ErrEntryNotStarted)
	})
}

func TestConstantModel(t *testing.T) {
	m := ConstantModel()

	assert.Equal(t, FallbackModelID, m.ModelID)
	assert.Equal(t, ProviderTypeOpenAI, m.Provider)
	assert.True(t, m.IsActive)
}

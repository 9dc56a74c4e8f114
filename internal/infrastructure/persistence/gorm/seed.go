package gorm

import (
	"context"
	"errors"
	"fmt"

	"github.com/alchemorsel/mealplan/internal/domain/ai"
	"gorm.io/gorm"
)

// SeedModelConfig installs the default model configuration when none exists
func SeedModelConfig(ctx context.Context, db *gorm.DB) error {
	var modelCount int64
	if err := db.WithContext(ctx).Model(&AIModelModel{}).Count(&modelCount).Error; err != nil {
		return fmt.Errorf("failed to count models: %w", err)
	}
	if modelCount > 0 {
		return nil // Already seeded
	}

	repo := NewModelConfigRepository(db)

	primary := &AIModelModel{
		ModelID:     ai.FallbackModelID,
		Provider:    string(ai.FallbackProvider),
		DisplayName: "GPT-4o mini",
		IsActive:    true,
		IsDefault:   true,
	}
	fallback := &AIModelModel{
		ModelID:     "llama3.1:8b",
		Provider:    string(ai.ProviderTypeOllama),
		DisplayName: "Llama 3.1 8B (local)",
		IsActive:    true,
	}

	for _, m := range []*AIModelModel{primary, fallback} {
		if err := repo.SaveModel(ctx, m); err != nil {
			return fmt.Errorf("failed to create model %s: %w", m.ModelID, err)
		}
	}

	err := repo.SaveFeatureMapping(ctx, &AIFeatureModelModel{
		Feature:         ai.FeatureMealPlan,
		PrimaryModelID:  &primary.ID,
		FallbackModelID: &fallback.ID,
		IsActive:        true,
	})
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("failed to create feature mapping: %w", err)
	}
	return nil
}

package gorm

import (
	"context"
	"errors"

	"github.com/alchemorsel/mealplan/internal/domain/ai"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"gorm.io/gorm"
)

// ModelConfigRepository reads administrator model configuration
type ModelConfigRepository struct {
	db *gorm.DB
}

// NewModelConfigRepository creates a new model configuration repository
func NewModelConfigRepository(db *gorm.DB) *ModelConfigRepository {
	return &ModelConfigRepository{db: db}
}

var _ outbound.ModelConfigRepository = (*ModelConfigRepository)(nil)

// FindFeatureMapping returns the feature's mapping with its models loaded
func (r *ModelConfigRepository) FindFeatureMapping(ctx context.Context, feature string) (*ai.FeatureMapping, error) {
	var model AIFeatureModelModel

	result := r.db.WithContext(ctx).
		Preload("PrimaryModel").
		Preload("FallbackModel").
		First(&model, "feature = ?", feature)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	return &ai.FeatureMapping{
		Feature:  model.Feature,
		Primary:  ModelToGenerationModel(model.PrimaryModel),
		Fallback: ModelToGenerationModel(model.FallbackModel),
		IsActive: model.IsActive,
	}, nil
}

// FindDefaultModel returns the active default model
func (r *ModelConfigRepository) FindDefaultModel(ctx context.Context) (*ai.GenerationModel, error) {
	var model AIModelModel

	result := r.db.WithContext(ctx).
		Where("is_default = ? AND is_active = ?", true, true).
		Order("updated_at DESC").
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ModelToGenerationModel(&model), nil
}

// ListModels lists all configured models
func (r *ModelConfigRepository) ListModels(ctx context.Context) ([]ai.GenerationModel, error) {
	var models []AIModelModel
	if err := r.db.WithContext(ctx).Order("model_id ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]ai.GenerationModel, 0, len(models))
	for i := range models {
		out = append(out, *ModelToGenerationModel(&models[i]))
	}
	return out, nil
}

// SaveModel inserts a model entry; used by seeding and tests
func (r *ModelConfigRepository) SaveModel(ctx context.Context, m *AIModelModel) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// SaveFeatureMapping inserts a feature mapping; used by seeding and tests
func (r *ModelConfigRepository) SaveFeatureMapping(ctx context.Context, m *AIFeatureModelModel) error {
	return r.db.WithContext(ctx).Omit("PrimaryModel", "FallbackModel").Create(m).Error
}

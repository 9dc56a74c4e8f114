package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/ai"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GenerationLogRepository stores the generation audit log
type GenerationLogRepository struct {
	db *gorm.DB
}

// NewGenerationLogRepository creates a new generation log repository
func NewGenerationLogRepository(db *gorm.DB) *GenerationLogRepository {
	return &GenerationLogRepository{db: db}
}

var _ outbound.GenerationLogRepository = (*GenerationLogRepository)(nil)

// Create inserts a new entry
func (r *GenerationLogRepository) Create(ctx context.Context, entry *ai.GenerationLogEntry) error {
	return r.db.WithContext(ctx).Create(LogEntryToModel(entry)).Error
}

// Update writes the final state of an entry
func (r *GenerationLogRepository) Update(ctx context.Context, entry *ai.GenerationLogEntry) error {
	model := LogEntryToModel(entry)

	result := r.db.WithContext(ctx).
		Model(&GenerationLogModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"status":            model.Status,
			"credits_used":      model.CreditsUsed,
			"error_message":     model.ErrorMessage,
			"response_metadata": model.ResponseMetadata,
			"completed_at":      model.CompletedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return outbound.ErrNotFound
	}
	return nil
}

// FindByID finds an entry by ID
func (r *GenerationLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*ai.GenerationLogEntry, error) {
	var model GenerationLogModel

	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, outbound.ErrNotFound
		}
		return nil, result.Error
	}
	return ModelToLogEntry(&model), nil
}

// CountSince counts a user's entries of one type created at or after since
func (r *GenerationLogRepository) CountSince(ctx context.Context, userID, generationType string, since time.Time, statuses ...ai.GenerationStatus) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&GenerationLogModel{}).
		Where("user_id = ? AND generation_type = ? AND created_at >= ?", userID, generationType, since)

	if len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, s := range statuses {
			values[i] = string(s)
		}
		query = query.Where("status IN ?", values)
	}

	var count int64
	result := query.Count(&count)
	return count, result.Error
}

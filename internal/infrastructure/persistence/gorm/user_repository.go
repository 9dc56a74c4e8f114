package gorm

import (
	"context"
	"errors"
	"fmt"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/domain/user"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository reads stored profiles and generation allowances
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

var (
	_ outbound.QuotaRepository   = (*UserRepository)(nil)
	_ outbound.ProfileRepository = (*UserRepository)(nil)
)

// FindAccount loads the allowance of a user
func (r *UserRepository) FindAccount(ctx context.Context, userID string) (*user.QuotaAccount, error) {
	model, err := r.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ModelToQuotaAccount(model), nil
}

// DecrementRemaining takes one credit if any is left. The condition lives
// in the UPDATE so concurrent completions cannot drive the balance negative.
func (r *UserRepository) DecrementRemaining(ctx context.Context, userID string) (bool, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return false, outbound.ErrNotFound
	}

	result := r.db.WithContext(ctx).
		Model(&UserModel{}).
		Where("id = ? AND ai_generations_remaining > 0", id).
		UpdateColumn("ai_generations_remaining", gorm.Expr("ai_generations_remaining - ?", 1))
	if result.Error != nil {
		return false, fmt.Errorf("decrement generations remaining: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// FindProfile loads the stored profile of a user
func (r *UserRepository) FindProfile(ctx context.Context, userID string) (*mealplan.UserProfile, error) {
	model, err := r.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ModelToProfile(model), nil
}

// Create stores a user row; used for seeding
func (r *UserRepository) Create(ctx context.Context, model *UserModel) error {
	return r.db.WithContext(ctx).Create(model).Error
}

func (r *UserRepository) find(ctx context.Context, userID string) (*UserModel, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, outbound.ErrNotFound
	}

	var model UserModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, outbound.ErrNotFound
		}
		return nil, result.Error
	}
	return &model, nil
}

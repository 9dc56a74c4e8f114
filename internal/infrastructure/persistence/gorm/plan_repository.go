// Package gorm provides GORM-based repository implementations
package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const mealInsertBatchSize = 50

// PlanRepository implements the plan repository interface using GORM
type PlanRepository struct {
	db     *gorm.DB
	atomic bool
}

// NewPlanRepository creates a new plan repository. With atomic set, the
// whole replace runs in one transaction; otherwise each step commits on its
// own and a failed insert leaves the plan without meals.
func NewPlanRepository(db *gorm.DB, atomic bool) *PlanRepository {
	return &PlanRepository{db: db, atomic: atomic}
}

var _ outbound.PlanRepository = (*PlanRepository)(nil)

// ReplaceWeek upserts the (user, week) plan and swaps its meals
func (r *PlanRepository) ReplaceWeek(ctx context.Context, cmd mealplan.ReplaceWeek) (*mealplan.WeeklyPlan, error) {
	totals := cmd.Totals()
	header := &WeeklyPlanModel{
		ID:               uuid.New(),
		UserID:           cmd.UserID,
		WeekStartDate:    dateOnly(cmd.WeekStartDate),
		TotalCalories:    totals.Calories,
		TotalProtein:     totals.Protein,
		TotalCarbs:       totals.Carbs,
		TotalFat:         totals.Fat,
		GenerationPrompt: toJSON(cmd.Preferences),
		LifePhaseContext: toJSON(cmd.LifePhase),
		AIModel:          cmd.AIModel,
	}

	var err error
	if r.atomic {
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return r.replace(tx, header, cmd.Meals)
		})
		// Rolled back: the previous meals are still there.
		var replaceErr *outbound.ReplaceError
		if errors.As(err, &replaceErr) {
			replaceErr.MealsDeleted = false
		}
	} else {
		err = r.replace(r.db.WithContext(ctx), header, cmd.Meals)
	}
	if err != nil {
		return nil, err
	}

	return ModelToWeeklyPlan(header, len(cmd.Meals))
}

func (r *PlanRepository) replace(tx *gorm.DB, header *WeeklyPlanModel, meals []mealplan.ValidatedMeal) error {
	var existing WeeklyPlanModel
	// deleted marks that an existing plan has lost its meals; every later
	// failure leaves that plan empty.
	deleted := false
	err := tx.Where("user_id = ? AND week_start_date = ?", header.UserID, header.WeekStartDate).
		Take(&existing).Error
	switch {
	case err == nil:
		if err := tx.Where("weekly_plan_id = ?", existing.ID).Delete(&DailyMealModel{}).Error; err != nil {
			return &outbound.ReplaceError{Stage: outbound.ReplaceStageDelete, PlanID: existing.ID, Err: err}
		}
		deleted = true
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return &outbound.ReplaceError{Stage: outbound.ReplaceStageLookup, Err: err}
	}

	err = tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "week_start_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_calories",
			"total_protein",
			"total_carbs",
			"total_fat",
			"generation_prompt",
			"life_phase_context",
			"ai_model",
			"updated_at",
		}),
	}).Omit(clause.Associations).Create(header).Error
	if err != nil {
		return &outbound.ReplaceError{
			Stage:        outbound.ReplaceStageUpsert,
			PlanID:       existing.ID,
			MealsDeleted: deleted,
			Err:          err,
		}
	}

	// On conflict the row keeps its original id and created_at.
	var stored WeeklyPlanModel
	if err := tx.Where("user_id = ? AND week_start_date = ?", header.UserID, header.WeekStartDate).
		Take(&stored).Error; err != nil {
		return &outbound.ReplaceError{
			Stage:        outbound.ReplaceStageUpsert,
			PlanID:       existing.ID,
			MealsDeleted: deleted,
			Err:          err,
		}
	}
	*header = stored

	if len(meals) == 0 {
		return nil
	}

	rows := make([]DailyMealModel, 0, len(meals))
	for _, m := range meals {
		rows = append(rows, MealToModel(header.ID, m))
	}
	if err := tx.CreateInBatches(rows, mealInsertBatchSize).Error; err != nil {
		return &outbound.ReplaceError{
			Stage:        outbound.ReplaceStageInsert,
			PlanID:       header.ID,
			MealsDeleted: true,
			Err:          err,
		}
	}
	return nil
}

// FindWeek finds the plan of a user for the week starting at weekStart
func (r *PlanRepository) FindWeek(ctx context.Context, userID string, weekStart time.Time) (*mealplan.WeeklyPlan, error) {
	var model WeeklyPlanModel

	result := r.db.WithContext(ctx).
		Where("user_id = ? AND week_start_date = ?", userID, dateOnly(weekStart)).
		Take(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, outbound.ErrNotFound
		}
		return nil, result.Error
	}

	count, err := r.CountMeals(ctx, model.ID)
	if err != nil {
		return nil, err
	}
	return ModelToWeeklyPlan(&model, int(count))
}

// CountMeals counts the meals stored for a plan
func (r *PlanRepository) CountMeals(ctx context.Context, planID uuid.UUID) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&DailyMealModel{}).Where("weekly_plan_id = ?", planID).Count(&count)
	return count, result.Error
}

// ListMeals returns a plan's meals ordered by day and slot
func (r *PlanRepository) ListMeals(ctx context.Context, planID uuid.UUID) ([]DailyMealModel, error) {
	var meals []DailyMealModel
	result := r.db.WithContext(ctx).
		Where("weekly_plan_id = ?", planID).
		Order("day_number ASC").
		Order("CASE meal_type WHEN 'breakfast' THEN 0 WHEN 'lunch' THEN 1 WHEN 'snack' THEN 2 ELSE 3 END").
		Find(&meals)
	return meals, result.Error
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Package gorm provides mapping between domain entities and GORM models
package gorm

import (
	"encoding/json"
	"fmt"

	"github.com/alchemorsel/mealplan/internal/domain/ai"
	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/domain/user"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// toJSON marshals v into a JSON column; nil slices become []
func toJSON(v interface{}) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return datatypes.JSON([]byte(`null`))
	}
	return datatypes.JSON(b)
}

func stringsJSON(items []string) datatypes.JSON {
	if items == nil {
		items = []string{}
	}
	return toJSON(items)
}

func jsonStrings(raw datatypes.JSON) []string {
	var out []string
	if len(raw) == 0 {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}

func jsonMap(raw datatypes.JSON) map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// MealToModel converts a validated meal into a daily_meals row
func MealToModel(planID uuid.UUID, m mealplan.ValidatedMeal) DailyMealModel {
	snap := m.Snapshot()

	ingredients := make([]IngredientModel, 0, len(snap.Ingredients))
	for _, ing := range snap.Ingredients {
		ingredients = append(ingredients, IngredientModel{
			Name:     ing.Name,
			Amount:   ing.Amount,
			Calories: ing.Calories,
		})
	}

	return DailyMealModel{
		ID:           uuid.New(),
		WeeklyPlanID: planID,
		DayNumber:    snap.DayNumber,
		MealType:     string(snap.MealType),
		Name:         snap.Name,
		Calories:     snap.Calories,
		Protein:      snap.Protein,
		Carbs:        snap.Carbs,
		Fat:          snap.Fat,
		Ingredients:  toJSON(ingredients),
		Instructions: stringsJSON(snap.Instructions),
		PrepTime:     snap.PrepTime,
		CookTime:     snap.CookTime,
		Servings:     snap.Servings,
	}
}

// ModelToWeeklyPlan converts a weekly_plans row to the domain header
func ModelToWeeklyPlan(model *WeeklyPlanModel, mealCount int) (*mealplan.WeeklyPlan, error) {
	plan := &mealplan.WeeklyPlan{
		ID:            model.ID,
		UserID:        model.UserID,
		WeekStartDate: model.WeekStartDate.UTC(),
		Totals: mealplan.NutritionalTotals{
			Calories: model.TotalCalories,
			Protein:  model.TotalProtein,
			Carbs:    model.TotalCarbs,
			Fat:      model.TotalFat,
		},
		AIModel:   model.AIModel,
		MealCount: mealCount,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}

	if len(model.GenerationPrompt) > 0 {
		if err := json.Unmarshal(model.GenerationPrompt, &plan.Preferences); err != nil {
			return nil, fmt.Errorf("decode generation_prompt: %w", err)
		}
	}
	if len(model.LifePhaseContext) > 0 {
		if err := json.Unmarshal(model.LifePhaseContext, &plan.LifePhase); err != nil {
			return nil, fmt.Errorf("decode life_phase_context: %w", err)
		}
	}
	return plan, nil
}

// LogEntryToModel converts a generation log entry to a row
func LogEntryToModel(e *ai.GenerationLogEntry) *GenerationLogModel {
	return &GenerationLogModel{
		ID:               e.ID(),
		UserID:           e.UserID(),
		GenerationType:   e.GenerationType(),
		PromptData:       toJSON(e.PromptData()),
		Status:           string(e.Status()),
		CreditsUsed:      e.CreditsUsed(),
		ErrorMessage:     e.ErrorMessage(),
		ResponseMetadata: toJSON(e.Metadata()),
		CreatedAt:        e.CreatedAt(),
		CompletedAt:      e.CompletedAt(),
	}
}

// ModelToLogEntry restores a generation log entry
func ModelToLogEntry(m *GenerationLogModel) *ai.GenerationLogEntry {
	return ai.RestoreGenerationLogEntry(
		m.ID,
		m.UserID,
		m.GenerationType,
		jsonMap(m.PromptData),
		ai.GenerationStatus(m.Status),
		m.CreditsUsed,
		m.ErrorMessage,
		jsonMap(m.ResponseMetadata),
		m.CreatedAt,
		m.CompletedAt,
	)
}

// ModelToGenerationModel converts an ai_models row
func ModelToGenerationModel(m *AIModelModel) *ai.GenerationModel {
	if m == nil {
		return nil
	}
	return &ai.GenerationModel{
		ModelID:     m.ModelID,
		Provider:    ai.ProviderType(m.Provider),
		DisplayName: m.DisplayName,
		IsActive:    m.IsActive,
		IsDefault:   m.IsDefault,
	}
}

// ModelToQuotaAccount reads the allowance of a user row. Privileged roles
// and unlimited subscription tiers are both unlimited.
func ModelToQuotaAccount(m *UserModel) *user.QuotaAccount {
	tier := user.ParseTier(m.SubscriptionTier)
	if tier != user.TierUnlimited {
		tier = user.ParseTier(m.Role)
	}
	return &user.QuotaAccount{
		UserID:    m.ID.String(),
		Tier:      tier,
		Remaining: m.AIGenerationsRemaining,
	}
}

// ModelToProfile converts the embedded profile of a user row
func ModelToProfile(m *UserModel) *mealplan.UserProfile {
	p := m.Profile
	return &mealplan.UserProfile{
		UserID:              m.ID.String(),
		Age:                 p.Age,
		Gender:              mealplan.ParseGender(p.Gender),
		HeightCM:            p.HeightCM,
		WeightKG:            p.WeightKG,
		ActivityLevel:       mealplan.ParseActivityLevel(p.ActivityLevel),
		FitnessGoal:         mealplan.ParseFitnessGoal(p.FitnessGoal),
		Nationality:         p.Nationality,
		DietaryRestrictions: jsonStrings(p.DietaryRestrictions),
		Allergies:           jsonStrings(p.Allergies),
		HealthConditions:    jsonStrings(p.HealthConditions),
		PregnancyTrimester:  p.PregnancyTrimester,
		BreastfeedingLevel:  mealplan.ParseBreastfeedingLevel(p.BreastfeedingLevel),
		FastingType:         p.FastingType,
	}
}

// ProfileToModel builds the embedded profile columns, used by seeding and tests
func ProfileToModel(p mealplan.UserProfile) UserProfileModel {
	return UserProfileModel{
		Age:                 p.Age,
		Gender:              string(p.Gender),
		HeightCM:            p.HeightCM,
		WeightKG:            p.WeightKG,
		ActivityLevel:       string(p.ActivityLevel),
		FitnessGoal:         string(p.FitnessGoal),
		Nationality:         p.Nationality,
		DietaryRestrictions: stringsJSON(p.DietaryRestrictions),
		Allergies:           stringsJSON(p.Allergies),
		HealthConditions:    stringsJSON(p.HealthConditions),
		PregnancyTrimester:  p.PregnancyTrimester,
		BreastfeedingLevel:  string(p.BreastfeedingLevel),
		FastingType:         p.FastingType,
	}
}

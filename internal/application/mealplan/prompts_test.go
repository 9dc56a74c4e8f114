package mealplan

import (
	"testing"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/stretchr/testify/assert"
)

func promptProfile() mealplan.UserProfile {
	return mealplan.UserProfile{
		UserID:              "u-1",
		Age:                 34,
		Gender:              mealplan.GenderFemale,
		HeightCM:            162.5,
		WeightKG:            58,
		ActivityLevel:       mealplan.ActivityLightlyActive,
		FitnessGoal:         mealplan.GoalMaintenance,
		Nationality:         "Egyptian",
		DietaryRestrictions: []string{"halal"},
		Allergies:           []string{"peanuts", "sesame"},
	}
}

func TestPromptCompiler_Compile(t *testing.T) {
	compiler := NewPromptCompiler()
	target := mealplan.NutritionTarget{DailyCalories: 1850}

	t.Run("ThreeMeals_ShouldStateContract", func(t *testing.T) {
		prompt := compiler.Compile(promptProfile(), mealplan.GenerationPreferences{Language: "en"}, target)

		assert.Contains(t, prompt, "Daily calorie target: 1850 kcal")
		assert.Contains(t, prompt, "- Height: 162.5 cm")
		assert.Contains(t, prompt, "- peanuts\n- sesame\n")
		assert.Contains(t, prompt, "- halal\n")
		assert.Contains(t, prompt, "in this order: breakfast, lunch, dinner.")
		assert.Contains(t, prompt, "Return exactly 21 meals in total (3 per day for days 1 to 7)")
		assert.Contains(t, prompt, `single key "meals"`)
		assert.Contains(t, prompt, "Write all text in English")
		assert.NotContains(t, prompt, "Health conditions")
		assert.NotContains(t, prompt, "Life phase notes")
	})

	t.Run("Snacks_ShouldExpect35", func(t *testing.T) {
		prompt := compiler.Compile(promptProfile(), mealplan.GenerationPreferences{IncludeSnacks: true}, target)

		assert.Contains(t, prompt, "breakfast, snack, lunch, snack, dinner")
		assert.Contains(t, prompt, "Return exactly 35 meals in total (5 per day")
	})

	t.Run("Arabic_ShouldKeepKeysInEnglish", func(t *testing.T) {
		prompt := compiler.Compile(promptProfile(), mealplan.GenerationPreferences{Language: "ar"}, target)

		assert.Contains(t, prompt, "in Arabic")
		assert.Contains(t, prompt, "Keep JSON keys and meal_type values in English")
	})

	t.Run("Preferences_ShouldBeListed", func(t *testing.T) {
		prompt := compiler.Compile(promptProfile(),
			mealplan.GenerationPreferences{Cuisine: "Levantine", MaxPrepTime: 30}, target)

		assert.Contains(t, prompt, "Preferred cuisine: Levantine")
		assert.Contains(t, prompt, "Maximum preparation time: 30 minutes per meal")
	})

	t.Run("LifePhase_ShouldAddNotes", func(t *testing.T) {
		p := promptProfile()
		p.PregnancyTrimester = 2
		p.BreastfeedingLevel = mealplan.BreastfeedingPartial
		p.FastingType = "ramadan"

		prompt := compiler.Compile(p, mealplan.GenerationPreferences{}, target)

		assert.Contains(t, prompt, "Pregnant, trimester 2")
		assert.Contains(t, prompt, "Partially breastfeeding")
		assert.Contains(t, prompt, "Observes ramadan fasting")
	})

	t.Run("Deterministic", func(t *testing.T) {
		prefs := mealplan.GenerationPreferences{IncludeSnacks: true, Cuisine: "Gulf"}

		assert.Equal(t,
			compiler.Compile(promptProfile(), prefs, target),
			compiler.Compile(promptProfile(), prefs, target))
	})
}

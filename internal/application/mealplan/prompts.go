// Package mealplan provides the meal plan generation use case
package mealplan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
)

// PromptCompiler renders a generation request into a single prompt that
// embeds the output contract. It is pure: equal inputs give equal text.
type PromptCompiler struct{}

// NewPromptCompiler creates a new prompt compiler
func NewPromptCompiler() *PromptCompiler {
	return &PromptCompiler{}
}

// Compile builds the prompt for a 7-day plan
func (c *PromptCompiler) Compile(profile mealplan.UserProfile, prefs mealplan.GenerationPreferences, target mealplan.NutritionTarget) string {
	schedule := prefs.Schedule()
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("Create a %d-day meal plan for the person described below.\n\n", mealplan.DaysPerWeek))

	prompt.WriteString("Profile:\n")
	prompt.WriteString(fmt.Sprintf("- Age: %d\n", profile.Age))
	if profile.Gender != "" {
		prompt.WriteString(fmt.Sprintf("- Gender: %s\n", profile.Gender))
	}
	prompt.WriteString(fmt.Sprintf("- Height: %s cm\n", formatNumber(profile.HeightCM)))
	prompt.WriteString(fmt.Sprintf("- Weight: %s kg\n", formatNumber(profile.WeightKG)))
	if profile.ActivityLevel != "" {
		prompt.WriteString(fmt.Sprintf("- Activity level: %s\n", profile.ActivityLevel))
	}
	if profile.FitnessGoal != "" {
		prompt.WriteString(fmt.Sprintf("- Fitness goal: %s\n", profile.FitnessGoal))
	}
	if profile.Nationality != "" {
		prompt.WriteString(fmt.Sprintf("- Nationality: %s (prefer familiar dishes)\n", profile.Nationality))
	}

	prompt.WriteString(fmt.Sprintf("\nDaily calorie target: %d kcal. The meals of each day must add up to approximately this target.\n", target.DailyCalories))

	writeList(&prompt, "Dietary restrictions (must be respected)", profile.DietaryRestrictions)
	writeList(&prompt, "Allergies (never use these ingredients or derivatives)", profile.Allergies)
	writeList(&prompt, "Health conditions (adapt meals accordingly)", profile.HealthConditions)

	if notes := lifePhaseNotes(profile); len(notes) > 0 {
		writeList(&prompt, "Life phase notes", notes)
	}

	var extras []string
	if prefs.Cuisine != "" {
		extras = append(extras, fmt.Sprintf("Preferred cuisine: %s", prefs.Cuisine))
	}
	if prefs.MaxPrepTime > 0 {
		extras = append(extras, fmt.Sprintf("Maximum preparation time: %d minutes per meal", prefs.MaxPrepTime))
	}
	if prefs.IsArabic() {
		extras = append(extras, "Write meal names, ingredient names, amounts and instructions in Arabic. Keep JSON keys and meal_type values in English")
	} else {
		extras = append(extras, "Write all text in English")
	}
	writeList(&prompt, "Preferences", extras)

	prompt.WriteString(fmt.Sprintf("\nMeal schedule for every day, in this order: %s.\n", schedule))
	prompt.WriteString(fmt.Sprintf("Return exactly %d meals in total (%d per day for days 1 to %d).\n",
		schedule.ExpectedMeals(), schedule.MealsPerDay(), mealplan.DaysPerWeek))

	prompt.WriteString("\nOutput contract:\n")
	prompt.WriteString(fmt.Sprintf("Return only a JSON object with a single key %q holding an array of meal objects. ", mealplan.MealsKey))
	prompt.WriteString("Do not add markdown, code fences, comments or any text outside the JSON.\n")
	prompt.WriteString("Each meal object has exactly these fields:\n")
	prompt.WriteString("- day_number: integer from 1 to 7\n")
	prompt.WriteString("- meal_type: one of \"breakfast\", \"lunch\", \"dinner\", \"snack\"\n")
	prompt.WriteString("- name: string\n")
	prompt.WriteString("- calories: number (kcal)\n")
	prompt.WriteString("- protein: number (grams)\n")
	prompt.WriteString("- carbs: number (grams)\n")
	prompt.WriteString("- fat: number (grams)\n")
	prompt.WriteString("- ingredients: array of objects {\"name\": string, \"amount\": string, \"calories\": number}\n")
	prompt.WriteString("- instructions: array of strings, one step each\n")
	prompt.WriteString("- prep_time: integer (minutes)\n")
	prompt.WriteString("- cook_time: integer (minutes)\n")
	prompt.WriteString("- servings: integer\n")
	prompt.WriteString("\nExample:\n")
	prompt.WriteString(`{"meals":[{"day_number":1,"meal_type":"breakfast","name":"...","calories":450,"protein":25,"carbs":50,"fat":15,"ingredients":[{"name":"...","amount":"...","calories":120}],"instructions":["..."],"prep_time":10,"cook_time":5,"servings":1}]}`)
	prompt.WriteString("\n")

	return prompt.String()
}

func lifePhaseNotes(p mealplan.UserProfile) []string {
	var notes []string
	if p.PregnancyTrimester > 0 {
		notes = append(notes, fmt.Sprintf("Pregnant, trimester %d: include folate, iron and calcium rich foods; avoid raw fish, undercooked meat and unpasteurized dairy", p.PregnancyTrimester))
	}
	switch p.BreastfeedingLevel {
	case mealplan.BreastfeedingExclusive:
		notes = append(notes, "Exclusively breastfeeding: prioritize hydration, protein and calcium")
	case mealplan.BreastfeedingPartial:
		notes = append(notes, "Partially breastfeeding: prioritize hydration and protein")
	}
	if p.FastingType != "" {
		notes = append(notes, fmt.Sprintf("Observes %s fasting: fit meals into the eating window and keep the pre-fast meal slow-digesting", p.FastingType))
	}
	return notes
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("\n%s:\n", title))
	for _, item := range items {
		b.WriteString(fmt.Sprintf("- %s\n", item))
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

package mealplan

import "strings"

// DaysPerWeek is the fixed plan length
const DaysPerWeek = 7

// MealType is the normalized meal slot
type MealType string

const (
	MealTypeBreakfast MealType = "breakfast"
	MealTypeLunch     MealType = "lunch"
	MealTypeDinner    MealType = "dinner"
	MealTypeSnack     MealType = "snack"
)

// Schedule is the ordered list of meal slots in one day
type Schedule []MealType

// ScheduleFor returns the daily slots; snacks add two slots
func ScheduleFor(includeSnacks bool) Schedule {
	if includeSnacks {
		return Schedule{MealTypeBreakfast, MealTypeSnack, MealTypeLunch, MealTypeSnack, MealTypeDinner}
	}
	return Schedule{MealTypeBreakfast, MealTypeLunch, MealTypeDinner}
}

// MealsPerDay returns the number of slots per day
func (s Schedule) MealsPerDay() int {
	return len(s)
}

// ExpectedMeals returns the number of meals a full week should contain
func (s Schedule) ExpectedMeals() int {
	return len(s) * DaysPerWeek
}

// String renders the schedule as "breakfast, lunch, dinner"
func (s Schedule) String() string {
	parts := make([]string, len(s))
	for i, t := range s {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

// NormalizeMealType maps free text onto a MealType. Anything containing
// "snack" is a snack; unknown values become breakfast and ok is false.
func NormalizeMealType(raw string) (mt MealType, ok bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(v, "snack"):
		return MealTypeSnack, true
	case v == string(MealTypeBreakfast):
		return MealTypeBreakfast, true
	case v == string(MealTypeLunch):
		return MealTypeLunch, true
	case v == string(MealTypeDinner):
		return MealTypeDinner, true
	default:
		return MealTypeBreakfast, false
	}
}

package mealplan

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// MealsKey is the container key the model must return meals under
const MealsKey = "meals"

// DefaultLowConfidenceRatio is the share of expected meals below which a
// result is flagged as low confidence.
const DefaultLowConfidenceRatio = 0.7

// Upper bounds applied to model values so they fit their columns
const (
	MaxNameLength = 255
	MaxMinutes    = 1440
	MaxServings   = 100
)

var (
	// ErrUnparseableResponse means the model output was not valid JSON
	ErrUnparseableResponse = errors.New("model response is not valid JSON")
	// ErrMissingMeals means the JSON had no usable meals list
	ErrMissingMeals = errors.New("model response has no meals")
)

// ResponseError wraps ErrUnparseableResponse or ErrMissingMeals with detail
type ResponseError struct {
	Reason string
	Err    error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Reason)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

// ValidationResult is the normalized output of one model response
type ValidationResult struct {
	Meals         []ValidatedMeal
	Expected      int
	Warnings      []string
	LowConfidence bool
}

// ResponseValidator parses model output into ValidatedMeals
type ResponseValidator struct {
	lowConfidenceRatio float64
}

// NewResponseValidator creates a validator; ratio outside (0,1] uses the default
func NewResponseValidator(lowConfidenceRatio float64) *ResponseValidator {
	if lowConfidenceRatio <= 0 || lowConfidenceRatio > 1 {
		lowConfidenceRatio = DefaultLowConfidenceRatio
	}
	return &ResponseValidator{lowConfidenceRatio: lowConfidenceRatio}
}

// Validate parses raw strictly and normalizes every meal. Malformed JSON or a
// missing/empty meals list is an error; a short list is only flagged.
func (v *ResponseValidator) Validate(raw string, schedule Schedule) (*ValidationResult, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &envelope); err != nil {
		return nil, &ResponseError{Reason: err.Error(), Err: ErrUnparseableResponse}
	}

	rawMeals, ok := envelope[MealsKey]
	if !ok {
		return nil, &ResponseError{Reason: fmt.Sprintf("missing %q key", MealsKey), Err: ErrMissingMeals}
	}

	var meals []RawMeal
	if err := json.Unmarshal(rawMeals, &meals); err != nil {
		return nil, &ResponseError{Reason: fmt.Sprintf("%q is not a list of meals: %v", MealsKey, err), Err: ErrMissingMeals}
	}
	if len(meals) == 0 {
		return nil, &ResponseError{Reason: fmt.Sprintf("%q is empty", MealsKey), Err: ErrMissingMeals}
	}

	result := &ValidationResult{
		Meals:    make([]ValidatedMeal, 0, len(meals)),
		Expected: schedule.ExpectedMeals(),
	}
	perDay := schedule.MealsPerDay()
	if perDay == 0 {
		perDay = 1
	}

	for i, m := range meals {
		result.Meals = append(result.Meals, v.normalize(i, m, perDay, result))
	}

	if float64(len(result.Meals)) < v.lowConfidenceRatio*float64(result.Expected) {
		result.LowConfidence = true
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("received %d of %d expected meals", len(result.Meals), result.Expected))
	}

	return result, nil
}

func (v *ResponseValidator) normalize(i int, m RawMeal, perDay int, result *ValidationResult) ValidatedMeal {
	day := int(math.Round(float64(m.DayNumber)))
	if day < 1 || day > DaysPerWeek {
		inferred := i/perDay + 1
		if inferred > DaysPerWeek {
			inferred = DaysPerWeek
		}
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("meal %d: day_number %v out of range, using %d", i, float64(m.DayNumber), inferred))
		day = inferred
	}

	mealType, ok := NormalizeMealType(string(m.MealType))
	if !ok {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("meal %d: unrecognized meal_type %q, using %s", i, string(m.MealType), mealType))
	}

	name := truncate(strings.TrimSpace(string(m.Name)), MaxNameLength)
	if name == "" {
		name = fmt.Sprintf("Day %d %s", day, mealType)
	}

	ingredients := make([]Ingredient, 0, len(m.Ingredients))
	for _, ing := range m.Ingredients {
		ingName := truncate(strings.TrimSpace(string(ing.Name)), MaxNameLength)
		if ingName == "" {
			continue
		}
		ingredients = append(ingredients, Ingredient{
			Name:     ingName,
			Amount:   truncate(strings.TrimSpace(string(ing.Amount)), MaxNameLength),
			Calories: nonNegative(float64(ing.Calories)),
		})
	}

	instructions := make([]string, 0, len(m.Instructions))
	for _, step := range m.Instructions {
		if s := strings.TrimSpace(string(step)); s != "" {
			instructions = append(instructions, s)
		}
	}

	return ValidatedMeal{
		dayNumber:    day,
		mealType:     mealType,
		name:         name,
		calories:     nonNegative(float64(m.Calories)),
		protein:      nonNegative(float64(m.Protein)),
		carbs:        nonNegative(float64(m.Carbs)),
		fat:          nonNegative(float64(m.Fat)),
		ingredients:  ingredients,
		instructions: instructions,
		prepTime:     boundedInt(float64(m.PrepTime), MaxMinutes),
		cookTime:     boundedInt(float64(m.CookTime), MaxMinutes),
		servings:     boundedInt(float64(m.Servings), MaxServings),
	}
}

func nonNegative(f float64) float64 {
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// boundedInt clamps to [0, max] before converting so huge values cannot wrap
func boundedInt(f float64, max int) int {
	return int(math.Round(math.Min(nonNegative(f), float64(max))))
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut])
}

package mealplan

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// RawMeal is one meal as returned by the model. Nothing about it is trusted.
type RawMeal struct {
	DayNumber    flexNumber     `json:"day_number"`
	MealType     flexString     `json:"meal_type"`
	Name         flexString     `json:"name"`
	Calories     flexNumber     `json:"calories"`
	Protein      flexNumber     `json:"protein"`
	Carbs        flexNumber     `json:"carbs"`
	Fat          flexNumber     `json:"fat"`
	Ingredients  rawIngredients `json:"ingredients"`
	Instructions flexStrings    `json:"instructions"`
	PrepTime     flexNumber     `json:"prep_time"`
	CookTime     flexNumber     `json:"cook_time"`
	Servings     flexNumber     `json:"servings"`
}

// RawIngredient is an untrusted ingredient line
type RawIngredient struct {
	Name     flexString `json:"name"`
	Amount   flexString `json:"amount"`
	Calories flexNumber `json:"calories"`
}

// UnmarshalJSON also accepts a bare string ("2 eggs") as the ingredient name
func (i *RawIngredient) UnmarshalJSON(data []byte) error {
	*i = RawIngredient{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		var name flexString
		_ = name.UnmarshalJSON(data)
		i.Name = name
		return nil
	}

	type alias RawIngredient
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return nil
	}
	*i = RawIngredient(a)
	return nil
}

// rawIngredients decodes to empty unless the value is an array
type rawIngredients []RawIngredient

func (r *rawIngredients) UnmarshalJSON(data []byte) error {
	*r = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil
	}
	var items []RawIngredient
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	*r = items
	return nil
}

// flexStrings accepts an array of scalars or a single newline separated string
type flexStrings []flexString

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	*f = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '[':
		var items []flexString
		if err := json.Unmarshal(data, &items); err != nil {
			return nil
		}
		*f = items
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return nil
		}
		for _, line := range strings.Split(str, "\n") {
			*f = append(*f, flexString(line))
		}
	}
	return nil
}

var leadingNumber = regexp.MustCompile(`^-?\d+(\.\d+)?`)

// flexNumber accepts numbers, numeric strings ("350", "15 min") and null.
// Anything unreadable decodes to zero instead of failing the whole document.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	*n = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*n = flexNumber(num)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if m := leadingNumber.FindString(strings.TrimSpace(str)); m != "" {
			if f, err := strconv.ParseFloat(m, 64); err == nil {
				*n = flexNumber(f)
			}
		}
	}
	return nil
}

// flexString accepts strings, numbers and booleans; objects and arrays decode to ""
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	*s = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = flexString(str)
		return nil
	}

	switch data[0] {
	case '{', '[':
		return nil
	default:
		*s = flexString(data)
	}
	return nil
}

// Ingredient is a validated ingredient line
type Ingredient struct {
	Name     string  `json:"name"`
	Amount   string  `json:"amount"`
	Calories float64 `json:"calories"`
}

// ValidatedMeal is a normalized meal safe for persistence. Its fields are
// fixed at construction and only exposed through accessors.
type ValidatedMeal struct {
	dayNumber    int
	mealType     MealType
	name         string
	calories     float64
	protein      float64
	carbs        float64
	fat          float64
	ingredients  []Ingredient
	instructions []string
	prepTime     int
	cookTime     int
	servings     int
}

// DayNumber returns the day within the week, 1..7
func (m ValidatedMeal) DayNumber() int { return m.dayNumber }

// MealType returns the normalized slot
func (m ValidatedMeal) MealType() MealType { return m.mealType }

// Name returns the meal name
func (m ValidatedMeal) Name() string { return m.name }

// Calories returns kcal for the meal
func (m ValidatedMeal) Calories() float64 { return m.calories }

// Protein returns grams of protein
func (m ValidatedMeal) Protein() float64 { return m.protein }

// Carbs returns grams of carbohydrate
func (m ValidatedMeal) Carbs() float64 { return m.carbs }

// Fat returns grams of fat
func (m ValidatedMeal) Fat() float64 { return m.fat }

// PrepTime returns preparation minutes
func (m ValidatedMeal) PrepTime() int { return m.prepTime }

// CookTime returns cooking minutes
func (m ValidatedMeal) CookTime() int { return m.cookTime }

// Servings returns the serving count
func (m ValidatedMeal) Servings() int { return m.servings }

// Ingredients returns a copy of the ingredient list
func (m ValidatedMeal) Ingredients() []Ingredient {
	out := make([]Ingredient, len(m.ingredients))
	copy(out, m.ingredients)
	return out
}

// Instructions returns a copy of the instruction steps
func (m ValidatedMeal) Instructions() []string {
	out := make([]string, len(m.instructions))
	copy(out, m.instructions)
	return out
}

// MealSnapshot is the exported field set of a ValidatedMeal, used by storage
// adapters and prompt logging.
type MealSnapshot struct {
	DayNumber    int
	MealType     MealType
	Name         string
	Calories     float64
	Protein      float64
	Carbs        float64
	Fat          float64
	Ingredients  []Ingredient
	Instructions []string
	PrepTime     int
	CookTime     int
	Servings     int
}

// Snapshot returns a copy of the meal's fields
func (m ValidatedMeal) Snapshot() MealSnapshot {
	return MealSnapshot{
		DayNumber:    m.dayNumber,
		MealType:     m.mealType,
		Name:         m.name,
		Calories:     m.calories,
		Protein:      m.protein,
		Carbs:        m.carbs,
		Fat:          m.fat,
		Ingredients:  m.Ingredients(),
		Instructions: m.Instructions(),
		PrepTime:     m.prepTime,
		CookTime:     m.cookTime,
		Servings:     m.servings,
	}
}

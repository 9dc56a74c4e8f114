package mealplan

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire format of week_start_date
const DateLayout = "2006-01-02"

// NutritionalTotals are per-day averages over a whole plan
type NutritionalTotals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// DailyAverages sums each macro over all meals and divides by the week length.
// The result is the per-day average of the week's total, not a per-meal mean.
func DailyAverages(meals []ValidatedMeal) NutritionalTotals {
	var t NutritionalTotals
	for _, m := range meals {
		t.Calories += m.Calories()
		t.Protein += m.Protein()
		t.Carbs += m.Carbs()
		t.Fat += m.Fat()
	}
	return NutritionalTotals{
		Calories: math.Round(t.Calories / DaysPerWeek),
		Protein:  round1(t.Protein / DaysPerWeek),
		Carbs:    round1(t.Carbs / DaysPerWeek),
		Fat:      round1(t.Fat / DaysPerWeek),
	}
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// WeekStart returns the next occurrence of anchor on or after now's calendar
// date, shifted by offset weeks. The result is midnight UTC.
func WeekStart(now time.Time, anchor time.Weekday, offset int) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	delta := (int(anchor) - int(day.Weekday()) + 7) % 7
	return day.AddDate(0, 0, delta+7*offset)
}

// ParseWeekday parses "saturday", "sat" or "6"
func ParseWeekday(s string) (time.Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if v == name || v == name[:3] || v == fmt.Sprint(int(d)) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s)
}

// WeeklyPlan is the persisted plan header for one user and week
type WeeklyPlan struct {
	ID            uuid.UUID
	UserID        string
	WeekStartDate time.Time
	Totals        NutritionalTotals
	Preferences   GenerationPreferences
	LifePhase     LifePhase
	AIModel       string
	MealCount     int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ReplaceWeek is everything needed to replace one week's meals
type ReplaceWeek struct {
	UserID        string
	WeekStartDate time.Time
	Meals         []ValidatedMeal
	Preferences   GenerationPreferences
	LifePhase     LifePhase
	AIModel       string
}

// Totals returns the per-day averages of the replacement meals
func (r ReplaceWeek) Totals() NutritionalTotals {
	return DailyAverages(r.Meals)
}

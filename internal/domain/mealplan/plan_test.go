package mealplan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekStart(t *testing.T) {
	wednesday := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	saturday := time.Date(2024, 1, 6, 15, 0, 0, 0, time.UTC)
	riyadh := time.FixedZone("AST", 3*60*60)

	tests := []struct {
		name   string
		now    time.Time
		offset int
		want   string
	}{
		{"NextSaturday", wednesday, 0, "2024-01-06"},
		{"OneWeekAhead", wednesday, 1, "2024-01-13"},
		{"OneWeekBack", wednesday, -1, "2023-12-30"},
		{"SaturdayIsItsOwnWeek", saturday, 0, "2024-01-06"},
		{"CalendarDateOfCaller", time.Date(2024, 1, 6, 1, 0, 0, 0, riyadh), 0, "2024-01-06"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeekStart(tt.now, time.Saturday, tt.offset)
			assert.Equal(t, tt.want, got.Format(DateLayout))
			assert.Equal(t, time.Saturday, got.Weekday())
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestWeekStart_OtherAnchor(t *testing.T) {
	got := WeekStart(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), time.Monday, 0)
	assert.Equal(t, "2024-01-08", got.Format(DateLayout))
}

func TestParseWeekday(t *testing.T) {
	for _, in := range []string{"saturday", "Sat", " SATURDAY ", "6"} {
		d, err := ParseWeekday(in)
		require.NoError(t, err, in)
		assert.Equal(t, time.Saturday, d)
	}

	_, err := ParseWeekday("funday")
	assert.Error(t, err)
}

func TestDailyAverages(t *testing.T) {
	meals := make([]ValidatedMeal, 0, 21)
	for i := 0; i < 21; i++ {
		meals = append(meals, ValidatedMeal{calories: 400, protein: 25, carbs: 40, fat: 12})
	}

	got := DailyAverages(meals)

	assert.Equal(t, NutritionalTotals{Calories: 1200, Protein: 75, Carbs: 120, Fat: 36}, got)
}

func TestDailyAverages_DividesByWeekLength(t *testing.T) {
	// A short plan is still averaged over seven days.
	got := DailyAverages([]ValidatedMeal{{calories: 700, protein: 10, carbs: 0, fat: 3.5}})

	assert.Equal(t, 100.0, got.Calories)
	assert.Equal(t, 1.4, got.Protein)
	assert.Equal(t, 0.0, got.Carbs)
	assert.Equal(t, 0.5, got.Fat)
}

func TestSchedule(t *testing.T) {
	plain := ScheduleFor(false)
	snacks := ScheduleFor(true)

	assert.Equal(t, 3, plain.MealsPerDay())
	assert.Equal(t, 21, plain.ExpectedMeals())
	assert.Equal(t, "breakfast, lunch, dinner", plain.String())

	assert.Equal(t, 5, snacks.MealsPerDay())
	assert.Equal(t, 35, snacks.ExpectedMeals())
	assert.Equal(t, "breakfast, snack, lunch, snack, dinner", snacks.String())

	assert.Equal(t, snacks, GenerationPreferences{IncludeSnacks: true}.Schedule())
}

func TestUserProfile_LifePhase(t *testing.T) {
	assert.False(t, UserProfile{}.HasLifePhase())
	assert.False(t, UserProfile{BreastfeedingLevel: BreastfeedingNone}.HasLifePhase())
	assert.True(t, UserProfile{FastingType: "ramadan"}.HasLifePhase())

	p := UserProfile{PregnancyTrimester: 2, FastingType: "intermittent"}
	assert.Equal(t, LifePhase{PregnancyTrimester: 2, FastingType: "intermittent"}, p.LifePhase())
}

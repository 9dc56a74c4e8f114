package testutils

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	gormRepo "github.com/alchemorsel/mealplan/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// ProfileBuilder provides a fluent interface for building test profiles
type ProfileBuilder struct {
	faker   *gofakeit.Faker
	profile mealplan.UserProfile
}

// NewProfileBuilder creates a builder with a realistic adult profile
func NewProfileBuilder() *ProfileBuilder {
	return NewProfileBuilderWithSeed(time.Now().UnixNano())
}

// NewProfileBuilderWithSeed creates a reproducible builder
func NewProfileBuilderWithSeed(seed int64) *ProfileBuilder {
	faker := gofakeit.New(seed)

	return &ProfileBuilder{
		faker: faker,
		profile: mealplan.UserProfile{
			UserID:              uuid.NewString(),
			Age:                 faker.Number(18, 70),
			Gender:              mealplan.Gender(faker.RandomString([]string{"male", "female"})),
			HeightCM:            float64(faker.Number(150, 200)),
			WeightKG:            float64(faker.Number(50, 110)),
			ActivityLevel:       mealplan.ActivityLevel(faker.RandomString([]string{"sedentary", "lightly_active", "moderately_active", "very_active"})),
			FitnessGoal:         mealplan.FitnessGoal(faker.RandomString([]string{"weight_loss", "muscle_gain", "maintenance"})),
			Nationality:         faker.RandomString([]string{"Egyptian", "Saudi", "Lebanese", "Moroccan", "Jordanian"}),
			DietaryRestrictions: []string{},
			Allergies:           []string{faker.RandomString([]string{"peanuts", "shellfish", "dairy"})},
			HealthConditions:    []string{},
		},
	}
}

// WithUserID sets the profile owner
func (b *ProfileBuilder) WithUserID(id string) *ProfileBuilder {
	b.profile.UserID = id
	return b
}

// WithBiometrics sets age, gender, height and weight
func (b *ProfileBuilder) WithBiometrics(age int, gender mealplan.Gender, heightCM, weightKG float64) *ProfileBuilder {
	b.profile.Age = age
	b.profile.Gender = gender
	b.profile.HeightCM = heightCM
	b.profile.WeightKG = weightKG
	return b
}

// WithActivity sets the activity level and goal
func (b *ProfileBuilder) WithActivity(level mealplan.ActivityLevel, goal mealplan.FitnessGoal) *ProfileBuilder {
	b.profile.ActivityLevel = level
	b.profile.FitnessGoal = goal
	return b
}

// WithPregnancy sets the trimester
func (b *ProfileBuilder) WithPregnancy(trimester int) *ProfileBuilder {
	b.profile.Gender = mealplan.GenderFemale
	b.profile.PregnancyTrimester = trimester
	return b
}

// WithBreastfeeding sets the breastfeeding level
func (b *ProfileBuilder) WithBreastfeeding(level mealplan.BreastfeedingLevel) *ProfileBuilder {
	b.profile.Gender = mealplan.GenderFemale
	b.profile.BreastfeedingLevel = level
	return b
}

// WithAllergies replaces the allergy list
func (b *ProfileBuilder) WithAllergies(allergies ...string) *ProfileBuilder {
	b.profile.Allergies = allergies
	return b
}

// Build returns the domain profile
func (b *ProfileBuilder) Build() mealplan.UserProfile {
	return b.profile
}

// BuildInput returns the wire form of the profile
func (b *ProfileBuilder) BuildInput() *inbound.ProfileInput {
	return inbound.FromDomainProfile(b.profile)
}

// BuildUserModel returns a storable user row carrying the profile and the
// given allowance
func (b *ProfileBuilder) BuildUserModel(tier string, remaining int) *gormRepo.UserModel {
	id, err := uuid.Parse(b.profile.UserID)
	if err != nil {
		id = uuid.New()
		b.profile.UserID = id.String()
	}
	return &gormRepo.UserModel{
		ID:                     id,
		Email:                  b.faker.Email(),
		Name:                   b.faker.Name(),
		Role:                   "user",
		SubscriptionTier:       tier,
		AIGenerationsRemaining: remaining,
		Profile:                gormRepo.ProfileToModel(b.profile),
	}
}

// NewGenerateRequest wraps profile and preferences in a request body
func NewGenerateRequest(profile *inbound.ProfileInput, includeSnacks bool) inbound.GeneratePlanRequest {
	return inbound.GeneratePlanRequest{
		UserProfile: profile,
		Preferences: &inbound.PreferencesInput{
			IncludeSnacks: includeSnacks,
			Language:      "en",
		},
	}
}

// MealResponseBuilder builds model output in the {"meals": [...]} shape
type MealResponseBuilder struct {
	faker    *gofakeit.Faker
	schedule mealplan.Schedule
	days     int
	calories float64
	protein  float64
	carbs    float64
	fat      float64
}

// NewMealResponseBuilder creates a builder for a full week of schedule
func NewMealResponseBuilder(schedule mealplan.Schedule) *MealResponseBuilder {
	return &MealResponseBuilder{
		faker:    gofakeit.New(time.Now().UnixNano()),
		schedule: schedule,
		days:     mealplan.DaysPerWeek,
		calories: 500,
		protein:  30,
		carbs:    50,
		fat:      15,
	}
}

// WithDays limits the response to the first n days
func (b *MealResponseBuilder) WithDays(n int) *MealResponseBuilder {
	b.days = n
	return b
}

// WithMacros sets the macros every meal carries
func (b *MealResponseBuilder) WithMacros(calories, protein, carbs, fat float64) *MealResponseBuilder {
	b.calories = calories
	b.protein = protein
	b.carbs = carbs
	b.fat = fat
	return b
}

// Meals returns the meal objects
func (b *MealResponseBuilder) Meals() []map[string]interface{} {
	meals := make([]map[string]interface{}, 0, b.days*len(b.schedule))
	for day := 1; day <= b.days; day++ {
		for _, slot := range b.schedule {
			meals = append(meals, map[string]interface{}{
				"day_number": day,
				"meal_type":  string(slot),
				"name":       fmt.Sprintf("%s %d", b.faker.Noun(), day),
				"calories":   b.calories,
				"protein":    b.protein,
				"carbs":      b.carbs,
				"fat":        b.fat,
				"ingredients": []map[string]interface{}{
					{"name": b.faker.Vegetable(), "amount": "100g", "calories": 40},
					{"name": b.faker.Fruit(), "amount": "1 piece", "calories": 60},
				},
				"instructions": []string{"Prepare the ingredients.", "Cook and serve."},
				"prep_time":    10,
				"cook_time":    20,
				"servings":     1,
			})
		}
	}
	return meals
}

// Build returns the JSON document
func (b *MealResponseBuilder) Build() string {
	raw, err := json.Marshal(map[string]interface{}{mealplan.MealsKey: b.Meals()})
	if err != nil {
		panic(err)
	}
	return string(raw)
}

// ValidatedMeals runs the built response through the validator
func (b *MealResponseBuilder) ValidatedMeals() []mealplan.ValidatedMeal {
	result, err := mealplan.NewResponseValidator(0).Validate(b.Build(), b.schedule)
	if err != nil {
		panic(err)
	}
	return result.Meals
}

// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the use cases the HTTP API and the CLI drive
package inbound

import (
	"context"
	"strings"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
)

// MealPlanService generates and persists weekly meal plans
type MealPlanService interface {
	GeneratePlan(ctx context.Context, req GeneratePlanRequest) (*GeneratePlanResponse, error)
}

// GeneratePlanRequest is the inbound generation request. The profile may be
// sent under "userProfile", under "profile", or as top-level fields.
type GeneratePlanRequest struct {
	UserProfile *ProfileInput     `json:"userProfile,omitempty"`
	Profile     *ProfileInput     `json:"profile,omitempty"`
	Preferences *PreferencesInput `json:"preferences,omitempty"`
	WeekOffset  *int              `json:"weekOffset,omitempty" validate:"omitempty,gte=-52,lte=52"`

	*ProfileInput
}

// LocateProfile returns the first profile carrying a non-empty identifier
func (r GeneratePlanRequest) LocateProfile() *ProfileInput {
	for _, p := range []*ProfileInput{r.UserProfile, r.Profile, r.ProfileInput} {
		if p != nil && p.Identifier() != "" {
			return p
		}
	}
	return nil
}

// ResolvedWeekOffset prefers the top-level offset over the preferences one
func (r GeneratePlanRequest) ResolvedWeekOffset() int {
	if r.WeekOffset != nil {
		return *r.WeekOffset
	}
	if r.Preferences != nil && r.Preferences.WeekOffset != nil {
		return *r.Preferences.WeekOffset
	}
	return 0
}

// Language returns the requested response language, defaulting to English
func (r GeneratePlanRequest) Language() string {
	if r.Preferences != nil && r.Preferences.Language != "" {
		return r.Preferences.Language
	}
	return "en"
}

// ProfileInput is the wire form of a user profile
type ProfileInput struct {
	ID                  string   `json:"id,omitempty"`
	UserID              string   `json:"user_id,omitempty"`
	Age                 float64  `json:"age,omitempty" validate:"gte=0,lte=130"`
	Gender              string   `json:"gender,omitempty" validate:"max=32"`
	HeightCM            float64  `json:"height_cm,omitempty" validate:"gte=0,lte=300"`
	Height              float64  `json:"height,omitempty" validate:"gte=0,lte=300"`
	WeightKG            float64  `json:"weight_kg,omitempty" validate:"gte=0,lte=500"`
	Weight              float64  `json:"weight,omitempty" validate:"gte=0,lte=500"`
	ActivityLevel       string   `json:"activity_level,omitempty" validate:"max=32"`
	FitnessGoal         string   `json:"fitness_goal,omitempty" validate:"max=32"`
	Nationality         string   `json:"nationality,omitempty" validate:"max=64,no_xss,prompt_safe"`
	DietaryRestrictions []string `json:"dietary_restrictions,omitempty" validate:"max=30,dive,max=100,no_xss,prompt_safe"`
	Allergies           []string `json:"allergies,omitempty" validate:"max=30,dive,max=100,no_xss,prompt_safe"`
	HealthConditions    []string `json:"health_conditions,omitempty" validate:"max=30,dive,max=100,no_xss,prompt_safe"`
	PregnancyTrimester  int      `json:"pregnancy_trimester,omitempty" validate:"gte=0,lte=3"`
	BreastfeedingLevel  string   `json:"breastfeeding_level,omitempty" validate:"max=32"`
	FastingType         string   `json:"fasting_type,omitempty" validate:"max=64,no_xss,prompt_safe"`
}

// Identifier returns the user id from either id field
func (p *ProfileInput) Identifier() string {
	if p == nil {
		return ""
	}
	if id := strings.TrimSpace(p.ID); id != "" {
		return id
	}
	return strings.TrimSpace(p.UserID)
}

// ToDomain converts the wire profile into a domain profile
func (p *ProfileInput) ToDomain() mealplan.UserProfile {
	height := p.HeightCM
	if height == 0 {
		height = p.Height
	}
	weight := p.WeightKG
	if weight == 0 {
		weight = p.Weight
	}

	return mealplan.UserProfile{
		UserID:              p.Identifier(),
		Age:                 int(p.Age),
		Gender:              mealplan.ParseGender(p.Gender),
		HeightCM:            height,
		WeightKG:            weight,
		ActivityLevel:       mealplan.ParseActivityLevel(p.ActivityLevel),
		FitnessGoal:         mealplan.ParseFitnessGoal(p.FitnessGoal),
		Nationality:         strings.TrimSpace(p.Nationality),
		DietaryRestrictions: compact(p.DietaryRestrictions),
		Allergies:           compact(p.Allergies),
		HealthConditions:    compact(p.HealthConditions),
		PregnancyTrimester:  p.PregnancyTrimester,
		BreastfeedingLevel:  mealplan.ParseBreastfeedingLevel(p.BreastfeedingLevel),
		FastingType:         strings.TrimSpace(p.FastingType),
	}
}

// FromDomainProfile builds a wire profile from a stored one
func FromDomainProfile(p mealplan.UserProfile) *ProfileInput {
	return &ProfileInput{
		ID:                  p.UserID,
		Age:                 float64(p.Age),
		Gender:              string(p.Gender),
		HeightCM:            p.HeightCM,
		WeightKG:            p.WeightKG,
		ActivityLevel:       string(p.ActivityLevel),
		FitnessGoal:         string(p.FitnessGoal),
		Nationality:         p.Nationality,
		DietaryRestrictions: p.DietaryRestrictions,
		Allergies:           p.Allergies,
		HealthConditions:    p.HealthConditions,
		PregnancyTrimester:  p.PregnancyTrimester,
		BreastfeedingLevel:  string(p.BreastfeedingLevel),
		FastingType:         p.FastingType,
	}
}

// PreferencesInput is the wire form of generation preferences
type PreferencesInput struct {
	IncludeSnacks bool   `json:"includeSnacks"`
	Cuisine       string `json:"cuisine,omitempty" validate:"max=64,no_xss,prompt_safe"`
	MaxPrepTime   int    `json:"maxPrepTime,omitempty" validate:"gte=0,lte=1440"`
	Language      string `json:"language,omitempty" validate:"omitempty,oneof=en ar"`
	WeekOffset    *int   `json:"weekOffset,omitempty" validate:"omitempty,gte=-52,lte=52"`
}

// ToDomain converts the wire preferences, applying the resolved week offset
func (p *PreferencesInput) ToDomain(weekOffset int) mealplan.GenerationPreferences {
	lang := p.Language
	if lang == "" {
		lang = "en"
	}
	return mealplan.GenerationPreferences{
		IncludeSnacks: p.IncludeSnacks,
		Cuisine:       strings.TrimSpace(p.Cuisine),
		MaxPrepTime:   p.MaxPrepTime,
		Language:      lang,
		WeekOffset:    weekOffset,
	}
}

// GeneratePlanResponse is returned on success
type GeneratePlanResponse struct {
	Success           bool                       `json:"success"`
	WeeklyPlanID      string                     `json:"weeklyPlanId"`
	TotalMeals        int                        `json:"totalMeals"`
	MealsPerDay       int                        `json:"mealsPerDay"`
	WeekStartDate     string                     `json:"weekStartDate"`
	AIModel           string                     `json:"aiModel"`
	DailyCalories     int                        `json:"dailyCalories"`
	NutritionalTotals mealplan.NutritionalTotals `json:"nutritionalTotals"`
	LowConfidence     bool                       `json:"lowConfidence,omitempty"`
	Warnings          []string                   `json:"warnings,omitempty"`
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

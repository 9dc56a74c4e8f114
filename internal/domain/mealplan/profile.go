// Package mealplan defines the meal plan domain: biometric profiles, energy
// targets, meal schedules, validated meals and the weekly plan aggregate.
package mealplan

import "strings"

// Gender selects the BMR branch
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// ActivityLevel represents self-reported physical activity
type ActivityLevel string

const (
	ActivitySedentary        ActivityLevel = "sedentary"
	ActivityLightlyActive    ActivityLevel = "lightly_active"
	ActivityModeratelyActive ActivityLevel = "moderately_active"
	ActivityVeryActive       ActivityLevel = "very_active"
	ActivityExtremelyActive  ActivityLevel = "extremely_active"
)

// FitnessGoal represents the user's body composition goal
type FitnessGoal string

const (
	GoalWeightLoss  FitnessGoal = "weight_loss"
	GoalMuscleGain  FitnessGoal = "muscle_gain"
	GoalMaintenance FitnessGoal = "maintenance"
)

// BreastfeedingLevel describes lactation state
type BreastfeedingLevel string

const (
	BreastfeedingNone      BreastfeedingLevel = "none"
	BreastfeedingPartial   BreastfeedingLevel = "partial"
	BreastfeedingExclusive BreastfeedingLevel = "exclusive"
)

// UserProfile is the biometric and dietary profile a plan is generated for.
// It is owned by the profile store; the pipeline only reads it.
type UserProfile struct {
	UserID              string
	Age                 int
	Gender              Gender
	HeightCM            float64
	WeightKG            float64
	ActivityLevel       ActivityLevel
	FitnessGoal         FitnessGoal
	Nationality         string
	DietaryRestrictions []string
	Allergies           []string
	HealthConditions    []string

	// Optional life-phase fields; zero values mean no adjustment.
	PregnancyTrimester int
	BreastfeedingLevel BreastfeedingLevel
	FastingType        string
}

// LifePhase is the snapshot of life-phase fields stored with a plan
type LifePhase struct {
	PregnancyTrimester int                `json:"pregnancy_trimester,omitempty"`
	BreastfeedingLevel BreastfeedingLevel `json:"breastfeeding_level,omitempty"`
	FastingType        string             `json:"fasting_type,omitempty"`
}

// LifePhase returns the profile's life-phase snapshot
func (p UserProfile) LifePhase() LifePhase {
	return LifePhase{
		PregnancyTrimester: p.PregnancyTrimester,
		BreastfeedingLevel: p.BreastfeedingLevel,
		FastingType:        p.FastingType,
	}
}

// HasLifePhase reports whether any life-phase field is set
func (p UserProfile) HasLifePhase() bool {
	return p.PregnancyTrimester > 0 ||
		(p.BreastfeedingLevel != "" && p.BreastfeedingLevel != BreastfeedingNone) ||
		p.FastingType != ""
}

// ParseGender maps free text to a Gender
func ParseGender(s string) Gender {
	switch normalizeEnum(s) {
	case "male", "m", "man":
		return GenderMale
	case "female", "f", "woman":
		return GenderFemale
	case "":
		return ""
	default:
		return GenderOther
	}
}

// ParseActivityLevel normalizes spelling variants ("Very Active", "very-active")
func ParseActivityLevel(s string) ActivityLevel {
	return ActivityLevel(normalizeEnum(s))
}

// ParseFitnessGoal normalizes spelling variants ("Weight Loss", "lose_weight")
func ParseFitnessGoal(s string) FitnessGoal {
	switch v := normalizeEnum(s); v {
	case "lose_weight", "weightloss":
		return GoalWeightLoss
	case "gain_muscle", "musclegain", "build_muscle":
		return GoalMuscleGain
	default:
		return FitnessGoal(v)
	}
}

// ParseBreastfeedingLevel normalizes the breastfeeding field
func ParseBreastfeedingLevel(s string) BreastfeedingLevel {
	switch v := normalizeEnum(s); v {
	case "exclusive", "exclusively", "full":
		return BreastfeedingExclusive
	case "partial", "partially", "mixed":
		return BreastfeedingPartial
	case "", "none", "no":
		return ""
	default:
		return BreastfeedingLevel(v)
	}
}

func normalizeEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.Join(strings.Fields(s), "_")
}

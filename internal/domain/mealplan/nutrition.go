package mealplan

import (
	"fmt"
	"math"
	"strings"
)

// NutritionTarget is the derived daily energy target for one request
type NutritionTarget struct {
	DailyCalories int
}

const defaultActivityFactor = 1.55

var activityFactors = map[ActivityLevel]float64{
	ActivitySedentary:        1.2,
	ActivityLightlyActive:    1.375,
	ActivityModeratelyActive: 1.55,
	ActivityVeryActive:       1.725,
	ActivityExtremelyActive:  1.9,
}

// Flat kcal surcharges
const (
	surchargeSecondTrimester        = 340
	surchargeThirdTrimester         = 450
	surchargeBreastfeedingExclusive = 400
	surchargeBreastfeedingPartial   = 250
)

// ProfileError lists the required numeric fields that were missing or non-positive
type ProfileError struct {
	Fields []string
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("profile is missing required fields: %s", strings.Join(e.Fields, ", "))
}

// CalculateTarget derives the daily calorie target using the Mifflin-St Jeor
// equation, an activity factor, a goal multiplier and life-phase surcharges.
func CalculateTarget(p UserProfile) (NutritionTarget, error) {
	var missing []string
	if p.Age <= 0 {
		missing = append(missing, "age")
	}
	if p.HeightCM <= 0 {
		missing = append(missing, "height_cm")
	}
	if p.WeightKG <= 0 {
		missing = append(missing, "weight_kg")
	}
	if len(missing) > 0 {
		return NutritionTarget{}, &ProfileError{Fields: missing}
	}

	energy := BMR(p) * ActivityFactor(p.ActivityLevel) * GoalMultiplier(p.FitnessGoal)
	energy += float64(LifePhaseSurcharge(p))

	calories := int(math.Round(energy))
	if calories <= 0 {
		return NutritionTarget{}, &ProfileError{Fields: []string{"age", "height_cm", "weight_kg"}}
	}
	return NutritionTarget{DailyCalories: calories}, nil
}

// BMR returns the basal metabolic rate in kcal/day
func BMR(p UserProfile) float64 {
	age := float64(p.Age)
	if p.Gender == GenderMale {
		return 88.362 + 13.397*p.WeightKG + 4.799*p.HeightCM - 5.677*age
	}
	return 447.593 + 9.247*p.WeightKG + 3.098*p.HeightCM - 4.330*age
}

// ActivityFactor returns the TDEE multiplier; unknown levels use the moderate factor
func ActivityFactor(level ActivityLevel) float64 {
	if f, ok := activityFactors[level]; ok {
		return f
	}
	return defaultActivityFactor
}

// GoalMultiplier adjusts TDEE for the fitness goal
func GoalMultiplier(goal FitnessGoal) float64 {
	switch goal {
	case GoalWeightLoss:
		return 0.8
	case GoalMuscleGain:
		return 1.1
	default:
		return 1.0
	}
}

// LifePhaseSurcharge sums pregnancy and breastfeeding surcharges
func LifePhaseSurcharge(p UserProfile) int {
	total := 0
	switch p.PregnancyTrimester {
	case 2:
		total += surchargeSecondTrimester
	case 3:
		total += surchargeThirdTrimester
	}
	switch p.BreastfeedingLevel {
	case BreastfeedingExclusive:
		total += surchargeBreastfeedingExclusive
	case BreastfeedingPartial:
		total += surchargeBreastfeedingPartial
	}
	return total
}

package mealplan

// GenerationPreferences are the per-request generation options
type GenerationPreferences struct {
	IncludeSnacks bool   `json:"includeSnacks"`
	Cuisine       string `json:"cuisine,omitempty"`
	MaxPrepTime   int    `json:"maxPrepTime,omitempty"`
	Language      string `json:"language"`
	WeekOffset    int    `json:"weekOffset"`
}

// Schedule returns the meal schedule implied by the preferences
func (p GenerationPreferences) Schedule() Schedule {
	return ScheduleFor(p.IncludeSnacks)
}

// IsArabic reports whether generated content should be in Arabic
func (p GenerationPreferences) IsArabic() bool {
	return p.Language == "ar"
}

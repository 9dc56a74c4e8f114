// Package gorm provides GORM model definitions for the application
package gorm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserModel holds the stored profile and the generation allowance
type UserModel struct {
	ID                     uuid.UUID `gorm:"type:char(36);primaryKey"`
	Email                  string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name                   string    `gorm:"type:varchar(255)"`
	Role                   string    `gorm:"type:varchar(50);default:'user'"`
	SubscriptionTier       string    `gorm:"type:varchar(50);default:'free'"`
	AIGenerationsRemaining int       `gorm:"column:ai_generations_remaining;default:0;not null"`

	Profile UserProfileModel `gorm:"embedded"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserProfileModel is the embedded biometric profile
type UserProfileModel struct {
	Age                 int            `gorm:"default:0"`
	Gender              string         `gorm:"type:varchar(20)"`
	HeightCM            float64        `gorm:"column:height_cm"`
	WeightKG            float64        `gorm:"column:weight_kg"`
	ActivityLevel       string         `gorm:"type:varchar(50)"`
	FitnessGoal         string         `gorm:"type:varchar(50)"`
	Nationality         string         `gorm:"type:varchar(100)"`
	DietaryRestrictions datatypes.JSON `gorm:"type:json"`
	Allergies           datatypes.JSON `gorm:"type:json"`
	HealthConditions    datatypes.JSON `gorm:"type:json"`
	PregnancyTrimester  int            `gorm:"default:0"`
	BreastfeedingLevel  string         `gorm:"type:varchar(20)"`
	FastingType         string         `gorm:"type:varchar(50)"`
}

// WeeklyPlanModel is one plan per user and week
type WeeklyPlanModel struct {
	ID               uuid.UUID      `gorm:"type:char(36);primaryKey"`
	UserID           string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_weekly_plans_user_week"`
	WeekStartDate    time.Time      `gorm:"type:date;not null;uniqueIndex:idx_weekly_plans_user_week"`
	TotalCalories    float64        `gorm:"default:0"`
	TotalProtein     float64        `gorm:"default:0"`
	TotalCarbs       float64        `gorm:"default:0"`
	TotalFat         float64        `gorm:"default:0"`
	GenerationPrompt datatypes.JSON `gorm:"type:json"`
	LifePhaseContext datatypes.JSON `gorm:"type:json"`
	AIModel          string         `gorm:"column:ai_model;type:varchar(100)"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Meals []DailyMealModel `gorm:"foreignKey:WeeklyPlanID;constraint:OnDelete:CASCADE"`
}

// DailyMealModel is one meal row of a weekly plan
type DailyMealModel struct {
	ID           uuid.UUID      `gorm:"type:char(36);primaryKey"`
	WeeklyPlanID uuid.UUID      `gorm:"type:char(36);not null;index"`
	DayNumber    int            `gorm:"not null"`
	MealType     string         `gorm:"type:varchar(20);not null"`
	Name         string         `gorm:"type:varchar(255)"`
	Calories     float64        `gorm:"default:0"`
	Protein      float64        `gorm:"default:0"`
	Carbs        float64        `gorm:"default:0"`
	Fat          float64        `gorm:"default:0"`
	Ingredients  datatypes.JSON `gorm:"type:json"`
	Instructions datatypes.JSON `gorm:"type:json"`
	PrepTime     int            `gorm:"column:prep_time;default:0"`
	CookTime     int            `gorm:"column:cook_time;default:0"`
	Servings     int            `gorm:"default:1"`
	CreatedAt    time.Time
}

// IngredientModel is the stored form of one ingredient line
type IngredientModel struct {
	Name     string  `json:"name"`
	Amount   string  `json:"amount"`
	Calories float64 `json:"calories"`
}

// GenerationLogModel is the append-only generation audit log
type GenerationLogModel struct {
	ID               uuid.UUID      `gorm:"type:char(36);primaryKey"`
	UserID           string         `gorm:"type:varchar(64);not null;index:idx_generation_logs_user_type_created"`
	GenerationType   string         `gorm:"type:varchar(50);not null;index:idx_generation_logs_user_type_created"`
	PromptData       datatypes.JSON `gorm:"type:json"`
	Status           string         `gorm:"type:varchar(20);not null;index"`
	CreditsUsed      int            `gorm:"default:0"`
	ErrorMessage     string         `gorm:"type:text"`
	ResponseMetadata datatypes.JSON `gorm:"type:json"`
	CreatedAt        time.Time      `gorm:"index:idx_generation_logs_user_type_created"`
	CompletedAt      *time.Time
}

// AIModelModel is an administrator-managed model entry
type AIModelModel struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey"`
	ModelID     string    `gorm:"type:varchar(100);uniqueIndex;not null"`
	Provider    string    `gorm:"type:varchar(50);not null"`
	DisplayName string    `gorm:"type:varchar(255)"`
	IsActive    bool      `gorm:"default:true"`
	IsDefault   bool      `gorm:"default:false;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AIFeatureModelModel maps a feature to a primary and fallback model
type AIFeatureModelModel struct {
	ID              uuid.UUID  `gorm:"type:char(36);primaryKey"`
	Feature         string     `gorm:"type:varchar(50);uniqueIndex;not null"`
	PrimaryModelID  *uuid.UUID `gorm:"type:char(36)"`
	FallbackModelID *uuid.UUID `gorm:"type:char(36)"`
	IsActive        bool       `gorm:"default:true"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	PrimaryModel  *AIModelModel `gorm:"foreignKey:PrimaryModelID"`
	FallbackModel *AIModelModel `gorm:"foreignKey:FallbackModelID"`
}

// AllModels lists every model for AutoMigrate
func AllModels() []interface{} {
	return []interface{}{
		&UserModel{},
		&WeeklyPlanModel{},
		&DailyMealModel{},
		&GenerationLogModel{},
		&AIModelModel{},
		&AIFeatureModelModel{},
	}
}

// BeforeCreate hooks for UUID generation
func (u *UserModel) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (p *WeeklyPlanModel) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (m *DailyMealModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (l *GenerationLogModel) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

func (m *AIModelModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (f *AIFeatureModelModel) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// TableName methods
func (UserModel) TableName() string {
	return "users"
}

func (WeeklyPlanModel) TableName() string {
	return "weekly_plans"
}

func (DailyMealModel) TableName() string {
	return "daily_meals"
}

func (GenerationLogModel) TableName() string {
	return "generation_logs"
}

func (AIModelModel) TableName() string {
	return "ai_models"
}

func (AIFeatureModelModel) TableName() string {
	return "ai_feature_models"
}

package testutils

import (
	"context"
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/ai"
	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/domain/user"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockCompletionClient is a mock implementation of outbound.CompletionClient
type MockCompletionClient struct {
	mock.Mock
	provider ai.ProviderType
}

// NewMockCompletionClient creates a mock client for provider
func NewMockCompletionClient(provider ai.ProviderType) *MockCompletionClient {
	return &MockCompletionClient{provider: provider}
}

func (m *MockCompletionClient) Complete(ctx context.Context, req outbound.CompletionRequest) (*ai.Completion, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ai.Completion), args.Error(1)
}

func (m *MockCompletionClient) Provider() ai.ProviderType {
	return m.provider
}

// MockInvoker is a mock of the single-model invoker used by the fallback chain
type MockInvoker struct {
	mock.Mock
}

func (m *MockInvoker) Invoke(ctx context.Context, prompt string, model ai.GenerationModel) (*ai.Completion, error) {
	args := m.Called(ctx, prompt, model)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ai.Completion), args.Error(1)
}

// MockPlanRepository is a mock implementation of outbound.PlanRepository
type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) ReplaceWeek(ctx context.Context, cmd mealplan.ReplaceWeek) (*mealplan.WeeklyPlan, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mealplan.WeeklyPlan), args.Error(1)
}

func (m *MockPlanRepository) FindWeek(ctx context.Context, userID string, weekStart time.Time) (*mealplan.WeeklyPlan, error) {
	args := m.Called(ctx, userID, weekStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mealplan.WeeklyPlan), args.Error(1)
}

func (m *MockPlanRepository) CountMeals(ctx context.Context, planID uuid.UUID) (int64, error) {
	args := m.Called(ctx, planID)
	return args.Get(0).(int64), args.Error(1)
}

// MockQuotaRepository is a mock implementation of outbound.QuotaRepository
type MockQuotaRepository struct {
	mock.Mock
}

func (m *MockQuotaRepository) FindAccount(ctx context.Context, userID string) (*user.QuotaAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.QuotaAccount), args.Error(1)
}

func (m *MockQuotaRepository) DecrementRemaining(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

// MockGenerationLogRepository is a mock implementation of outbound.GenerationLogRepository
type MockGenerationLogRepository struct {
	mock.Mock
}

func (m *MockGenerationLogRepository) Create(ctx context.Context, entry *ai.GenerationLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockGenerationLogRepository) Update(ctx context.Context, entry *ai.GenerationLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockGenerationLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*ai.GenerationLogEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ai.GenerationLogEntry), args.Error(1)
}

func (m *MockGenerationLogRepository) CountSince(ctx context.Context, userID, generationType string, since time.Time, statuses ...ai.GenerationStatus) (int64, error) {
	args := m.Called(ctx, userID, generationType, since, statuses)
	return args.Get(0).(int64), args.Error(1)
}

// MockModelConfigRepository is a mock implementation of outbound.ModelConfigRepository
type MockModelConfigRepository struct {
	mock.Mock
}

func (m *MockModelConfigRepository) FindFeatureMapping(ctx context.Context, feature string) (*ai.FeatureMapping, error) {
	args := m.Called(ctx, feature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ai.FeatureMapping), args.Error(1)
}

func (m *MockModelConfigRepository) FindDefaultModel(ctx context.Context) (*ai.GenerationModel, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ai.GenerationModel), args.Error(1)
}

func (m *MockModelConfigRepository) ListModels(ctx context.Context) ([]ai.GenerationModel, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ai.GenerationModel), args.Error(1)
}

// MockProfileRepository is a mock implementation of outbound.ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) FindProfile(ctx context.Context, userID string) (*mealplan.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mealplan.UserProfile), args.Error(1)
}

// MockGenerationLock is a mock implementation of outbound.GenerationLock
type MockGenerationLock struct {
	mock.Mock
}

func (m *MockGenerationLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	args := m.Called(ctx, key, ttl)
	release, _ := args.Get(0).(func(context.Context) error)
	return release, args.Bool(1), args.Error(2)
}

// MockMealPlanService is a mock implementation of inbound.MealPlanService
type MockMealPlanService struct {
	mock.Mock
}

func (m *MockMealPlanService) GeneratePlan(ctx context.Context, req inbound.GeneratePlanRequest) (*inbound.GeneratePlanResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inbound.GeneratePlanResponse), args.Error(1)
}

var (
	_ inbound.MealPlanService          = (*MockMealPlanService)(nil)
	_ outbound.CompletionClient        = (*MockCompletionClient)(nil)
	_ outbound.PlanRepository          = (*MockPlanRepository)(nil)
	_ outbound.QuotaRepository         = (*MockQuotaRepository)(nil)
	_ outbound.GenerationLogRepository = (*MockGenerationLogRepository)(nil)
	_ outbound.ModelConfigRepository   = (*MockModelConfigRepository)(nil)
	_ outbound.ProfileRepository       = (*MockProfileRepository)(nil)
	_ outbound.GenerationLock          = (*MockGenerationLock)(nil)
)

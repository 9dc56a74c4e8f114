package mealplan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	aiapp "github.com/alchemorsel/mealplan/internal/application/ai"
	"github.com/alchemorsel/mealplan/internal/domain/ai"
	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/infrastructure/monitoring"
	gormRepo "github.com/alchemorsel/mealplan/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/mealplan/internal/infrastructure/security"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	apperrors "github.com/alchemorsel/mealplan/pkg/errors"
	"github.com/alchemorsel/mealplan/test/testutils"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

// ServiceTestSuite runs the whole pipeline against sqlite repositories with
// a mocked model invoker
type ServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	db       *gorm.DB
	users    *gormRepo.UserRepository
	plans    *gormRepo.PlanRepository
	lock     *memory.GenerationLock
	invoker  *testutils.MockInvoker
	metrics  *monitoring.MetricsCollector
	service  *Service
	plansDB  *testutils.PlanAssertions
	userID   string
	profile  *inbound.ProfileInput
	now      time.Time
	weekDate string
}

func (s *ServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = testutils.NewSQLiteDB(s.T())
	s.users = gormRepo.NewUserRepository(s.db)
	s.plans = gormRepo.NewPlanRepository(s.db, true)
	s.lock = memory.NewGenerationLock()
	s.invoker = new(testutils.MockInvoker)
	s.metrics = monitoring.NewMetricsCollector(zap.NewNop())
	s.plansDB = testutils.NewPlanAssertions(s.T(), s.db)

	s.service = s.newService(s.plans, s.lock)

	s.now = time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	s.weekDate = "2024-01-06"
	s.service.now = func() time.Time { return s.now }

	builder := testutils.NewProfileBuilder().
		WithBiometrics(30, mealplan.GenderMale, 180, 80).
		WithActivity(mealplan.ActivityModeratelyActive, mealplan.GoalMaintenance).
		WithAllergies("peanuts")
	userModel := builder.BuildUserModel("free", 3)
	s.Require().NoError(s.users.Create(s.ctx, userModel))
	s.userID = userModel.ID.String()
	s.profile = builder.BuildInput()
}

func (s *ServiceTestSuite) newService(plans outbound.PlanRepository, lock outbound.GenerationLock) *Service {
	logger := zaptest.NewLogger(s.T())
	ledger := aiapp.NewQuotaLedger(aiapp.QuotaConfig{DailyCap: 10, GenerationType: ai.FeatureMealPlan},
		s.users, gormRepo.NewGenerationLogRepository(s.db), s.metrics, logger)
	router := aiapp.NewModelRouter(gormRepo.NewModelConfigRepository(s.db), logger)

	svc := NewService(DefaultConfig(), router, s.invoker, ledger, plans, lock,
		security.NewValidationService(logger), s.metrics, logger)
	svc.now = func() time.Time { return s.now }
	return svc
}

func (s *ServiceTestSuite) respondWith(content string) {
	s.invoker.On("Invoke", mock.Anything, mock.Anything, mock.Anything).
		Return(&ai.Completion{Content: content, Model: ai.FallbackModelID, FinishReason: ai.FinishReasonStop}, nil)
}

func (s *ServiceTestSuite) remaining() int {
	account, err := s.users.FindAccount(s.ctx, s.userID)
	s.Require().NoError(err)
	return account.Remaining
}

func (s *ServiceTestSuite) logStatuses() []string {
	var statuses []string
	s.Require().NoError(s.db.Model(&gormRepo.GenerationLogModel{}).
		Where("user_id = ?", s.userID).Order("created_at").Pluck("status", &statuses).Error)
	return statuses
}

func (s *ServiceTestSuite) TestGeneratePlan() {
	s.Run("ThreeMeals_ShouldPersistFullWeek", func() {
		s.SetupTest()
		s.respondWith(testutils.NewMealResponseBuilder(mealplan.ScheduleFor(false)).Build())

		resp, err := s.service.GeneratePlan(s.ctx, testutils.NewGenerateRequest(s.profile, false))

		s.Require().NoError(err)
		s.True(resp.Success)
		s.Equal(21, resp.TotalMeals)
		s.Equal(3, resp.MealsPerDay)
		s.Equal(s.weekDate, resp.WeekStartDate)
		s.Equal(ai.FallbackModelID, resp.AIModel)
		s.Equal(2873, resp.DailyCalories)
		s.Equal(mealplan.NutritionalTotals{Calories: 1500, Protein: 90, Carbs: 150, Fat: 45}, resp.NutritionalTotals)
		s.False(resp.LowConfidence)
		s.Empty(resp.Warnings)

		planID := uuid.MustParse(resp.WeeklyPlanID)
		s.plansDB.FullWeek(planID, mealplan.ScheduleFor(false))
		s.plansDB.PlanCount(s.userID, 1)
		s.Equal(2, s.remaining())
		s.Equal([]string{"completed"}, s.logStatuses())
		count, err := testutil.GatherAndCount(s.metrics.Registry(), "meal_plan_generations_total")
		s.Require().NoError(err)
		s.Equal(1, count)
	})

	s.Run("Snacks_ShouldPersist35Meals", func() {
		s.SetupTest()
		s.respondWith(testutils.NewMealResponseBuilder(mealplan.ScheduleFor(true)).Build())

		resp, err := s.service.GeneratePlan(s.ctx, testutils.NewGenerateRequest(s.profile, true))

		s.Require().NoError(err)
		s.Equal(35, resp.TotalMeals)
		s.Equal(5, resp.MealsPerDay)
		s.plansDB.FullWeek(uuid.MustParse(resp.WeeklyPlanID), mealplan.ScheduleFor(true))
	})

	s.Run("Regenerate_ShouldReplaceSameWeek", func() {
		s.SetupTest()
		s.respondWith(testutils.NewMealResponseBuilder(mealplan.ScheduleFor(false)).Build())
		req := testutils.NewGenerateRequest(s.profile, false)

		first, err := s.service.GeneratePlan(s.ctx, req)
		s.Require().NoError(err)
		second, err := s.service.GeneratePlan(s.ctx, req)
		s.Require().NoError(err)

		s.Equal(first.WeeklyPlanID, second.WeeklyPlanID)
		s.plansDB.PlanCount(s.userID, 1)
		s.plansDB.MealCount(uuid.MustParse(second.WeeklyPlanID), 21)
		s.Equal(1, s.remaining())
	})

	s.Run("WeekOffset_ShouldTargetLaterWeek", func() {
		s.SetupTest()
		s.respondWith(testutils.NewMealResponseBuilder(mealplan.ScheduleFor(false)).Build())
		req := testutils.NewGenerateRequest(s.profile, false)
		offset := 1
		req.WeekOffset = &offset

		resp, err := s.service.GeneratePlan(s.ctx, req)

		s.Require().NoError(err)
		s.Equal("2024-01-13", resp.WeekStartDate)
	})

	s.Run("PartialResponse_ShouldBeLowConfidence", func() {
		s.SetupTest()
		s.respondWith(testutils.NewMealResponseBuilder(mealplan.ScheduleFor(false)).WithDays(4).Build())

		resp, err := s.service.GeneratePlan(s.ctx, testutils.NewGenerateRequest(s.profile, false))

		s.Require().NoError(err)
		s.Equal(12, resp.TotalMeals)
		s.True(resp.LowConfidence)
		s.plansDB.MealCount(uuid.MustParse(resp.WeeklyPlanID), 12)
	})
}

func (s *ServiceTestSuite) TestRejections() {
	s.Run("NoProfile_ShouldBeInvalidProfile", func() {
		s.SetupTest()

		_, err := s.service.GeneratePlan(s.ctx, inbound.GeneratePlanRequest{
			Preferences: &inbound.PreferencesInput{},
		})

		s.True(apperrors.Is(err, apperrors.CodeInvalidProfile), "got %v", err)
		s.invoker.AssertNotCalled(s.T(), "Invoke", mock.Anything, mock.Anything, mock.Anything)
	})

	s.Run("MissingPreferences_ShouldBeValidationFailed", func() {
		s.SetupTest()

		_, err := s.service.GeneratePlan(s.ctx, inbound.GeneratePlanRequest{UserProfile: s.profile})

		s.True(apperrors.Is(err, apperrors.CodeValidationFailed), "got %v", err)
	})

	s.Run("MissingBiometrics_ShouldListFields", func() {
		s.SetupTest()
		s.profile.Age = 0
		s.profile.WeightKG = 0

		_, err := s.service.GeneratePlan(s.ctx, testutils.NewGenerateRequest(s.profile, false))

		var appErr *apperrors.AppError
		s.Require().True(errors.As(err, &appErr))
		s.Equal(apperrors.CodeInvalidProfile, appErr.Code)
		s.Equal([]string{"age", "weight_kg"}, appErr.Metadata["fields"])
		s.Empty(s.logStatuses())
	})

	s.Run("PromptInjection_ShouldBeValidationFailed", func() {
		s.SetupTest()
		s.profile.Allergies = []string{"<script>alert(1)</script>"}

		_, err := s.service.GeneratePlan(s.ctx, testutils.NewGenerateRequest(s.profile, false))

		s.True(apperrors.Is(err, apperrors.CodeValidationFailed), "got %v", err)
		s.invoker.AssertNotCalled(s.T(), "Invoke", mock.Anything, mock.Anything, mock.Anything)
	})

	s.Run("NoCredits_ShouldBeRateLimited", func() {
		s.SetupTest()
		s.Require().NoError(s.db.Model(&gormRepo.UserModel{}).
			Where("id = ?", s.userID).Update("ai_generations_remaining", 0).Error)

		_, err := s.service.GeneratePlan(s.ctx, testutils.NewGenerateRequest(s.profile, false))

		s.True(apperrors.Is(err, apperrors.CodeRateLimitExceeded), "got %v", err)
		s.Equal([]string{"failed"}, s.logStatuses())
		s.invoker.AssertNotCalled(s.T(), "Invoke", mock.Anything, mock.Anything, mock.Anything)
	})

	s.Run("LockHeld_ShouldBeInProgress", func() {
		s.SetupTest()
		release, acquired, err := s.lock.Acquire(s.ctx, lockKey(s.userID, s.weekDate), time.Minute)
		s.Require().NoError(err)
		s.Require().True(acquired)
		defer release(s.ctx)

		_, err = s.service.GeneratePlan(s.ctx, testutils.NewGenerateRequest(s.profile, false))

		s.True(apperrors.Is(err, apperrors.CodeGenerationInProgress), "got %v", err)
		s.Empty(s.logStatuses())
		s.Equal(3, s.remaining())
	})

	s.Run("LockReleasedAfterRun", func() {
		s.SetupTest()
		s.respondWith(testutils.NewMealResponseBuilder(mealplan.ScheduleFor(false)).Build())

		_, err := s.service.GeneratePlan(s.ctx, testutils.NewGenerateRequest(s.profile, false))

		s.Require().NoError(err)
		s.False(s.lock.Held(lockKey(s.userID, s.weekDate)))
	})

	s.Run("LockUnavailable_ShouldContinue", func() {
		s.SetupTest()
		lock := new(testutils.MockGenerationLock)
		lock.On("Acquire", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, false, errors.New("dial tcp: connection refused"))
		svc := s.newService(s.plans, lock)
		s.respondWith(testutils.NewMealResponseBuilder(mealplan.ScheduleFor(false)).Build())

		resp, err := svc.GeneratePlan(s.ctx, testutils.NewGenerateRequest(s.profile, false))

		s.Require().NoError(err)
		s.Equal(21, resp.TotalMeals)
	})
}

func (s *ServiceTestSuite) TestQuotaSerialization() {
	s.Run("QuotaLockHeld_ShouldBeInProgress", func() {
		s.SetupTest()
		s.service.config.QuotaLockWait = 60 * time.Millisecond
		release, acquired, err := s.lock.Acquire(s.ctx, quotaLockKey(s.userID), time.Minute)
		s.Require().NoError(err)
		s.Require().True(acquired)
		defer release(s.ctx)

		_, err = s.service.GeneratePlan(s.ctx, testutils.NewGenerateRequest(s.profile, false))

		s.True(apperrors.Is(err, apperrors.CodeGenerationInProgress), "got %v", err)
		s.Empty(s.logStatuses())
		s.invoker.AssertNotCalled(s.T(), "Invoke", mock.Anything, mock.Anything, mock.Anything)
	})

	s.Run("QuotaLockFreeDuringModelCall", func() {
		s.SetupTest()
		var heldDuringCall bool
		s.invoker.On("Invoke", mock.Anything, mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { heldDuringCall = s.lock.Held(quotaLockKey(s.userID)) }).
			Return(&ai.Completion{
				Content:      testutils.NewMealResponseBuilder(mealplan.ScheduleFor(false)).Build(),
				Model:        ai.FallbackModelID,
				FinishReason: ai.FinishReasonStop,
			}, nil)

		_, err := s.service.GeneratePlan(s.ctx, testutils.NewGenerateRequest(s.profile, false))

		s.Require().NoError(err)
		s.False(heldDuringCall)
		s.False(s.lock.Held(quotaLockKey(s.userID)))
	})

	s.Run("ConcurrentWeeksAtCap_ShouldAdmitOne", func() {
		s.SetupTest()
		logs := gormRepo.NewGenerationLogRepository(s.db)
		for i := 0; i < 9; i++ {
			entry := ai.NewGenerationLogEntry(s.userID, ai.FeatureMealPlan, nil)
			s.Require().NoError(logs.Create(s.ctx, entry))
			s.Require().NoError(entry.Complete(nil))
			s.Require().NoError(logs.Update(s.ctx, entry))
		}
		s.respondWith(testutils.NewMealResponseBuilder(mealplan.ScheduleFor(false)).Build())

		errs := make([]error, 2)
		var wg sync.WaitGroup
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				req := testutils.NewGenerateRequest(s.profile, false)
				offset := i
				req.WeekOffset = &offset
				_, errs[i] = s.service.GeneratePlan(s.ctx, req)
			}(i)
		}
		wg.Wait()

		var succeeded, capped int
		for _, err := range errs {
			switch {
			case err == nil:
				succeeded++
			case apperrors.Is(err, apperrors.CodeRateLimitExceeded):
				capped++
			default:
				s.Failf("unexpected error", "%v", err)
			}
		}
		s.Equal(1, succeeded)
		s.Equal(1, capped)
		s.Equal(2, s.remaining())
	})
}

func (s *ServiceTestSuite) TestFailures() {
	s.Run("MalformedResponse_ShouldNotCharge", func() {
		s.SetupTest()
		s.respondWith("Sorry, I cannot help with that.")

		_, err := s.service.GeneratePlan(s.ctx, testutils.NewGenerateRequest(s.profile, false))

		s.True(apperrors.Is(err, apperrors.CodeAIResponseInvalid), "got %v", err)
		s.invoker.AssertNumberOfCalls(s.T(), "Invoke", 1)
		s.Equal([]string{"failed"}, s.logStatuses())
		s.Equal(3, s.remaining())
		s.plansDB.PlanCount(s.userID, 0)
	})

	s.Run("MissingMealsKey_ShouldBeResponseInvalid", func() {
		s.SetupTest()
		s.respondWith(`{"plan": []}`)

		_, err := s.service.GeneratePlan(s.ctx, testutils.NewGenerateRequest(s.profile, false))

		s.True(apperrors.Is(err, apperrors.CodeAIResponseInvalid), "got %v", err)
	})

	s.Run("BothModelsFail_ShouldBeGenerationFailed", func() {
		s.SetupTest()
		s.invoker.On("Invoke", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &aiapp.InvocationError{Kind: aiapp.FailureTimeout, Model: ai.FallbackModelID, Err: context.DeadlineExceeded})

		_, err := s.service.GeneratePlan(s.ctx, testutils.NewGenerateRequest(s.profile, false))

		s.True(apperrors.Is(err, apperrors.CodeAIGenerationFailed), "got %v", err)
		s.invoker.AssertNumberOfCalls(s.T(), "Invoke", 2)
		s.Equal([]string{"failed"}, s.logStatuses())
		s.Equal(3, s.remaining())
	})

	s.Run("CallerLeft_ShouldNotPersist", func() {
		s.SetupTest()
		ctx, cancel := context.WithCancel(s.ctx)
		defer cancel()
		s.invoker.On("Invoke", mock.Anything, mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { cancel() }).
			Return(&ai.Completion{Content: testutils.NewMealResponseBuilder(mealplan.ScheduleFor(false)).Build()}, nil)

		_, err := s.service.GeneratePlan(ctx, testutils.NewGenerateRequest(s.profile, false))

		s.True(apperrors.Is(err, apperrors.CodeUnknown), "got %v", err)
		s.plansDB.PlanCount(s.userID, 0)
		s.Equal([]string{"failed"}, s.logStatuses())
		s.Equal(3, s.remaining())
	})

	s.Run("MealsLost_ShouldBePlanEmpty", func() {
		s.SetupTest()
		plans := new(testutils.MockPlanRepository)
		planID := uuid.New()
		plans.On("ReplaceWeek", mock.Anything, mock.AnythingOfType("mealplan.ReplaceWeek")).
			Return(nil, &outbound.ReplaceError{
				Stage:        outbound.ReplaceStageInsert,
				PlanID:       planID,
				MealsDeleted: true,
				Err:          errors.New("disk full"),
			})
		svc := s.newService(plans, s.lock)
		s.respondWith(testutils.NewMealResponseBuilder(mealplan.ScheduleFor(false)).Build())

		_, err := svc.GeneratePlan(s.ctx, testutils.NewGenerateRequest(s.profile, false))

		var appErr *apperrors.AppError
		s.Require().True(errors.As(err, &appErr))
		s.Equal(apperrors.CodePlanEmpty, appErr.Code)
		s.Equal([]string{"failed"}, s.logStatuses())
		s.Equal(3, s.remaining())
	})

	s.Run("RolledBack_ShouldBeDatabaseError", func() {
		s.SetupTest()
		plans := new(testutils.MockPlanRepository)
		plans.On("ReplaceWeek", mock.Anything, mock.Anything).
			Return(nil, &outbound.ReplaceError{Stage: outbound.ReplaceStageUpsert, Err: errors.New("database is locked")})
		svc := s.newService(plans, s.lock)
		s.respondWith(testutils.NewMealResponseBuilder(mealplan.ScheduleFor(false)).Build())

		_, err := svc.GeneratePlan(s.ctx, testutils.NewGenerateRequest(s.profile, false))

		s.True(apperrors.Is(err, apperrors.CodeDatabaseError), "got %v", err)
	})
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func TestLockKey(t *testing.T) {
	assert.Equal(t, "mealplan:generate:u-1:2024-01-06", lockKey("u-1", "2024-01-06"))
	assert.Equal(t, "mealplan:quota:u-1", quotaLockKey("u-1"))
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(Config{}, nil, nil, nil, nil, nil, nil, nil, zap.NewNop())

	assert.Equal(t, DefaultConfig().LockTTL, svc.config.LockTTL)
	assert.Equal(t, DefaultConfig().QuotaLockWait, svc.config.QuotaLockWait)
	assert.NotNil(t, svc.now)
}

func TestPersistenceAppError(t *testing.T) {
	planID := uuid.New()
	tests := []struct {
		name string
		err  error
		want apperrors.ErrorCode
	}{
		{"UpsertAfterDelete", &outbound.ReplaceError{Stage: outbound.ReplaceStageUpsert, PlanID: planID, MealsDeleted: true, Err: errors.New("boom")}, apperrors.CodePlanEmpty},
		{"InsertAfterDelete", &outbound.ReplaceError{Stage: outbound.ReplaceStageInsert, PlanID: planID, MealsDeleted: true, Err: errors.New("boom")}, apperrors.CodePlanEmpty},
		{"RolledBack", &outbound.ReplaceError{Stage: outbound.ReplaceStageInsert, PlanID: planID, Err: errors.New("boom")}, apperrors.CodeDatabaseError},
		{"Unclassified", errors.New("boom"), apperrors.CodeDatabaseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, persistenceAppError(tt.err).Code)
		})
	}
}

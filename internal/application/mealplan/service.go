package mealplan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	aiapp "github.com/alchemorsel/mealplan/internal/application/ai"
	"github.com/alchemorsel/mealplan/internal/domain/ai"
	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/infrastructure/monitoring"
	"github.com/alchemorsel/mealplan/internal/infrastructure/security"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	apperrors "github.com/alchemorsel/mealplan/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxLogMessageLength = 1000

// Config holds meal plan pipeline settings
type Config struct {
	AnchorWeekday      time.Weekday
	LowConfidenceRatio float64
	LockTTL            time.Duration
	// QuotaLockWait bounds how long a request waits for another request of
	// the same user to finish its quota check.
	QuotaLockWait time.Duration
}

// DefaultConfig returns the pipeline defaults
func DefaultConfig() Config {
	return Config{
		AnchorWeekday:      time.Saturday,
		LowConfidenceRatio: mealplan.DefaultLowConfidenceRatio,
		LockTTL:            5 * time.Minute,
		QuotaLockWait:      2 * time.Second,
	}
}

const (
	quotaLockTTL  = 30 * time.Second
	quotaLockPoll = 25 * time.Millisecond
)

// Service orchestrates one generation request end to end: profile checks,
// quota, prompt, model chain, validation, persistence and audit.
type Service struct {
	config    Config
	router    *aiapp.ModelRouter
	fallback  *ModelFallback
	ledger    *aiapp.QuotaLedger
	plans     outbound.PlanRepository
	lock      outbound.GenerationLock
	compiler  *PromptCompiler
	validator *mealplan.ResponseValidator
	requests  *security.ValidationService
	metrics   *monitoring.MetricsCollector
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates the meal plan service
func NewService(
	config Config,
	router *aiapp.ModelRouter,
	invoker Invoker,
	ledger *aiapp.QuotaLedger,
	plans outbound.PlanRepository,
	lock outbound.GenerationLock,
	requests *security.ValidationService,
	metrics *monitoring.MetricsCollector,
	logger *zap.Logger,
) *Service {
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultConfig().LockTTL
	}
	if config.QuotaLockWait <= 0 {
		config.QuotaLockWait = DefaultConfig().QuotaLockWait
	}
	named := logger.Named("meal-plan-service")
	return &Service{
		config:    config,
		router:    router,
		fallback:  NewModelFallback(invoker, metrics, named),
		ledger:    ledger,
		plans:     plans,
		lock:      lock,
		compiler:  NewPromptCompiler(),
		validator: mealplan.NewResponseValidator(config.LowConfidenceRatio),
		requests:  requests,
		metrics:   metrics,
		logger:    named,
		now:       time.Now,
	}
}

var _ inbound.MealPlanService = (*Service)(nil)

// GeneratePlan generates, validates and persists a 7-day plan
func (s *Service) GeneratePlan(ctx context.Context, req inbound.GeneratePlanRequest) (*inbound.GeneratePlanResponse, error) {
	ctx, span := otel.Tracer("mealplan/service").Start(ctx, "MealPlanService.GeneratePlan")
	defer span.End()

	resp, err := s.generate(ctx, req)
	if err != nil {
		appErr := apperrors.Wrap(err, "meal plan generation failed")
		span.RecordError(appErr)
		span.SetStatus(codes.Error, string(appErr.Code))
		s.metrics.GenerationResult(string(appErr.Code))
		return nil, appErr
	}

	s.metrics.GenerationResult("OK")
	return resp, nil
}

func (s *Service) generate(ctx context.Context, req inbound.GeneratePlanRequest) (*inbound.GeneratePlanResponse, error) {
	profileIn := req.LocateProfile()
	if profileIn == nil {
		return nil, apperrors.NewInvalidProfileError("no profile with a user identifier")
	}
	if req.Preferences == nil {
		return nil, apperrors.NewValidationError("preferences are required")
	}
	if err := s.requests.ValidateStruct(ctx, req); err != nil {
		return nil, err
	}

	profile := s.sanitizeProfile(profileIn.ToDomain())
	prefs := req.Preferences.ToDomain(req.ResolvedWeekOffset())
	prefs.Cuisine = s.requests.SanitizeText(prefs.Cuisine, 64)

	logger := s.logger.With(zap.String("user_id", profile.UserID))
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("user.id", profile.UserID))

	target, err := mealplan.CalculateTarget(profile)
	if err != nil {
		var profileErr *mealplan.ProfileError
		if errors.As(err, &profileErr) {
			return nil, apperrors.NewInvalidProfileError(err.Error()).WithMetadata("fields", profileErr.Fields)
		}
		return nil, apperrors.NewInvalidProfileError(err.Error())
	}

	// The daily cap count and the started entry must not interleave with
	// another request of the same user, whatever week it targets.
	releaseQuota, err := s.holdQuota(ctx, profile.UserID, logger)
	if err != nil {
		return nil, err
	}
	defer releaseQuota()

	decision, err := s.ledger.PreCheck(ctx, profile.UserID)
	if err != nil {
		return nil, err
	}

	weekStart := mealplan.WeekStart(s.now(), s.config.AnchorWeekday, prefs.WeekOffset)
	week := weekStart.Format(mealplan.DateLayout)

	release, acquired, err := s.lock.Acquire(ctx, lockKey(profile.UserID, week), s.config.LockTTL)
	if err != nil {
		logger.Warn("Generation lock unavailable, continuing without it", zap.Error(err))
	} else if !acquired {
		return nil, apperrors.NewGenerationInProgressError(profile.UserID, week)
	} else {
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("Failed to release generation lock", zap.Error(err))
			}
		}()
	}

	schedule := prefs.Schedule()
	prompt := s.compiler.Compile(profile, prefs, target)
	chain := s.router.Resolve(ctx, ai.FeatureMealPlan)

	entry, err := s.ledger.Begin(ctx, profile.UserID, map[string]interface{}{
		"preferences":     prefs,
		"daily_calories":  target.DailyCalories,
		"week_start_date": week,
		"expected_meals":  schedule.ExpectedMeals(),
		"primary_model":   chain.Primary.ModelID,
		"fallback_model":  chain.Fallback.ModelID,
	})
	if err != nil {
		return nil, err
	}
	releaseQuota()

	logger.Info("Generating meal plan",
		zap.String("week_start_date", week),
		zap.Int("daily_calories", target.DailyCalories),
		zap.Int("expected_meals", schedule.ExpectedMeals()),
		zap.String("primary_model", chain.Primary.ModelID))

	result, err := s.fallback.Run(ctx, chain, prompt)
	if err != nil {
		return nil, s.fail(ctx, entry, invocationAppError(err))
	}

	validated, err := s.validator.Validate(result.Completion.Content, schedule)
	if err != nil {
		return nil, s.fail(ctx, entry, apperrors.NewResponseInvalidError(err.Error(), err).
			WithMetadata("model", result.Model.ModelID))
	}
	for _, w := range validated.Warnings {
		logger.Warn("Meal plan normalization", zap.String("warning", w))
	}

	// Nothing has been written yet; a departed caller gets no partial plan.
	if ctx.Err() != nil {
		return nil, s.fail(ctx, entry, apperrors.NewUnknownError(ctx.Err()).WithMetadata("stage", "before_persist"))
	}

	plan, err := s.plans.ReplaceWeek(ctx, mealplan.ReplaceWeek{
		UserID:        profile.UserID,
		WeekStartDate: weekStart,
		Meals:         validated.Meals,
		Preferences:   prefs,
		LifePhase:     profile.LifePhase(),
		AIModel:       result.Model.ModelID,
	})
	if err != nil {
		return nil, s.fail(ctx, entry, persistenceAppError(err))
	}

	s.metrics.PlanPersisted(len(validated.Meals), validated.LowConfidence)

	metadata := map[string]interface{}{
		"weekly_plan_id": plan.ID.String(),
		"model":          result.Model.ModelID,
		"provider":       string(result.Model.Provider),
		"attempts":       result.Attempts,
		"used_fallback":  result.UsedFallback,
		"meal_count":     len(validated.Meals),
		"low_confidence": validated.LowConfidence,
		"finish_reason":  string(result.Completion.FinishReason),
	}
	if len(validated.Warnings) > 0 {
		metadata["warnings"] = validated.Warnings
	}
	if u := result.Completion.Usage; u != nil {
		metadata["prompt_tokens"] = u.PromptTokens
		metadata["completion_tokens"] = u.CompletionTokens
		metadata["total_tokens"] = u.TotalTokens
	}
	if err := s.ledger.Complete(ctx, entry, decision, metadata); err != nil {
		logger.Error("Plan saved but generation log not completed", zap.Error(err))
	}

	logger.Info("Meal plan generated",
		zap.String("weekly_plan_id", plan.ID.String()),
		zap.String("model", result.Model.ModelID),
		zap.Int("meals", len(validated.Meals)),
		zap.Bool("low_confidence", validated.LowConfidence))

	return &inbound.GeneratePlanResponse{
		Success:           true,
		WeeklyPlanID:      plan.ID.String(),
		TotalMeals:        len(validated.Meals),
		MealsPerDay:       schedule.MealsPerDay(),
		WeekStartDate:     week,
		AIModel:           result.Model.ModelID,
		DailyCalories:     target.DailyCalories,
		NutritionalTotals: plan.Totals,
		LowConfidence:     validated.LowConfidence,
		Warnings:          validated.Warnings,
	}, nil
}

// holdQuota takes the per-user quota lock, polling until QuotaLockWait runs
// out. The returned release is safe to call more than once. A lock backend
// error is logged and the request goes on unserialized.
func (s *Service) holdQuota(ctx context.Context, userID string, logger *zap.Logger) (func(), error) {
	key := quotaLockKey(userID)
	deadline := time.Now().Add(s.config.QuotaLockWait)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, apperrors.NewUnknownError(ctx.Err()).WithMetadata("stage", "quota_lock")
		case <-timer.C:
		}

		release, acquired, err := s.lock.Acquire(ctx, key, quotaLockTTL)
		if err != nil {
			logger.Warn("Quota lock unavailable, continuing without it", zap.Error(err))
			return func() {}, nil
		}
		if acquired {
			var once sync.Once
			return func() {
				once.Do(func() {
					if err := release(context.WithoutCancel(ctx)); err != nil {
						logger.Warn("Failed to release quota lock", zap.Error(err))
					}
				})
			}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, apperrors.NewAppError(
				apperrors.CodeGenerationInProgress,
				"A meal plan is already being generated",
				"another request of this user is checking its quota",
			).WithMetadata("user_id", userID)
		}
		timer.Reset(quotaLockPoll)
	}
}

// fail finalizes the log entry and returns appErr
func (s *Service) fail(ctx context.Context, entry *ai.GenerationLogEntry, appErr *apperrors.AppError) error {
	msg := string(appErr.Code)
	if appErr.Cause != nil {
		msg = fmt.Sprintf("%s: %v", appErr.Code, appErr.Cause)
	}
	if len(msg) > maxLogMessageLength {
		msg = msg[:maxLogMessageLength]
	}
	s.ledger.Fail(ctx, entry, msg)

	s.logger.Warn("Meal plan generation failed",
		zap.String("code", string(appErr.Code)),
		zap.Bool("retryable", appErr.Retryable()),
		zap.Error(appErr.Cause))
	return appErr
}

func (s *Service) sanitizeProfile(p mealplan.UserProfile) mealplan.UserProfile {
	p.Nationality = s.requests.SanitizeText(p.Nationality, 64)
	p.FastingType = s.requests.SanitizeText(p.FastingType, 64)
	p.DietaryRestrictions = s.requests.SanitizeList(p.DietaryRestrictions, 100)
	p.Allergies = s.requests.SanitizeList(p.Allergies, 100)
	p.HealthConditions = s.requests.SanitizeList(p.HealthConditions, 100)
	return p
}

func invocationAppError(err error) *apperrors.AppError {
	var fbErr *FallbackError
	if !errors.As(err, &fbErr) {
		return apperrors.NewUnknownError(err)
	}

	var last *apperrors.AppError
	var invErr *aiapp.InvocationError
	if errors.As(fbErr.Last, &invErr) {
		last = invErr.AppError()
	} else {
		last = apperrors.NewUnknownError(fbErr.Last)
	}

	if fbErr.Exhausted() {
		return apperrors.NewGenerationFailedError(last)
	}
	return last
}

func persistenceAppError(err error) *apperrors.AppError {
	var replaceErr *outbound.ReplaceError
	if errors.As(err, &replaceErr) {
		if replaceErr.MealsDeleted {
			return apperrors.NewPlanEmptyError(replaceErr.PlanID.String(), err)
		}
		return apperrors.NewDatabaseError(fmt.Sprintf("replace meal plan (%s)", replaceErr.Stage), err)
	}
	return apperrors.NewDatabaseError("replace meal plan", err)
}

func lockKey(userID, week string) string {
	return fmt.Sprintf("mealplan:generate:%s:%s", userID, week)
}

func quotaLockKey(userID string) string {
	return fmt.Sprintf("mealplan:quota:%s", userID)
}

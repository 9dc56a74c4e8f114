package gorm_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	gormRepo "github.com/alchemorsel/mealplan/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/alchemorsel/mealplan/test/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

var errDiskFull = errors.New("disk full")

// PlanRepositoryTestSuite covers the week replace against sqlite
type PlanRepositoryTestSuite struct {
	suite.Suite
	ctx       context.Context
	db        *gorm.DB
	failMeals atomic.Bool
	failPlans atomic.Bool
	week      time.Time
	userID    string
	plans     *testutils.PlanAssertions
}

func (s *PlanRepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = testutils.NewSQLiteDB(s.T())
	s.week = time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)
	s.userID = uuid.NewString()
	s.plans = testutils.NewPlanAssertions(s.T(), s.db)

	s.failMeals.Store(false)
	s.failPlans.Store(false)
	s.Require().NoError(s.db.Callback().Create().Before("gorm:create").Register("test:fail_writes", func(tx *gorm.DB) {
		switch {
		case s.failMeals.Load() && tx.Statement.Table == "daily_meals",
			s.failPlans.Load() && tx.Statement.Table == "weekly_plans":
			_ = tx.AddError(errDiskFull)
		}
	}))
}

func (s *PlanRepositoryTestSuite) command(schedule mealplan.Schedule, calories float64) mealplan.ReplaceWeek {
	return mealplan.ReplaceWeek{
		UserID:        s.userID,
		WeekStartDate: s.week,
		Meals:         testutils.NewMealResponseBuilder(schedule).WithMacros(calories, 30, 50, 15).ValidatedMeals(),
		Preferences:   mealplan.GenerationPreferences{IncludeSnacks: len(schedule) == 5, Language: "en"},
		LifePhase:     mealplan.LifePhase{FastingType: "ramadan"},
		AIModel:       "gpt-4o-mini",
	}
}

func (s *PlanRepositoryTestSuite) TestReplaceWeek_CreatesPlan() {
	repo := gormRepo.NewPlanRepository(s.db, true)

	plan, err := repo.ReplaceWeek(s.ctx, s.command(mealplan.ScheduleFor(false), 600))

	s.Require().NoError(err)
	s.NotEqual(uuid.Nil, plan.ID)
	s.Equal(s.userID, plan.UserID)
	s.Equal("2024-01-06", plan.WeekStartDate.Format(mealplan.DateLayout))
	s.Equal(21, plan.MealCount)
	s.Equal(mealplan.NutritionalTotals{Calories: 1800, Protein: 90, Carbs: 150, Fat: 45}, plan.Totals)
	s.Equal("ramadan", plan.LifePhase.FastingType)
	s.plans.FullWeek(plan.ID, mealplan.ScheduleFor(false))

	stored, err := repo.FindWeek(s.ctx, s.userID, s.week.Add(15*time.Hour))
	s.Require().NoError(err)
	s.Equal(plan.ID, stored.ID)
	s.Equal(21, stored.MealCount)
	s.Equal("gpt-4o-mini", stored.AIModel)
	s.Equal("en", stored.Preferences.Language)
}

func (s *PlanRepositoryTestSuite) TestReplaceWeek_IsIdempotentPerWeek() {
	repo := gormRepo.NewPlanRepository(s.db, true)

	first, err := repo.ReplaceWeek(s.ctx, s.command(mealplan.ScheduleFor(true), 400))
	s.Require().NoError(err)
	second, err := repo.ReplaceWeek(s.ctx, s.command(mealplan.ScheduleFor(false), 700))
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	s.Equal(first.CreatedAt.Unix(), second.CreatedAt.Unix())
	s.plans.PlanCount(s.userID, 1)
	s.plans.MealCount(second.ID, 21)
	s.Equal(2100.0, second.Totals.Calories)

	meals, err := repo.ListMeals(s.ctx, second.ID)
	s.Require().NoError(err)
	s.Equal(1, meals[0].DayNumber)
	s.Equal("breakfast", meals[0].MealType)
	s.Equal("lunch", meals[1].MealType)
	s.Equal("dinner", meals[2].MealType)
	s.Equal(7, meals[len(meals)-1].DayNumber)
}

func (s *PlanRepositoryTestSuite) TestReplaceWeek_OtherWeeksUntouched() {
	repo := gormRepo.NewPlanRepository(s.db, true)

	this, err := repo.ReplaceWeek(s.ctx, s.command(mealplan.ScheduleFor(false), 500))
	s.Require().NoError(err)

	next := s.command(mealplan.ScheduleFor(false), 500)
	next.WeekStartDate = s.week.AddDate(0, 0, 7)
	other, err := repo.ReplaceWeek(s.ctx, next)
	s.Require().NoError(err)

	s.NotEqual(this.ID, other.ID)
	s.plans.PlanCount(s.userID, 2)
	s.plans.MealCount(this.ID, 21)
}

func (s *PlanRepositoryTestSuite) TestReplaceWeek_AtomicRollbackKeepsOldMeals() {
	repo := gormRepo.NewPlanRepository(s.db, true)
	first, err := repo.ReplaceWeek(s.ctx, s.command(mealplan.ScheduleFor(false), 500))
	s.Require().NoError(err)

	s.failMeals.Store(true)
	_, err = repo.ReplaceWeek(s.ctx, s.command(mealplan.ScheduleFor(false), 900))

	var replaceErr *outbound.ReplaceError
	s.Require().True(errors.As(err, &replaceErr), "got %v", err)
	s.Equal(outbound.ReplaceStageInsert, replaceErr.Stage)
	s.False(replaceErr.MealsDeleted)
	s.ErrorIs(err, errDiskFull)

	s.plans.MealCount(first.ID, 21)
	stored, err := repo.FindWeek(s.ctx, s.userID, s.week)
	s.Require().NoError(err)
	s.Equal(1500.0, stored.Totals.Calories)
}

func (s *PlanRepositoryTestSuite) TestReplaceWeek_NonAtomicFailureLeavesPlanEmpty() {
	repo := gormRepo.NewPlanRepository(s.db, false)
	first, err := repo.ReplaceWeek(s.ctx, s.command(mealplan.ScheduleFor(false), 500))
	s.Require().NoError(err)

	s.failMeals.Store(true)
	_, err = repo.ReplaceWeek(s.ctx, s.command(mealplan.ScheduleFor(false), 900))

	var replaceErr *outbound.ReplaceError
	s.Require().True(errors.As(err, &replaceErr), "got %v", err)
	s.True(replaceErr.MealsDeleted)
	s.Equal(first.ID, replaceErr.PlanID)

	count, err := repo.CountMeals(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *PlanRepositoryTestSuite) TestReplaceWeek_NonAtomicUpsertFailureLeavesPlanEmpty() {
	repo := gormRepo.NewPlanRepository(s.db, false)
	first, err := repo.ReplaceWeek(s.ctx, s.command(mealplan.ScheduleFor(false), 500))
	s.Require().NoError(err)

	s.failPlans.Store(true)
	_, err = repo.ReplaceWeek(s.ctx, s.command(mealplan.ScheduleFor(false), 900))

	var replaceErr *outbound.ReplaceError
	s.Require().True(errors.As(err, &replaceErr), "got %v", err)
	s.Equal(outbound.ReplaceStageUpsert, replaceErr.Stage)
	s.True(replaceErr.MealsDeleted)
	s.Equal(first.ID, replaceErr.PlanID)
	s.ErrorIs(err, errDiskFull)

	s.plans.MealCount(first.ID, 0)
}

func (s *PlanRepositoryTestSuite) TestReplaceWeek_UpsertFailureWithoutMealsDeleted() {
	s.Run("NewWeek", func() {
		s.SetupTest()
		s.failPlans.Store(true)

		_, err := gormRepo.NewPlanRepository(s.db, false).
			ReplaceWeek(s.ctx, s.command(mealplan.ScheduleFor(false), 500))

		var replaceErr *outbound.ReplaceError
		s.Require().True(errors.As(err, &replaceErr), "got %v", err)
		s.Equal(outbound.ReplaceStageUpsert, replaceErr.Stage)
		s.False(replaceErr.MealsDeleted)
		s.plans.PlanCount(s.userID, 0)
	})

	s.Run("AtomicRollback", func() {
		s.SetupTest()
		repo := gormRepo.NewPlanRepository(s.db, true)
		first, err := repo.ReplaceWeek(s.ctx, s.command(mealplan.ScheduleFor(false), 500))
		s.Require().NoError(err)

		s.failPlans.Store(true)
		_, err = repo.ReplaceWeek(s.ctx, s.command(mealplan.ScheduleFor(false), 900))

		var replaceErr *outbound.ReplaceError
		s.Require().True(errors.As(err, &replaceErr), "got %v", err)
		s.False(replaceErr.MealsDeleted)
		s.plans.MealCount(first.ID, 21)
	})
}

func (s *PlanRepositoryTestSuite) TestReplaceWeek_NoMeals() {
	repo := gormRepo.NewPlanRepository(s.db, true)
	cmd := s.command(mealplan.ScheduleFor(false), 500)
	cmd.Meals = nil

	plan, err := repo.ReplaceWeek(s.ctx, cmd)

	s.Require().NoError(err)
	s.Equal(0, plan.MealCount)
	s.Equal(mealplan.NutritionalTotals{}, plan.Totals)
}

func (s *PlanRepositoryTestSuite) TestFindWeek_NotFound() {
	_, err := gormRepo.NewPlanRepository(s.db, true).FindWeek(s.ctx, s.userID, s.week)

	s.ErrorIs(err, outbound.ErrNotFound)
}

func TestPlanRepositorySuite(t *testing.T) {
	suite.Run(t, new(PlanRepositoryTestSuite))
}

// TestPlanRepository_Postgres runs the replace against the schema created
// by the SQL migrations
func TestPlanRepository_Postgres(t *testing.T) {
	db := testutils.SetupPostgres(t)
	ctx := context.Background()
	repo := gormRepo.NewPlanRepository(db, true)
	users := gormRepo.NewUserRepository(db)

	account := testutils.NewProfileBuilder().BuildUserModel("free", 5)
	require.NoError(t, users.Create(ctx, account))

	cmd := mealplan.ReplaceWeek{
		UserID:        account.ID.String(),
		WeekStartDate: time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC),
		Meals:         testutils.NewMealResponseBuilder(mealplan.ScheduleFor(true)).ValidatedMeals(),
		AIModel:       "llama3.1:8b",
	}

	first, err := repo.ReplaceWeek(ctx, cmd)
	require.NoError(t, err)
	second, err := repo.ReplaceWeek(ctx, cmd)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	plans := testutils.NewPlanAssertions(t, db)
	plans.PlanCount(account.ID.String(), 1)
	plans.FullWeek(second.ID, mealplan.ScheduleFor(true))

	ok, err := users.DecrementRemaining(ctx, account.ID.String())
	require.NoError(t, err)
	assert.True(t, ok)
}

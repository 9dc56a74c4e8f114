package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	gormRepo "github.com/alchemorsel/mealplan/internal/infrastructure/persistence/gorm"
	apperrors "github.com/alchemorsel/mealplan/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// HTTPAssertions provides HTTP-specific assertion methods
type HTTPAssertions struct {
	t *testing.T
}

// NewHTTPAssertions creates a new HTTP assertions helper
func NewHTTPAssertions(t *testing.T) *HTTPAssertions {
	return &HTTPAssertions{t: t}
}

// JSONResponse asserts the status and JSON content type and decodes the body
func (ha *HTTPAssertions) JSONResponse(rec *httptest.ResponseRecorder, expectedCode int, target interface{}) {
	ha.t.Helper()
	require.NotNil(ha.t, rec, "Response should not be nil")
	assert.Equal(ha.t, expectedCode, rec.Code, "unexpected status, body: %s", rec.Body.String())

	contentType := rec.Header().Get("Content-Type")
	assert.True(ha.t, strings.Contains(contentType, "application/json"),
		"Response should have JSON content type, got: %s", contentType)

	require.NoError(ha.t, json.Unmarshal(rec.Body.Bytes(), target), "Response should be valid JSON")
}

// ErrorResponse asserts a failure body with the given code and status
func (ha *HTTPAssertions) ErrorResponse(rec *httptest.ResponseRecorder, expectedCode apperrors.ErrorCode, expectedStatus int) apperrors.ErrorResponse {
	ha.t.Helper()

	var body apperrors.ErrorResponse
	ha.JSONResponse(rec, expectedStatus, &body)
	assert.False(ha.t, body.Success)
	assert.Equal(ha.t, expectedCode, body.Code)
	assert.Equal(ha.t, expectedStatus, body.StatusCode)
	assert.NotEmpty(ha.t, body.Error)
	return body
}

// SecurityHeaders asserts that security headers are present
func (ha *HTTPAssertions) SecurityHeaders(header http.Header) {
	ha.t.Helper()

	for _, name := range []string{
		"X-Content-Type-Options",
		"X-Frame-Options",
		"Referrer-Policy",
		"Content-Security-Policy",
	} {
		assert.NotEmpty(ha.t, header.Get(name), "Security header %s should be present", name)
	}
}

// PlanAssertions checks stored plans
type PlanAssertions struct {
	t  *testing.T
	db *gorm.DB
}

// NewPlanAssertions creates a new plan assertions helper
func NewPlanAssertions(t *testing.T, db *gorm.DB) *PlanAssertions {
	return &PlanAssertions{t: t, db: db}
}

// MealCount asserts how many meals are stored for planID
func (pa *PlanAssertions) MealCount(planID uuid.UUID, expected int) {
	pa.t.Helper()

	var count int64
	require.NoError(pa.t, pa.db.Model(&gormRepo.DailyMealModel{}).
		Where("weekly_plan_id = ?", planID).Count(&count).Error)
	assert.Equal(pa.t, int64(expected), count, "meal rows for plan %s", planID)
}

// PlanCount asserts how many plan headers a user has
func (pa *PlanAssertions) PlanCount(userID string, expected int) {
	pa.t.Helper()

	var count int64
	require.NoError(pa.t, pa.db.Model(&gormRepo.WeeklyPlanModel{}).
		Where("user_id = ?", userID).Count(&count).Error)
	assert.Equal(pa.t, int64(expected), count, "plans for user %s", userID)
}

// FullWeek asserts every day 1..7 holds exactly the schedule's slot counts
func (pa *PlanAssertions) FullWeek(planID uuid.UUID, schedule mealplan.Schedule) {
	pa.t.Helper()

	var rows []gormRepo.DailyMealModel
	require.NoError(pa.t, pa.db.Where("weekly_plan_id = ?", planID).Find(&rows).Error)

	perDay := make(map[int]map[string]int)
	for _, r := range rows {
		if perDay[r.DayNumber] == nil {
			perDay[r.DayNumber] = make(map[string]int)
		}
		perDay[r.DayNumber][r.MealType]++
	}

	want := make(map[string]int)
	for _, slot := range schedule {
		want[string(slot)]++
	}

	assert.Len(pa.t, perDay, mealplan.DaysPerWeek)
	for day := 1; day <= mealplan.DaysPerWeek; day++ {
		assert.Equal(pa.t, want, perDay[day], "day %d", day)
	}
}

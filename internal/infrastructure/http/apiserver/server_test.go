package apiserver_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/infrastructure/config"
	"github.com/alchemorsel/mealplan/internal/infrastructure/http/apiserver"
	"github.com/alchemorsel/mealplan/internal/infrastructure/monitoring"
	"github.com/alchemorsel/mealplan/internal/infrastructure/security"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	apperrors "github.com/alchemorsel/mealplan/pkg/errors"
	"github.com/alchemorsel/mealplan/pkg/healthcheck"
	"github.com/alchemorsel/mealplan/test/testutils"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

const testSecret = "test-secret-key-for-testing-only-32-bytes"

// ServerTestSuite drives the API through its router
type ServerTestSuite struct {
	suite.Suite
	cfg     *config.Config
	service *testutils.MockMealPlanService
	tokens  *security.TokenValidator
	http    *testutils.HTTPAssertions
	handler http.Handler
}

func (s *ServerTestSuite) SetupTest() {
	s.cfg = &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0, MaxBodyBytes: 4 << 10},
		Auth:   config.AuthConfig{Enabled: true, JWTSecret: testSecret, Issuer: "mealplan-test"},
	}
	s.service = new(testutils.MockMealPlanService)
	s.tokens = security.NewTokenValidator(s.cfg, zap.NewNop())
	s.http = testutils.NewHTTPAssertions(s.T())
	s.handler = s.newServer().Handler()
}

func (s *ServerTestSuite) newServer() *apiserver.Server {
	return apiserver.NewServer(s.cfg, zap.NewNop(), s.service, s.tokens,
		healthcheck.New("test", zap.NewNop()), monitoring.NewMetricsCollector(zap.NewNop()))
}

func (s *ServerTestSuite) token(userID string) string {
	token, err := s.tokens.GenerateAccessToken(userID, "cook@example.com", []string{"user"}, time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *ServerTestSuite) generate(body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/meal-plans/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *ServerTestSuite) requestBody(userID string, lang string) string {
	req := map[string]interface{}{
		"userProfile": map[string]interface{}{
			"id": userID, "age": 30, "gender": "male", "height_cm": 180, "weight_kg": 80,
		},
		"preferences": map[string]interface{}{"includeSnacks": true, "language": lang},
	}
	var buf bytes.Buffer
	s.Require().NoError(json.NewEncoder(&buf).Encode(req))
	return buf.String()
}

func (s *ServerTestSuite) TestGeneratePlan() {
	s.Run("Success_ShouldReturnPlan", func() {
		s.SetupTest()
		s.service.On("GeneratePlan", mock.Anything, mock.MatchedBy(func(req inbound.GeneratePlanRequest) bool {
			return req.LocateProfile().Identifier() == "u-1" && req.Preferences.IncludeSnacks
		})).Return(&inbound.GeneratePlanResponse{
			Success:           true,
			WeeklyPlanID:      "plan-1",
			TotalMeals:        35,
			MealsPerDay:       5,
			WeekStartDate:     "2024-01-06",
			AIModel:           "gpt-4o-mini",
			DailyCalories:     2873,
			NutritionalTotals: mealplan.NutritionalTotals{Calories: 2500},
		}, nil).Once()

		rec := s.generate(s.requestBody("u-1", "en"), map[string]string{"Authorization": "Bearer " + s.token("u-1")})

		var resp inbound.GeneratePlanResponse
		s.http.JSONResponse(rec, http.StatusOK, &resp)
		s.True(resp.Success)
		s.Equal("plan-1", resp.WeeklyPlanID)
		s.Equal(35, resp.TotalMeals)
		s.http.SecurityHeaders(rec.Header())
		s.service.AssertExpectations(s.T())
	})

	s.Run("ServiceError_ShouldLocalize", func() {
		s.SetupTest()
		s.service.On("GeneratePlan", mock.Anything, mock.Anything).
			Return(nil, apperrors.NewRateLimitExceededError("credits", 0)).Once()

		rec := s.generate(s.requestBody("u-1", "ar"), map[string]string{"Authorization": "Bearer " + s.token("u-1")})

		body := s.http.ErrorResponse(rec, apperrors.CodeRateLimitExceeded, http.StatusTooManyRequests)
		s.Equal(apperrors.Localize(apperrors.CodeRateLimitExceeded, apperrors.LanguageArabic), body.Error)
		s.False(body.IsRetryable)
		s.NotEmpty(body.RequestID)
	})

	s.Run("AcceptLanguage_ShouldLocalizeEarlyFailures", func() {
		s.SetupTest()

		rec := s.generate(`{"userProfile":`, map[string]string{
			"Authorization":   "Bearer " + s.token("u-1"),
			"Accept-Language": "ar-SA,ar;q=0.9",
		})

		body := s.http.ErrorResponse(rec, apperrors.CodeValidationFailed, http.StatusBadRequest)
		s.Equal(apperrors.Localize(apperrors.CodeValidationFailed, apperrors.LanguageArabic), body.Error)
		s.service.AssertNotCalled(s.T(), "GeneratePlan", mock.Anything, mock.Anything)
	})

	s.Run("BodyTooLarge_ShouldReject", func() {
		s.SetupTest()
		large := `{"userProfile":{"id":"u-1","nationality":"` + strings.Repeat("x", 8<<10) + `"}}`

		rec := s.generate(large, map[string]string{"Authorization": "Bearer " + s.token("u-1")})

		s.http.ErrorResponse(rec, apperrors.CodeValidationFailed, http.StatusBadRequest)
		s.service.AssertNotCalled(s.T(), "GeneratePlan", mock.Anything, mock.Anything)
	})

	s.Run("WrongContentType_ShouldReject", func() {
		s.SetupTest()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/meal-plans/generate", strings.NewReader("age=30"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Authorization", "Bearer "+s.token("u-1"))
		rec := httptest.NewRecorder()

		s.handler.ServeHTTP(rec, req)

		s.http.ErrorResponse(rec, apperrors.CodeValidationFailed, http.StatusBadRequest)
	})
}

func (s *ServerTestSuite) TestAuthentication() {
	tests := []struct {
		name    string
		headers map[string]string
	}{
		{"MissingHeader", nil},
		{"WrongScheme", map[string]string{"Authorization": "Basic dXNlcjpwYXNz"}},
		{"GarbageToken", map[string]string{"Authorization": "Bearer not-a-jwt"}},
	}

	for _, tt := range tests {
		s.Run(tt.name+"_ShouldReturnAuthError", func() {
			s.SetupTest()

			rec := s.generate(s.requestBody("u-1", "en"), tt.headers)

			s.http.ErrorResponse(rec, apperrors.CodeAuthError, http.StatusUnauthorized)
			s.service.AssertNotCalled(s.T(), "GeneratePlan", mock.Anything, mock.Anything)
		})
	}

	s.Run("SubjectMismatch_ShouldReturnAuthError", func() {
		s.SetupTest()

		rec := s.generate(s.requestBody("u-2", "en"), map[string]string{"Authorization": "Bearer " + s.token("u-1")})

		s.http.ErrorResponse(rec, apperrors.CodeAuthError, http.StatusUnauthorized)
		s.service.AssertNotCalled(s.T(), "GeneratePlan", mock.Anything, mock.Anything)
	})

	s.Run("AuthDisabled_ShouldPassThrough", func() {
		s.SetupTest()
		s.cfg.Auth.Enabled = false
		s.handler = s.newServer().Handler()
		s.service.On("GeneratePlan", mock.Anything, mock.Anything).
			Return(&inbound.GeneratePlanResponse{Success: true, TotalMeals: 21}, nil).Once()

		rec := s.generate(s.requestBody("u-1", "en"), nil)

		var resp inbound.GeneratePlanResponse
		s.http.JSONResponse(rec, http.StatusOK, &resp)
		s.Equal(21, resp.TotalMeals)
	})
}

func (s *ServerTestSuite) TestOperationalRoutes() {
	s.Run("Health_ShouldReportHealthy", func() {
		s.SetupTest()
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		var resp healthcheck.Response
		s.http.JSONResponse(rec, http.StatusOK, &resp)
		s.Equal(healthcheck.StatusHealthy, resp.Status)
		s.Equal("test", resp.Version)
	})

	s.Run("OpenAPI_ShouldServeYAML", func() {
		s.SetupTest()
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/openapi.yaml", nil))

		s.Equal(http.StatusOK, rec.Code)
		s.Equal("application/x-yaml", rec.Header().Get("Content-Type"))
		s.Contains(rec.Body.String(), "/meal-plans/generate")
	})

	s.Run("Metrics_ShouldExposeHTTPCounters", func() {
		s.SetupTest()
		s.handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), "http_requests_total")
	})
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

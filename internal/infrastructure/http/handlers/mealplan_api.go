// Package handlers provides HTTP handlers for the REST API
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/alchemorsel/mealplan/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	apperrors "github.com/alchemorsel/mealplan/pkg/errors"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// MealPlanHandlers handles meal plan API requests
type MealPlanHandlers struct {
	service      inbound.MealPlanService
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewMealPlanHandlers creates a new meal plan handlers instance
func NewMealPlanHandlers(service inbound.MealPlanService, maxBodyBytes int64, logger *zap.Logger) *MealPlanHandlers {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 64 << 10
	}
	return &MealPlanHandlers{
		service:      service,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.Named("meal-plan-api"),
	}
}

// GeneratePlan handles POST /api/v1/meal-plans/generate
func (h *MealPlanHandlers) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	lang := middleware.RequestLanguage(r)

	var req inbound.GeneratePlanRequest
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		details := "request body is not valid JSON"
		switch {
		case errors.As(err, &tooLarge):
			details = "request body too large"
		case errors.Is(err, io.EOF):
			details = "request body is empty"
		}
		middleware.WriteError(w, r, apperrors.NewValidationError(details).WithCause(err), lang)
		return
	}
	if req.Preferences != nil && req.Preferences.Language != "" {
		lang = apperrors.ParseLanguage(req.Preferences.Language)
	}

	// The token subject, when present, must own the profile.
	if subject, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		if profile := req.LocateProfile(); profile != nil && profile.Identifier() != subject {
			h.logger.Warn("Token subject does not match profile",
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
				zap.String("subject", subject),
				zap.String("profile_id", profile.Identifier()))
			middleware.WriteError(w, r, apperrors.NewAuthError("token subject does not match profile"), lang)
			return
		}
	}

	resp, err := h.service.GeneratePlan(r.Context(), req)
	if err != nil {
		appErr := apperrors.Wrap(err, "meal plan generation failed")
		h.logger.Info("Meal plan request failed",
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.String("code", string(appErr.Code)),
			zap.Int("status_code", appErr.StatusCode()))
		middleware.WriteError(w, r, appErr, lang)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// writeJSON writes a JSON response
func (h *MealPlanHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

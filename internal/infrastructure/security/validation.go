// Package security provides request validation, input sanitization and
// bearer token verification
package security

import (
	"context"
	"errors"
	"fmt"
	"html"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	apperrors "github.com/alchemorsel/mealplan/pkg/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// ValidationService validates inbound DTOs and sanitizes free text that ends
// up inside model prompts
type ValidationService struct {
	logger    *zap.Logger
	validator *validator.Validate
}

// NewValidationService creates a new validation service
func NewValidationService(logger *zap.Logger) *ValidationService {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = validate.RegisterValidation("no_xss", validateNoXSS)
	_ = validate.RegisterValidation("prompt_safe", validatePromptSafe)

	return &ValidationService{
		logger:    logger.Named("validation"),
		validator: validate,
	}
}

// ValidateStruct validates s and converts failures into a VALIDATION_FAILED error
func (v *ValidationService) ValidateStruct(ctx context.Context, s interface{}) error {
	err := v.validator.StructCtx(ctx, s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(err.Error())
	}

	out := make([]apperrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apperrors.ValidationError{
			Field:   fe.Namespace(),
			Value:   fe.Value(),
			Tag:     fe.Tag(),
			Message: fieldMessage(fe),
		})
	}
	v.logger.Debug("Request validation failed", zap.Int("errors", len(out)))
	return apperrors.NewValidationErrors(out)
}

// SanitizeText strips markup and control characters, collapses whitespace
// and truncates to maxLen runes
func (v *ValidationService) SanitizeText(input string, maxLen int) string {
	result := htmlTagPattern.ReplaceAllString(input, "")
	result = html.UnescapeString(result)
	result = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, result)
	result = strings.TrimSpace(whitespacePattern.ReplaceAllString(result, " "))

	if maxLen > 0 {
		if runes := []rune(result); len(runes) > maxLen {
			result = string(runes[:maxLen])
		}
	}
	return result
}

// SanitizeList sanitizes every item and drops the empty ones
func (v *ValidationService) SanitizeList(items []string, maxLen int) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := v.SanitizeText(item, maxLen); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "no_xss", "prompt_safe":
		return fmt.Sprintf("%s contains unsupported content", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// validateNoXSS checks for script injection patterns
func validateNoXSS(fl validator.FieldLevel) bool {
	value := strings.ToLower(fl.Field().String())

	xssPatterns := []string{
		"<script", "</script>", "javascript:", "vbscript:",
		"onload=", "onerror=", "onclick=", "document.cookie",
	}

	for _, pattern := range xssPatterns {
		if strings.Contains(value, pattern) {
			return false
		}
	}
	return true
}

// validatePromptSafe rejects text trying to override the generation instructions
func validatePromptSafe(fl validator.FieldLevel) bool {
	value := strings.ToLower(fl.Field().String())

	injectionPatterns := []string{
		"ignore previous", "ignore all previous", "disregard the above",
		"system prompt", "you are now", "```",
	}

	for _, pattern := range injectionPatterns {
		if strings.Contains(value, pattern) {
			return false
		}
	}
	return true
}

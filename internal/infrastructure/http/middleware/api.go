// Package middleware provides Chi-compatible middleware for the JSON API server
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/alchemorsel/mealplan/internal/infrastructure/security"
	apperrors "github.com/alchemorsel/mealplan/pkg/errors"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	userEmailKey contextKey = "user_email"
)

// Logger creates a Chi-compatible logging middleware
func Logger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			logger.Info("API Request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Int("status_code", wrapped.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.String("user_agent", r.UserAgent()),
			)
		})
	}
}

// Security adds security headers for API responses
func Security() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			w.Header().Set("Cache-Control", "no-store")

			next.ServeHTTP(w, r)
		})
	}
}

// JSONOnly rejects request bodies that are not JSON
func JSONOnly() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
				if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
					WriteError(w, r, apperrors.NewValidationError("Content-Type must be application/json"), RequestLanguage(r))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuthenticateAPI requires a valid bearer access token. Failures are
// reported as AUTH_ERROR.
func AuthenticateAPI(tokens *security.TokenValidator, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				WriteError(w, r, apperrors.NewAuthError("authorization header required"), RequestLanguage(r))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				WriteError(w, r, apperrors.NewAuthError("invalid authorization header format"), RequestLanguage(r))
				return
			}

			claims, err := tokens.ValidateToken(strings.TrimSpace(parts[1]), security.AccessToken)
			if err != nil {
				logger.Info("Rejected bearer token",
					zap.String("request_id", chimiddleware.GetReqID(r.Context())),
					zap.Error(err))
				WriteError(w, r, apperrors.NewAuthError("invalid token").WithCause(err), RequestLanguage(r))
				return
			}

			ctx := addUserToContext(r.Context(), claims.Subject(), claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLanguage picks the error message language from Accept-Language
func RequestLanguage(r *http.Request) apperrors.Language {
	accept := r.Header.Get("Accept-Language")
	if accept == "" {
		return apperrors.LanguageEnglish
	}
	first := strings.SplitN(accept, ",", 2)[0]
	first = strings.SplitN(first, ";", 2)[0]
	return apperrors.ParseLanguage(first)
}

// WriteError writes the localized failure body for err
func WriteError(w http.ResponseWriter, r *http.Request, err *apperrors.AppError, lang apperrors.Language) {
	body := apperrors.ToErrorResponse(err, lang, chimiddleware.GetReqID(r.Context()))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(body.StatusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func addUserToContext(ctx context.Context, userID, email string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, userEmailKey, email)
	return ctx
}

// GetUserIDFromContext extracts user ID from request context
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok
}

// GetUserEmailFromContext extracts user email from request context
func GetUserEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(userEmailKey).(string)
	return email, ok
}

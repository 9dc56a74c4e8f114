package ai

import (
	"context"
	"errors"
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/ai"
	"github.com/alchemorsel/mealplan/internal/domain/user"
	"github.com/alchemorsel/mealplan/internal/infrastructure/monitoring"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	apperrors "github.com/alchemorsel/mealplan/pkg/errors"
	"go.uber.org/zap"
)

// QuotaConfig holds quota enforcement settings
type QuotaConfig struct {
	DailyCap       int
	GenerationType string
}

// DefaultQuotaConfig returns the meal plan quota settings
func DefaultQuotaConfig() QuotaConfig {
	return QuotaConfig{DailyCap: 10, GenerationType: ai.FeatureMealPlan}
}

// QuotaDecision is the outcome of a passed pre-check
type QuotaDecision struct {
	Account   user.QuotaAccount
	UsedToday int64
}

// QuotaLedger checks and deducts generation allowances and keeps the
// generation audit log.
type QuotaLedger struct {
	config   QuotaConfig
	accounts outbound.QuotaRepository
	logs     outbound.GenerationLogRepository
	metrics  *monitoring.MetricsCollector
	logger   *zap.Logger
	now      func() time.Time
}

// NewQuotaLedger creates a new quota ledger
func NewQuotaLedger(
	config QuotaConfig,
	accounts outbound.QuotaRepository,
	logs outbound.GenerationLogRepository,
	metrics *monitoring.MetricsCollector,
	logger *zap.Logger,
) *QuotaLedger {
	defaults := DefaultQuotaConfig()
	if config.DailyCap <= 0 {
		config.DailyCap = defaults.DailyCap
	}
	if config.GenerationType == "" {
		config.GenerationType = defaults.GenerationType
	}
	return &QuotaLedger{
		config:   config,
		accounts: accounts,
		logs:     logs,
		metrics:  metrics,
		logger:   logger.Named("quota-ledger"),
		now:      time.Now,
	}
}

// PreCheck verifies the user may start a generation. Unlimited accounts
// always pass. Metered accounts need credits left and fewer than DailyCap
// started or completed attempts today. A rejection is recorded in the log.
func (q *QuotaLedger) PreCheck(ctx context.Context, userID string) (*QuotaDecision, error) {
	account, err := q.accounts.FindAccount(ctx, userID)
	if errors.Is(err, outbound.ErrNotFound) {
		return nil, apperrors.NewInvalidProfileError("unknown user").WithMetadata("user_id", userID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("load quota account", err)
	}

	decision := &QuotaDecision{Account: *account}
	if account.IsUnlimited() {
		return decision, nil
	}

	if !account.HasCredits() {
		q.reject(ctx, userID, "credits_exhausted")
		return nil, apperrors.NewRateLimitExceededError("credits", 0)
	}

	used, err := q.logs.CountSince(ctx, userID, q.config.GenerationType, q.startOfDay(),
		ai.GenerationStatusStarted, ai.GenerationStatusCompleted)
	if err != nil {
		return nil, apperrors.NewDatabaseError("count today's generations", err)
	}
	decision.UsedToday = used

	if used >= int64(q.config.DailyCap) {
		q.reject(ctx, userID, "daily_cap")
		return nil, apperrors.NewRateLimitExceededError("daily", q.config.DailyCap)
	}

	return decision, nil
}

// Begin writes the started log entry before any model call
func (q *QuotaLedger) Begin(ctx context.Context, userID string, promptData map[string]interface{}) (*ai.GenerationLogEntry, error) {
	entry := ai.NewGenerationLogEntry(userID, q.config.GenerationType, promptData)
	if err := q.logs.Create(ctx, entry); err != nil {
		return nil, apperrors.NewDatabaseError("create generation log", err)
	}
	return entry, nil
}

// Complete deducts one credit from metered accounts and marks the entry
// completed. The entry's state guards against a second deduction.
func (q *QuotaLedger) Complete(ctx context.Context, entry *ai.GenerationLogEntry, decision *QuotaDecision, metadata map[string]interface{}) error {
	ctx = context.WithoutCancel(ctx)

	if err := entry.Complete(metadata); err != nil {
		return err
	}

	if decision != nil && !decision.Account.IsUnlimited() {
		ok, err := q.accounts.DecrementRemaining(ctx, entry.UserID())
		switch {
		case err != nil:
			q.logger.Error("Failed to deduct generation credit",
				zap.String("user_id", entry.UserID()),
				zap.Error(err))
		case !ok:
			q.logger.Warn("No credit left to deduct after concurrent generation",
				zap.String("user_id", entry.UserID()))
		}
	}

	if err := q.logs.Update(ctx, entry); err != nil {
		q.logger.Error("Failed to complete generation log",
			zap.String("log_id", entry.ID().String()),
			zap.Error(err))
		return apperrors.NewDatabaseError("complete generation log", err)
	}
	return nil
}

// Fail marks the entry failed. It runs even if ctx was canceled so every
// attempt leaves an auditable record.
func (q *QuotaLedger) Fail(ctx context.Context, entry *ai.GenerationLogEntry, reason string) {
	if entry == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	if err := entry.Fail(reason); err != nil {
		q.logger.Warn("Generation log already finalized",
			zap.String("log_id", entry.ID().String()),
			zap.String("status", string(entry.Status())))
		return
	}
	if err := q.logs.Update(ctx, entry); err != nil {
		q.logger.Error("Failed to record failed generation",
			zap.String("log_id", entry.ID().String()),
			zap.Error(err))
	}
}

func (q *QuotaLedger) reject(ctx context.Context, userID, reason string) {
	q.metrics.QuotaRejected(reason)
	q.logger.Info("Generation rejected by quota",
		zap.String("user_id", userID),
		zap.String("reason", reason))

	entry := ai.NewRejectedLogEntry(userID, q.config.GenerationType, "quota exceeded: "+reason)
	if err := q.logs.Create(context.WithoutCancel(ctx), entry); err != nil {
		q.logger.Error("Failed to record quota rejection", zap.Error(err))
	}
}

func (q *QuotaLedger) startOfDay() time.Time {
	now := q.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

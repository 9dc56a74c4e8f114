// Package ai provides model routing, invocation and quota accounting for
// generation features
package ai

import (
	"context"

	"github.com/alchemorsel/mealplan/internal/domain/ai"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"go.uber.org/zap"
)

// ModelRouter resolves the primary/fallback models for a feature. It reads
// the configuration store on every call so admin changes apply immediately.
type ModelRouter struct {
	store  outbound.ModelConfigRepository
	logger *zap.Logger
}

// NewModelRouter creates a new model router
func NewModelRouter(store outbound.ModelConfigRepository, logger *zap.Logger) *ModelRouter {
	return &ModelRouter{
		store:  store,
		logger: logger.Named("model-router"),
	}
}

// Resolve returns the model chain for feature. It never returns an empty
// chain: missing slots fall back to the default model, then to a constant.
func (r *ModelRouter) Resolve(ctx context.Context, feature string) ai.ModelChain {
	var primary, fallback *ai.GenerationModel

	mapping, err := r.store.FindFeatureMapping(ctx, feature)
	if err != nil {
		r.logger.Warn("Failed to load feature model mapping",
			zap.String("feature", feature),
			zap.Error(err))
	}
	if mapping != nil && mapping.IsActive {
		if usable(mapping.Primary) {
			primary = mapping.Primary
		}
		if usable(mapping.Fallback) {
			fallback = mapping.Fallback
		}
	}

	if primary == nil || fallback == nil {
		def := r.defaultModel(ctx)
		if primary == nil {
			primary = &def
		}
		if fallback == nil {
			fallback = &def
		}
	}

	chain := ai.ModelChain{Primary: *primary, Fallback: *fallback}
	r.logger.Debug("Resolved model chain",
		zap.String("feature", feature),
		zap.String("primary", chain.Primary.ModelID),
		zap.String("fallback", chain.Fallback.ModelID))
	return chain
}

func (r *ModelRouter) defaultModel(ctx context.Context) ai.GenerationModel {
	def, err := r.store.FindDefaultModel(ctx)
	if err != nil {
		r.logger.Warn("Failed to load default model", zap.Error(err))
	}
	if usable(def) {
		return *def
	}

	r.logger.Warn("No active default model configured, using built-in model",
		zap.String("model", ai.FallbackModelID))
	return ai.ConstantModel()
}

func usable(m *ai.GenerationModel) bool {
	return m != nil && m.IsActive && m.ModelID != ""
}

// Package ai provides health check integration for the model providers
package ai

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/alchemorsel/mealplan/pkg/healthcheck"
	"go.uber.org/zap"
)

const providerCheckTimeout = 5 * time.Second

// ProviderProbe reports whether one provider can currently serve requests
type ProviderProbe func(ctx context.Context) error

// HealthChecker aggregates provider probes into one health check. The
// service stays usable while any provider answers, since the model chain
// falls back between them.
type HealthChecker struct {
	probes map[string]ProviderProbe
	logger *zap.Logger
}

// NewHealthChecker creates a provider health checker
func NewHealthChecker(logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		probes: make(map[string]ProviderProbe),
		logger: logger.Named("ai-health"),
	}
}

// Add registers a provider probe
func (h *HealthChecker) Add(provider string, probe ProviderProbe) *HealthChecker {
	h.probes[provider] = probe
	return h
}

// ConfiguredProbe reports a provider as available when it has credentials.
// Hosted providers bill per call, so they are not pinged.
func ConfiguredProbe(apiKey string) ProviderProbe {
	return func(context.Context) error {
		if apiKey == "" {
			return fmt.Errorf("api key not configured")
		}
		return nil
	}
}

// Check runs every probe and reports healthy when all pass, degraded when
// some pass and unhealthy when none do
func (h *HealthChecker) Check(ctx context.Context) healthcheck.Check {
	start := time.Now()

	names := make([]string, 0, len(h.probes))
	for name := range h.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	providers := make(map[string]string, len(names))
	healthy := 0
	for _, name := range names {
		probeCtx, cancel := context.WithTimeout(ctx, providerCheckTimeout)
		err := h.probes[name](probeCtx)
		cancel()

		if err != nil {
			providers[name] = err.Error()
			h.logger.Warn("Model provider unavailable", zap.String("provider", name), zap.Error(err))
			continue
		}
		providers[name] = "available"
		healthy++
	}

	check := healthcheck.Check{
		Name:        "ai_providers",
		Metadata:    providers,
		LastChecked: start,
		Duration:    time.Since(start),
	}
	switch {
	case len(names) == 0 || healthy == 0:
		check.Status = healthcheck.StatusUnhealthy
		check.Message = "no model provider available"
	case healthy < len(names):
		check.Status = healthcheck.StatusDegraded
		check.Message = fmt.Sprintf("%d of %d model providers available", healthy, len(names))
	default:
		check.Status = healthcheck.StatusHealthy
	}
	return check
}

var _ healthcheck.Checker = (*HealthChecker)(nil)

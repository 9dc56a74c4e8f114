// Package container provides dependency injection using Uber FX
package container

import (
	"context"
	"fmt"
	"net/http"

	aiapp "github.com/alchemorsel/mealplan/internal/application/ai"
	"github.com/alchemorsel/mealplan/internal/application/mealplan"
	aiinfra "github.com/alchemorsel/mealplan/internal/infrastructure/ai"
	"github.com/alchemorsel/mealplan/internal/infrastructure/ai/ollama"
	"github.com/alchemorsel/mealplan/internal/infrastructure/ai/openai"
	"github.com/alchemorsel/mealplan/internal/infrastructure/config"
	"github.com/alchemorsel/mealplan/internal/infrastructure/http/apiserver"
	"github.com/alchemorsel/mealplan/internal/infrastructure/monitoring"
	gormRepo "github.com/alchemorsel/mealplan/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/migrations"
	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/postgres"
	redislock "github.com/alchemorsel/mealplan/internal/infrastructure/persistence/redis"
	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/sqlite"
	"github.com/alchemorsel/mealplan/internal/infrastructure/security"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/alchemorsel/mealplan/pkg/healthcheck"
	"github.com/alchemorsel/mealplan/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// ConfigPath is the optional config file location supplied by the caller
type ConfigPath string

// Module provides everything the API server needs
var Module = fx.Options(
	CoreModule,
	HTTPModule,
	LifecycleModule,
)

// CoreModule provides the generation pipeline without any inbound transport.
// The CLI runs on this alone.
var CoreModule = fx.Options(
	ConfigModule,
	LoggerModule,
	MonitoringModule,
	DatabaseModule,
	RepositoryModule,
	LockModule,
	AIModule,
	ServiceModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func(path ConfigPath) (*config.Config, error) {
		return config.Load(string(path))
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
			Service:     cfg.App.Name,
		})
	},
)

// MonitoringModule provides metrics and tracing. The metrics collector is
// nil when metrics are disabled.
var MonitoringModule = fx.Options(
	fx.Provide(
		func(cfg *config.Config, log *zap.Logger) *monitoring.MetricsCollector {
			if !cfg.Monitoring.EnableMetrics {
				return nil
			}
			return monitoring.NewMetricsCollector(log)
		},
		func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
			tp, err := monitoring.NewTracingProvider(monitoring.TracingConfig{
				ServiceName:    cfg.App.Name,
				ServiceVersion: cfg.App.Version,
				Environment:    cfg.App.Environment,
				OTLPEndpoint:   cfg.Monitoring.OTLPEndpoint,
				Insecure:       cfg.Monitoring.OTLPInsecure,
				SamplingRate:   cfg.Monitoring.SamplingRate,
				Enabled:        cfg.Monitoring.EnableTracing,
			}, log)
			if err != nil {
				return nil, err
			}
			lc.Append(fx.Hook{OnStop: tp.Shutdown})
			return tp, nil
		},
	),
	// Installs the global tracer provider before any span is started.
	fx.Invoke(func(*monitoring.TracingProvider) {}),
)

// DatabaseModule provides the database connection
var DatabaseModule = fx.Provide(OpenDatabase)

// OpenDatabase connects to the configured driver, brings the schema up to
// date when auto_migrate is set and seeds the default model configuration
func OpenDatabase(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	var db *gorm.DB

	switch cfg.Database.Driver {
	case "postgres":
		cm, err := postgres.NewConnectionManager(cfg, log)
		if err != nil {
			return nil, err
		}
		db = cm.GetDB()
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return cm.Close() }})

		if cfg.Database.AutoMigrate {
			if err := MigratePostgres(db, cfg, log); err != nil {
				return nil, err
			}
		}
	default:
		logLevel := gormLogger.Silent
		if cfg.App.Debug {
			logLevel = gormLogger.Info
		}

		var err error
		db, err = sqlite.SetupDatabase(cfg.Database.Path, logLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to setup SQLite database: %w", err)
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}})

		log.Info("Connected to SQLite database", zap.String("path", cfg.Database.Path))
	}

	if err := gormRepo.SeedModelConfig(context.Background(), db); err != nil {
		log.Warn("Failed to seed model configuration", zap.Error(err))
	}

	return db, nil
}

// MigratePostgres applies the embedded SQL migrations
func MigratePostgres(db *gorm.DB, cfg *config.Config, log *zap.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	m, err := migrations.New(sqlDB, cfg.Database.Database, log)
	if err != nil {
		return err
	}
	// Closing the migrator would close the shared connection pool.
	return m.Up()
}

// RepositoryModule provides repository implementations
var RepositoryModule = fx.Provide(
	func(db *gorm.DB, cfg *config.Config) outbound.PlanRepository {
		return gormRepo.NewPlanRepository(db, cfg.Database.AtomicReplace)
	},
	gormRepo.NewUserRepository,
	func(r *gormRepo.UserRepository) outbound.QuotaRepository { return r },
	func(r *gormRepo.UserRepository) outbound.ProfileRepository { return r },
	fx.Annotate(
		gormRepo.NewGenerationLogRepository,
		fx.As(new(outbound.GenerationLogRepository)),
	),
	fx.Annotate(
		gormRepo.NewModelConfigRepository,
		fx.As(new(outbound.ModelConfigRepository)),
	),
)

// LockModule provides the per user and week generation lock. Redis is used
// when enabled; otherwise the lock only covers this process. The redis
// client is nil when redis is disabled.
var LockModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (redis.UniversalClient, error) {
		if !cfg.Redis.Enabled {
			return nil, nil
		}
		client, err := redislock.NewClient(cfg, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return client.Close() }})
		return client, nil
	},
	func(client redis.UniversalClient, log *zap.Logger) outbound.GenerationLock {
		if client == nil {
			log.Info("Using in-process generation lock")
			return memory.NewGenerationLock()
		}
		return redislock.NewGenerationLock(client, log)
	},
)

// AIModule provides the provider adapters, model routing, invocation and quota
var AIModule = fx.Provide(
	func() *http.Client {
		return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	},
	func(cfg *config.Config, client *http.Client, log *zap.Logger) *openai.Client {
		return openai.NewClient(cfg.AI.OpenAIBaseURL, cfg.AI.OpenAIKey, client, log)
	},
	func(cfg *config.Config, client *http.Client, log *zap.Logger) *ollama.Client {
		return ollama.NewClient(cfg.AI.OllamaHost, client, log)
	},
	func(cfg *config.Config, oa *openai.Client, ol *ollama.Client, metrics *monitoring.MetricsCollector, log *zap.Logger) *aiapp.GenerationInvoker {
		return aiapp.NewGenerationInvoker(aiapp.InvokerConfig{
			Timeout:           cfg.AI.RequestTimeout,
			Temperature:       cfg.AI.Temperature,
			MaxTokens:         cfg.AI.MaxTokens,
			RequestsPerSecond: cfg.AI.RequestsPerSecond,
			Burst:             cfg.AI.Burst,
		}, []outbound.CompletionClient{oa, ol}, metrics, log)
	},
	aiapp.NewModelRouter,
	func(cfg *config.Config, accounts outbound.QuotaRepository, logs outbound.GenerationLogRepository, metrics *monitoring.MetricsCollector, log *zap.Logger) *aiapp.QuotaLedger {
		return aiapp.NewQuotaLedger(aiapp.QuotaConfig{
			DailyCap:       cfg.Quota.DailyCap,
			GenerationType: cfg.Quota.GenerationType,
		}, accounts, logs, metrics, log)
	},
)

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	security.NewValidationService,
	func(
		cfg *config.Config,
		router *aiapp.ModelRouter,
		invoker *aiapp.GenerationInvoker,
		ledger *aiapp.QuotaLedger,
		plans outbound.PlanRepository,
		lock outbound.GenerationLock,
		requests *security.ValidationService,
		metrics *monitoring.MetricsCollector,
		log *zap.Logger,
	) *mealplan.Service {
		return mealplan.NewService(mealplan.Config{
			AnchorWeekday:      cfg.AnchorWeekday(),
			LowConfidenceRatio: cfg.MealPlan.LowConfidenceRatio,
			LockTTL:            cfg.MealPlan.LockTTL,
			QuotaLockWait:      cfg.MealPlan.QuotaLockWait,
		}, router, invoker, ledger, plans, lock, requests, metrics, log)
	},
	func(s *mealplan.Service) inbound.MealPlanService { return s },
)

// HTTPModule provides the API server and its collaborators
var HTTPModule = fx.Provide(
	security.NewTokenValidator,
	NewHealthCheck,
	apiserver.NewServer,
)

// NewHealthCheck registers a check per backing dependency. Model providers
// are aggregated: one unavailable provider only degrades health.
func NewHealthCheck(cfg *config.Config, db *gorm.DB, client redis.UniversalClient, ol *ollama.Client, log *zap.Logger) (*healthcheck.HealthCheck, error) {
	hc := healthcheck.New(cfg.App.Version, log.Named("health"))

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	hc.Register("database", healthcheck.NewDatabaseChecker(sqlDB))
	if client != nil {
		hc.Register("redis", healthcheck.NewRedisChecker(client))
	}
	hc.Register("ai_providers", aiinfra.NewHealthChecker(log).
		Add("ollama", ol.HealthCheck).
		Add("openai", aiinfra.ConfiguredProbe(cfg.AI.OpenAIKey)))

	return hc, nil
}

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
)

// RegisterLifecycleHooks registers application lifecycle hooks
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	log *zap.Logger,
	server *apiserver.Server,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting meal plan service",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.String("database", cfg.Database.Driver),
			)

			go func() {
				if err := server.Start(); err != nil {
					log.Error("HTTP server stopped", zap.Error(err))
					_ = shutdowner.Shutdown()
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down meal plan service")

			if err := server.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}

			_ = log.Sync()
			return nil
		},
	})
}

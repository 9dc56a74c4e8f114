// Package testutils provides common testing utilities and infrastructure setup
package testutils

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/alchemorsel/mealplan/internal/infrastructure/config"
	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/migrations"
	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/postgres"
	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// IntegrationEnv enables tests that start containers
const IntegrationEnv = "MEALPLAN_INTEGRATION"

// NewSQLiteDB returns a migrated in-memory database closed at test cleanup
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := sqlite.SetupDatabase(":memory:", logger.Silent)
	require.NoError(t, err, "Failed to open sqlite database")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// PostgresConfig holds test container settings
type PostgresConfig struct {
	Image    string
	Database string
	Username string
	Password string
}

// DefaultPostgresConfig returns the default test database configuration
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Image:    "postgres:15-alpine",
		Database: "mealplan_test",
		Username: "test_user",
		Password: "test_password",
	}
}

// SkipUnlessIntegration skips t unless IntegrationEnv is set
func SkipUnlessIntegration(t *testing.T) {
	t.Helper()
	if enabled, _ := strconv.ParseBool(os.Getenv(IntegrationEnv)); !enabled {
		t.Skipf("set %s=1 to run container-backed tests", IntegrationEnv)
	}
}

// SetupPostgres starts a postgres container, applies the embedded
// migrations and returns a connected database. The container is removed at
// test cleanup.
func SetupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	SkipUnlessIntegration(t)

	cfg := DefaultPostgresConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        cfg.Image,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       cfg.Database,
				"POSTGRES_USER":     cfg.Username,
				"POSTGRES_PASSWORD": cfg.Password,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
			Tmpfs: map[string]string{
				"/var/lib/postgresql/data": "rw",
			},
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start postgres container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	appCfg := &config.Config{
		Database: config.DatabaseConfig{
			Driver:          "postgres",
			Host:            host,
			Port:            port.Int(),
			Database:        cfg.Database,
			Username:        cfg.Username,
			Password:        cfg.Password,
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Minute,
			LogLevel:        "silent",
		},
	}

	log := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
	cm, err := postgres.NewConnectionManager(appCfg, log)
	require.NoError(t, err, "Failed to connect to %s", fmt.Sprintf("%s:%d", host, port.Int()))
	t.Cleanup(func() { _ = cm.Close() })

	sqlDB, err := cm.GetDB().DB()
	require.NoError(t, err)

	migrator, err := migrations.New(sqlDB, cfg.Database, log)
	require.NoError(t, err)
	require.NoError(t, migrator.Up(), "Failed to apply migrations")

	return cm.GetDB()
}

// SetupRedis starts a redis container and returns a connected client
func SetupRedis(t *testing.T) redis.UniversalClient {
	t.Helper()
	SkipUnlessIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start redis container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{endpoint}})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

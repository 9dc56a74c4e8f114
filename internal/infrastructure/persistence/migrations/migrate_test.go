package migrations_test

import (
	"testing"

	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/migrations"
	"github.com/alchemorsel/mealplan/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMigrator_UpDownUp(t *testing.T) {
	db := testutils.SetupPostgres(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	m, err := migrations.New(sqlDB, testutils.DefaultPostgresConfig().Database, zaptest.NewLogger(t))
	require.NoError(t, err)

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Already applied by the setup
	require.NoError(t, m.Up())

	require.NoError(t, m.Down())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, db.Migrator().HasTable("daily_meals"))

	require.NoError(t, m.Down(), "reverting an empty schema is a no-op")

	require.NoError(t, m.Up())
	assert.True(t, db.Migrator().HasTable("daily_meals"))
	assert.True(t, db.Migrator().HasTable("generation_logs"))
}

// Package migrations versions the postgres meal-plan schema. The SQL lives
// under sql/ and is embedded into the binary.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var schemaFS embed.FS

// ErrDirtySchema means an earlier migration stopped halfway and needs a manual fix
var ErrDirtySchema = errors.New("meal plan schema is dirty")

// Migrator moves the plan, meal, audit log and model config tables between
// schema versions.
type Migrator struct {
	m      *migrate.Migrate
	logger *zap.Logger
}

// New binds the embedded schema to an open postgres pool. The pool stays
// owned by the caller.
func New(db *sql.DB, databaseName string, logger *zap.Logger) (*Migrator, error) {
	src, err := iofs.New(schemaFS, "sql")
	if err != nil {
		return nil, fmt.Errorf("open embedded schema: %w", err)
	}

	target, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "schema_migrations",
		DatabaseName:    databaseName,
	})
	if err != nil {
		return nil, fmt.Errorf("bind schema to %q: %w", databaseName, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", target)
	if err != nil {
		return nil, fmt.Errorf("prepare schema migrator: %w", err)
	}

	return &Migrator{m: m, logger: logger.Named("schema")}, nil
}

// Up brings the schema to the newest version. A dirty schema is refused.
func (mg *Migrator) Up() error {
	start := time.Now()

	from, err := mg.current()
	if err != nil {
		return err
	}

	err = mg.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		mg.logger.Debug("Meal plan schema already current", zap.Uint("version", from))
		return nil
	}
	if err != nil {
		return fmt.Errorf("upgrade schema from version %d: %w", from, err)
	}

	to, _, _ := mg.Version()
	mg.logger.Info("Meal plan schema upgraded",
		zap.Uint("from", from),
		zap.Uint("to", to),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// Down reverts the newest applied version
func (mg *Migrator) Down() error {
	from, err := mg.current()
	if err != nil {
		return err
	}
	if from == 0 {
		mg.logger.Info("No meal plan schema version to revert")
		return nil
	}

	if err := mg.m.Steps(-1); err != nil {
		return fmt.Errorf("revert schema version %d: %w", from, err)
	}
	mg.logger.Info("Meal plan schema reverted", zap.Uint("version", from))
	return nil
}

// Version reports the applied version; 0 means an empty database
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (mg *Migrator) current() (uint, error) {
	version, dirty, err := mg.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("%w at version %d", ErrDirtySchema, version)
	}
	return version, nil
}

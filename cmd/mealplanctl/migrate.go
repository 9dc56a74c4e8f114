package main

import (
	"context"
	"fmt"

	"github.com/alchemorsel/mealplan/internal/infrastructure/config"
	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/migrations"
	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/sqlite"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var migrateDown bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bring the database schema up to date",
	Long:  "migrate applies the embedded SQL migrations on postgres and AutoMigrate on sqlite. --down rolls back one postgres migration.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			cfg *config.Config
			db  *gorm.DB
			log *zap.Logger
		)
		return withApp(cmd.Context(), func(ctx context.Context) error {
			out := cmd.OutOrStdout()

			if cfg.Database.Driver != "postgres" {
				if migrateDown {
					return fmt.Errorf("--down is only supported on postgres")
				}
				if err := sqlite.Migrate(db); err != nil {
					return err
				}
				fmt.Fprintln(out, "Schema up to date (sqlite)")
				return nil
			}

			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			m, err := migrations.New(sqlDB, cfg.Database.Database, log)
			if err != nil {
				return err
			}
			if migrateDown {
				err = m.Down()
			} else {
				err = m.Up()
			}
			if err != nil {
				return err
			}

			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Schema version %d (dirty=%t)\n", version, dirty)
			return nil
		}, &cfg, &db, &log)
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "Roll back one migration (postgres only)")
	rootCmd.AddCommand(migrateCmd)
}

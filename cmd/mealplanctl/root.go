package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alchemorsel/mealplan/internal/infrastructure/container"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "mealplanctl",
	Short:         "mealplanctl generates and inspects weekly meal plans",
	Long:          "mealplanctl runs the meal plan generation pipeline against the configured database and model providers.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("MEALPLAN_CONFIG"), "Path to config file")
}

// withApp builds the pipeline, fills targets and runs fn between start and
// stop of the container
func withApp(ctx context.Context, fn func(ctx context.Context) error, targets ...interface{}) error {
	app := fx.New(
		fx.NopLogger,
		fx.Supply(container.ConfigPath(configPath)),
		container.CoreModule,
		fx.Populate(targets...),
	)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	runErr := fn(ctx)

	stopCtx, cancelStop := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}

package main

import (
	"context"
	"fmt"

	aiapp "github.com/alchemorsel/mealplan/internal/application/ai"
	"github.com/alchemorsel/mealplan/internal/domain/ai"
	"github.com/spf13/cobra"
)

var chainFeature string

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Print the primary and fallback model for a feature",
	RunE: func(cmd *cobra.Command, args []string) error {
		var router *aiapp.ModelRouter
		return withApp(cmd.Context(), func(ctx context.Context) error {
			chain := router.Resolve(ctx, chainFeature)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "ROLE\tMODEL\tPROVIDER")
			fmt.Fprintf(out, "primary\t%s\t%s\n", chain.Primary.ModelID, chain.Primary.Provider)
			fmt.Fprintf(out, "fallback\t%s\t%s\n", chain.Fallback.ModelID, chain.Fallback.Provider)
			return nil
		}, &router)
	},
}

func init() {
	chainCmd.Flags().StringVar(&chainFeature, "feature", ai.FeatureMealPlan, "Feature name")
	rootCmd.AddCommand(chainCmd)
}

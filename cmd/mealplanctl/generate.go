package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	apperrors "github.com/alchemorsel/mealplan/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	genUserID     string
	genWeekOffset int
	genSnacks     bool
	genLanguage   string
	genCuisine    string
	genPrepTime   int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the weekly plan for a stored user",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			service  inbound.MealPlanService
			profiles outbound.ProfileRepository
		)
		return withApp(cmd.Context(), func(ctx context.Context) error {
			profile, err := profiles.FindProfile(ctx, genUserID)
			if errors.Is(err, outbound.ErrNotFound) {
				return fmt.Errorf("user %s not found", genUserID)
			}
			if err != nil {
				return err
			}

			offset := genWeekOffset
			resp, err := service.GeneratePlan(ctx, inbound.GeneratePlanRequest{
				UserProfile: inbound.FromDomainProfile(*profile),
				Preferences: &inbound.PreferencesInput{
					IncludeSnacks: genSnacks,
					Cuisine:       genCuisine,
					MaxPrepTime:   genPrepTime,
					Language:      genLanguage,
				},
				WeekOffset: &offset,
			})
			if err != nil {
				appErr := apperrors.Wrap(err, "meal plan generation failed")
				body := apperrors.ToErrorResponse(appErr, apperrors.ParseLanguage(genLanguage), "")
				_ = printJSON(cmd, body)
				return fmt.Errorf("%s: %s", appErr.Code, appErr.Error())
			}
			return printJSON(cmd, resp)
		}, &service, &profiles)
	},
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	generateCmd.Flags().StringVar(&genUserID, "user", "", "User id (uuid)")
	generateCmd.Flags().IntVar(&genWeekOffset, "week-offset", 0, "Weeks from the current week")
	generateCmd.Flags().BoolVar(&genSnacks, "snacks", false, "Include two snacks per day")
	generateCmd.Flags().StringVar(&genLanguage, "lang", "en", "Response language (en or ar)")
	generateCmd.Flags().StringVar(&genCuisine, "cuisine", "", "Preferred cuisine")
	generateCmd.Flags().IntVar(&genPrepTime, "max-prep", 0, "Maximum preparation time in minutes")
	_ = generateCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(generateCmd)
}

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/templui/goalpulse/internal/model"
)

func ChallengeCmd() *cobra.Command {
	var frequency, parentGoalID string

	cmd := &cobra.Command{
		Use:   "challenge <user-id>",
		Short: "Generate a challenge for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			challenge, err := a.ChallengeService.GenerateChallenge(cmd.Context(), args[0], parentGoalID, frequency)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), challenge)
		},
	}

	cmd.Flags().StringVar(&frequency, "frequency", model.ChallengeFrequencyDaily, "daily, weekly or one-time")
	cmd.Flags().StringVar(&parentGoalID, "parent", "", "derive the challenge from this goal")
	return cmd
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func PlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Subscription plans",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <user-id> <free|pro|agency>",
		Short: "Change a user's plan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			sub, err := a.SubscriptionService.ChangePlan(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "==> %s is now on %s (goal limit %d)\n", sub.UserID, sub.PlanID, sub.GetGoalLimit())
			return nil
		},
	})
	return cmd
}

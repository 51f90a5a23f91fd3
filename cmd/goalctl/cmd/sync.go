package cmd

import (
	"github.com/spf13/cobra"
	"github.com/templui/goalpulse/internal/service"
)

func SyncCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync goals with platform metrics (one user, or everyone with active goals)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var report *service.SyncReport
			if userID != "" {
				report, err = a.MetricSyncService.SyncUser(cmd.Context(), userID)
			} else {
				report, err = a.MetricSyncService.SyncAll(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "only sync this user")
	return cmd
}

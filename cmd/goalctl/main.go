package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/templui/goalpulse/cmd/goalctl/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "goalctl",
		Short:         "Operator tools for the goal engine",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.SyncCmd())
	rootCmd.AddCommand(cmd.ChallengeCmd())
	rootCmd.AddCommand(cmd.ProjectCmd())
	rootCmd.AddCommand(cmd.PlanCmd())
	rootCmd.AddCommand(cmd.UserCmd())
	rootCmd.AddCommand(cmd.TokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

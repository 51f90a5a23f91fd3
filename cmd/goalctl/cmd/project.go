package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func ProjectCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "project <user-id> <goal-id>",
		Short: "Show a goal's projection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			projection, err := a.ProjectionService.Project(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), projection)
			}
			fmt.Fprintln(cmd.OutOrStdout(), projection.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

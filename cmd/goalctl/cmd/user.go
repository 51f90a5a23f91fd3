package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func UserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Notification recipients",
	}

	var id, name string
	add := &cobra.Command{
		Use:   "add <email>",
		Short: "Register the address goal notifications are sent to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.UserService.Register(cmd.Context(), id, args[0], name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "==> registered %s as %s\n", user.Email, user.ID)
			return nil
		},
	}
	add.Flags().StringVar(&id, "id", "", "user id issued by the identity service (default: new uuid)")
	add.Flags().StringVar(&name, "name", "", "display name used in emails")

	cmd.AddCommand(add)
	return cmd
}

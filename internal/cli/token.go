package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/callclock/internal/api/middleware"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the admin token",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "hash <token>",
		Short: "Print the bcrypt hash to put in admin.token_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := middleware.HashToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "save <token>",
		Short: "Save the admin token for later commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.SaveToken(args[0]); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.PrintMessage("Token saved to " + cfg.TokenFile)
			return nil
		},
	})

	return cmd
}

package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newViewsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "views",
		Short: "Inspect mounted clock views",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List mounted views",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result ViewList
			if err := client.Get(cmd.Context(), "/api/v1/views", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show a mounted view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result View
			if err := client.Get(cmd.Context(), "/api/v1/views/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "unmount <id>",
		Short: "Unmount a view, ending its stream (requires admin token)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(cmd.Context(), "/api/v1/views/" + url.PathEscape(args[0])); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.PrintMessage(fmt.Sprintf("Unmounted view %s", args[0]))
			return nil
		},
	})

	return cmd
}

package cli

import (
	"net/url"

	"github.com/spf13/cobra"
)

func newClockCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "clock",
		Short: "Show the server's current time and hand angles",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/clock"
			if at != "" {
				path += "?at=" + url.QueryEscape(at)
			}

			var result ClockResult
			if err := client.Get(cmd.Context(), path, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Pose the hands at HH:MM instead of now")
	return cmd
}

func newGeometryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "geometry",
		Short: "Show the dial layout: markers and ticks",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Geometry
			if err := client.Get(cmd.Context(), "/api/v1/clock/geometry", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Show when the caption changes next",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Schedule
			if err := client.Get(cmd.Context(), "/api/v1/clock/schedule", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}

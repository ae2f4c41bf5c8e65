package cli

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newCaptionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "captions",
		Short: "Manage the rotating captions",
	}

	cmd.AddCommand(newCaptionsListCmd())
	cmd.AddCommand(newCaptionsGetCmd())
	cmd.AddCommand(newCaptionsSetCmd())
	cmd.AddCommand(newCaptionsDeleteCmd())

	return cmd
}

func captionsPath(page string) string {
	return "/api/v1/captions/" + url.PathEscape(page)
}

func newCaptionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pages with stored captions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result PageList
			if err := client.Get(cmd.Context(), "/api/v1/captions", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}

func newCaptionsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [page]",
		Short: "Show the captions of a page (default: clock)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page := pageArg(args)

			var result Captions
			if err := client.Get(cmd.Context(), captionsPath(page), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}

func newCaptionsSetCmd() *cobra.Command {
	var (
		page string
		file string
	)

	cmd := &cobra.Command{
		Use:   "set [caption...]",
		Short: "Replace the captions of a page (requires admin token)",
		Long: `Replace the captions of a page. Captions are given as arguments or read
from a file with one caption per line; lines starting with # are ignored.

Every open view of the page reloads with the new captions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			captions := args
			if file != "" {
				if len(args) > 0 {
					return fmt.Errorf("give captions as arguments or --file, not both")
				}
				var err error
				captions, err = readCaptionsFile(file)
				if err != nil {
					return err
				}
			}
			if len(captions) == 0 {
				return fmt.Errorf("no captions given")
			}

			body := map[string][]string{"captions": captions}
			var result Captions
			if err := client.Put(cmd.Context(), captionsPath(page), body, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&page, "page", "clock", "Page to update")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read captions from a file")

	return cmd
}

func newCaptionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <page>",
		Short: "Delete the stored captions of a page (requires admin token)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(cmd.Context(), captionsPath(args[0])); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.PrintMessage(fmt.Sprintf("Deleted captions of page %s", args[0]))
			return nil
		},
	}
}

func pageArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "clock"
}

// readCaptionsFile reads one caption per line, skipping blanks and # comments
func readCaptionsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open captions file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var captions []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		captions = append(captions, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read captions file: %w", err)
	}
	return captions, nil
}

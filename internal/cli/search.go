package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/pkg/search"
)

func newSearchCmd(opts *RootOptions) *cobra.Command {
	var kind string
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search categories, services and users",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := search.ParseType(kind)
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			results, err := opts.app.Search().SearchLimit(cmd.Context(), query, t, limit)
			if err != nil {
				return err
			}
			if results == nil {
				results = []search.Result{}
			}

			return writeOutput(cmd, opts.Output, map[string]any{"query": query, "type": t, "results": results}, func(w io.Writer) error {
				if len(results) == 0 {
					_, err := fmt.Fprintln(w, "No results")
					return err
				}
				for _, r := range results {
					if _, err := fmt.Fprintf(w, "%-9s %-12s %s%s\n", r.Entity, r.ID, r.Name, detail(r)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&kind, "type", string(search.General), "Search type: categories|services|users|general")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results (0 uses the configured default)")
	return cmd
}

func detail(r search.Result) string {
	var parts []string
	if r.CategoryName != "" {
		parts = append(parts, r.CategoryName)
	}
	if r.Duration != "" {
		parts = append(parts, r.Duration)
	}
	if r.Email != "" {
		parts = append(parts, r.Email)
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

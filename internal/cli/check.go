package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/uniqueness"
)

func newCheckCmd(opts *RootOptions) *cobra.Command {
	var field, exclude, scope string

	cmd := &cobra.Command{
		Use:   "check <entity> <name>",
		Short: "Check whether a name is still available",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := entity.ParseType(args[0])
			if err != nil {
				return err
			}
			set, err := opts.app.Catalog().Lookup(t)
			if err != nil {
				return err
			}
			if field == "" {
				if fields := set.UniqueFields(); len(fields) > 0 {
					field = fields[0]
				}
			}
			rule, ok := set.Unique(field)
			if !ok {
				return fmt.Errorf("%s has no unique field %q", t, field)
			}

			name := strings.Join(args[1:], " ")
			q := uniqueness.Query{
				Entity:     t,
				Column:     rule.Column,
				Name:       name,
				ExcludeID:  exclude,
				ScopeField: rule.ScopeField,
			}
			if rule.ScopeField != "" {
				q.ScopeValue = scope
			}
			available, err := opts.app.Checker().CheckUnique(cmd.Context(), q)
			if err != nil {
				return err
			}

			message := rule.Message
			if available {
				message = fmt.Sprintf("%s is available", strings.TrimSpace(name))
			} else if message == "" {
				message = fmt.Sprintf("%s is already taken", set.Label(field))
			}
			return writeOutput(cmd, opts.Output, map[string]any{
				"entity":    t,
				"field":     field,
				"name":      strings.TrimSpace(name),
				"available": available,
			}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, message)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&field, "field", "", "Unique field to check (defaults to the entity's first unique field)")
	cmd.Flags().StringVar(&exclude, "exclude", "", "Record id to ignore, e.g. the record being edited")
	cmd.Flags().StringVar(&scope, "scope", "", "Scope value for scoped fields, e.g. the service category id")
	return cmd
}

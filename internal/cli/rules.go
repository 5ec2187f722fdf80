package cli

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/rules"
)

func newRulesCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rules [entity]",
		Short: "Print the active rule catalog as YAML (ignores --output)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := opts.app.Catalog()
			types := catalog.Types()
			if len(args) == 1 {
				t, err := entity.ParseType(args[0])
				if err != nil {
					return err
				}
				types = []entity.Type{t}
			}

			sets := make([]*rules.RuleSet, 0, len(types))
			for _, t := range types {
				set, err := catalog.Lookup(t)
				if err != nil {
					return err
				}
				sets = append(sets, set)
			}
			data, err := rules.Marshal(sets...)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

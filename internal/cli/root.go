// Package cli implements the formflow command tree.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	formflow "github.com/goliatone/go-formflow"
	"github.com/goliatone/go-formflow/internal/config"
	"github.com/goliatone/go-formflow/internal/logging"
	"github.com/goliatone/go-formflow/pkg/prompt"
)

const (
	FormatHuman = "human"
	FormatJSON  = "json"
)

type RootOptions struct {
	ConfigPath string
	Backend    string
	Seed       string
	LogLevel   string
	Output     string

	// lookupEnv and driver are replaced in tests.
	lookupEnv func(string) (string, bool)
	driver    prompt.Driver

	cfg    *config.Config
	logger *zap.Logger
	app    *formflow.App
	closer func() error
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&RootOptions{lookupEnv: os.LookupEnv})
}

func newRootCmd(opts *RootOptions) *cobra.Command {
	if opts.lookupEnv == nil {
		opts.lookupEnv = os.LookupEnv
	}

	cmd := &cobra.Command{
		Use:           "formflow",
		Short:         "Validated entity forms, uniqueness checks and search for the marketplace admin",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.Output = strings.ToLower(strings.TrimSpace(opts.Output))
			if opts.Output != FormatHuman && opts.Output != FormatJSON {
				return fmt.Errorf("invalid --output value %q: supported values are %s|%s", opts.Output, FormatHuman, FormatJSON)
			}

			cfg, err := config.LoadWith(opts.ConfigPath, opts.lookupEnv)
			if err != nil {
				return err
			}
			if opts.Backend != "" {
				cfg.Store.Backend = opts.Backend
			}
			if opts.Seed != "" {
				cfg.Store.Seed = opts.Seed
			}
			if opts.LogLevel != "" {
				cfg.Log.Level = opts.LogLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			app, closer, err := openApp(cmd.Context(), cfg, logger)
			if err != nil {
				_ = logger.Sync()
				return fmt.Errorf("initialize %s store: %w", cfg.Store.Backend, err)
			}

			opts.cfg, opts.logger, opts.app, opts.closer = cfg, logger, app, closer
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
			if opts.closer != nil {
				if err := opts.closer(); err != nil {
					return fmt.Errorf("close store: %w", err)
				}
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "Store backend: memory|sqlite|supabase (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Seed, "seed", "", "YAML fixture loaded into the store before running")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "Log level (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Output, "output", FormatHuman, "Output format: human|json")

	cmd.AddCommand(
		newServeCmd(opts),
		newSearchCmd(opts),
		newCheckCmd(opts),
		newCreateCmd(opts),
		newRulesCmd(opts),
	)
	return cmd
}

package cli

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/prompt"
	"github.com/goliatone/go-formflow/pkg/upload"
	"github.com/goliatone/go-formflow/pkg/workflow"
)

var roleChoices = []prompt.Choice{
	{Value: "customer", Label: "Customer"},
	{Value: "provider", Label: "Provider"},
	{Value: "admin", Label: "Admin"},
}

func newCreateCmd(opts *RootOptions) *cobra.Command {
	var icon string

	cmd := &cobra.Command{
		Use:   "create <entity>",
		Short: "Create a record through interactive prompts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := entity.ParseType(args[0])
			if err != nil {
				return err
			}
			if icon != "" && t != entity.Category {
				return fmt.Errorf("--icon only applies to categories")
			}

			var (
				w    *workflow.Workflow
				skip []string
			)
			if t == entity.Category {
				cw, err := opts.app.CategoryForm()
				if err != nil {
					return err
				}
				defer cw.Close()
				if icon != "" {
					stored, err := attachIcon(cmd, cw, icon)
					if err != nil {
						return err
					}
					opts.logger.Info("icon uploaded", zap.String("path", stored.Path))
					skip = append(skip, "icon_url")
				}
				w = cw.Workflow
			} else {
				w, err = opts.app.Form(t)
				if err != nil {
					return err
				}
				defer w.Close()
			}

			sessionOpts := []prompt.Option{prompt.WithLogger(opts.logger), prompt.WithSkip(skip...)}
			switch t {
			case entity.Service, entity.Provider:
				options, err := w.CategoryOptions(ctx)
				if err != nil {
					return err
				}
				choices := make([]prompt.Choice, 0, len(options))
				for _, o := range options {
					choices = append(choices, prompt.Choice{Value: o.Value, Label: o.Label})
				}
				if len(choices) == 0 {
					return fmt.Errorf("create a category before adding a %s", t)
				}
				sessionOpts = append(sessionOpts, prompt.WithChoices("category_id", choices))
			case entity.User:
				sessionOpts = append(sessionOpts, prompt.WithChoices("role", roleChoices))
			}

			driver := opts.driver
			if driver == nil {
				driver = prompt.NewSurveyDriver(cmd.OutOrStdout())
			}
			rec, err := prompt.NewSession(driver, w.Controller, sessionOpts...).Run(ctx)
			if err != nil {
				return err
			}

			return writeOutput(cmd, opts.Output, rec, func(out io.Writer) error {
				_, err := fmt.Fprintf(out, "Created %s %q (%s)\n", t, rec.Name, rec.ID)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&icon, "icon", "", "Image file uploaded as the category icon")
	return cmd
}

func attachIcon(cmd *cobra.Command, cw *workflow.CategoryWorkflow, path string) (upload.Stored, error) {
	f, err := os.Open(path)
	if err != nil {
		return upload.Stored{}, fmt.Errorf("open icon: %w", err)
	}
	defer f.Close()

	stored, err := cw.AttachIcon(cmd.Context(), upload.File{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Body:        f,
	})
	if err != nil {
		return upload.Stored{}, err
	}
	if state, _ := cw.Snapshot().Field("icon_url"); state.Error != "" {
		return stored, fmt.Errorf("icon: %s", state.Error)
	}
	return stored, nil
}

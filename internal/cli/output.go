package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// writeOutput writes v as indented JSON for --output json, otherwise it hands the
// writer to human.
func writeOutput(cmd *cobra.Command, format string, v any, human func(io.Writer) error) error {
	out := cmd.OutOrStdout()
	if format == FormatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return human(out)
}

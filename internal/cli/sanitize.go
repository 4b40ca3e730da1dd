package cli

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/planetarium/internal/sanitize"
	"github.com/roach88/planetarium/internal/scene"
)

// NewSanitizeCommand creates the sanitize command.
func NewSanitizeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sanitize <file>",
		Short: "Repair a persisted scene document and print the result",
		Long: `Run a persisted scene document through the same repair rules used at
startup and print the recovered document. Storage is not touched.

Use "-" to read from stdin.

Example:
  planetarium sanitize .planetarium/planetarium.instances.v1.json
  cat scene.json | planetarium --variant planets sanitize -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSanitize(rootOpts, args[0], cmd)
		},
	}
}

type sanitizeResult struct {
	Kept     int            `json:"kept"`
	Dropped  int            `json:"dropped"`
	Corrupt  bool           `json:"corrupt,omitempty"`
	Document scene.Document `json:"document"`
}

func runSanitize(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	configureLogging(opts, cmd)

	cfg, err := loadConfig(opts)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInvalidConfig, "invalid configuration", err)
	}

	var data []byte
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeUnreadableInput, "failed to read input", err)
	}

	res := sanitize.StateJSON(data, sanitize.Options{Variant: cfg.Variant, Max: cfg.MaxInstances})
	result := sanitizeResult{
		Kept:     len(res.Instances),
		Dropped:  res.Dropped,
		Corrupt:  res.Corrupt,
		Document: scene.Document{Instances: res.Instances, SelectedID: res.SelectedID},
	}
	if f.JSON() {
		return f.Success(result)
	}

	if res.Corrupt {
		f.Printf("input is not valid JSON; nothing kept\n")
	} else {
		f.Printf("kept %d, dropped %d\n", result.Kept, result.Dropped)
	}
	out, err := json.MarshalIndent(result.Document, "", "  ")
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "failed to encode document", err)
	}
	f.Printf("%s\n", out)
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/planetarium/internal/scene"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // path to a YAML config file
	Variant string // overrides the config variant when set
	Store   string // overrides the storage path (file root or sqlite database)
	Seed    uint64

	seedSet bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the planetarium CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "planetarium",
		Short: "Planetarium - a persistent procedural scene",
		Long: `Generate, select and persist procedurally placed shapes or planets.

Every command opens the scene from storage, applies one operation and saves
the result, so consecutive invocations build up the same scene.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Variant != "" {
				if _, err := scene.ParseVariant(opts.Variant); err != nil {
					return err
				}
			}
			opts.seedSet = cmd.Flags().Changed("seed")
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Variant, "variant", "", "scene variant (shapes|planets)")
	cmd.PersistentFlags().StringVar(&opts.Store, "store", "", "storage path (file root or sqlite database)")
	cmd.PersistentFlags().Uint64Var(&opts.Seed, "seed", 0, "seed the generator for reproducible output")

	// Add subcommands
	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewSelectCommand(opts))
	cmd.AddCommand(NewTapCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewTextureCommand(opts))
	cmd.AddCommand(NewAnimateCommand(opts))
	cmd.AddCommand(NewSanitizeCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// newFormatter builds the formatter for cmd's output streams.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

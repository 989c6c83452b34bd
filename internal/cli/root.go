package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/regcompat/internal/registry"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// CommandName is the executable name shown in help text.
const CommandName = "package-registry-compatibility"

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   CommandName,
		Short: "Package registry API compatibility checks",
		Long: `Check a package registry server against the registry HTTP API.

Each subcommand exercises one endpoint of the registry at <url>, driven by
the configuration file at <config-path>; "all" exercises every endpoint
the configuration has a section for.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewCheckCommand(opts, ""))
	for _, e := range registry.Endpoints() {
		cmd.AddCommand(NewCheckCommand(opts, e))
	}
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// Execute runs the root command with args and returns the process exit
// code. An *ExitError has already been reported by its command; any other
// error, such as a bad argument, is written to stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	var exitErr *ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", CommandName)
		return ExitCommandError
	}
	return GetExitCode(err)
}

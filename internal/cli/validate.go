package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/regcompat/internal/config"
	"github.com/roach88/regcompat/internal/registry"
)

// ValidationResult is the payload of a successful validate command.
type ValidationResult struct {
	Valid     bool                `json:"valid"`
	Endpoints []registry.Endpoint `json:"endpoints"`
}

func (r ValidationResult) String() string {
	names := make([]string, len(r.Endpoints))
	for i, e := range r.Endpoints {
		names[i] = string(e)
	}
	return fmt.Sprintf("Configuration is valid (%d endpoint(s): %s)", len(r.Endpoints), strings.Join(names, ", "))
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var generateData bool

	cmd := &cobra.Command{
		Use:   "validate <config-path>",
		Short: "Validate a configuration without contacting a registry",
		Long: `Validate a configuration without contacting a registry.

Decodes the file, checks it against the configuration schema and checks
every package identity and version. With --generate-data the file is a
test data configuration and its archives are read as well.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], generateData, cmd)
		},
	}

	cmd.Flags().BoolVar(&generateData, "generate-data", false, "treat <config-path> as a test data configuration")

	return cmd
}

func runValidate(opts *RootOptions, configPath string, generateData bool, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var cfg *config.Configuration
	if generateData {
		gen, err := config.LoadGenerateConfig(configPath)
		if err == nil {
			var derived *config.Derived
			derived, err = config.Derive(gen, filepath.Dir(configPath), config.UUIDSuffixes{})
			if err == nil {
				cfg = derived.Config
			}
		}
		if err != nil {
			formatter.Error(ErrCodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid configuration", err)
		}
	} else {
		loaded, err := config.Load(configPath)
		if err != nil {
			formatter.Error(ErrCodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid configuration", err)
		}
		cfg = loaded
	}

	formatter.VerboseLog("Loaded %s", configPath)
	return formatter.Success(ValidationResult{Valid: true, Endpoints: cfg.Endpoints()})
}

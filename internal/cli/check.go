package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/roach88/regcompat/internal/config"
	"github.com/roach88/regcompat/internal/fixture"
	"github.com/roach88/regcompat/internal/harness"
	"github.com/roach88/regcompat/internal/ident"
	"github.com/roach88/regcompat/internal/probe"
	"github.com/roach88/regcompat/internal/provision"
	"github.com/roach88/regcompat/internal/registry"
)

// NewCheckCommand creates the subcommand checking endpoint, or every
// configured endpoint when endpoint is empty.
func NewCheckCommand(rootOpts *RootOptions, endpoint registry.Endpoint) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	name, short := "all", "Check every configured endpoint"
	if endpoint != "" {
		name, short = string(endpoint), "Check "+endpoint.Title()
	}

	cmd := &cobra.Command{
		Use:   name + " <url> <config-path>",
		Short: short,
		Long: fmt.Sprintf(`%s.

Usage:
  %s %s <url> <config-path> [flags]

<url> is the base URL of the registry under test. <config-path> is a
configuration file (.json, .jsonc, .yaml or .yml). With --generate-data it
describes test packages instead: their releases are published to the
registry under fresh scopes before the checks run, and the responses are
recorded into --fixtures when given. Without it the configuration names
releases the registry already has, and responses are compared against
--fixtures when given.

Exit codes:
  0 - All checks passed
  1 - One or more checks failed, or the run was interrupted
  2 - Command or configuration error
  3 - Internal error

Examples:
  %[2]s %[3]s https://registry.example.com ./config.json
  %[2]s %[3]s https://registry.example.com ./gendata.yaml --generate-data --output-config ./derived.json
  %[2]s %[3]s http://localhost:8080 ./config.json --auth-token bearer:s3cret --format json`,
			short, CommandName, name),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, endpoint, args[0], args[1], cmd)
		},
	}

	cmd.Flags().AddFlagSet(checkFlags(opts))

	return cmd
}

// newLogger returns a text logger on w, at debug level when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// plan is everything a check run needs besides the fixture store. A nil
// provisioner is replaced by a Publisher once the client exists.
type plan struct {
	config      *config.Configuration
	provisions  map[registry.Endpoint][]provision.Release
	provisioner provision.Provisioner
	mode        harness.Mode
}

func runCheck(opts *CheckOptions, endpoint registry.Endpoint, baseURL, configPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
		Color:     opts.Format == "text" && isTerminal(cmd.OutOrStdout()),
	}
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	fail := func(exitCode int, code, message string, err error) error {
		if err != nil {
			formatter.Error(code, message+": "+err.Error(), nil)
		} else {
			formatter.Error(code, message, nil)
		}
		return WrapExitError(exitCode, message, err)
	}

	var credentials *ident.AuthToken
	if opts.AuthToken != "" {
		token, ok := ident.ParseAuthToken(opts.AuthToken)
		if !ok {
			return fail(ExitCommandError, ErrCodeUsage,
				`invalid --auth-token: expected "scheme:secret" with scheme basic, bearer or token`, nil)
		}
		credentials = &token
	}
	if opts.OutputConfig != "" && !opts.GenerateData {
		return fail(ExitCommandError, ErrCodeUsage, "--output-config requires --generate-data", nil)
	}

	client, err := probe.New(baseURL, probe.WithTimeout(opts.Timeout), probe.WithLogger(logger))
	if err != nil {
		return fail(ExitCommandError, ErrCodeUsage, "invalid registry URL", err)
	}

	p, err := loadPlan(opts, configPath)
	if err != nil {
		return fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	maxWait := opts.MaxProcessingTime
	if maxWait <= 0 && p.config.CreatePackageRelease != nil && p.config.CreatePackageRelease.MaxProcessingTimeInSeconds > 0 {
		maxWait = time.Duration(p.config.CreatePackageRelease.MaxProcessingTimeInSeconds) * time.Second
	}
	if p.provisioner == nil {
		p.provisioner = provision.NewPublisher(client,
			provision.WithCredentials(credentials),
			provision.WithPolling(0, maxWait),
			provision.WithLogger(logger),
		)
	}

	scenarios, err := selectScenarios(p, endpoint)
	if err != nil {
		return fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	formatter.VerboseLog("%d scenario(s) against %s in %s mode", len(scenarios), client.BaseURL(), p.mode)

	ctrlOpts := []harness.ControllerOption{
		harness.WithWorkers(opts.Workers),
		harness.WithLogger(logger),
	}
	if opts.Fixtures != "" {
		store, err := fixture.Open(opts.Fixtures)
		if err != nil {
			return fail(ExitCommandError, ErrCodeFixtures, "failed to open fixture database", err)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				logger.Error("error closing fixture database", "error", closeErr)
			}
		}()
		ctrlOpts = append(ctrlOpts, harness.WithFixtures(store))
	}

	runner := harness.NewRunner(client, p.provisioner,
		harness.WithCredentials(credentials),
		harness.WithProcessing(0, maxWait),
		harness.WithRunnerLogger(logger),
	)
	ctrl := harness.NewController(runner, p.mode, ctrlOpts...)

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, canceling run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	rep, err := ctrl.Run(ctx, scenarios)
	if harness.IsInternalError(err) {
		return fail(ExitInternalError, ErrCodeInternal, "internal error", err)
	}
	if outErr := formatter.Report(rep); outErr != nil {
		return WrapExitError(ExitCommandError, "failed to write report", outErr)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "run canceled", err)
	}
	if !rep.Pass {
		return NewExitError(ExitFailure, failedMessage(rep))
	}
	return nil
}

// loadPlan reads the configuration. A test data configuration is derived
// into a run configuration and provisioned by publishing; a plain one
// names releases that already exist.
func loadPlan(opts *CheckOptions, configPath string) (*plan, error) {
	if !opts.GenerateData {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		return &plan{config: cfg, provisioner: provision.Nop{}, mode: harness.ModeVerify}, nil
	}

	gen, err := config.LoadGenerateConfig(configPath)
	if err != nil {
		return nil, err
	}
	derived, err := config.Derive(gen, filepath.Dir(configPath), config.UUIDSuffixes{})
	if err != nil {
		return nil, err
	}
	if opts.OutputConfig != "" {
		if err := config.Save(opts.OutputConfig, derived.Config); err != nil {
			return nil, err
		}
	}
	return &plan{config: derived.Config, provisions: derived.Provisions, mode: harness.ModeGenerate}, nil
}

func selectScenarios(p *plan, endpoint registry.Endpoint) ([]harness.Scenario, error) {
	if endpoint != "" && !p.config.Has(endpoint) {
		return nil, fmt.Errorf("configuration has no section for %s", endpoint)
	}
	all := harness.Plan(p.config, p.provisions)
	if endpoint == "" {
		if len(all) == 0 {
			return nil, fmt.Errorf("configuration has no endpoint sections")
		}
		return all, nil
	}
	var out []harness.Scenario
	for _, sc := range all {
		if sc.Endpoint == endpoint {
			out = append(out, sc)
		}
	}
	return out, nil
}

package cli

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/roach88/regcompat/internal/probe"
)

// CheckOptions holds the flags shared by every check subcommand.
type CheckOptions struct {
	*RootOptions

	AuthToken         string
	GenerateData      bool
	Fixtures          string
	OutputConfig      string
	Timeout           time.Duration
	Workers           int
	MaxProcessingTime time.Duration
}

// checkFlags returns the flag set of a check subcommand bound to opts.
func checkFlags(opts *CheckOptions) *pflag.FlagSet {
	fs := pflag.NewFlagSet("check", pflag.ContinueOnError)
	fs.StringVar(&opts.AuthToken, "auth-token", "",
		`credentials as "scheme:secret", scheme one of basic, bearer, token`)
	fs.BoolVar(&opts.GenerateData, "generate-data", false,
		"treat <config-path> as a test data configuration: publish the releases it describes and record fixtures")
	fs.StringVar(&opts.Fixtures, "fixtures", "",
		"fixture database; recorded with --generate-data, compared against otherwise")
	fs.StringVar(&opts.OutputConfig, "output-config", "",
		"with --generate-data, write the derived configuration to this path (.json or .yaml)")
	fs.DurationVar(&opts.Timeout, "timeout", probe.DefaultTimeout, "timeout of each HTTP request")
	fs.IntVar(&opts.Workers, "workers", 1, "number of scenarios run concurrently")
	fs.DurationVar(&opts.MaxProcessingTime, "max-processing-time", 0,
		"how long an asynchronous publication is polled (default from configuration, else 10s)")
	return fs
}

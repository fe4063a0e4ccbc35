package cli

import (
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ablizer/ablizer/internal/config"
)

// logger is the application-wide structured logger (writes to stderr).
var logger = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
	ReportTimestamp: false,
	Prefix:          "ablizer",
})

// rootOptions holds the global flags and the configuration resolved from
// them before any subcommand runs.
type rootOptions struct {
	configPath string
	dbPath     string
	alpha      float64
	verbose    bool

	cfg *config.Config
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "ablizer",
		Short: "ablizer - record A/B test results and check their significance",
		Long: `ablizer records impressions and conversions for two-variant A/B tests,
picks the right significance test (Fisher's exact test for small counts,
a pooled two-proportion z-test otherwise) and reports whether variant B
is winning, losing, or still undecided.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default "+config.DefaultFile+")")
	pf.StringVar(&opts.dbPath, "db", "", "database path (overrides config and "+config.EnvDBPath+")")
	pf.Float64Var(&opts.alpha, "alpha", config.Default().Alpha, "significance level (overrides config and "+config.EnvAlpha+")")
	pf.BoolVarP(&opts.verbose, "verbose", "V", false, "enable debug logging")

	cmd.AddCommand(
		newCreateCmd(opts),
		newEditCmd(opts),
		newRecordCmd(opts),
		newResultsCmd(opts),
		newListCmd(opts),
		newExportCmd(opts),
		newDeleteCmd(opts),
		newServeCmd(opts),
	)

	return cmd
}

func Execute() error {
	return NewRootCmd().Execute()
}

func (o *rootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("db") {
		cfg.DBPath = o.dbPath
	}
	if cmd.Flags().Changed("alpha") {
		cfg.Alpha = o.alpha
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.SetLevel(cfg.Level())
	if o.verbose {
		logger.SetLevel(charmlog.DebugLevel)
	}
	logger.Debug("configuration loaded", "db", cfg.DBPath, "alpha", cfg.Alpha)

	o.cfg = cfg
	return nil
}

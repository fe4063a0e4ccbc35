package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ablizer/ablizer/internal/report"
	"github.com/ablizer/ablizer/internal/stats"
	"github.com/ablizer/ablizer/internal/store"
)

func newRecordCmd(opts *rootOptions) *cobra.Command {
	var (
		variantA string
		variantB string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "record <name>",
		Short: "Record variant counts and compute the report",
		Long: `Record impressions and conversions for variants A (control) and B,
run the significance test and store the resulting report.

Counts replace any previously recorded counts for the test.

Examples:
  ablizer record hero --a 1000:50 --b 1000:80
  ablizer record hero --a 100:3 --b 100:10 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if err := validateFormat(format, "text", "json"); err != nil {
				return err
			}

			a, err := parseCounts("a", variantA)
			if err != nil {
				return err
			}
			b, err := parseCounts("b", variantB)
			if err != nil {
				return err
			}

			return opts.withStore(func(s *store.SQLiteStore) error {
				ctx := cmd.Context()
				test, err := getTest(ctx, s, name)
				if err != nil {
					return err
				}

				rep, err := opts.analyzer(s).Record(ctx, test, a, b)
				if err != nil {
					return describeInputError(err)
				}
				logger.Info("report saved", "test", name, "method", rep.Method, "p_value", rep.PValue, "outcome", rep.Outcome)

				if format == "json" {
					return report.WriteJSON(cmd.OutOrStdout(), []report.Report{rep})
				}
				return report.WriteText(cmd.OutOrStdout(), rep)
			})
		},
	}

	cmd.Flags().StringVar(&variantA, "a", "", "control counts as impressions:conversions (required)")
	cmd.Flags().StringVar(&variantB, "b", "", "variant counts as impressions:conversions (required)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text or json)")
	_ = cmd.MarkFlagRequired("a")
	_ = cmd.MarkFlagRequired("b")

	return cmd
}

// parseCounts reads "impressions:conversions". Range checks are left to
// stats.Compute so the messages name the same fields everywhere.
func parseCounts(flag, value string) (stats.Sample, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return stats.Sample{}, fmt.Errorf("invalid --%s %q: expected impressions:conversions", flag, value)
	}

	impressions, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return stats.Sample{}, fmt.Errorf("invalid --%s impressions %q: not an integer", flag, parts[0])
	}
	conversions, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return stats.Sample{}, fmt.Errorf("invalid --%s conversions %q: not an integer", flag, parts[1])
	}

	return stats.Sample{Impressions: impressions, Conversions: conversions}, nil
}

// describeInputError turns calculator validation failures into a message
// that names the offending field.
func describeInputError(err error) error {
	var inputErr *stats.InvalidInputError
	if errors.As(err, &inputErr) {
		return fmt.Errorf("cannot analyze counts: %s %s (got %v)", inputErr.Field, inputErr.Reason, inputErr.Value)
	}
	return err
}

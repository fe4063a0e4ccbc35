package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ablizer/ablizer/internal/report"
	"github.com/ablizer/ablizer/internal/store"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export [name...]",
		Short: "Export reports for one or more tests",
		Long: `Export reports in JSON or CSV format. Without names every test that has
recorded counts is exported.

Examples:
  ablizer export --format json > reports.json
  ablizer export hero cta --format csv > reports.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format, "json", "csv"); err != nil {
				return err
			}

			return opts.withStore(func(s *store.SQLiteStore) error {
				ctx := cmd.Context()

				var tests []*store.Test
				if len(args) == 0 {
					all, err := s.ListTests(ctx)
					if err != nil {
						return fmt.Errorf("failed to list tests: %w", err)
					}
					tests = all
				} else {
					for _, name := range args {
						test, err := getTest(ctx, s, name)
						if err != nil {
							return err
						}
						tests = append(tests, test)
					}
				}

				reports := make([]report.Report, 0, len(tests))
				for _, test := range tests {
					a, err := opts.analyzer(s).Analyze(ctx, test)
					if err != nil {
						return fmt.Errorf("test '%s': %w", test.Name, describeInputError(err))
					}
					rep, ok := a.Report()
					if !ok {
						logger.Debug("skipping test without counts", "test", test.Name)
						continue
					}
					reports = append(reports, rep)
				}

				if format == "csv" {
					return exportCSV(cmd.OutOrStdout(), reports)
				}
				return report.WriteJSON(cmd.OutOrStdout(), reports)
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json or csv)")

	return cmd
}

var csvHeader = []string{
	"test_name", "metric", "method",
	"sample_size_a", "conversions_a", "conv_rate_a",
	"sample_size_b", "conversions_b", "conv_rate_b",
	"difference", "p_value", "significant", "alpha",
	"ci_95_low", "ci_95_high", "standard_deviation",
	"increase_percent", "outcome",
}

func exportCSV(out io.Writer, reports []report.Report) error {
	w := csv.NewWriter(out)

	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range reports {
		low, high, z := "", "", ""
		if r.CI95 != nil {
			low = formatFloat(r.CI95[0])
			high = formatFloat(r.CI95[1])
		}
		if r.StandardDeviation != nil {
			z = formatFloat(*r.StandardDeviation)
		}

		row := []string{
			r.TestName, r.Metric, string(r.Method),
			strconv.Itoa(r.SampleSizeA), strconv.Itoa(r.ConversionsA), formatFloat(r.ConvRateA),
			strconv.Itoa(r.SampleSizeB), strconv.Itoa(r.ConversionsB), formatFloat(r.ConvRateB),
			formatFloat(r.Difference), formatFloat(r.PValue), strconv.FormatBool(r.Significant), formatFloat(r.Alpha),
			low, high, z,
			formatFloat(r.IncreasePercent), string(r.Outcome),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

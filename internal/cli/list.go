package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ablizer/ablizer/internal/analysis"
	"github.com/ablizer/ablizer/internal/report"
	"github.com/ablizer/ablizer/internal/store"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all tests",
		Long:  `List all A/B tests with their counts, p-values and verdicts, followed by totals and the share of winning, losing and other tests.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(func(s *store.SQLiteStore) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()

				// A test that cannot be analyzed is still listed, without a verdict.
				analyses, err := opts.analyzer(s).All(ctx, func(test *store.Test, err error) {
					logger.Warn("cannot analyze test", "test", test.Name, "err", err)
				})
				if err != nil {
					return err
				}

				if len(analyses) == 0 {
					fmt.Fprintln(out, "No tests yet.")
					fmt.Fprintln(out)
					fmt.Fprintln(out, "Create one with:")
					fmt.Fprintln(out, "  ablizer create <name> --metric CTR")
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tMETRIC\tIMPRESSIONS\tCONVERSIONS\tMETHOD\tP-VALUE\tVERDICT\tCREATED")

				for _, a := range analyses {
					impressions, conversions := 0, 0
					for _, v := range a.Variants {
						impressions += v.Impressions
						conversions += v.Conversions
					}

					method, pValue := "-", "-"
					if a.Result != nil {
						method = string(a.Result.Method)
						pValue = fmt.Sprintf("%.4f", a.Result.PValue)
					}

					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						a.Test.Name,
						dash(a.Test.Metric),
						report.FormatNumber(impressions),
						report.FormatNumber(conversions),
						method,
						pValue,
						strings.ToUpper(string(a.Label())),
						a.Test.CreatedAt.Format("2006-01-02"),
					)
				}

				if err := w.Flush(); err != nil {
					return err
				}

				totals, err := s.Totals(ctx)
				if err != nil {
					return fmt.Errorf("failed to get totals: %w", err)
				}
				ratios := analysis.Ratios(analyses)

				fmt.Fprintln(out)
				fmt.Fprintf(out, "Tests: %d  Impressions: %s  Conversions: %s\n",
					totals.Tests, report.FormatNumber(totals.Impressions), report.FormatNumber(totals.Conversions))
				fmt.Fprintf(out, "Winning: %d (%.1f%%)  Losing: %d (%.1f%%)  Other: %d (%.1f%%)\n",
					ratios.Winning, ratios.WinningPercent,
					ratios.Losing, ratios.LosingPercent,
					ratios.Other, ratios.OtherPercent)
				return nil
			})
		},
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

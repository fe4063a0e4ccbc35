package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ablizer/ablizer/internal/report"
	"github.com/ablizer/ablizer/internal/store"
)

func newResultsCmd(opts *rootOptions) *cobra.Command {
	var (
		format string
		brief  bool
	)

	cmd := &cobra.Command{
		Use:   "results <name>",
		Short: "Show detailed results for a test",
		Long: `Show conversion rates, confidence intervals, the p-value and the verdict
for a test, recomputed from the stored counts at the current alpha.

--brief prints the plain-text description handed to summary tools.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if err := validateFormat(format, "text", "json"); err != nil {
				return err
			}

			return opts.withStore(func(s *store.SQLiteStore) error {
				ctx := cmd.Context()
				test, err := getTest(ctx, s, name)
				if err != nil {
					return err
				}

				a, err := opts.analyzer(s).Analyze(ctx, test)
				if err != nil {
					return describeInputError(err)
				}

				out := cmd.OutOrStdout()
				rep, ok := a.Report()
				if !ok {
					fmt.Fprintf(out, "TEST: %s\n\n", test.Name)
					fmt.Fprintf(out, "No counts recorded yet. Run:\n  ablizer record %s --a <impressions>:<conversions> --b <impressions>:<conversions>\n", test.Name)
					return nil
				}

				switch {
				case brief:
					_, err = fmt.Fprint(out, report.Brief(a.Meta(), rep))
					return err
				case format == "json":
					return report.WriteJSON(out, []report.Report{rep})
				}

				if err := report.WriteText(out, rep); err != nil {
					return err
				}

				last, err := s.LatestReport(ctx, name)
				if errors.Is(err, store.ErrNotFound) {
					return nil
				}
				if err != nil {
					return fmt.Errorf("failed to get latest report: %w", err)
				}
				fmt.Fprintf(out, "\nLast recorded: %s\n", last.CreatedAt.Format("2006-01-02 15:04"))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text or json)")
	cmd.Flags().BoolVar(&brief, "brief", false, "print the plain-text brief instead of the report")

	return cmd
}

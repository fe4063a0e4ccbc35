package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ablizer/ablizer/internal/store"
)

func newCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		description string
		metric      string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new A/B test",
		Long: `Create a new A/B test. Counts are added later with "ablizer record".

When --description or --metric is missing and stdin is a terminal, you are
prompted for it.

Examples:
  ablizer create hero --description "Homepage headline" --metric CTR
  ablizer create pricing`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return errors.New("test name must not be empty")
			}

			if isInteractive() {
				var err error
				if !cmd.Flags().Changed("description") {
					if description, err = promptText("Description", ""); err != nil {
						return err
					}
				}
				if !cmd.Flags().Changed("metric") {
					if metric, err = promptText("Metric", "CTR"); err != nil {
						return err
					}
				}
			}

			return opts.withStore(func(s *store.SQLiteStore) error {
				test, err := s.CreateTest(cmd.Context(), name, strings.TrimSpace(description), strings.TrimSpace(metric))
				if err != nil {
					if errors.Is(err, store.ErrAlreadyExists) {
						return fmt.Errorf("test '%s' already exists", name)
					}
					return fmt.Errorf("failed to create test: %w", err)
				}
				logger.Debug("test created", "name", test.Name, "id", test.ID)

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created test '%s'\n", test.Name)
				if test.Description != "" {
					fmt.Fprintf(out, "  Description: %s\n", test.Description)
				}
				if test.Metric != "" {
					fmt.Fprintf(out, "  Metric: %s\n", test.Metric)
				}
				fmt.Fprintf(out, "\nRecord counts with:\n  ablizer record %s --a <impressions>:<conversions> --b <impressions>:<conversions>\n", test.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "what the test changes")
	cmd.Flags().StringVarP(&metric, "metric", "m", "", "metric being measured, e.g. CTR")

	return cmd
}

func newEditCmd(opts *rootOptions) *cobra.Command {
	var (
		description string
		metric      string
	)

	cmd := &cobra.Command{
		Use:   "edit <name>",
		Short: "Change a test's description or metric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !cmd.Flags().Changed("description") && !cmd.Flags().Changed("metric") {
				return errors.New("nothing to change: pass --description and/or --metric")
			}

			return opts.withStore(func(s *store.SQLiteStore) error {
				ctx := cmd.Context()
				test, err := getTest(ctx, s, name)
				if err != nil {
					return err
				}

				if cmd.Flags().Changed("description") {
					test.Description = strings.TrimSpace(description)
				}
				if cmd.Flags().Changed("metric") {
					test.Metric = strings.TrimSpace(metric)
				}

				if err := s.UpdateTest(ctx, name, test.Description, test.Metric); err != nil {
					return fmt.Errorf("failed to update test: %w", err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Updated test '%s'\n", name)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVarP(&metric, "metric", "m", "", "new metric")

	return cmd
}

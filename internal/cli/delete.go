package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ablizer/ablizer/internal/store"
)

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a test with its counts and reports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			return opts.withStore(func(s *store.SQLiteStore) error {
				ctx := cmd.Context()
				if _, err := getTest(ctx, s, name); err != nil {
					return err
				}

				if !yes {
					if !isInteractive() {
						return fmt.Errorf("refusing to delete '%s' without --yes", name)
					}
					ok, err := confirm(fmt.Sprintf("Delete test '%s' and all its reports", name))
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
						return nil
					}
				}

				if err := s.DeleteTest(ctx, name); err != nil {
					return fmt.Errorf("failed to delete test: %w", err)
				}
				logger.Debug("test deleted", "name", name)

				fmt.Fprintf(cmd.OutOrStdout(), "Deleted test '%s'\n", name)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}

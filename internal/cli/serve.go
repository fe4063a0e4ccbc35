package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ablizer/ablizer/internal/server"
	"github.com/ablizer/ablizer/internal/store"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		port       int
		cacheSize  int
		recordRate int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve reports over HTTP",
		Long: `Start the ablizer JSON API.

Endpoints:
  GET  /health                    health and test count
  GET  /api/reports               report document for every test with counts
  GET  /api/tests/{name}/report   report for one test
  POST /api/tests/{name}/counts   record counts and return the new report
  GET  /metrics                   Prometheus metrics

Example:
  ablizer serve --port 8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(func(s *store.SQLiteStore) error {
				srv, err := server.New(s, server.Options{
					Port:       port,
					Alpha:      opts.cfg.Alpha,
					CacheSize:  cacheSize,
					RecordRate: recordRate,
					Logger:     logger,
				})
				if err != nil {
					return err
				}

				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				return srv.Start(ctx)
			})
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", server.DefaultPort, "port to listen on")
	cmd.Flags().IntVar(&cacheSize, "cache-size", server.DefaultCacheSize, "number of calculator results to cache")
	cmd.Flags().IntVar(&recordRate, "record-rate", server.DefaultRecordRate, "count submissions allowed per second")

	return cmd
}

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var schedule bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the status and trigger API while syncing on UPDATE_INTERVAL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, logger, err := opts.buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(a.Server.Start)
			if schedule {
				g.Go(func() error {
					a.Sync.RunScheduled(gctx, a.Config.UpdateInterval)
					return nil
				})
			}
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				return a.Server.Shutdown(shutdownCtx)
			})

			err = g.Wait()
			logger.Info("shutting down")
			return err
		},
	}
	cmd.Flags().BoolVar(&schedule, "schedule", true, "run sync passes on UPDATE_INTERVAL alongside the server")
	return cmd
}

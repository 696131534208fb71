package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	var (
		asJSON  bool
		showAll bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass and print the report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := opts.buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.Sync.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			printReport(cmd.OutOrStdout(), rep, showAll)
			if rep.Failed > 0 {
				return fmt.Errorf("%d source(s) failed", rep.Failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&showAll, "all", false, "list skipped sources too")
	return cmd
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sync now and then on every interval until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := opts.buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			every := a.Config.UpdateInterval
			if interval > 0 {
				every = interval
			}
			a.Sync.RunScheduled(cmd.Context(), every)
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "override UPDATE_INTERVAL")
	return cmd
}

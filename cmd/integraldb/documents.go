package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/integraldb/internal/core/state"
	"github.com/markdave123-py/integraldb/internal/services"
)

func newDocumentsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "documents",
		Short: "List the documents held in the vector store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, _, _, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			sources, err := services.NewDocumentService(store, nil).List(cmd.Context())
			if err != nil {
				return err
			}
			printSources(cmd.OutOrStdout(), sources)
			return nil
		},
	}
}

func newClearCmd(opts *rootOptions) *cobra.Command {
	var (
		yes        bool
		resetState bool
	)
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every chunk from the vector store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear without --yes")
			}
			store, cfg, logger, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			var states *state.Store
			if resetState {
				states = state.NewStore(cfg.StateFile, logger)
			}
			n, err := services.NewDocumentService(store, states).Clear(cmd.Context(), resetState)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d chunk(s)\n", n)
			if resetState {
				fmt.Fprintf(cmd.OutOrStdout(), "removed state file %s\n", cfg.StateFile)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	cmd.Flags().BoolVar(&resetState, "state", false, "also remove the fingerprint state file")
	return cmd
}

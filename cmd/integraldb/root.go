package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/integraldb/internal/app"
	"github.com/markdave123-py/integraldb/internal/config"
	"github.com/markdave123-py/integraldb/internal/core"
	db "github.com/markdave123-py/integraldb/internal/core/database"
)

type rootOptions struct {
	verbose bool
	logJSON bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "integraldb",
		Short:        "Sync Gmail attachments and Drive files into a pgvector store",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false, "log as JSON instead of text")

	cmd.AddCommand(
		newSyncCmd(opts),
		newRunCmd(opts),
		newServeCmd(opts),
		newDocumentsCmd(opts),
		newClearCmd(opts),
		newTokenCmd(opts),
		newJWTCmd(opts),
	)
	return cmd
}

func (o *rootOptions) logger() *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, hopts)
	if o.logJSON {
		h = slog.NewJSONHandler(os.Stderr, hopts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func (o *rootOptions) buildApp(ctx context.Context) (*app.App, *slog.Logger, error) {
	logger := o.logger()
	a, err := app.NewApp(ctx, config.LoadConfig(), logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		return nil, nil, err
	}
	return a, logger, nil
}

// openStore connects to the vector store only; listing and clearing need no Google or Gemini setup.
func (o *rootOptions) openStore(ctx context.Context) (*db.DatabaseClient, *config.Config, *slog.Logger, error) {
	logger := o.logger()
	cfg := config.LoadConfig()
	if cfg.DatabaseURL == "" {
		return nil, nil, nil, fmt.Errorf("%w: DATABASE_URL not set", core.ErrConfiguration)
	}
	client, err := db.NewDatabaseClient(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: database: %w", core.ErrConfiguration, err)
	}
	return client, cfg, logger, nil
}

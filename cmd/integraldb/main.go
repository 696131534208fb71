package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/markdave123-py/integraldb/internal/core"
)

func main() {
	// SIGINT/SIGTERM stop new sources from starting; in-flight writes finish
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, core.ErrConfiguration) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// Command solarcli cleans, analyses and reports on the Benin, Sierra Leone
// and Togo solar station datasets, and serves the results over HTTP.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"solarcli/internal/infrastructure"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := &rootOptions{}
	if err := newRootCmd(opts).ExecuteContext(ctx); err != nil {
		logger := opts.logger
		if logger == nil {
			logger = infrastructure.NewLogger("error", os.Stderr)
		}
		logger.ErrorContext(ctx, "command failed", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}

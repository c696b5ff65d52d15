package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"solarcli/internal/app"
	"solarcli/internal/services"
)

func serveSubcommand(opts *rootOptions) *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := opts.newApp(func(o *app.Options) {
				o.Host = host
				o.Port = port
			})
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			// Warm the report cache when cleaned files already exist
			if _, err := application.AnalysisService.Refresh(ctx); err != nil {
				if !errors.Is(err, services.ErrNoData) {
					_ = application.Close(context.WithoutCancel(ctx))
					return err
				}
				application.Logger.InfoContext(ctx, "no cleaned data yet; run the pipeline to populate the API",
					slog.String("cleaned_dir", application.Paths.CleanedDir))
			}

			return application.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")
	return cmd
}

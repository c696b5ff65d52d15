package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"solarcli/internal/app"
	"solarcli/pkg/contracts"
)

// rootOptions carries the global flags shared by every subcommand
type rootOptions struct {
	configFile string
	dataDir    string
	logLevel   string
	noProgress bool

	// logger is set once the application is built; tests inject one
	logger *slog.Logger
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "solarcli",
		Short:         "Solar irradiance pipeline for Benin, Sierra Leone and Togo",
		Version:       contracts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "path to a YAML config file")
	flags.StringVar(&opts.dataDir, "data-dir", "", "base data directory (raw, cleaned, reports)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "disable the progress bar")

	root.AddCommand(
		cleanSubcommand(opts),
		analyzeSubcommand(opts),
		reportSubcommand(opts),
		runSubcommand(opts),
		serveSubcommand(opts),
	)
	return root
}

// newApp builds the application container from the global flags
func (o *rootOptions) newApp(overrides ...func(*app.Options)) (*app.Application, error) {
	appOpts := app.Options{
		ConfigFile: o.configFile,
		DataDir:    o.dataDir,
		LogLevel:   o.logLevel,
		Logger:     o.logger,
	}
	for _, override := range overrides {
		override(&appOpts)
	}
	application, err := app.New(appOpts)
	if err != nil {
		return nil, err
	}
	o.logger = application.Logger
	return application, nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	apierrors "solarcli/internal/errors"
	"solarcli/internal/operations"
	"solarcli/pkg/contracts/domain"
)

// pipelineFlags are the per-command pipeline parameters
type pipelineFlags struct {
	countries  []string
	metric     string
	out        string
	noWorkbook bool
}

func (f *pipelineFlags) request(step string) (operations.OperationRequest, error) {
	params := map[string]interface{}{}
	if len(f.countries) > 0 {
		countries, err := domain.ParseCountries(f.countries)
		if err != nil {
			return operations.OperationRequest{}, apierrors.NewAppValidationError("invalid --country", err)
		}
		params[operations.ParamCountries] = countries
	}
	if f.metric != "" {
		if _, err := domain.ParseMetric(f.metric); err != nil {
			return operations.OperationRequest{}, apierrors.NewAppValidationError("invalid --metric", err)
		}
		params[operations.ParamMetric] = f.metric
	}
	if f.out != "" {
		out, err := filepath.Abs(f.out)
		if err != nil {
			return operations.OperationRequest{}, fmt.Errorf("resolve %s: %w", f.out, err)
		}
		params[operations.ParamOutput] = out
	}
	if f.noWorkbook {
		params[operations.ParamWorkbook] = false
	}

	mode := operations.ModeFull
	if step != operations.ModeFull {
		params[operations.ParamStep] = step
		mode = step
	}
	return operations.OperationRequest{Mode: mode, Parameters: params}, nil
}

func cleanSubcommand(opts *rootOptions) *cobra.Command {
	flags := &pipelineFlags{}
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Ingest raw station files and write cleaned CSVs plus cleaning_report.csv",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, opts, flags, operations.StepIDClean)
		},
	}
	cmd.Flags().StringSliceVar(&flags.countries, "country", nil, "country to clean (repeatable); all when omitted")
	return cmd
}

func analyzeSubcommand(opts *rootOptions) *cobra.Command {
	flags := &pipelineFlags{noWorkbook: true}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyse the cleaned CSVs and write analysis.json and summary.csv",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, opts, flags, operations.StepIDAnalyze)
		},
	}
	cmd.Flags().StringVar(&flags.metric, "metric", "", "primary metric for ranking and tests (default GHI)")
	return cmd
}

func reportSubcommand(opts *rootOptions) *cobra.Command {
	flags := &pipelineFlags{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Analyse the cleaned CSVs and write the Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, opts, flags, operations.StepIDExport)
		},
	}
	cmd.Flags().StringVar(&flags.metric, "metric", "", "primary metric for ranking and tests (default GHI)")
	cmd.Flags().StringVar(&flags.out, "out", "", "workbook path (default <data-dir>/reports/solar_report.xlsx)")
	return cmd
}

func runSubcommand(opts *rootOptions) *cobra.Command {
	flags := &pipelineFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run ingest, clean, analyze and export end to end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, opts, flags, operations.ModeFull)
		},
	}
	cmd.Flags().StringSliceVar(&flags.countries, "country", nil, "country to include (repeatable); all when omitted")
	cmd.Flags().StringVar(&flags.metric, "metric", "", "primary metric for ranking and tests (default GHI)")
	cmd.Flags().StringVar(&flags.out, "out", "", "workbook path")
	cmd.Flags().BoolVar(&flags.noWorkbook, "no-workbook", false, "skip the Excel workbook")
	return cmd
}

// runPipeline executes step through the operation service and prints the
// outcome. The ranking of the primary metric follows analyze and report.
func runPipeline(cmd *cobra.Command, opts *rootOptions, flags *pipelineFlags, step string) error {
	req, err := flags.request(step)
	if err != nil {
		return err
	}

	application, err := opts.newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	defer application.Close(context.WithoutCancel(ctx))

	if !opts.noProgress {
		bar := newStepProgress(cmd.ErrOrStderr())
		application.Manager.OnProgress(bar.Update)
		defer bar.Finish()
	}

	resp, err := application.OperationService.Run(ctx, req)
	if resp != nil {
		printResponse(cmd.OutOrStdout(), resp)
	}
	if err != nil {
		return err
	}

	if step == operations.StepIDAnalyze || step == operations.StepIDExport || step == operations.ModeFull {
		ranking, err := application.AnalysisService.Ranking(ctx, flags.metric)
		if err != nil {
			return err
		}
		printRanking(cmd.OutOrStdout(), ranking)
	}
	return nil
}

func printResponse(w io.Writer, resp *operations.OperationResponse) {
	fmt.Fprintf(w, "operation %s %s in %s\n", resp.ID, resp.Status, resp.Duration.Round(time.Millisecond))
	for _, id := range operations.StepIDs {
		step, ok := resp.Steps[id]
		if !ok {
			continue
		}
		line := fmt.Sprintf("  %-8s %s", id, step.Status)
		if step.Error != "" {
			line += ": " + step.Error
		}
		fmt.Fprintln(w, line)
	}
	for _, f := range resp.Files {
		fmt.Fprintf(w, "  wrote %s\n", f)
	}
}

func printRanking(w io.Writer, ranking domain.Ranking) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "rank\tcountry\tmean %s\n", ranking.Metric)
	for _, e := range ranking.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\n", e.Rank, e.Country.DisplayName(), e.Value)
	}
	tw.Flush()
}

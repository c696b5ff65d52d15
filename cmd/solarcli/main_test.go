package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarcli/internal/config"
	"solarcli/internal/infrastructure"
	"solarcli/internal/operations"
)

func stationCSV(peak float64) string {
	var b strings.Builder
	b.WriteString("Timestamp,GHI,DNI,DHI,Tamb,RH,WS,Cleaning\n")
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 48; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		h := float64(ts.Hour())
		ghi := math.Max(0, math.Sin(math.Pi*(h-6)/12))*peak + float64(i%3)
		fmt.Fprintf(&b, "%s,%.2f,%.2f,%.2f,%.1f,%.1f,%.1f,0\n",
			ts.Format("2006-01-02 15:04"), ghi, ghi*0.6, ghi*0.3, 25+float64(i%10), 60.0, 2.0)
	}
	return b.String()
}

// setupDataDir writes the three raw station files under a fresh data dir
func setupDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SOLAR_PATHS_LOGS_DIR", filepath.Join(dir, "logs"))

	raw := filepath.Join(dir, config.RawSubdir)
	require.NoError(t, os.MkdirAll(raw, 0o755))
	files := map[string]float64{
		config.DefaultBeninFile:       800,
		config.DefaultSierraLeoneFile: 600,
		config.DefaultTogoFile:        700,
	}
	for name, peak := range files {
		require.NoError(t, os.WriteFile(filepath.Join(raw, name), []byte(stationCSV(peak)), 0o644))
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	opts := &rootOptions{logger: infrastructure.NewLogger("error", io.Discard)}
	cmd := newRootCmd(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	dir := setupDataDir(t)

	out, err := execute(t, "run", "--data-dir", dir, "--no-progress")
	require.NoError(t, err)

	assert.Contains(t, out, "completed")
	for _, name := range []string{"benin_clean.csv", "sierraleone_clean.csv", "togo_clean.csv"} {
		assert.FileExists(t, filepath.Join(dir, config.CleanedSubdir, name))
	}
	reports := filepath.Join(dir, config.ReportsSubdir)
	assert.FileExists(t, filepath.Join(reports, config.CleaningReportCSV))
	assert.FileExists(t, filepath.Join(reports, config.SummaryCSV))
	assert.FileExists(t, filepath.Join(reports, config.AnalysisJSON))
	assert.FileExists(t, filepath.Join(reports, config.DefaultReportXLSX))

	lines := strings.Split(out, "\n")
	var rankingAt int
	for i, line := range lines {
		if strings.HasPrefix(line, "rank") {
			rankingAt = i
		}
	}
	require.NotZero(t, rankingAt, out)
	assert.Contains(t, lines[rankingAt], "GHI")
	assert.Contains(t, lines[rankingAt+1], "Benin")
}

func TestCleanThenAnalyze(t *testing.T) {
	dir := setupDataDir(t)
	reports := filepath.Join(dir, config.ReportsSubdir)

	out, err := execute(t, "clean", "--data-dir", dir, "--no-progress", "--country", "togo")
	require.NoError(t, err)
	assert.Contains(t, out, "clean")
	assert.FileExists(t, filepath.Join(dir, config.CleanedSubdir, "togo_clean.csv"))
	assert.NoFileExists(t, filepath.Join(dir, config.CleanedSubdir, "benin_clean.csv"))
	assert.NoFileExists(t, filepath.Join(reports, config.AnalysisJSON))

	out, err = execute(t, "analyze", "--data-dir", dir, "--no-progress", "--metric", "DNI")
	require.NoError(t, err)
	assert.Contains(t, out, "mean DNI")
	assert.Contains(t, out, "Togo")
	assert.FileExists(t, filepath.Join(reports, config.AnalysisJSON))
	assert.NoFileExists(t, filepath.Join(reports, config.DefaultReportXLSX))
}

func TestReportCommand_CustomOutput(t *testing.T) {
	dir := setupDataDir(t)
	_, err := execute(t, "clean", "--data-dir", dir, "--no-progress")
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "custom.xlsx")
	out, err := execute(t, "report", "--data-dir", dir, "--no-progress", "--out", target)
	require.NoError(t, err)

	assert.FileExists(t, target)
	assert.Contains(t, out, target)
	assert.NoFileExists(t, filepath.Join(dir, config.ReportsSubdir, config.DefaultReportXLSX))
}

func TestCommandErrors(t *testing.T) {
	dir := setupDataDir(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "unknown metric", args: []string{"analyze", "--data-dir", dir, "--metric", "UV"}, wantErr: "invalid --metric"},
		{name: "unknown country", args: []string{"clean", "--data-dir", dir, "--country", "ghana"}, wantErr: "invalid --country"},
		{name: "missing config", args: []string{"run", "--config", filepath.Join(dir, "absent.yaml")}, wantErr: "absent.yaml"},
		{name: "positional args", args: []string{"run", "extra"}, wantErr: "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAnalyzeWithoutCleanedData(t *testing.T) {
	dir := setupDataDir(t)

	out, err := execute(t, "analyze", "--data-dir", dir, "--no-progress")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no cleaned files")
	assert.Contains(t, out, "failed")
}

func TestOverallPercent(t *testing.T) {
	tests := []struct {
		name   string
		update operations.ProgressUpdate
		want   int
	}{
		{name: "first step halfway", update: operations.ProgressUpdate{Index: 0, Total: 4, Progress: 50, Status: operations.StepStatusActive}, want: 12},
		{name: "second step done", update: operations.ProgressUpdate{Index: 1, Total: 4, Progress: 10, Status: operations.StepStatusCompleted}, want: 50},
		{name: "last step skipped", update: operations.ProgressUpdate{Index: 1, Total: 2, Status: operations.StepStatusSkipped}, want: 100},
		{name: "progress clamped", update: operations.ProgressUpdate{Index: 0, Total: 1, Progress: 250, Status: operations.StepStatusActive}, want: 100},
		{name: "no total", update: operations.ProgressUpdate{}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, overallPercent(tt.update))
		})
	}
}

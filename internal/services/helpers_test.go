package services

import (
	"context"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"solarcli/internal/analytics"
	"solarcli/internal/config"
	"solarcli/internal/exporter"
	"solarcli/internal/infrastructure"
	"solarcli/internal/ingest"
	"solarcli/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return infrastructure.NewLogger("error", io.Discard)
}

func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	dir := t.TempDir()
	paths, err := config.NewPaths(config.PathsConfig{
		DataDir: dir,
		LogsDir: filepath.Join(dir, "logs"),
	})
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())
	return paths
}

// syntheticDataset builds three days of hourly readings whose GHI peaks at peak
func syntheticDataset(country domain.Country, peak float64) *domain.Dataset {
	ds := &domain.Dataset{Country: country, Source: string(country) + "_clean.csv"}
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 72; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		m := domain.NewMeasurement(ts)
		h := float64(ts.Hour())
		ghi := math.Max(0, math.Sin(math.Pi*(h-6)/12))*peak + float64(i%4)
		m.Values[domain.MetricGHI] = ghi
		m.Values[domain.MetricDNI] = ghi * 0.6
		m.Values[domain.MetricDHI] = ghi * 0.3
		m.Values[domain.MetricTamb] = 24 + peak/100 + float64(i%6)
		m.Values[domain.MetricRH] = 50 + float64(i%20)
		m.Values[domain.MetricWS] = 1 + float64(i%5)*0.5
		ds.Records = append(ds.Records, m)
	}
	return ds
}

var testPeaks = map[domain.Country]float64{
	domain.CountryBenin:       800,
	domain.CountrySierraLeone: 600,
	domain.CountryTogo:        700,
}

// writeCleaned exports synthetic cleaned files for the given countries
func writeCleaned(t *testing.T, paths *config.Paths, peaks map[domain.Country]float64) {
	t.Helper()
	var datasets []*domain.Dataset
	for _, c := range ingest.SortedCountries(peaks) {
		datasets = append(datasets, syntheticDataset(c, peaks[c]))
	}
	_, err := exporter.NewDatasetExporter(paths, false).ExportCleaned(context.Background(), datasets)
	require.NoError(t, err)
}

func newTestAnalysisService(t *testing.T, peaks map[domain.Country]float64) (*AnalysisService, *config.Paths) {
	t.Helper()
	paths := testPaths(t)
	if len(peaks) > 0 {
		writeCleaned(t, paths, peaks)
	}
	logger := testLogger()
	return NewAnalysisService(paths, ingest.NewLoader(logger, nil), analytics.DefaultOptions(), logger), paths
}

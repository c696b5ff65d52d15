package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"solarcli/internal/infrastructure"
	"solarcli/pkg/contracts/domain"
)

// Loader reads raw station files and records ingest metrics
type Loader struct {
	logger  *slog.Logger
	metrics *infrastructure.PipelineMetrics
}

// NewLoader creates a loader; nil metrics disables recording
func NewLoader(logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *Loader {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Loader{
		logger:  logger.With(slog.String("component", "ingest")),
		metrics: metrics,
	}
}

// LoadFile loads one station file, choosing the reader by extension
func (l *Loader) LoadFile(ctx context.Context, path string, country domain.Country) (*domain.Dataset, error) {
	start := time.Now()

	var (
		ds    *domain.Dataset
		stats ReadStats
		err   error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("load %s: %w", path, openErr)
		}
		defer f.Close()
		ds, stats, err = Parse(ctx, f, country)
	case ".xlsx", ".xlsm":
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("load %s: %w", path, openErr)
		}
		defer f.Close()
		ds, stats, err = ParseExcel(ctx, f, country)
	default:
		return nil, fmt.Errorf("load %s: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	ds.Source = path

	l.logger.InfoContext(ctx, "loaded station file",
		slog.String("country", string(country)),
		slog.String("path", path),
		slog.Int("rows", stats.Rows),
		slog.Int("bad_timestamps", stats.BadTimestamps),
		slog.Int("bad_numbers", stats.BadNumbers),
		slog.Int("missing_values", stats.MissingValues),
		slog.Duration("duration", time.Since(start)))

	infrastructure.RecordIngest(ctx, l.metrics, country, stats.Rows)

	return ds, nil
}

// LoadAll loads every source concurrently. The result is in report order
// (Benin, Sierra Leone, Togo); the first error cancels the remaining loads.
func (l *Loader) LoadAll(ctx context.Context, sources map[domain.Country]string) ([]*domain.Dataset, error) {
	countries := SortedCountries(sources)
	results := make([]*domain.Dataset, len(countries))

	g, gctx := errgroup.WithContext(ctx)
	for i, country := range countries {
		i, country := i, country
		g.Go(func() error {
			ds, err := l.LoadFile(gctx, sources[country], country)
			if err != nil {
				return fmt.Errorf("%s: %w", country.DisplayName(), err)
			}
			results[i] = ds
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// SortedCountries returns the keys of sources in report order
func SortedCountries[V any](sources map[domain.Country]V) []domain.Country {
	countries := make([]domain.Country, 0, len(sources))
	for c := range sources {
		countries = append(countries, c)
	}
	sort.Slice(countries, func(i, j int) bool {
		oi, oj := countries[i].Order(), countries[j].Order()
		if oi != oj {
			return oi < oj
		}
		return countries[i] < countries[j]
	})
	return countries
}

// LoadFile loads one station file with the default loader
func LoadFile(ctx context.Context, path string, country domain.Country) (*domain.Dataset, error) {
	return NewLoader(nil, nil).LoadFile(ctx, path, country)
}

// LoadAll loads every source with the default loader
func LoadAll(ctx context.Context, sources map[domain.Country]string) ([]*domain.Dataset, error) {
	return NewLoader(nil, nil).LoadAll(ctx, sources)
}

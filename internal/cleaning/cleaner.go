// Package cleaning turns raw station datasets into analysis-ready ones.
package cleaning

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"solarcli/internal/infrastructure"
	"solarcli/pkg/contracts/domain"
)

const (
	// kPaToHPa scales barometric pressure reported in kPa
	kPaToHPa = 10.0
	// kPaCeiling is the largest BP value still read as kPa
	kPaCeiling = 200.0
	// kelvinFloor is the smallest temperature read as Kelvin
	kelvinFloor = 150.0
	kelvinShift = 273.15
)

var temperatureMetrics = []domain.Metric{domain.MetricTamb, domain.MetricTModA, domain.MetricTModB}

// Cleaner applies one set of options and records cleaning metrics
type Cleaner struct {
	opts    Options
	logger  *slog.Logger
	metrics *infrastructure.PipelineMetrics
}

// NewCleaner validates opts and returns a cleaner
func NewCleaner(opts Options, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) (*Cleaner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Cleaner{
		opts:    opts,
		logger:  infrastructure.WithComponent(logger, "cleaning"),
		metrics: metrics,
	}, nil
}

// Options returns the options the cleaner was built with
func (c *Cleaner) Options() Options {
	return c.opts
}

// Clean cleans one dataset and logs the resulting report
func (c *Cleaner) Clean(ctx context.Context, ds *domain.Dataset) (*domain.Dataset, *domain.CleaningReport, error) {
	start := time.Now()

	out, report, err := Clean(ctx, ds, c.opts)
	if err != nil {
		return nil, nil, err
	}

	c.logger.InfoContext(ctx, "cleaned dataset",
		slog.String("country", string(ds.Country)),
		slog.Int("input_rows", report.InputRows),
		slog.Int("output_rows", report.OutputRows),
		slog.Int("dropped", report.Dropped()),
		slog.Int("outliers", report.TotalOutliers()),
		slog.Int("imputed", report.TotalImputed()),
		slog.Duration("duration", time.Since(start)))

	infrastructure.RecordCleaning(ctx, c.metrics, report)

	return out, report, nil
}

// Clean returns a cleaned copy of ds together with a report of every change.
// The input dataset is not modified.
func Clean(ctx context.Context, ds *domain.Dataset, opts Options) (*domain.Dataset, *domain.CleaningReport, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}
	if ds == nil {
		return nil, nil, ErrEmptyDataset
	}

	report := domain.NewCleaningReport(ds.Country, ds.Source)
	report.InputRows = len(ds.Records)
	countMissing(ds.Records, report, func(s *domain.MetricCleaningStats, n int) { s.MissingBefore = n })

	records := dropBadTimestamps(ds.Records, report)
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", ds.Country.DisplayName(), ErrEmptyDataset)
	}

	records = dedupe(records, report)
	normalizeUnits(records, report)
	clipNegatives(records, opts.NegativeTolerance, report)
	applyBounds(records, opts.Bounds, report)

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	records = screenOutliers(records, opts, report)

	if opts.ImputeMissing {
		imputeMedians(records, report)
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	report.OutputRows = len(records)
	countMissing(records, report, func(s *domain.MetricCleaningStats, n int) { s.MissingAfter = n })

	return &domain.Dataset{Country: ds.Country, Source: ds.Source, Records: records}, report, nil
}

func countMissing(records []domain.Measurement, report *domain.CleaningReport, set func(*domain.MetricCleaningStats, int)) {
	var missing [domain.MetricCount]int
	for i := range records {
		for m, v := range records[i].Values {
			if math.IsNaN(v) {
				missing[m]++
			}
		}
	}
	for m, n := range missing {
		set(report.Stats(domain.Metric(m)), n)
	}
}

func dropBadTimestamps(in []domain.Measurement, report *domain.CleaningReport) []domain.Measurement {
	out := make([]domain.Measurement, 0, len(in))
	for i := range in {
		if in[i].Timestamp.IsZero() {
			report.DroppedBadTimestamp++
			continue
		}
		out = append(out, in[i])
	}
	return out
}

// dedupe sorts records by time and keeps the first row of each timestamp
func dedupe(records []domain.Measurement, report *domain.CleaningReport) []domain.Measurement {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	out := records[:1]
	for i := 1; i < len(records); i++ {
		if records[i].Timestamp.Equal(out[len(out)-1].Timestamp) {
			report.DroppedDuplicates++
			continue
		}
		out = append(out, records[i])
	}
	return out
}

func normalizeUnits(records []domain.Measurement, report *domain.CleaningReport) {
	for i := range records {
		r := &records[i]

		if bp := r.Values[domain.MetricBP]; !math.IsNaN(bp) && bp < kPaCeiling {
			r.Values[domain.MetricBP] = bp * kPaToHPa
			report.Stats(domain.MetricBP).Converted++
		}

		for _, m := range temperatureMetrics {
			if t := r.Values[m]; !math.IsNaN(t) && t > kelvinFloor {
				r.Values[m] = t - kelvinShift
				report.Stats(m).Converted++
			}
		}
	}
}

// clipNegatives zeroes the small negative irradiance offset sensors report at night
func clipNegatives(records []domain.Measurement, tolerance float64, report *domain.CleaningReport) {
	for i := range records {
		r := &records[i]
		for _, m := range domain.IrradianceMetrics {
			v := r.Values[m]
			if v < 0 && v >= -tolerance {
				r.Values[m] = 0
				r.Flags |= domain.FlagClipped
				report.Stats(m).Clipped++
			}
		}
	}
}

func applyBounds(records []domain.Measurement, bounds map[domain.Metric]Bounds, report *domain.CleaningReport) {
	for i := range records {
		r := &records[i]
		for m, b := range bounds {
			v := r.Values[m]
			if math.IsNaN(v) || b.Contains(v) {
				continue
			}
			r.Values[m] = math.NaN()
			r.Flags |= domain.FlagInvalid
			report.Stats(m).Invalid++
		}
	}
}

// screenOutliers computes every z-score before acting so that a dropped row
// does not shift the statistics of the other metrics.
func screenOutliers(records []domain.Measurement, opts Options, report *domain.CleaningReport) []domain.Measurement {
	drop := make([]bool, len(records))

	for _, m := range opts.OutlierMetrics {
		mean, std, ok := columnMoments(records, m)
		if !ok {
			continue
		}
		for i := range records {
			v := records[i].Values[m]
			if math.IsNaN(v) || math.Abs(v-mean)/std <= opts.ZThreshold {
				continue
			}
			records[i].Flags |= domain.FlagOutlier
			report.Stats(m).Outliers++

			switch opts.OutlierPolicy {
			case PolicyImpute:
				records[i].Values[m] = math.NaN()
			case PolicyDrop:
				drop[i] = true
			}
		}
	}

	if opts.OutlierPolicy != PolicyDrop {
		return records
	}

	out := records[:0]
	for i := range records {
		if drop[i] {
			report.DroppedOutlierRows++
			continue
		}
		out = append(out, records[i])
	}
	return out
}

// columnMoments returns the mean and population standard deviation of the
// present values; ok is false when the deviation is zero or undefined.
func columnMoments(records []domain.Measurement, m domain.Metric) (mean, std float64, ok bool) {
	values := presentValues(records, m)
	if len(values) < 2 {
		return 0, 0, false
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return 0, 0, false
	}
	std, err = stats.StandardDeviationPopulation(values)
	if err != nil || std == 0 || math.IsNaN(std) {
		return 0, 0, false
	}
	return mean, std, true
}

func imputeMedians(records []domain.Measurement, report *domain.CleaningReport) {
	for m := domain.Metric(0); m < domain.MetricCount; m++ {
		values := presentValues(records, m)
		if len(values) == 0 || len(values) == len(records) {
			continue
		}
		median, err := stats.Median(values)
		if err != nil {
			continue
		}
		for i := range records {
			if math.IsNaN(records[i].Values[m]) {
				records[i].Values[m] = median
				records[i].Flags |= domain.FlagImputed
				report.Stats(m).Imputed++
			}
		}
	}
}

func presentValues(records []domain.Measurement, m domain.Metric) []float64 {
	out := make([]float64, 0, len(records))
	for i := range records {
		if v := records[i].Values[m]; !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

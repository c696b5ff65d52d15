package cleaning

import (
	"context"
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarcli/internal/config"
	"solarcli/internal/infrastructure"
	"solarcli/pkg/contracts/domain"
)

var base = time.Date(2021, 8, 9, 6, 0, 0, 0, time.UTC)

func at(minute int) time.Time {
	return base.Add(time.Duration(minute) * time.Minute)
}

func row(ts time.Time, values map[domain.Metric]float64) domain.Measurement {
	m := domain.NewMeasurement(ts)
	for k, v := range values {
		m.Values[k] = v
	}
	return m
}

func dataset(records ...domain.Measurement) *domain.Dataset {
	return &domain.Dataset{Country: domain.CountryBenin, Source: "benin.csv", Records: records}
}

func noImpute() Options {
	opts := DefaultOptions()
	opts.ImputeMissing = false
	return opts
}

func TestClean_TimestampsAndDuplicates(t *testing.T) {
	ds := dataset(
		row(at(2), map[domain.Metric]float64{domain.MetricGHI: 20}),
		row(time.Time{}, map[domain.Metric]float64{domain.MetricGHI: 5}),
		row(at(1), map[domain.Metric]float64{domain.MetricGHI: 10}),
		row(at(1), map[domain.Metric]float64{domain.MetricGHI: 99}),
		row(at(3), map[domain.Metric]float64{domain.MetricGHI: 30}),
	)

	out, report, err := Clean(context.Background(), ds, noImpute())
	require.NoError(t, err)

	require.Equal(t, 3, out.Len())
	assert.Equal(t, at(1), out.Records[0].Timestamp)
	assert.Equal(t, 10.0, out.Records[0].Value(domain.MetricGHI), "first duplicate wins")
	assert.Equal(t, at(2), out.Records[1].Timestamp)
	assert.Equal(t, at(3), out.Records[2].Timestamp)

	assert.Equal(t, 5, report.InputRows)
	assert.Equal(t, 3, report.OutputRows)
	assert.Equal(t, 1, report.DroppedBadTimestamp)
	assert.Equal(t, 1, report.DroppedDuplicates)
	assert.Equal(t, 2, report.Dropped())
	assert.Equal(t, domain.CountryBenin, report.Country)
	assert.Equal(t, "benin.csv", report.Source)
}

func TestClean_DoesNotModifyInput(t *testing.T) {
	ds := dataset(
		row(at(2), map[domain.Metric]float64{domain.MetricGHI: -3, domain.MetricBP: 99.8}),
		row(at(1), map[domain.Metric]float64{domain.MetricGHI: 10}),
	)

	_, _, err := Clean(context.Background(), ds, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, at(2), ds.Records[0].Timestamp)
	assert.Equal(t, -3.0, ds.Records[0].Value(domain.MetricGHI))
	assert.Equal(t, 99.8, ds.Records[0].Value(domain.MetricBP))
	assert.Zero(t, ds.Records[0].Flags)
}

func TestClean_UnitNormalization(t *testing.T) {
	ds := dataset(
		row(at(0), map[domain.Metric]float64{domain.MetricBP: 99.8, domain.MetricTamb: 300, domain.MetricTModA: 310.15}),
		row(at(1), map[domain.Metric]float64{domain.MetricBP: 998, domain.MetricTamb: 26, domain.MetricTModA: 37}),
	)

	out, report, err := Clean(context.Background(), ds, noImpute())
	require.NoError(t, err)

	first := out.Records[0]
	assert.InDelta(t, 998.0, first.Value(domain.MetricBP), 1e-9)
	assert.InDelta(t, 26.85, first.Value(domain.MetricTamb), 1e-9)
	assert.InDelta(t, 37.0, first.Value(domain.MetricTModA), 1e-9)

	second := out.Records[1]
	assert.Equal(t, 998.0, second.Value(domain.MetricBP))
	assert.Equal(t, 26.0, second.Value(domain.MetricTamb))

	assert.Equal(t, 1, report.Stats(domain.MetricBP).Converted)
	assert.Equal(t, 1, report.Stats(domain.MetricTamb).Converted)
	assert.Equal(t, 1, report.Stats(domain.MetricTModA).Converted)
	assert.Zero(t, report.Stats(domain.MetricTModB).Converted)
}

func TestClean_ClipAndBounds(t *testing.T) {
	ds := dataset(
		row(at(0), map[domain.Metric]float64{domain.MetricGHI: -1.2, domain.MetricDNI: -0.2}),
		row(at(1), map[domain.Metric]float64{domain.MetricGHI: -80}),
		row(at(2), map[domain.Metric]float64{domain.MetricGHI: 500, domain.MetricRH: 120}),
		row(at(3), map[domain.Metric]float64{domain.MetricGHI: 400, domain.MetricWD: 360}),
	)

	out, report, err := Clean(context.Background(), ds, noImpute())
	require.NoError(t, err)

	clipped := out.Records[0]
	assert.Equal(t, 0.0, clipped.Value(domain.MetricGHI))
	assert.Equal(t, 0.0, clipped.Value(domain.MetricDNI))
	assert.True(t, clipped.Flags.Has(domain.FlagClipped))
	assert.False(t, clipped.Flags.Has(domain.FlagInvalid))

	tooNegative := out.Records[1]
	assert.True(t, math.IsNaN(tooNegative.Value(domain.MetricGHI)), "below tolerance is invalid, not clipped")
	assert.True(t, tooNegative.Flags.Has(domain.FlagInvalid))
	assert.False(t, tooNegative.Flags.Has(domain.FlagClipped))

	assert.True(t, math.IsNaN(out.Records[2].Value(domain.MetricRH)))
	assert.True(t, out.Records[2].Flags.Has(domain.FlagInvalid))
	assert.Equal(t, 360.0, out.Records[3].Value(domain.MetricWD), "bounds are inclusive")

	assert.Equal(t, 1, report.Stats(domain.MetricGHI).Clipped)
	assert.Equal(t, 1, report.Stats(domain.MetricDNI).Clipped)
	assert.Equal(t, 1, report.Stats(domain.MetricGHI).Invalid)
	assert.Equal(t, 1, report.Stats(domain.MetricRH).Invalid)
	assert.Equal(t, 1, report.Stats(domain.MetricGHI).MissingAfter)
}

// spikeDataset has twenty readings of 100 W/m² and one of 1000, a z-score of ~4.47
func spikeDataset() *domain.Dataset {
	records := make([]domain.Measurement, 0, 21)
	for i := 0; i < 20; i++ {
		records = append(records, row(at(i), map[domain.Metric]float64{domain.MetricGHI: 100}))
	}
	records = append(records, row(at(20), map[domain.Metric]float64{domain.MetricGHI: 1000}))
	return dataset(records...)
}

func TestClean_OutlierPolicies(t *testing.T) {
	tests := []struct {
		policy       OutlierPolicy
		wantRows     int
		wantSpike    float64
		wantFlags    domain.QualityFlag
		wantDropped  int
		wantImputed  int
		wantOutliers int
	}{
		{PolicyFlag, 21, 1000, domain.FlagOutlier, 0, 0, 1},
		{PolicyImpute, 21, 100, domain.FlagOutlier | domain.FlagImputed, 0, 1, 1},
		{PolicyDrop, 20, 100, 0, 1, 0, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			opts := DefaultOptions()
			opts.OutlierPolicy = tt.policy

			out, report, err := Clean(context.Background(), spikeDataset(), opts)
			require.NoError(t, err)
			require.Equal(t, tt.wantRows, out.Len())

			last := out.Records[out.Len()-1]
			assert.Equal(t, tt.wantSpike, last.Value(domain.MetricGHI))
			assert.Equal(t, tt.wantFlags, last.Flags)

			assert.Equal(t, tt.wantOutliers, report.Stats(domain.MetricGHI).Outliers)
			assert.Equal(t, tt.wantImputed, report.Stats(domain.MetricGHI).Imputed)
			assert.Equal(t, tt.wantDropped, report.DroppedOutlierRows)
			assert.Equal(t, tt.wantRows, report.OutputRows)

			for _, r := range out.Records[:20] {
				assert.False(t, r.Flags.Has(domain.FlagOutlier))
			}
		})
	}
}

func TestClean_OutlierThreshold(t *testing.T) {
	opts := DefaultOptions()
	opts.ZThreshold = 5

	_, report, err := Clean(context.Background(), spikeDataset(), opts)
	require.NoError(t, err)
	assert.Zero(t, report.TotalOutliers())
}

func TestClean_ZeroDeviationFlagsNothing(t *testing.T) {
	records := make([]domain.Measurement, 0, 30)
	for i := 0; i < 30; i++ {
		records = append(records, row(at(i), map[domain.Metric]float64{domain.MetricGHI: 250}))
	}

	_, report, err := Clean(context.Background(), dataset(records...), DefaultOptions())
	require.NoError(t, err)
	assert.Zero(t, report.TotalOutliers())
}

func TestClean_MedianImputation(t *testing.T) {
	ds := dataset(
		row(at(0), map[domain.Metric]float64{domain.MetricGHI: 1}),
		row(at(1), map[domain.Metric]float64{}),
		row(at(2), map[domain.Metric]float64{domain.MetricGHI: 3}),
		row(at(3), map[domain.Metric]float64{domain.MetricGHI: 5}),
	)

	out, report, err := Clean(context.Background(), ds, DefaultOptions())
	require.NoError(t, err)

	filled := out.Records[1]
	assert.Equal(t, 3.0, filled.Value(domain.MetricGHI))
	assert.True(t, filled.Flags.Has(domain.FlagImputed))
	assert.False(t, out.Records[0].Flags.Has(domain.FlagImputed))

	ghi := report.Stats(domain.MetricGHI)
	assert.Equal(t, 1, ghi.MissingBefore)
	assert.Equal(t, 1, ghi.Imputed)
	assert.Equal(t, 0, ghi.MissingAfter)

	dni := report.Stats(domain.MetricDNI)
	assert.Equal(t, 4, dni.MissingBefore)
	assert.Equal(t, 4, dni.MissingAfter, "a column without any value stays missing")
	assert.Zero(t, dni.Imputed)
}

func TestClean_Errors(t *testing.T) {
	allBad := dataset(row(time.Time{}, nil), row(time.Time{}, nil))

	badThreshold := DefaultOptions()
	badThreshold.ZThreshold = 0
	badPolicy := DefaultOptions()
	badPolicy.OutlierPolicy = "winsorize"
	badTolerance := DefaultOptions()
	badTolerance.NegativeTolerance = -1
	badBounds := DefaultOptions()
	badBounds.Bounds[domain.MetricRH] = Bounds{Min: 100, Max: 0}

	tests := []struct {
		name    string
		ds      *domain.Dataset
		opts    Options
		wantErr error
	}{
		{"zero threshold", dataset(), badThreshold, ErrInvalidOptions},
		{"unknown policy", dataset(), badPolicy, ErrInvalidOptions},
		{"negative tolerance", dataset(), badTolerance, ErrInvalidOptions},
		{"inverted bounds", dataset(), badBounds, ErrInvalidOptions},
		{"nil dataset", nil, DefaultOptions(), ErrEmptyDataset},
		{"empty dataset", dataset(), DefaultOptions(), ErrEmptyDataset},
		{"only bad timestamps", allBad, DefaultOptions(), ErrEmptyDataset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, report, err := Clean(context.Background(), tt.ds, tt.opts)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, out)
			assert.Nil(t, report)
		})
	}
}

func TestClean_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Clean(ctx, spikeDataset(), DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.CleaningConfig{
		ZThreshold:        2.5,
		NegativeTolerance: 10,
		OutlierPolicy:     "drop",
		ImputeMissing:     false,
	})

	assert.Equal(t, 2.5, opts.ZThreshold)
	assert.Equal(t, 10.0, opts.NegativeTolerance)
	assert.Equal(t, PolicyDrop, opts.OutlierPolicy)
	assert.False(t, opts.ImputeMissing)
	assert.Equal(t, DefaultOutlierMetrics, opts.OutlierMetrics)
	assert.Len(t, opts.Bounds, int(domain.MetricCount))
	assert.NoError(t, opts.Validate())
}

func TestCleaner(t *testing.T) {
	_, err := NewCleaner(Options{}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidOptions)

	cleaner, err := NewCleaner(DefaultOptions(), infrastructure.NewLogger("error", io.Discard), nil)
	require.NoError(t, err)
	assert.Equal(t, PolicyFlag, cleaner.Options().OutlierPolicy)

	out, report, err := cleaner.Clean(context.Background(), spikeDataset())
	require.NoError(t, err)
	assert.Equal(t, 21, out.Len())
	assert.Equal(t, 1, report.TotalOutliers())
}

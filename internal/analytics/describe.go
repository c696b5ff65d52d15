package analytics

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"solarcli/pkg/contracts/domain"
)

var (
	// ErrEmptySample is returned when a sample has no usable value
	ErrEmptySample = errors.New("sample has no values")
	// ErrNoDatasets is returned when an analysis is asked to run on nothing
	ErrNoDatasets = errors.New("no datasets to analyze")
)

// Describe computes the descriptive statistics of values, skipping NaN.
// Percentiles interpolate linearly between closest ranks.
func Describe(values []float64) (domain.Summary, error) {
	clean := finite(values)
	if len(clean) == 0 {
		return domain.Summary{}, ErrEmptySample
	}
	sort.Float64s(clean)

	mean, err := stats.Mean(clean)
	if err != nil {
		return domain.Summary{}, err
	}

	var std float64
	if len(clean) > 1 {
		std, err = stats.StandardDeviationSample(clean)
		if err != nil {
			return domain.Summary{}, err
		}
	}

	s := domain.Summary{
		Count:  len(clean),
		Mean:   mean,
		Std:    std,
		Min:    clean[0],
		P25:    percentileSorted(clean, 0.25),
		Median: percentileSorted(clean, 0.5),
		P75:    percentileSorted(clean, 0.75),
		Max:    clean[len(clean)-1],
	}
	if mean != 0 {
		s.CV = std / mean * 100
	}
	return s, nil
}

// percentileSorted returns the q-quantile (0..1) of an ascending sample
func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// finite returns a copy of values without NaN or infinities
func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// SummarizeCountries describes every metric of every dataset. Countries are
// processed concurrently; the result is ordered by country then metric.
// Metrics without any value in a country are left out.
func SummarizeCountries(ctx context.Context, datasets []*domain.Dataset, metrics []domain.Metric) ([]domain.MetricSummary, error) {
	perCountry := make([][]domain.MetricSummary, len(datasets))

	g, gctx := errgroup.WithContext(ctx)
	for i, ds := range datasets {
		i, ds := i, ds
		g.Go(func() error {
			out := make([]domain.MetricSummary, 0, len(metrics))
			for _, m := range metrics {
				if err := gctx.Err(); err != nil {
					return err
				}
				s, err := Describe(ds.Column(m))
				if errors.Is(err, ErrEmptySample) {
					continue
				}
				if err != nil {
					return err
				}
				out = append(out, domain.MetricSummary{Country: ds.Country, Metric: m, Summary: s})
			}
			perCountry[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	order := make([]int, len(datasets))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return datasets[order[a]].Country.Order() < datasets[order[b]].Country.Order()
	})

	var summaries []domain.MetricSummary
	for _, i := range order {
		summaries = append(summaries, perCountry[i]...)
	}
	return summaries, nil
}

// Rank orders the countries by the mean of metric, highest first.
// Ties keep report order.
func Rank(summaries []domain.MetricSummary, metric domain.Metric) domain.Ranking {
	entries := make([]domain.RankEntry, 0, len(domain.AllCountries))
	for _, s := range summaries {
		if s.Metric == metric {
			entries = append(entries, domain.RankEntry{Country: s.Country, Value: s.Mean})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].Country.Order() < entries[j].Country.Order()
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return domain.Ranking{Metric: metric, Entries: entries}
}

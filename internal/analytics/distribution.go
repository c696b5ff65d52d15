package analytics

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"solarcli/pkg/contracts/domain"
)

const (
	// DefaultHistogramBins is used when a caller asks for zero bins
	DefaultHistogramBins = 20
	// MaxHistogramBins bounds the bin count
	MaxHistogramBins = 200
)

// ErrInvalidBins is returned for a bin count outside 1..MaxHistogramBins
var ErrInvalidBins = errors.New("invalid histogram bin count")

// Histogram bins metric for every dataset over one set of equal-width edges
// spanning the pooled minimum and maximum. A constant sample is widened by
// 0.5 on each side. Series follow country report order.
func Histogram(datasets []*domain.Dataset, metric domain.Metric, bins int) (domain.Histogram, error) {
	if bins == 0 {
		bins = DefaultHistogramBins
	}
	if bins < 1 || bins > MaxHistogramBins {
		return domain.Histogram{}, fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidBins, bins, MaxHistogramBins)
	}
	if !metric.Valid() {
		return domain.Histogram{}, fmt.Errorf("metric %d is not a known metric", int(metric))
	}

	ordered := append([]*domain.Dataset(nil), datasets...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Country.Order() < ordered[j].Country.Order()
	})

	columns := make([][]float64, len(ordered))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, ds := range ordered {
		columns[i] = ds.Column(metric)
		for _, v := range columns[i] {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return domain.Histogram{}, fmt.Errorf("%s: %w", metric, ErrEmptySample)
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	width := (hi - lo) / float64(bins)
	edges := make([]float64, bins+1)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[bins] = hi

	h := domain.Histogram{Metric: metric, Edges: edges, Series: make([]domain.HistogramSeries, 0, len(ordered))}
	for i, ds := range ordered {
		counts := make([]int, bins)
		for _, v := range columns[i] {
			counts[binIndex(v, lo, width, bins)]++
		}
		h.Series = append(h.Series, domain.HistogramSeries{
			Country: ds.Country,
			Counts:  counts,
			Total:   len(columns[i]),
		})
	}
	return h, nil
}

func binIndex(v, lo, width float64, bins int) int {
	idx := int((v - lo) / width)
	if idx < 0 {
		return 0
	}
	if idx >= bins {
		return bins - 1
	}
	return idx
}

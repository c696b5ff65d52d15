package analytics

import (
	"math"

	"github.com/montanaflynn/stats"

	"solarcli/pkg/contracts/domain"
)

// CorrelationMatrix computes the Pearson coefficient of every metric pair over
// the rows of all datasets where both values are present. Pairs with fewer
// than two rows, or a constant column, get 0.
func CorrelationMatrix(datasets []*domain.Dataset, metrics []domain.Metric) domain.CorrelationMatrix {
	values := make([][]float64, len(metrics))
	for i := range values {
		values[i] = make([]float64, len(metrics))
		values[i][i] = 1
	}

	for i := 0; i < len(metrics); i++ {
		for j := i + 1; j < len(metrics); j++ {
			r := Pearson(pairedColumns(datasets, metrics[i], metrics[j]))
			values[i][j] = r
			values[j][i] = r
		}
	}

	return domain.CorrelationMatrix{
		Metrics: append([]domain.Metric(nil), metrics...),
		Values:  values,
	}
}

// Pearson returns the correlation coefficient of two equally long samples,
// or 0 when it is undefined.
func Pearson(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	r, err := stats.Correlation(x, y)
	if err != nil || math.IsNaN(r) {
		return 0
	}
	return r
}

func pairedColumns(datasets []*domain.Dataset, a, b domain.Metric) (x, y []float64) {
	for _, ds := range datasets {
		for i := range ds.Records {
			r := &ds.Records[i]
			if r.Has(a) && r.Has(b) {
				x = append(x, r.Values[a])
				y = append(y, r.Values[b])
			}
		}
	}
	return x, y
}

package analytics

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"solarcli/internal/config"
	"solarcli/pkg/contracts/domain"
)

const (
	// DefaultAlpha is the significance level used when none is given
	DefaultAlpha = config.DefaultAlpha

	NameANOVA         = "one-way ANOVA"
	NameKruskalWallis = "Kruskal-Wallis H"

	// degenerateTolerance is the share of the total sum of squares below
	// which the within-group variance counts as zero
	degenerateTolerance = 1e-12
)

var (
	// ErrTooFewGroups is returned when fewer than two groups have values
	ErrTooFewGroups = errors.New("at least two non-empty groups are required")
	// ErrDegenerate is returned when the test statistic is undefined
	ErrDegenerate = errors.New("test statistic is undefined for this sample")
)

// GroupResult is the outcome of a between-group test, before it is tied to a metric
type GroupResult struct {
	Test        string
	Statistic   float64
	PValue      float64
	DF1         int
	DF2         int
	Alpha       float64
	Significant bool
	Groups      int
	N           int
}

// ForMetric attaches the tested metric
func (r GroupResult) ForMetric(metric domain.Metric) domain.TestResult {
	return domain.TestResult{
		Test:        r.Test,
		Metric:      metric,
		Statistic:   r.Statistic,
		PValue:      r.PValue,
		DF1:         r.DF1,
		DF2:         r.DF2,
		Alpha:       r.Alpha,
		Significant: r.Significant,
		Groups:      r.Groups,
		N:           r.N,
	}
}

// collectGroups drops NaN values and empty groups, ordering by name
func collectGroups(groups map[string][]float64) ([][]float64, int, error) {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		out   [][]float64
		total int
	)
	for _, name := range names {
		values := finite(groups[name])
		if len(values) == 0 {
			continue
		}
		out = append(out, values)
		total += len(values)
	}

	if len(out) < 2 {
		return nil, 0, fmt.Errorf("%w: got %d", ErrTooFewGroups, len(out))
	}
	return out, total, nil
}

func normalizeAlpha(alpha float64) float64 {
	if alpha <= 0 || alpha >= 1 {
		return DefaultAlpha
	}
	return alpha
}

// OneWayANOVA tests whether the group means differ. A non-positive alpha
// selects DefaultAlpha.
func OneWayANOVA(groups map[string][]float64, alpha float64) (GroupResult, error) {
	samples, n, err := collectGroups(groups)
	if err != nil {
		return GroupResult{}, err
	}
	k := len(samples)
	if n-k < 1 {
		return GroupResult{}, fmt.Errorf("%w: %d values in %d groups leave no within-group degrees of freedom", ErrDegenerate, n, k)
	}

	var grand float64
	for _, s := range samples {
		for _, v := range s {
			grand += v
		}
	}
	grand /= float64(n)

	var ssBetween, ssWithin float64
	for _, s := range samples {
		var mean float64
		for _, v := range s {
			mean += v
		}
		mean /= float64(len(s))

		ssBetween += float64(len(s)) * (mean - grand) * (mean - grand)
		for _, v := range s {
			ssWithin += (v - mean) * (v - mean)
		}
	}
	// Rounding leaves a tiny residue in ssWithin for constant groups
	if ssWithin <= degenerateTolerance*(ssBetween+ssWithin) {
		return GroupResult{}, fmt.Errorf("%w: zero within-group variance", ErrDegenerate)
	}

	df1, df2 := k-1, n-k
	f := (ssBetween / float64(df1)) / (ssWithin / float64(df2))
	p := distuv.F{D1: float64(df1), D2: float64(df2)}.Survival(f)

	alpha = normalizeAlpha(alpha)
	return GroupResult{
		Test:        NameANOVA,
		Statistic:   f,
		PValue:      p,
		DF1:         df1,
		DF2:         df2,
		Alpha:       alpha,
		Significant: p < alpha,
		Groups:      k,
		N:           n,
	}, nil
}

type rankedValue struct {
	value float64
	group int
}

// KruskalWallis tests whether the groups come from the same distribution.
// Tied values share their average rank and H is corrected for ties.
func KruskalWallis(groups map[string][]float64, alpha float64) (GroupResult, error) {
	samples, n, err := collectGroups(groups)
	if err != nil {
		return GroupResult{}, err
	}
	k := len(samples)
	if n-k < 1 {
		return GroupResult{}, fmt.Errorf("%w: %d values in %d groups leave no within-group ranks", ErrDegenerate, n, k)
	}

	pooled := make([]rankedValue, 0, n)
	for g, s := range samples {
		for _, v := range s {
			pooled = append(pooled, rankedValue{value: v, group: g})
		}
	}
	sort.Slice(pooled, func(i, j int) bool { return pooled[i].value < pooled[j].value })

	rankSums := make([]float64, k)
	var tieTerm float64
	for i := 0; i < n; {
		j := i
		for j < n && pooled[j].value == pooled[i].value {
			j++
		}
		// ranks i+1..j share their average
		avg := float64(i+1+j) / 2
		for t := i; t < j; t++ {
			rankSums[pooled[t].group] += avg
		}
		if ties := float64(j - i); ties > 1 {
			tieTerm += ties*ties*ties - ties
		}
		i = j
	}

	nf := float64(n)
	correction := 1 - tieTerm/(nf*nf*nf-nf)
	if correction <= 0 {
		return GroupResult{}, fmt.Errorf("%w: all values are identical", ErrDegenerate)
	}

	var h float64
	for g, s := range samples {
		h += rankSums[g] * rankSums[g] / float64(len(s))
	}
	h = 12/(nf*(nf+1))*h - 3*(nf+1)
	h /= correction

	df := k - 1
	p := distuv.ChiSquared{K: float64(df)}.Survival(h)
	if math.IsNaN(p) {
		return GroupResult{}, fmt.Errorf("%w: p-value is undefined", ErrDegenerate)
	}

	alpha = normalizeAlpha(alpha)
	return GroupResult{
		Test:        NameKruskalWallis,
		Statistic:   h,
		PValue:      p,
		DF1:         df,
		Alpha:       alpha,
		Significant: p < alpha,
		Groups:      k,
		N:           n,
	}, nil
}

package analytics

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"solarcli/pkg/contracts/domain"
)

// ErrInvalidPeriod is returned for an unknown aggregation period
var ErrInvalidPeriod = errors.New("invalid aggregation period")

// BucketStart truncates ts to the start of its period in UTC
func BucketStart(ts time.Time, period domain.Period) time.Time {
	ts = ts.UTC()
	switch period {
	case domain.PeriodHourly:
		return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), 0, 0, 0, time.UTC)
	case domain.PeriodDaily:
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	case domain.PeriodMonthly:
		return time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return ts
	}
}

type bucketKey struct {
	start   time.Time
	country domain.Country
}

type bucketAcc struct {
	count  int
	sums   map[domain.Metric]float64
	counts map[domain.Metric]int
}

// Aggregate averages metrics per (bucket, country). Points are sorted by
// bucket, then country report order. A metric with no value in a bucket is
// absent from that point's Means.
func Aggregate(datasets []*domain.Dataset, period domain.Period, metrics []domain.Metric) ([]domain.AggregatePoint, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}

	if period == domain.PeriodRaw {
		return rawPoints(datasets, metrics), nil
	}

	accs := make(map[bucketKey]*bucketAcc)
	for _, ds := range datasets {
		for i := range ds.Records {
			r := &ds.Records[i]
			if r.Timestamp.IsZero() {
				continue
			}
			key := bucketKey{start: BucketStart(r.Timestamp, period), country: ds.Country}
			acc, ok := accs[key]
			if !ok {
				acc = &bucketAcc{
					sums:   make(map[domain.Metric]float64, len(metrics)),
					counts: make(map[domain.Metric]int, len(metrics)),
				}
				accs[key] = acc
			}
			acc.count++
			for _, m := range metrics {
				if r.Has(m) {
					acc.sums[m] += r.Values[m]
					acc.counts[m]++
				}
			}
		}
	}

	points := make([]domain.AggregatePoint, 0, len(accs))
	for key, acc := range accs {
		means := make(map[domain.Metric]float64, len(acc.sums))
		for m, sum := range acc.sums {
			means[m] = sum / float64(acc.counts[m])
		}
		points = append(points, domain.AggregatePoint{
			Bucket:  key.start,
			Country: key.country,
			Count:   acc.count,
			Means:   means,
		})
	}
	sortPoints(points)

	return points, nil
}

func rawPoints(datasets []*domain.Dataset, metrics []domain.Metric) []domain.AggregatePoint {
	points := make([]domain.AggregatePoint, 0)
	for _, ds := range datasets {
		for i := range ds.Records {
			r := &ds.Records[i]
			means := make(map[domain.Metric]float64, len(metrics))
			for _, m := range metrics {
				if r.Has(m) {
					means[m] = r.Values[m]
				}
			}
			points = append(points, domain.AggregatePoint{
				Bucket:  r.Timestamp,
				Country: ds.Country,
				Count:   1,
				Means:   means,
			})
		}
	}
	sortPoints(points)
	return points
}

func sortPoints(points []domain.AggregatePoint) {
	sort.SliceStable(points, func(i, j int) bool {
		if !points[i].Bucket.Equal(points[j].Bucket) {
			return points[i].Bucket.Before(points[j].Bucket)
		}
		return points[i].Country.Order() < points[j].Country.Order()
	})
}

// DiurnalProfile returns the mean of metric for each hour of the day (UTC).
// Hours without data have a zero mean and count.
func DiurnalProfile(ds *domain.Dataset, metric domain.Metric) domain.HourlyProfile {
	profile := domain.HourlyProfile{Country: ds.Country, Metric: metric}

	var sums [24]float64
	for i := range ds.Records {
		r := &ds.Records[i]
		if r.Timestamp.IsZero() || !r.Has(metric) {
			continue
		}
		h := r.Timestamp.UTC().Hour()
		sums[h] += r.Values[metric]
		profile.Counts[h]++
	}
	for h := range sums {
		if profile.Counts[h] > 0 {
			profile.Means[h] = sums[h] / float64(profile.Counts[h])
		}
	}
	return profile
}

// CleaningImpact compares ModA and ModB means on rows where the panels were
// cleaned against the rest.
func CleaningImpact(ds *domain.Dataset) domain.CleaningImpact {
	impact := domain.CleaningImpact{Country: ds.Country}

	var with, without [2]meanAcc
	for i := range ds.Records {
		r := &ds.Records[i]
		target := &without
		if r.Cleaning {
			target = &with
			impact.CleanedRows++
		} else {
			impact.UncleanedRows++
		}
		target[0].add(r, domain.MetricModA)
		target[1].add(r, domain.MetricModB)
	}

	impact.ModAWithCleaning = with[0].mean()
	impact.ModBWithCleaning = with[1].mean()
	impact.ModAWithout = without[0].mean()
	impact.ModBWithout = without[1].mean()
	return impact
}

type meanAcc struct {
	sum float64
	n   int
}

func (a *meanAcc) add(r *domain.Measurement, m domain.Metric) {
	if r.Has(m) {
		a.sum += r.Values[m]
		a.n++
	}
}

func (a *meanAcc) mean() float64 {
	if a.n == 0 {
		return 0
	}
	return a.sum / float64(a.n)
}

package domain

import (
	"math"
	"strings"
	"time"
)

// QualityFlag records what the cleaning pass did to a measurement
type QualityFlag uint8

const (
	// FlagClipped marks a small negative irradiance reading set to zero
	FlagClipped QualityFlag = 1 << iota
	// FlagInvalid marks a reading outside its physical bounds
	FlagInvalid
	// FlagOutlier marks a reading beyond the z-score threshold
	FlagOutlier
	// FlagImputed marks a value filled with the column median
	FlagImputed
)

var flagNames = []struct {
	flag QualityFlag
	name string
}{
	{FlagClipped, "clipped"},
	{FlagInvalid, "invalid"},
	{FlagOutlier, "outlier"},
	{FlagImputed, "imputed"},
}

// Has reports whether all bits of f are set
func (q QualityFlag) Has(f QualityFlag) bool {
	return q&f == f
}

// String renders the set flags joined by "|"
func (q QualityFlag) String() string {
	var parts []string
	for _, fn := range flagNames {
		if q.Has(fn.flag) {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseQualityFlags is the inverse of QualityFlag.String; unknown names are ignored
func ParseQualityFlags(s string) QualityFlag {
	var q QualityFlag
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(strings.ToLower(part))
		for _, fn := range flagNames {
			if part == fn.name {
				q |= fn.flag
			}
		}
	}
	return q
}

// Measurement is one timestamped row of a country's station file.
// Missing values are NaN.
type Measurement struct {
	Timestamp time.Time
	Values    [MetricCount]float64
	Cleaning  bool
	Comments  string
	Flags     QualityFlag
}

// NewMeasurement returns a measurement with every value missing
func NewMeasurement(ts time.Time) Measurement {
	m := Measurement{Timestamp: ts}
	for i := range m.Values {
		m.Values[i] = math.NaN()
	}
	return m
}

// Value returns the reading for metric
func (m *Measurement) Value(metric Metric) float64 {
	return m.Values[metric]
}

// Has reports whether metric has a reading
func (m *Measurement) Has(metric Metric) bool {
	return !math.IsNaN(m.Values[metric])
}

// Dataset is the collection of measurements for one country
type Dataset struct {
	Country Country
	Source  string
	Records []Measurement
}

// Len returns the number of records
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Column returns the present values of metric in record order
func (d *Dataset) Column(metric Metric) []float64 {
	out := make([]float64, 0, len(d.Records))
	for i := range d.Records {
		if v := d.Records[i].Values[metric]; !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// ColumnWithNaN returns every value of metric including missing ones
func (d *Dataset) ColumnWithNaN(metric Metric) []float64 {
	out := make([]float64, len(d.Records))
	for i := range d.Records {
		out[i] = d.Records[i].Values[metric]
	}
	return out
}

// TimeRange returns the earliest and latest non-zero timestamps
func (d *Dataset) TimeRange() (first, last time.Time) {
	for i := range d.Records {
		ts := d.Records[i].Timestamp
		if ts.IsZero() {
			continue
		}
		if first.IsZero() || ts.Before(first) {
			first = ts
		}
		if last.IsZero() || ts.After(last) {
			last = ts
		}
	}
	return first, last
}

// Clone returns a deep copy of the dataset
func (d *Dataset) Clone() *Dataset {
	records := make([]Measurement, len(d.Records))
	copy(records, d.Records)
	return &Dataset{Country: d.Country, Source: d.Source, Records: records}
}

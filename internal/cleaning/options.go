package cleaning

import (
	"errors"
	"fmt"

	"solarcli/internal/config"
	"solarcli/pkg/contracts/domain"
)

var (
	// ErrInvalidOptions is returned when cleaning options fail validation
	ErrInvalidOptions = errors.New("invalid cleaning options")
	// ErrEmptyDataset is returned when no row has a usable timestamp
	ErrEmptyDataset = errors.New("dataset has no rows with a valid timestamp")
)

// OutlierPolicy decides what happens to a value beyond the z-score threshold
type OutlierPolicy string

const (
	// PolicyFlag keeps the value and marks the row
	PolicyFlag OutlierPolicy = "flag"
	// PolicyImpute replaces the value with the column median
	PolicyImpute OutlierPolicy = "impute"
	// PolicyDrop removes the whole row
	PolicyDrop OutlierPolicy = "drop"
)

// Valid reports whether p is a known policy
func (p OutlierPolicy) Valid() bool {
	switch p {
	case PolicyFlag, PolicyImpute, PolicyDrop:
		return true
	}
	return false
}

// Bounds is the inclusive physical range of a metric
type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies inside the range
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Options configures a cleaning run
type Options struct {
	ZThreshold        float64
	OutlierPolicy     OutlierPolicy
	OutlierMetrics    []domain.Metric
	NegativeTolerance float64
	ImputeMissing     bool
	Bounds            map[domain.Metric]Bounds
}

// DefaultOutlierMetrics are the columns screened for z-score outliers
var DefaultOutlierMetrics = []domain.Metric{
	domain.MetricGHI,
	domain.MetricDNI,
	domain.MetricDHI,
	domain.MetricModA,
	domain.MetricModB,
	domain.MetricWS,
	domain.MetricWSgust,
}

// DefaultBounds returns the physical plausibility range of every metric
func DefaultBounds() map[domain.Metric]Bounds {
	return map[domain.Metric]Bounds{
		domain.MetricGHI:           {0, 1500},
		domain.MetricDNI:           {0, 1500},
		domain.MetricDHI:           {0, 1000},
		domain.MetricModA:          {0, 1500},
		domain.MetricModB:          {0, 1500},
		domain.MetricTamb:          {-40, 60},
		domain.MetricRH:            {0, 100},
		domain.MetricWS:            {0, 60},
		domain.MetricWSgust:        {0, 80},
		domain.MetricWSstdev:       {0, 30},
		domain.MetricWD:            {0, 360},
		domain.MetricWDstdev:       {0, 360},
		domain.MetricBP:            {800, 1100},
		domain.MetricPrecipitation: {0, 50},
		domain.MetricTModA:         {-40, 100},
		domain.MetricTModB:         {-40, 100},
	}
}

// DefaultOptions returns the standard cleaning configuration
func DefaultOptions() Options {
	return Options{
		ZThreshold:        config.DefaultZThreshold,
		OutlierPolicy:     PolicyFlag,
		OutlierMetrics:    append([]domain.Metric(nil), DefaultOutlierMetrics...),
		NegativeTolerance: config.DefaultNegativeTolerance,
		ImputeMissing:     true,
		Bounds:            DefaultBounds(),
	}
}

// OptionsFromConfig maps the cleaning section of the application config
func OptionsFromConfig(cc config.CleaningConfig) Options {
	opts := DefaultOptions()
	opts.ZThreshold = cc.ZThreshold
	opts.OutlierPolicy = OutlierPolicy(cc.OutlierPolicy)
	opts.NegativeTolerance = cc.NegativeTolerance
	opts.ImputeMissing = cc.ImputeMissing
	return opts
}

// Validate checks the options
func (o Options) Validate() error {
	if o.ZThreshold <= 0 {
		return fmt.Errorf("%w: z threshold must be positive, got %v", ErrInvalidOptions, o.ZThreshold)
	}
	if !o.OutlierPolicy.Valid() {
		return fmt.Errorf("%w: unknown outlier policy %q", ErrInvalidOptions, o.OutlierPolicy)
	}
	if o.NegativeTolerance < 0 {
		return fmt.Errorf("%w: negative tolerance must not be negative", ErrInvalidOptions)
	}
	for _, m := range o.OutlierMetrics {
		if !m.Valid() {
			return fmt.Errorf("%w: unknown outlier metric %d", ErrInvalidOptions, int(m))
		}
	}
	for m, b := range o.Bounds {
		if b.Min > b.Max {
			return fmt.Errorf("%w: bounds for %s have min > max", ErrInvalidOptions, m)
		}
	}
	return nil
}

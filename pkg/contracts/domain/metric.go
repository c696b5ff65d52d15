package domain

import (
	"fmt"
	"strings"
)

// Metric identifies a numeric column of a measurement file
type Metric int

const (
	MetricGHI Metric = iota
	MetricDNI
	MetricDHI
	MetricModA
	MetricModB
	MetricTamb
	MetricRH
	MetricWS
	MetricWSgust
	MetricWSstdev
	MetricWD
	MetricWDstdev
	MetricBP
	MetricPrecipitation
	MetricTModA
	MetricTModB

	// MetricCount is the number of known metrics
	MetricCount
)

type metricInfo struct {
	column  string
	display string
	unit    string
}

var metricTable = [MetricCount]metricInfo{
	MetricGHI:           {"GHI", "Global Horizontal Irradiance", "W/m²"},
	MetricDNI:           {"DNI", "Direct Normal Irradiance", "W/m²"},
	MetricDHI:           {"DHI", "Diffuse Horizontal Irradiance", "W/m²"},
	MetricModA:          {"ModA", "Module A Irradiance", "W/m²"},
	MetricModB:          {"ModB", "Module B Irradiance", "W/m²"},
	MetricTamb:          {"Tamb", "Temperature", "°C"},
	MetricRH:            {"RH", "Relative Humidity", "%"},
	MetricWS:            {"WS", "Wind Speed", "m/s"},
	MetricWSgust:        {"WSgust", "Wind Gust", "m/s"},
	MetricWSstdev:       {"WSstdev", "Wind Speed Std Dev", "m/s"},
	MetricWD:            {"WD", "Wind Direction", "°"},
	MetricWDstdev:       {"WDstdev", "Wind Direction Std Dev", "°"},
	MetricBP:            {"BP", "Barometric Pressure", "hPa"},
	MetricPrecipitation: {"Precipitation", "Precipitation", "mm/min"},
	MetricTModA:         {"TModA", "Module A Temperature", "°C"},
	MetricTModB:         {"TModB", "Module B Temperature", "°C"},
}

// IrradianceMetrics are the radiation columns measured in W/m²
var IrradianceMetrics = []Metric{MetricGHI, MetricDNI, MetricDHI, MetricModA, MetricModB}

// CorrelationMetrics are the columns compared in the correlation matrix
var CorrelationMetrics = []Metric{MetricGHI, MetricDNI, MetricDHI, MetricTamb, MetricRH, MetricWS}

// AllMetrics returns every metric in column order
func AllMetrics() []Metric {
	out := make([]Metric, MetricCount)
	for i := range out {
		out[i] = Metric(i)
	}
	return out
}

// Valid reports whether m is a known metric
func (m Metric) Valid() bool {
	return m >= 0 && m < MetricCount
}

// String returns the column name of the metric
func (m Metric) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Metric(%d)", int(m))
	}
	return metricTable[m].column
}

// DisplayName returns the label with unit, e.g. "Global Horizontal Irradiance (W/m²)"
func (m Metric) DisplayName() string {
	if !m.Valid() {
		return m.String()
	}
	return fmt.Sprintf("%s (%s)", metricTable[m].display, metricTable[m].unit)
}

// Unit returns the measurement unit
func (m Metric) Unit() string {
	if !m.Valid() {
		return ""
	}
	return metricTable[m].unit
}

// IsIrradiance reports whether m is a radiation column
func (m Metric) IsIrradiance() bool {
	for _, im := range IrradianceMetrics {
		if im == m {
			return true
		}
	}
	return false
}

// MarshalText encodes the metric as its column name
func (m Metric) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid metric %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText decodes a column name
func (m *Metric) UnmarshalText(text []byte) error {
	parsed, err := ParseMetric(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMetric resolves a column name, ignoring case and surrounding space
func ParseMetric(s string) (Metric, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, info := range metricTable {
		if strings.ToLower(info.column) == key {
			return Metric(i), nil
		}
	}
	return 0, fmt.Errorf("unknown metric %q", s)
}

// ParseMetrics parses a list of metric names
func ParseMetrics(values []string) ([]Metric, error) {
	out := make([]Metric, 0, len(values))
	for _, v := range values {
		m, err := ParseMetric(v)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

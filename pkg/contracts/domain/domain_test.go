package domain

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCountry(t *testing.T) {
	tests := []struct {
		input   string
		want    Country
		wantErr bool
	}{
		{input: "benin", want: CountryBenin},
		{input: "Sierra Leone", want: CountrySierraLeone},
		{input: "sierra_leone", want: CountrySierraLeone},
		{input: " TOGO ", want: CountryTogo},
		{input: "ghana", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCountry(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCountries_Dedup(t *testing.T) {
	got, err := ParseCountries([]string{"togo", "Togo", "benin"})
	require.NoError(t, err)
	assert.Equal(t, []Country{CountryTogo, CountryBenin}, got)

	_, err = ParseCountries([]string{"togo", "mali"})
	assert.Error(t, err)
}

func TestCountryOrder(t *testing.T) {
	assert.Equal(t, 0, CountryBenin.Order())
	assert.Equal(t, 2, CountryTogo.Order())
	assert.Equal(t, len(AllCountries), Country("mali").Order())
	assert.Equal(t, "Sierra Leone", CountrySierraLeone.DisplayName())
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric(" ghi ")
	require.NoError(t, err)
	assert.Equal(t, MetricGHI, m)
	assert.True(t, m.IsIrradiance())

	m, err = ParseMetric("Tamb")
	require.NoError(t, err)
	assert.False(t, m.IsIrradiance())

	_, err = ParseMetric("UV")
	assert.Error(t, err)
	assert.False(t, MetricCount.Valid())
}

func TestMetric_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]Metric{"metric": MetricDNI})
	require.NoError(t, err)
	assert.JSONEq(t, `{"metric":"DNI"}`, string(data))

	var decoded struct {
		Metric Metric `json:"metric"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"metric":"rh"}`), &decoded))
	assert.Equal(t, MetricRH, decoded.Metric)
}

func TestQualityFlag(t *testing.T) {
	tests := []struct {
		name string
		flag QualityFlag
		want string
	}{
		{name: "none", flag: 0, want: ""},
		{name: "single", flag: FlagOutlier, want: "outlier"},
		{name: "combined", flag: FlagClipped | FlagImputed, want: "clipped|imputed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.flag.String())
			assert.Equal(t, tt.flag, ParseQualityFlags(tt.want))
		})
	}
}

func TestDataset_Columns(t *testing.T) {
	start := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	a := NewMeasurement(start.Add(time.Hour))
	a.Values[MetricGHI] = 100
	b := NewMeasurement(start)
	c := NewMeasurement(time.Time{})
	c.Values[MetricGHI] = 300

	ds := &Dataset{Country: CountryBenin, Records: []Measurement{a, b, c}}

	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, []float64{100, 300}, ds.Column(MetricGHI))

	withNaN := ds.ColumnWithNaN(MetricGHI)
	require.Len(t, withNaN, 3)
	assert.True(t, math.IsNaN(withNaN[1]))

	first, last := ds.TimeRange()
	assert.Equal(t, start, first)
	assert.Equal(t, start.Add(time.Hour), last)

	var nilDS *Dataset
	assert.Zero(t, nilDS.Len())
}

package domain

import (
	"time"
)

// Summary holds the descriptive statistics of one sample
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	P25    float64 `json:"p25"`
	Median float64 `json:"median"`
	P75    float64 `json:"p75"`
	Max    float64 `json:"max"`
	// CV is the coefficient of variation in percent (std / mean * 100)
	CV float64 `json:"cv"`
}

// MetricSummary is the summary of one metric for one country
type MetricSummary struct {
	Country Country `json:"country"`
	Metric  Metric  `json:"metric"`
	Summary
}

// RankEntry is one position in a country ranking
type RankEntry struct {
	Rank    int     `json:"rank"`
	Country Country `json:"country"`
	Value   float64 `json:"value"`
}

// Ranking orders countries by the mean of a metric, best first
type Ranking struct {
	Metric  Metric      `json:"metric"`
	Entries []RankEntry `json:"entries"`
}

// TestResult is the outcome of a between-country significance test
type TestResult struct {
	Test        string  `json:"test"`
	Metric      Metric  `json:"metric"`
	Statistic   float64 `json:"statistic"`
	PValue      float64 `json:"p_value"`
	DF1         int     `json:"df1"`
	DF2         int     `json:"df2,omitempty"`
	Alpha       float64 `json:"alpha"`
	Significant bool    `json:"significant"`
	Groups      int     `json:"groups"`
	N           int     `json:"n"`
}

// CorrelationMatrix holds pairwise Pearson coefficients
type CorrelationMatrix struct {
	Metrics []Metric    `json:"metrics"`
	Values  [][]float64 `json:"values"`
}

// Get returns the coefficient for a pair of metrics
func (c *CorrelationMatrix) Get(a, b Metric) (float64, bool) {
	ia, ib := -1, -1
	for i, m := range c.Metrics {
		if m == a {
			ia = i
		}
		if m == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return 0, false
	}
	return c.Values[ia][ib], true
}

// Period is the time granularity used for aggregation
type Period string

const (
	PeriodRaw     Period = "raw"
	PeriodHourly  Period = "hourly"
	PeriodDaily   Period = "daily"
	PeriodMonthly Period = "monthly"
)

// Valid reports whether p is a supported period
func (p Period) Valid() bool {
	switch p {
	case PeriodRaw, PeriodHourly, PeriodDaily, PeriodMonthly:
		return true
	}
	return false
}

// AggregatePoint is the mean of each requested metric within one time bucket
type AggregatePoint struct {
	Bucket  time.Time          `json:"bucket"`
	Country Country            `json:"country"`
	Count   int                `json:"count"`
	Means   map[Metric]float64 `json:"means"`
}

// HourlyProfile is the mean of a metric for each hour of the day
type HourlyProfile struct {
	Country Country     `json:"country"`
	Metric  Metric      `json:"metric"`
	Means   [24]float64 `json:"means"`
	Counts  [24]int     `json:"counts"`
}

// Histogram counts the values of one metric per country over bin edges
// shared by every country. Bin i covers [Edges[i], Edges[i+1]); the last bin
// also includes its upper edge.
type Histogram struct {
	Metric Metric            `json:"metric"`
	Edges  []float64         `json:"edges"`
	Series []HistogramSeries `json:"series"`
}

// HistogramSeries is one country's bin counts
type HistogramSeries struct {
	Country Country `json:"country"`
	Counts  []int   `json:"counts"`
	Total   int     `json:"total"`
}

// Bins returns the number of bins
func (h *Histogram) Bins() int {
	if len(h.Edges) < 2 {
		return 0
	}
	return len(h.Edges) - 1
}

// CleaningImpact compares module irradiance on cleaning and non-cleaning rows
type CleaningImpact struct {
	Country          Country `json:"country"`
	CleanedRows      int     `json:"cleaned_rows"`
	UncleanedRows    int     `json:"uncleaned_rows"`
	ModAWithCleaning float64 `json:"moda_with_cleaning"`
	ModAWithout      float64 `json:"moda_without_cleaning"`
	ModBWithCleaning float64 `json:"modb_with_cleaning"`
	ModBWithout      float64 `json:"modb_without_cleaning"`
}

// Alert flags a country exceeding an environmental threshold
type Alert struct {
	Country   Country `json:"country"`
	Metric    Metric  `json:"metric"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Message   string  `json:"message"`
}

// Technology is the recommended solar technology class
type Technology string

const (
	TechnologyCSP Technology = "CSP"
	TechnologyPV  Technology = "PV"
)

// TechnologyChoice is the technology recommendation for one country
type TechnologyChoice struct {
	Country    Country    `json:"country"`
	Technology Technology `json:"technology"`
	MeanDNI    float64    `json:"mean_dni"`
}

// Recommendations is the investment guidance derived from the summaries
type Recommendations struct {
	PrimaryTarget      Country            `json:"primary_target"`
	PrimaryMeanGHI     float64            `json:"primary_mean_ghi"`
	SecondaryTarget    Country            `json:"secondary_target"`
	SecondaryMedianGHI float64            `json:"secondary_median_ghi"`
	MostConsistent     Country            `json:"most_consistent"`
	MostConsistentStd  float64            `json:"most_consistent_std"`
	Technologies       []TechnologyChoice `json:"technologies"`
	HeatAlerts         []Alert            `json:"heat_alerts"`
	HumidityAlerts     []Alert            `json:"humidity_alerts"`
}

// AnalysisReport bundles every comparative result of one analysis run
type AnalysisReport struct {
	GeneratedAt     time.Time         `json:"generated_at"`
	PrimaryMetric   Metric            `json:"primary_metric"`
	Countries       []Country         `json:"countries"`
	Records         map[Country]int   `json:"records"`
	Summaries       []MetricSummary   `json:"summaries"`
	Rankings        []Ranking         `json:"rankings"`
	ANOVA           *TestResult       `json:"anova,omitempty"`
	KruskalWallis   *TestResult       `json:"kruskal_wallis,omitempty"`
	TestErrors      []string          `json:"test_errors,omitempty"`
	Correlation     CorrelationMatrix `json:"correlation"`
	Diurnal         []HourlyProfile   `json:"diurnal"`
	CleaningImpact  []CleaningImpact  `json:"cleaning_impact"`
	Distribution    *Histogram        `json:"distribution,omitempty"`
	Recommendations *Recommendations  `json:"recommendations,omitempty"`
	CleaningReports []*CleaningReport `json:"cleaning_reports,omitempty"`
}

// SummaryFor returns the summary of metric for country
func (r *AnalysisReport) SummaryFor(country Country, metric Metric) (Summary, bool) {
	for _, s := range r.Summaries {
		if s.Country == country && s.Metric == metric {
			return s.Summary, true
		}
	}
	return Summary{}, false
}

// RankingFor returns the ranking for metric
func (r *AnalysisReport) RankingFor(metric Metric) (Ranking, bool) {
	for _, rk := range r.Rankings {
		if rk.Metric == metric {
			return rk, true
		}
	}
	return Ranking{}, false
}

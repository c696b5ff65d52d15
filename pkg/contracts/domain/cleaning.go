package domain

// MetricCleaningStats counts what the cleaner changed in one column
type MetricCleaningStats struct {
	Metric        Metric `json:"metric"`
	MissingBefore int    `json:"missing_before"`
	Converted     int    `json:"converted"`
	Clipped       int    `json:"clipped"`
	Invalid       int    `json:"invalid"`
	Outliers      int    `json:"outliers"`
	Imputed       int    `json:"imputed"`
	MissingAfter  int    `json:"missing_after"`
}

// CleaningReport summarizes one cleaning run over a country dataset
type CleaningReport struct {
	Country             Country               `json:"country"`
	Source              string                `json:"source"`
	InputRows           int                   `json:"input_rows"`
	OutputRows          int                   `json:"output_rows"`
	DroppedBadTimestamp int                   `json:"dropped_bad_timestamp"`
	DroppedDuplicates   int                   `json:"dropped_duplicates"`
	DroppedOutlierRows  int                   `json:"dropped_outlier_rows"`
	Metrics             []MetricCleaningStats `json:"metrics"`
}

// NewCleaningReport returns a report with one zeroed entry per metric
func NewCleaningReport(country Country, source string) *CleaningReport {
	r := &CleaningReport{
		Country: country,
		Source:  source,
		Metrics: make([]MetricCleaningStats, MetricCount),
	}
	for i := range r.Metrics {
		r.Metrics[i].Metric = Metric(i)
	}
	return r
}

// Stats returns the mutable counters for metric
func (r *CleaningReport) Stats(metric Metric) *MetricCleaningStats {
	return &r.Metrics[metric]
}

// TotalOutliers sums outliers across all metrics
func (r *CleaningReport) TotalOutliers() int {
	total := 0
	for _, s := range r.Metrics {
		total += s.Outliers
	}
	return total
}

// TotalImputed sums imputed values across all metrics
func (r *CleaningReport) TotalImputed() int {
	total := 0
	for _, s := range r.Metrics {
		total += s.Imputed
	}
	return total
}

// Dropped returns the number of rows removed
func (r *CleaningReport) Dropped() int {
	return r.DroppedBadTimestamp + r.DroppedDuplicates + r.DroppedOutlierRows
}

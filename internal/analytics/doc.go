// Package analytics compares cleaned country datasets.
//
// It provides descriptive summaries and rankings, one-way ANOVA and
// Kruskal-Wallis tests across countries, a pooled correlation matrix,
// time-bucketed aggregates, diurnal profiles, the effect of panel cleaning on
// module irradiance, and the investment recommendations derived from them.
// Analyze runs all of it and returns a single domain.AnalysisReport.
package analytics

package analytics

import (
	"fmt"
	"sort"

	"solarcli/internal/config"
	"solarcli/pkg/contracts/domain"
)

// Thresholds drive the technology choice and environmental alerts
type Thresholds struct {
	// CSPMinDNI is the mean DNI (W/m²) above which CSP is recommended
	CSPMinDNI float64
	// HeatAlertTamb is the maximum ambient temperature (°C) tolerated
	HeatAlertTamb float64
	// HumidityAlertRH is the mean relative humidity (%) tolerated
	HumidityAlertRH float64
}

// DefaultThresholds returns the standard recommendation thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		CSPMinDNI:       config.DefaultCSPMinDNI,
		HeatAlertTamb:   config.DefaultHeatAlertTamb,
		HumidityAlertRH: config.DefaultHumidityAlertRH,
	}
}

// Recommend derives investment guidance from per-country summaries.
// GHI summaries are required; DNI, Tamb and RH are used when present.
func Recommend(summaries []domain.MetricSummary, th Thresholds) (*domain.Recommendations, error) {
	byMetric := make(map[domain.Metric][]domain.MetricSummary)
	for _, s := range summaries {
		byMetric[s.Metric] = append(byMetric[s.Metric], s)
	}
	for _, list := range byMetric {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Country.Order() < list[j].Country.Order()
		})
	}

	ghi := byMetric[domain.MetricGHI]
	if len(ghi) == 0 {
		return nil, fmt.Errorf("recommend: GHI: %w", ErrEmptySample)
	}

	rec := &domain.Recommendations{
		Technologies:   []domain.TechnologyChoice{},
		HeatAlerts:     []domain.Alert{},
		HumidityAlerts: []domain.Alert{},
	}

	primary, secondary, consistent := ghi[0], ghi[0], ghi[0]
	for _, s := range ghi[1:] {
		if s.Mean > primary.Mean {
			primary = s
		}
		if s.Median > secondary.Median {
			secondary = s
		}
		if s.Std < consistent.Std {
			consistent = s
		}
	}
	rec.PrimaryTarget, rec.PrimaryMeanGHI = primary.Country, primary.Mean
	rec.SecondaryTarget, rec.SecondaryMedianGHI = secondary.Country, secondary.Median
	rec.MostConsistent, rec.MostConsistentStd = consistent.Country, consistent.Std

	for _, s := range byMetric[domain.MetricDNI] {
		tech := domain.TechnologyPV
		if s.Mean > th.CSPMinDNI {
			tech = domain.TechnologyCSP
		}
		rec.Technologies = append(rec.Technologies, domain.TechnologyChoice{
			Country:    s.Country,
			Technology: tech,
			MeanDNI:    s.Mean,
		})
	}

	for _, s := range byMetric[domain.MetricTamb] {
		if s.Max > th.HeatAlertTamb {
			rec.HeatAlerts = append(rec.HeatAlerts, domain.Alert{
				Country:   s.Country,
				Metric:    domain.MetricTamb,
				Value:     s.Max,
				Threshold: th.HeatAlertTamb,
				Message: fmt.Sprintf("%s peaks at %.1f°C; use heat-tolerant modules and ventilated mounting",
					s.Country.DisplayName(), s.Max),
			})
		}
	}

	for _, s := range byMetric[domain.MetricRH] {
		if s.Mean > th.HumidityAlertRH {
			rec.HumidityAlerts = append(rec.HumidityAlerts, domain.Alert{
				Country:   s.Country,
				Metric:    domain.MetricRH,
				Value:     s.Mean,
				Threshold: th.HumidityAlertRH,
				Message: fmt.Sprintf("%s averages %.1f%% humidity; schedule regular panel cleaning",
					s.Country.DisplayName(), s.Mean),
			})
		}
	}

	return rec, nil
}

package exporter

import (
	"math"
	"strconv"
	"time"
)

// TimestampLayout is the layout of the Timestamp column in cleaned files
const TimestampLayout = "2006-01-02 15:04:05"

// formatValue renders a reading with the shortest exact representation;
// missing values become an empty cell
func formatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatStat formats a statistic with exactly 4 decimal places
func formatStat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatFlag renders a boolean as 1 or 0, matching the station files
func formatFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatTimestamp(ts time.Time) string {
	return ts.UTC().Format(TimestampLayout)
}

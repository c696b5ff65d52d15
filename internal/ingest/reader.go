package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"solarcli/pkg/contracts/domain"
)

var (
	// ErrMissingTimestampColumn is returned when the header has no Timestamp column
	ErrMissingTimestampColumn = errors.New("missing Timestamp column")
	// ErrNoRows is returned when a file has a header but no data rows
	ErrNoRows = errors.New("no data rows")
	// ErrUnsupportedFormat is returned for file extensions other than csv and xlsx
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrMalformed is returned when a row or header cannot be tokenized
	ErrMalformed = errors.New("malformed input")
)

// IsParseError reports whether err means the file content itself is unusable,
// as opposed to an I/O failure or cancellation
func IsParseError(err error) bool {
	return errors.Is(err, ErrMissingTimestampColumn) ||
		errors.Is(err, ErrNoRows) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrMalformed)
}

// ctxCheckInterval is how many rows are parsed between context checks
const ctxCheckInterval = 4096

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"01/02/2006 15:04",
	"2006/01/02 15:04",
}

var missingTokens = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	"-":    true,
}

// ReadStats counts the anomalies seen while parsing one file
type ReadStats struct {
	Rows          int `json:"rows"`
	BadTimestamps int `json:"bad_timestamps"`
	BadNumbers    int `json:"bad_numbers"`
	MissingValues int `json:"missing_values"`
}

// columnMap records where each known column sits in a row; -1 means absent
type columnMap struct {
	timestamp int
	metrics   [domain.MetricCount]int
	cleaning  int
	comments  int
	flags     int
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

// mapHeader locates the known columns; unknown columns are ignored and the
// first occurrence of a duplicated name wins
func mapHeader(header []string) (columnMap, error) {
	cm := columnMap{timestamp: -1, cleaning: -1, comments: -1, flags: -1}
	for i := range cm.metrics {
		cm.metrics[i] = -1
	}

	metricByKey := make(map[string]domain.Metric, domain.MetricCount)
	for _, m := range domain.AllMetrics() {
		metricByKey[normalizeHeader(m.String())] = m
	}

	for i, raw := range header {
		key := normalizeHeader(raw)
		switch key {
		case "timestamp":
			if cm.timestamp < 0 {
				cm.timestamp = i
			}
		case "cleaning":
			if cm.cleaning < 0 {
				cm.cleaning = i
			}
		case "comments":
			if cm.comments < 0 {
				cm.comments = i
			}
		case "qualityflags":
			if cm.flags < 0 {
				cm.flags = i
			}
		default:
			if m, ok := metricByKey[key]; ok && cm.metrics[m] < 0 {
				cm.metrics[m] = i
			}
		}
	}

	if cm.timestamp < 0 {
		return cm, ErrMissingTimestampColumn
	}
	return cm, nil
}

// ParseTimestamp tries every supported layout; the zero time and false are
// returned when none match
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseValue converts a cell to a float; missing tokens and garbage become NaN
func parseValue(s string) (v float64, missing, bad bool) {
	s = strings.TrimSpace(s)
	if missingTokens[strings.ToLower(s)] {
		return math.NaN(), true, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return math.NaN(), false, true
	}
	return v, false, false
}

func parseFlag(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "true", "yes", "y":
		return true
	}
	v, err := strconv.ParseFloat(s, 64)
	return err == nil && v > 0
}

// rowSource yields rows until io.EOF
type rowSource func() ([]string, error)

// parseRows builds a dataset from a header row and the rows after it
func parseRows(ctx context.Context, header []string, next rowSource, country domain.Country, parseTS func(string) (time.Time, bool)) (*domain.Dataset, ReadStats, error) {
	var stats ReadStats

	cm, err := mapHeader(header)
	if err != nil {
		return nil, stats, err
	}

	ds := &domain.Dataset{Country: country}

	for {
		if stats.Rows%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}

		row, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("row %d: %w: %w", stats.Rows+2, ErrMalformed, err)
		}

		cell := func(idx int) string {
			if idx < 0 || idx >= len(row) {
				return ""
			}
			return row[idx]
		}

		ts, ok := parseTS(cell(cm.timestamp))
		if !ok {
			stats.BadTimestamps++
		}

		m := domain.NewMeasurement(ts)
		for metric, idx := range cm.metrics {
			if idx < 0 {
				continue
			}
			v, missing, bad := parseValue(cell(idx))
			switch {
			case missing:
				stats.MissingValues++
			case bad:
				stats.BadNumbers++
			}
			m.Values[metric] = v
		}
		m.Cleaning = parseFlag(cell(cm.cleaning))
		m.Comments = strings.TrimSpace(cell(cm.comments))
		if cm.flags >= 0 {
			m.Flags = domain.ParseQualityFlags(cell(cm.flags))
		}

		ds.Records = append(ds.Records, m)
		stats.Rows++
	}

	if stats.Rows == 0 {
		return nil, stats, ErrNoRows
	}

	return ds, stats, nil
}

// Parse reads a station CSV and reports parse statistics alongside the dataset.
// Rows with an unparseable timestamp are kept with a zero timestamp.
func Parse(ctx context.Context, r io.Reader, country domain.Country) (*domain.Dataset, ReadStats, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && string(bom) == "\xef\xbb\xbf" {
		_, _ = br.Discard(3)
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ReadStats{}, fmt.Errorf("%w: empty input", ErrNoRows)
	}
	if err != nil {
		return nil, ReadStats{}, fmt.Errorf("failed to read header: %w: %w", ErrMalformed, err)
	}

	return parseRows(ctx, header, reader.Read, country, ParseTimestamp)
}

// ReadCSV reads a station CSV into a dataset
func ReadCSV(ctx context.Context, r io.Reader, country domain.Country) (*domain.Dataset, error) {
	ds, _, err := Parse(ctx, r, country)
	return ds, err
}

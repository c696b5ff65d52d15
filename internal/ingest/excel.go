package ingest

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"solarcli/pkg/contracts/domain"
)

// headerSearchDepth is how many leading rows of a sheet are scanned for the header
const headerSearchDepth = 10

// ReadExcel reads the first sheet whose header row contains a Timestamp column
func ReadExcel(ctx context.Context, path string, country domain.Country) (*domain.Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	ds, _, err := parseWorkbook(ctx, f, country)
	return ds, err
}

// ParseExcel is ReadExcel over an in-memory workbook, returning parse statistics
func ParseExcel(ctx context.Context, r io.Reader, country domain.Country) (*domain.Dataset, ReadStats, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, ReadStats{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return parseWorkbook(ctx, f, country)
}

func parseWorkbook(ctx context.Context, f *excelize.File, country domain.Country) (*domain.Dataset, ReadStats, error) {
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, ReadStats{}, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}

		headerIdx := findHeaderRow(rows)
		if headerIdx < 0 {
			continue
		}

		pos := headerIdx + 1
		next := func() ([]string, error) {
			if pos >= len(rows) {
				return nil, io.EOF
			}
			row := rows[pos]
			pos++
			return row, nil
		}

		return parseRows(ctx, rows[headerIdx], next, country, parseExcelTimestamp)
	}

	return nil, ReadStats{}, ErrMissingTimestampColumn
}

func findHeaderRow(rows [][]string) int {
	for i := 0; i < len(rows) && i < headerSearchDepth; i++ {
		for _, cell := range rows[i] {
			if normalizeHeader(cell) == "timestamp" {
				return i
			}
		}
	}
	return -1
}

// parseExcelTimestamp accepts text timestamps and raw date serials
func parseExcelTimestamp(s string) (time.Time, bool) {
	if ts, ok := ParseTimestamp(s); ok {
		return ts, true
	}
	serial, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || serial <= 0 {
		return time.Time{}, false
	}
	ts, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	// Serials carry no seconds precision beyond float rounding
	return ts.UTC().Round(time.Second), true
}

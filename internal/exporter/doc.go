// Package exporter writes analysis outputs to disk.
//
// CSVWriter handles flat files: cleaned datasets (readable back by the ingest
// package), per-country summaries and cleaning reports. StreamWriter writes
// large datasets row by row. WorkbookWriter renders an AnalysisReport as an
// Excel workbook with one sheet per view and native column and line charts.
package exporter

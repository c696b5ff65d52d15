// Package ingest loads raw per-country solar station files into datasets.
//
// CSV and Excel inputs share one row parser: the header is matched by name
// (case, spaces, underscores and a UTF-8 BOM are ignored), missing tokens such
// as NA or null become NaN, and rows whose timestamp cannot be parsed are kept
// with a zero timestamp so the cleaner can count and drop them.
package ingest

// Package tabular holds the in-memory header/rows frame shared by ingest and
// export, and its delimited-text codec.
package tabular

import (
	"fmt"
	"strings"
)

// Frame is a decoded delimited table. Rows are padded to the header width.
type Frame struct {
	Header []string
	Rows   [][]string

	index map[string]int
}

// New builds a frame from a header and rows. Short rows are padded with empty
// cells; long rows are truncated to the header width.
func New(header []string, rows [][]string) *Frame {
	f := &Frame{Header: append([]string(nil), header...)}
	f.Rows = make([][]string, len(rows))
	for i, row := range rows {
		f.Rows[i] = fit(row, len(header))
	}
	f.reindex()
	return f
}

func fit(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

func (f *Frame) reindex() {
	f.index = make(map[string]int, len(f.Header))
	for i, name := range f.Header {
		if _, seen := f.index[name]; !seen {
			f.index[name] = i
		}
	}
}

// Rename replaces the header in place. The new header must have the same width.
func (f *Frame) Rename(header []string) error {
	if len(header) != len(f.Header) {
		return fmt.Errorf("rename: header width %d, want %d", len(header), len(f.Header))
	}
	f.Header = append([]string(nil), header...)
	f.reindex()
	return nil
}

// Len returns the number of data rows.
func (f *Frame) Len() int { return len(f.Rows) }

// Index returns the position of column, or -1.
func (f *Frame) Index(column string) int {
	if i, ok := f.index[column]; ok {
		return i
	}
	return -1
}

// Has reports whether column is part of the header.
func (f *Frame) Has(column string) bool {
	_, ok := f.index[column]
	return ok
}

// Missing returns the entries of required absent from the header, in order.
func (f *Frame) Missing(required []string) []string {
	var missing []string
	for _, c := range required {
		if !f.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Value returns the trimmed cell of row i in column, or "" when the column is absent.
func (f *Frame) Value(i int, column string) string {
	idx, ok := f.index[column]
	if !ok {
		return ""
	}
	return strings.TrimSpace(f.Rows[i][idx])
}

// Append adds one row, padded or truncated to the header width.
func (f *Frame) Append(row []string) {
	f.Rows = append(f.Rows, fit(row, len(f.Header)))
}

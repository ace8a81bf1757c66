// Package ingest validates decoded input tables and converts them into the
// typed records consumed by the classify core.
package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"assaycore/internal/classify"
	"assaycore/internal/status"
	"assaycore/internal/tabular"
)

// Table names used in errors and log fields.
const (
	TableStatus     = "status"
	TableActivities = "activities"
	TablePairs      = "pairs"
)

// Status vocabulary columns.
const (
	ColStatus         = "status"
	ColConditionField = "condition_field"
	ColConditionValue = "condition_value"
	ColOrder          = "order"
	ColScore          = "score"
)

// StatusColumns are always required.
var StatusColumns = []string{ColStatus, ColConditionField, ColConditionValue, ColOrder, ColScore}

// ActivityColumns lists the columns an activities table is expected to carry.
var ActivityColumns = concat(
	[]string{
		classify.ColActivityID,
		classify.ColAssayID,
		classify.ColDocumentID,
		classify.ColTestItemID,
		classify.ColTargetID,
		classify.ColMeasurementType,
	},
	classify.ConditionFlags,
	classify.MetricColumns,
)

// PairColumns lists the columns a pairs table is expected to carry.
var PairColumns = concat(
	[]string{
		classify.ColActivityID1,
		classify.ColActivityID2,
		classify.ColTestItemID,
		classify.ColTargetID,
		classify.ColMeasurementType,
	},
	classify.MetricColumns,
)

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// ErrMissingColumns is matched by MissingColumnsError.
var ErrMissingColumns = errors.New("missing columns")

// MissingColumnsError names the table and the absent columns.
type MissingColumnsError struct {
	Table   string
	Columns []string
}

func (e MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: missing columns %v", e.Table, e.Columns)
}

// Is matches ErrMissingColumns.
func (e MissingColumnsError) Is(target error) bool { return target == ErrMissingColumns }

// Options controls the lenient parts of validation.
type Options struct {
	// Strict turns missing activities/pairs columns into MissingColumnsError.
	Strict bool
	// NAFill replaces empty or NaN metric cells when set; otherwise they are 0.
	NAFill *float64
	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func checkColumns(f *tabular.Frame, table string, required []string, strict bool, log *zap.Logger) error {
	missing := f.Missing(required)
	if len(missing) == 0 {
		return nil
	}
	if strict {
		return MissingColumnsError{Table: table, Columns: missing}
	}
	log.Warn("missing columns", zap.String("table", table), zap.Strings("columns", missing))
	return nil
}

// Status validates the vocabulary frame and builds the status table. Missing
// columns are always fatal.
func Status(f *tabular.Frame) (*status.Table, error) {
	if err := checkColumns(f, TableStatus, StatusColumns, true, nil); err != nil {
		return nil, err
	}
	defs := make([]status.Definition, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		order, err := parseInt(f.Value(i, ColOrder))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %s: %w", TableStatus, i+1, ColOrder, err)
		}
		score, err := parseInt(f.Value(i, ColScore))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %s: %w", TableStatus, i+1, ColScore, err)
		}
		defs = append(defs, status.Definition{
			Status:         f.Value(i, ColStatus),
			ConditionField: f.Value(i, ColConditionField),
			ConditionValue: f.Value(i, ColConditionValue),
			Order:          order,
			Score:          score,
		})
	}
	return status.NewTable(defs)
}

// Activities normalizes the frame header and decodes one Activity per row.
// Flags are the fixed condition flags; absent or empty flags are false.
func Activities(f *tabular.Frame, opts Options) ([]classify.Activity, error) {
	if err := f.Rename(classify.NormalizeColumns(f.Header)); err != nil {
		return nil, err
	}
	if err := checkColumns(f, TableActivities, ActivityColumns, opts.Strict, opts.logger()); err != nil {
		return nil, err
	}
	flags := FlagColumns()
	hasNoIssue := f.Has(classify.ColNoIssue)

	out := make([]classify.Activity, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		a := classify.Activity{
			ID:              f.Value(i, classify.ColActivityID),
			AssayID:         f.Value(i, classify.ColAssayID),
			DocumentID:      f.Value(i, classify.ColDocumentID),
			TestItemID:      f.Value(i, classify.ColTestItemID),
			TargetID:        f.Value(i, classify.ColTargetID),
			MeasurementType: f.Value(i, classify.ColMeasurementType),
			Flags:           make(map[string]bool, len(flags)),
		}
		for _, flag := range flags {
			set, err := ParseBool(f.Value(i, flag))
			if err != nil {
				return nil, fmt.Errorf("%s row %d: %s: %w", TableActivities, i+1, flag, err)
			}
			a.Flags[flag] = set
		}
		if hasNoIssue {
			if cell := f.Value(i, classify.ColNoIssue); cell != "" {
				v, err := ParseBool(cell)
				if err != nil {
					return nil, fmt.Errorf("%s row %d: %s: %w", TableActivities, i+1, classify.ColNoIssue, err)
				}
				a.NoIssue = &v
			}
		}
		a.Metrics = metrics(f, i, opts.NAFill)
		out = append(out, a)
	}
	return out, nil
}

// Pairs normalizes the frame header and decodes one Pair per row.
func Pairs(f *tabular.Frame, opts Options) ([]classify.Pair, error) {
	if err := f.Rename(classify.NormalizeColumns(f.Header)); err != nil {
		return nil, err
	}
	if err := checkColumns(f, TablePairs, PairColumns, opts.Strict, opts.logger()); err != nil {
		return nil, err
	}
	out := make([]classify.Pair, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		out = append(out, classify.Pair{
			ID1:             f.Value(i, classify.ColActivityID1),
			ID2:             f.Value(i, classify.ColActivityID2),
			TestItemID:      f.Value(i, classify.ColTestItemID),
			TargetID:        f.Value(i, classify.ColTargetID),
			MeasurementType: f.Value(i, classify.ColMeasurementType),
			Metrics:         metrics(f, i, opts.NAFill),
		})
	}
	return out, nil
}

// FlagColumns lists the flag columns Activities decodes.
func FlagColumns() []string {
	cols := make([]string, len(classify.ConditionFlags))
	copy(cols, classify.ConditionFlags)
	return cols
}

func metrics(f *tabular.Frame, i int, fill *float64) classify.Metrics {
	var m classify.Metrics
	for _, col := range classify.MetricColumns {
		m.Set(col, ParseMetric(f.Value(i, col), fill))
	}
	return m
}

// ParseMetric coerces a metric cell. Empty, NaN and unparseable cells become
// fill when given, 0 otherwise.
func ParseMetric(cell string, fill *float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil || math.IsNaN(v) {
		if fill != nil {
			return *fill
		}
		return 0
	}
	return v
}

// ParseBool accepts the usual spellings of a boolean cell. Empty and NA cells
// are false.
func ParseBool(cell string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "", "na", "nan", "null", "none":
		return false, nil
	case "true", "t", "1", "1.0", "yes", "y":
		return true, nil
	case "false", "f", "0", "0.0", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", cell)
}

func parseInt(cell string) (int, error) {
	if n, err := strconv.Atoi(cell); err == nil {
		return n, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || v != math.Trunc(v) {
		return 0, fmt.Errorf("invalid integer %q", cell)
	}
	return int(v), nil
}

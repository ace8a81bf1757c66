package export

import (
	"sort"
	"strconv"

	"assaycore/internal/classify"
	"assaycore/internal/tabular"
)

// Artifact names without extension.
const (
	NameInitializeStatus         = "InitializeStatus"
	NameInitializePairs          = "InitializePairs"
	NameActivityInitializeStatus = "ActivityInitializeStatus"
)

// SummaryName returns the artifact name of a summary level.
func SummaryName(level classify.Level) string { return string(level) }

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func metricCells(m classify.Metrics) []string {
	values := m.Values()
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = formatFloat(v)
	}
	return out
}

func row(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// InitializeStatusFrame renders initialized activities sorted by activity id.
// flags selects the flag columns in output order.
func InitializeStatusFrame(acts []classify.Activity, flags []string) *tabular.Frame {
	header := row(
		[]string{
			classify.ColActivityID, classify.ColAssayID, classify.ColDocumentID,
			classify.ColTestItemID, classify.ColTargetID, classify.ColMeasurementType,
		},
		flags,
		classify.MetricColumns,
		[]string{classify.ColNoIssue, classify.ColFilteredInit},
	)
	sorted := append([]classify.Activity(nil), acts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	f := tabular.New(header, nil)
	for _, a := range sorted {
		flagCells := make([]string, len(flags))
		for i, flag := range flags {
			flagCells[i] = strconv.FormatBool(a.Flags[flag])
		}
		noIssue := ""
		if a.NoIssue != nil {
			noIssue = strconv.FormatBool(*a.NoIssue)
		}
		f.Append(row(
			[]string{a.ID, a.AssayID, a.DocumentID, a.TestItemID, a.TargetID, a.MeasurementType},
			flagCells,
			metricCells(a.Metrics),
			[]string{noIssue, a.Init},
		))
	}
	return f
}

// InitializePairsFrame renders reconciled pairs sorted by (id1, id2).
func InitializePairsFrame(pairs []classify.Pair) *tabular.Frame {
	header := row(
		[]string{
			classify.ColActivityID1, classify.ColActivityID2,
			classify.ColTestItemID, classify.ColTargetID, classify.ColMeasurementType,
		},
		classify.MetricColumns,
		[]string{classify.ColFiltered1, classify.ColFiltered2, classify.ColFiltered},
	)
	sorted := append([]classify.Pair(nil), pairs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ID1 != sorted[j].ID1 {
			return sorted[i].ID1 < sorted[j].ID1
		}
		return sorted[i].ID2 < sorted[j].ID2
	})

	f := tabular.New(header, nil)
	for _, p := range sorted {
		f.Append(row(
			[]string{p.ID1, p.ID2, p.TestItemID, p.TargetID, p.MeasurementType},
			metricCells(p.Metrics),
			[]string{p.Filtered1, p.Filtered2, p.Filtered},
		))
	}
	return f
}

// UnifiedFrame renders the resolved per-endpoint records sorted by activity id.
func UnifiedFrame(records []classify.UnifiedRecord) *tabular.Frame {
	header := row(
		[]string{
			classify.ColActivityID, classify.ColAssayID, classify.ColDocumentID,
			classify.ColTestItemID, classify.ColTargetID, classify.ColMeasurementType,
		},
		classify.MetricColumns,
		[]string{classify.ColNoIssue, classify.ColFilteredInit, classify.ColFilteredNew, classify.ColFiltered},
	)
	sorted := append([]classify.UnifiedRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ActivityID < sorted[j].ActivityID })

	f := tabular.New(header, nil)
	for _, r := range sorted {
		f.Append(row(
			[]string{r.ActivityID, r.AssayID, r.DocumentID, r.TestItemID, r.TargetID, r.MeasurementType},
			metricCells(r.Metrics),
			[]string{strconv.FormatBool(r.NoIssue), r.Init, r.New, r.Filtered},
		))
	}
	return f
}

// SummaryFrame renders one level as [key, Filtered.new, metrics...]. Summaries
// are already sorted by key.
func SummaryFrame(level classify.Level, summaries []classify.Summary) *tabular.Frame {
	header := row([]string{level.KeyColumn(), classify.ColFilteredNew}, classify.MetricColumns)
	f := tabular.New(header, nil)
	for _, s := range summaries {
		f.Append(row([]string{s.Key, s.Status}, metricCells(s.Metrics)))
	}
	return f
}

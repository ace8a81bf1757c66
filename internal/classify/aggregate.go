package classify

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"assaycore/internal/status"
)

// Level names one of the six summary tables.
type Level string

const (
	LevelActivity Level = "activity"
	LevelAssay    Level = "assay"
	LevelDocument Level = "document"
	LevelSystem   Level = "system"
	LevelTestItem Level = "testitem"
	LevelTarget   Level = "target"
)

// Levels lists the summary levels in output order.
var Levels = []Level{LevelActivity, LevelAssay, LevelDocument, LevelSystem, LevelTestItem, LevelTarget}

// KeyColumn returns the grouping column name of the level.
func (l Level) KeyColumn() string {
	switch l {
	case LevelActivity:
		return ColActivityID
	case LevelAssay:
		return ColAssayID
	case LevelDocument:
		return ColDocumentID
	case LevelSystem:
		return ColSystemID
	case LevelTestItem:
		return ColTestItemID
	case LevelTarget:
		return ColTargetID
	default:
		return string(l)
	}
}

// MissingKey stands in for an empty test-item or target id when a system
// key is split, so those rows still count at the split levels.
const MissingKey = "<NA>"

// SystemKeySeparator joins the parts of a system key.
const SystemKeySeparator = "_"

// SystemKey builds the composite test-item/target/measurement-type key.
func SystemKey(testItem, target, measurement string) string {
	return testItem + SystemKeySeparator + target + SystemKeySeparator + measurement
}

// SplitSystemKey reverses SystemKey. Anything after the second separator
// belongs to the measurement type; missing parts come back empty.
func SplitSystemKey(key string) (testItem, target, measurement string) {
	parts := strings.SplitN(key, SystemKeySeparator, 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return parts[0], parts[1], parts[2]
}

// Row is one projected input row of an aggregation.
type Row struct {
	Key     string
	Status  string
	Metrics Metrics
}

// Summary is one aggregated row: worst status and summed metrics per key.
type Summary struct {
	Level   Level
	Key     string
	Status  string
	Metrics Metrics
}

// Aggregate groups rows by key, sums their metrics and reduces the group's
// statuses to the worst (largest order) one. Rows with an empty key are
// skipped and missing statuses are ignored. When the table does not define
// ErrorStatus it takes no part in the comparison, and a group that only
// carries it keeps it. Output is sorted by key.
func Aggregate(tbl *status.Table, level Level, rows []Row) ([]Summary, error) {
	errorKnown := tbl.Known(ErrorStatus)
	type group struct {
		metrics  Metrics
		statuses []string
		flagged  bool
	}
	groups := make(map[string]*group)
	for _, r := range rows {
		if r.Key == "" {
			continue
		}
		g, ok := groups[r.Key]
		if !ok {
			g = &group{}
			groups[r.Key] = g
		}
		g.metrics = g.metrics.Add(r.Metrics)
		switch {
		case r.Status == "":
		case r.Status == ErrorStatus && !errorKnown:
			g.flagged = true
		default:
			g.statuses = append(g.statuses, r.Status)
		}
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Summary, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		worst, err := tbl.Max(g.statuses)
		if err != nil {
			if !g.flagged || !errors.Is(err, status.ErrNoMatch) {
				return nil, fmt.Errorf("%s %s: %w", level, k, err)
			}
			// Error-only groups report Error instead of failing. See the
			// aggregation decisions in DESIGN.md.
			worst = ErrorStatus
		}
		out = append(out, Summary{Level: level, Key: k, Status: worst, Metrics: g.metrics})
	}
	return out, nil
}

// ActivityRows projects resolved records onto the activity level.
func ActivityRows(records []UnifiedRecord) []Row {
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = Row{Key: r.ActivityID, Status: r.Filtered, Metrics: r.Metrics}
	}
	return rows
}

// InitRows projects initialized activities onto a level keyed by key(a),
// using Filtered.init as the row status.
func InitRows(acts []Activity, key func(Activity) string) []Row {
	rows := make([]Row, len(acts))
	for i, a := range acts {
		rows[i] = Row{Key: key(a), Status: a.Init, Metrics: a.Metrics}
	}
	return rows
}

// AssayKey, DocumentKey and ActivitySystemKey select the grouping key of an activity.
func AssayKey(a Activity) string    { return a.AssayID }
func DocumentKey(a Activity) string { return a.DocumentID }
func ActivitySystemKey(a Activity) string {
	return SystemKey(a.TestItemID, a.TargetID, a.MeasurementType)
}

// SplitRows re-keys system summaries by one part of the split system key,
// carrying the system's aggregated status as the row status. An empty part
// becomes MissingKey.
func SplitRows(system []Summary, part Level) []Row {
	rows := make([]Row, len(system))
	for i, s := range system {
		testItem, target, _ := SplitSystemKey(s.Key)
		key := testItem
		if part == LevelTarget {
			key = target
		}
		if key == "" {
			key = MissingKey
		}
		rows[i] = Row{Key: key, Status: s.Status, Metrics: s.Metrics}
	}
	return rows
}

package classify

import "assaycore/internal/status"

// endpointKey identifies an exact duplicate endpoint row.
type endpointKey struct {
	id, testItem, target, measurement, filtered string
	metrics                                     Metrics
}

// Endpoints expands every pair into one record per endpoint: all first
// endpoints, then all second endpoints. Exact duplicates and rows without an
// activity id are dropped; New carries the pairwise status.
func Endpoints(pairs []Pair) []UnifiedRecord {
	seen := make(map[endpointKey]struct{}, 2*len(pairs))
	out := make([]UnifiedRecord, 0, 2*len(pairs))
	emit := func(id string, p Pair) {
		if id == "" {
			return
		}
		key := endpointKey{id, p.TestItemID, p.TargetID, p.MeasurementType, p.Filtered, p.Metrics}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, UnifiedRecord{
			ActivityID:      id,
			TestItemID:      p.TestItemID,
			TargetID:        p.TargetID,
			MeasurementType: p.MeasurementType,
			Metrics:         p.Metrics,
			New:             p.Filtered,
		})
	}
	for _, p := range pairs {
		emit(p.ID1, p)
	}
	for _, p := range pairs {
		emit(p.ID2, p)
	}
	return out
}

// Resolve decides the final status of one activity from its initial status
// and the pairwise status:
//
//	init == new                -> new
//	order(init) > order(new)   -> Next(new)
//	order(init) == order(new)  -> new
//	order(init) < order(new)   -> ErrorStatus
func Resolve(tbl *status.Table, init, pairwise string) string {
	if init == pairwise {
		return pairwise
	}
	switch tbl.Ascending(init, pairwise) {
	case 1:
		return tbl.Next(pairwise)
	case 0:
		return pairwise
	default:
		return ErrorStatus
	}
}

// ResolveActivities builds the unified per-activity view from reconciled pairs
// and initialized activities, then resolves each record's final status.
// Metrics come from the pair side only.
func ResolveActivities(tbl *status.Table, pairs []Pair, acts []Activity) []UnifiedRecord {
	idx := initIndex(acts)
	records := Endpoints(pairs)
	for i := range records {
		r := &records[i]
		if a, ok := idx[r.ActivityID]; ok {
			r.Matched = true
			r.AssayID = a.AssayID
			r.DocumentID = a.DocumentID
			r.Init = a.Init
			if a.NoIssue != nil {
				r.NoIssue = *a.NoIssue
			}
		}
		r.Filtered = Resolve(tbl, r.Init, r.New)
	}
	return records
}

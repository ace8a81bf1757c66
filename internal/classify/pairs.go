package classify

import (
	"fmt"

	"assaycore/internal/status"
)

// initIndex maps activity ids to their initial status. The first row wins
// when an id repeats.
func initIndex(acts []Activity) map[string]Activity {
	idx := make(map[string]Activity, len(acts))
	for _, a := range acts {
		if _, seen := idx[a.ID]; seen {
			continue
		}
		idx[a.ID] = a
	}
	return idx
}

// ReconcilePairs attaches each endpoint's initial status and the combined
// pairwise status. Endpoints without an activity row get a missing ("") status.
func ReconcilePairs(tbl *status.Table, pairs []Pair, acts []Activity) ([]Pair, error) {
	idx := initIndex(acts)
	out := make([]Pair, len(pairs))
	for i, p := range pairs {
		p.Filtered1 = idx[p.ID1].Init
		p.Filtered2 = idx[p.ID2].Init
		combined, err := tbl.Pair(p.Filtered1, p.Filtered2)
		if err != nil {
			return nil, fmt.Errorf("pair %d (%s, %s): %w", i, p.ID1, p.ID2, err)
		}
		p.Filtered = combined
		out[i] = p
	}
	return out, nil
}

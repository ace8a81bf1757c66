package classify

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"assaycore/internal/status"
)

// Options configures a classification run.
type Options struct {
	Fallback Fallback
	// Sequential disables the concurrent evaluation of independent levels.
	Sequential bool
}

// Result holds every table produced by Classify.
type Result struct {
	Activities []Activity
	Pairs      []Pair
	Unified    []UnifiedRecord
	Summaries  map[Level][]Summary
}

// Classify runs initialization, pair reconciliation, resolution and the six
// aggregations. Activity, assay, document and system levels are independent
// of each other; test-item and target wait for system.
func Classify(tbl *status.Table, acts []Activity, pairs []Pair, opts Options) (*Result, error) {
	if tbl == nil {
		return nil, fmt.Errorf("status table required")
	}
	fallback := opts.Fallback
	if fallback == "" {
		fallback = FallbackGlobalMin
	}
	if !fallback.Valid() {
		return nil, fmt.Errorf("unknown fallback policy %q", fallback)
	}

	initialized, err := InitializeActivities(tbl, acts, fallback)
	if err != nil {
		return nil, fmt.Errorf("initialize status: %w", err)
	}
	reconciled, err := ReconcilePairs(tbl, pairs, initialized)
	if err != nil {
		return nil, fmt.Errorf("initialize pairs: %w", err)
	}
	unified := ResolveActivities(tbl, reconciled, initialized)

	var activity, assay, document, system, testItem, target []Summary
	tasks := []func() error{
		func() (err error) {
			activity, err = Aggregate(tbl, LevelActivity, ActivityRows(unified))
			return err
		},
		func() (err error) {
			assay, err = Aggregate(tbl, LevelAssay, InitRows(initialized, AssayKey))
			return err
		},
		func() (err error) {
			document, err = Aggregate(tbl, LevelDocument, InitRows(initialized, DocumentKey))
			return err
		},
		func() error {
			var err error
			if system, err = Aggregate(tbl, LevelSystem, InitRows(initialized, ActivitySystemKey)); err != nil {
				return err
			}
			if testItem, err = Aggregate(tbl, LevelTestItem, SplitRows(system, LevelTestItem)); err != nil {
				return err
			}
			target, err = Aggregate(tbl, LevelTarget, SplitRows(system, LevelTarget))
			return err
		},
	}
	if err := runTasks(tasks, opts.Sequential); err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	return &Result{
		Activities: initialized,
		Pairs:      reconciled,
		Unified:    unified,
		Summaries: map[Level][]Summary{
			LevelActivity: activity,
			LevelAssay:    assay,
			LevelDocument: document,
			LevelSystem:   system,
			LevelTestItem: testItem,
			LevelTarget:   target,
		},
	}, nil
}

func runTasks(tasks []func() error, sequential bool) error {
	if sequential {
		for _, task := range tasks {
			if err := task(); err != nil {
				return err
			}
		}
		return nil
	}
	var g errgroup.Group
	for _, task := range tasks {
		g.Go(task)
	}
	return g.Wait()
}

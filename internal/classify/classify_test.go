package classify

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassifyScenario(t *testing.T) {
	tbl := fixtureTable(t)
	res, err := Classify(tbl, fixtureActivities(), fixturePairs(), Options{})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	all := Metrics{1, 3, 2, 4}
	want := map[Level][]Summary{
		LevelActivity: {
			{Level: LevelActivity, Key: "a1", Status: "S1", Metrics: all},
			{Level: LevelActivity, Key: "a2", Status: "S2", Metrics: all},
		},
		LevelAssay:    {{Level: LevelAssay, Key: "ass1", Status: NoIssueStatus, Metrics: all}},
		LevelDocument: {{Level: LevelDocument, Key: "doc1", Status: NoIssueStatus, Metrics: all}},
		LevelSystem:   {{Level: LevelSystem, Key: "t1_tar1_type1", Status: NoIssueStatus, Metrics: all}},
		LevelTestItem: {{Level: LevelTestItem, Key: "t1", Status: NoIssueStatus, Metrics: all}},
		LevelTarget:   {{Level: LevelTarget, Key: "tar1", Status: NoIssueStatus, Metrics: all}},
	}
	if diff := cmp.Diff(want, res.Summaries); diff != "" {
		t.Fatalf("summaries mismatch (-want +got):\n%s", diff)
	}
	if res.Pairs[0].Filtered != "S1" {
		t.Fatalf("pair status=%q want S1", res.Pairs[0].Filtered)
	}
	if len(res.Unified) != 2 || len(res.Activities) != 2 {
		t.Fatalf("unified=%d activities=%d", len(res.Unified), len(res.Activities))
	}
}

func TestClassifySequentialMatchesConcurrent(t *testing.T) {
	tbl := fixtureTable(t)
	acts := append(fixtureActivities(), Activity{
		ID: "a3", AssayID: "ass2", DocumentID: "doc1",
		TestItemID: "t2", TargetID: "tar1", MeasurementType: "Ki",
		Flags:   map[string]bool{"review": true, "exact_data_citation": true},
		Metrics: Metrics{IndependentKi: 7},
	})
	pairs := append(fixturePairs(), Pair{ID1: "a3", ID2: "a1", TestItemID: "t2", TargetID: "tar1", MeasurementType: "Ki"})

	concurrent, err := Classify(tbl, acts, pairs, Options{})
	if err != nil {
		t.Fatalf("concurrent: %v", err)
	}
	sequential, err := Classify(tbl, acts, pairs, Options{Sequential: true})
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	if diff := cmp.Diff(sequential, concurrent); diff != "" {
		t.Fatalf("results differ (-sequential +concurrent):\n%s", diff)
	}
}

func TestClassifyErrors(t *testing.T) {
	tbl := fixtureTable(t)
	if _, err := Classify(nil, nil, nil, Options{}); err == nil {
		t.Fatalf("expected error for missing table")
	}
	if _, err := Classify(tbl, nil, nil, Options{Fallback: "LOOSE"}); err == nil {
		t.Fatalf("expected error for unknown fallback")
	}
	acts := []Activity{{ID: "a9", Flags: map[string]bool{"shuffled_assay": true}}}
	_, err := Classify(tbl, acts, nil, Options{Fallback: FallbackError})
	if !errors.Is(err, ErrNoActiveStatus) {
		t.Fatalf("expected ErrNoActiveStatus, got %v", err)
	}
}

func TestClassifyEmptyInputs(t *testing.T) {
	res, err := Classify(fixtureTable(t), nil, nil, Options{})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	for _, l := range Levels {
		if len(res.Summaries[l]) != 0 {
			t.Fatalf("%s: expected no summaries, got %v", l, res.Summaries[l])
		}
	}
}

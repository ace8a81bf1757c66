package ingest

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"assaycore/internal/classify"
	"assaycore/internal/status"
	"assaycore/internal/tabular"
)

const statusCSV = `status,condition_field,condition_value,order,score
no_issue,no_issue,null,4,0
S1,high_citation_rate,true,1,10
S2,review,true,2,5
S3,exact_data_citation,true,3,0
`

func frame(t *testing.T, body string) *tabular.Frame {
	t.Helper()
	f, err := tabular.Read(strings.NewReader(body), ',')
	if err != nil {
		t.Fatalf("tabular.Read: %v", err)
	}
	return f
}

func loadTable(t *testing.T) *status.Table {
	t.Helper()
	tbl, err := Status(frame(t, statusCSV))
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	return tbl
}

func TestStatusSortsAndValidates(t *testing.T) {
	tbl := loadTable(t)
	if diff := cmp.Diff([]string{"S1", "S2", "S3", "no_issue"}, tbl.Statuses()); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
	if tbl.Score("S1") != 10 {
		t.Fatalf("score lost: %d", tbl.Score("S1"))
	}

	_, err := Status(frame(t, "status,order\nS1,1\n"))
	var mc MissingColumnsError
	if !errors.As(err, &mc) || mc.Table != TableStatus {
		t.Fatalf("expected MissingColumnsError, got %v", err)
	}
	if diff := cmp.Diff([]string{ColConditionField, ColConditionValue, ColScore}, mc.Columns); diff != "" {
		t.Fatalf("missing (-want +got):\n%s", diff)
	}

	if _, err := Status(frame(t, "status,condition_field,condition_value,order,score\nS1,x,true,first,0\n")); err == nil {
		t.Fatalf("expected order parse error")
	}
	if _, err := Status(frame(t, "status,condition_field,condition_value,order,score\nS1,x,true,1,0\nS1,y,true,2,0\n")); err == nil {
		t.Fatalf("expected duplicate status error")
	}
}

func TestActivitiesLegacyColumnsAndDefaults(t *testing.T) {
	body := "activity_id,assay_id,document_id,molecule_chembl_id,target_id,standard_type,high_citation_rate,review,independent_IC50,independent_Ki\n" +
		"a1,ass1,doc1,t1,tar1,IC50,true,,1.5,\n" +
		"a2,ass1,doc1,t1,tar1,IC50,False,0,NaN,2\n"
	acts, err := Activities(frame(t, body), Options{})
	if err != nil {
		t.Fatalf("Activities: %v", err)
	}
	if len(acts) != 2 {
		t.Fatalf("want 2 activities, got %d", len(acts))
	}
	a1 := acts[0]
	if a1.ID != "a1" || a1.TestItemID != "t1" || a1.MeasurementType != "IC50" {
		t.Fatalf("ids not mapped: %+v", a1)
	}
	if !a1.Flags["high_citation_rate"] || a1.Flags["review"] || a1.Flags["unknown_chirality"] {
		t.Fatalf("flags: %v", a1.Flags)
	}
	if len(a1.Flags) != len(classify.ConditionFlags) {
		t.Fatalf("every condition flag must be present, got %d", len(a1.Flags))
	}
	if a1.Metrics != (classify.Metrics{IndependentIC50: 1.5}) {
		t.Fatalf("a1 metrics: %+v", a1.Metrics)
	}
	if acts[1].Metrics != (classify.Metrics{IndependentKi: 2}) || acts[1].NoIssue != nil {
		t.Fatalf("a2: %+v", acts[1])
	}
}

func TestActivitiesStrictAndLenient(t *testing.T) {
	body := "activity_chembl_id,assay_chembl_id\na1,ass1\n"

	_, err := Activities(frame(t, body), Options{Strict: true})
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}

	core, logs := observer.New(zapcore.WarnLevel)
	acts, err := Activities(frame(t, body), Options{Logger: zap.New(core)})
	if err != nil {
		t.Fatalf("lenient Activities: %v", err)
	}
	if len(acts) != 1 || acts[0].AssayID != "ass1" {
		t.Fatalf("unexpected activities: %+v", acts)
	}
	entries := logs.FilterMessage("missing columns").All()
	if len(entries) != 1 {
		t.Fatalf("expected one warning, got %d", len(entries))
	}
	if table := entries[0].ContextMap()["table"]; table != TableActivities {
		t.Fatalf("warning table field=%v", table)
	}
}

func TestActivitiesExplicitNoIssueIgnoresOtherColumns(t *testing.T) {
	body := "activity_chembl_id,custom_flag,review,no_issue\na1,yes,yes,\na2,no,no,true\n"
	acts, err := Activities(frame(t, body), Options{})
	if err != nil {
		t.Fatalf("Activities: %v", err)
	}
	if _, ok := acts[0].Flags["custom_flag"]; ok || !acts[0].Flags["review"] || acts[0].NoIssue != nil {
		t.Fatalf("a1: %+v", acts[0])
	}
	if acts[1].NoIssue == nil || !*acts[1].NoIssue {
		t.Fatalf("a2 explicit no_issue lost: %+v", acts[1])
	}

	if _, err := Activities(frame(t, "activity_chembl_id,review\na1,maybe\n"), Options{}); err == nil {
		t.Fatalf("expected boolean parse error")
	}
}

func TestPairs(t *testing.T) {
	fill := -1.0
	body := "activity_id1,activity_id2,testitem_id,target_id,mesurement_type,independent_IC50,non_independent_IC50,independent_Ki,non_independent_Ki\n" +
		"a1,a2,t1,tar1,Ki,1,,2,x\n"
	pairs, err := Pairs(frame(t, body), Options{Strict: true, NAFill: &fill})
	if err != nil {
		t.Fatalf("Pairs: %v", err)
	}
	want := []classify.Pair{{
		ID1: "a1", ID2: "a2", TestItemID: "t1", TargetID: "tar1", MeasurementType: "Ki",
		Metrics: classify.Metrics{IndependentIC50: 1, NonIndependentIC50: -1, IndependentKi: 2, NonIndependentKi: -1},
	}}
	if diff := cmp.Diff(want, pairs); diff != "" {
		t.Fatalf("pairs (-want +got):\n%s", diff)
	}

	_, err = Pairs(frame(t, "activity_chembl_id1\na1\n"), Options{Strict: true})
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
}

func TestParseBool(t *testing.T) {
	for cell, want := range map[string]bool{"TRUE": true, " 1 ": true, "y": true, "": false, "NA": false, "0.0": false} {
		got, err := ParseBool(cell)
		if err != nil || got != want {
			t.Fatalf("ParseBool(%q)=%v,%v want %v", cell, got, err, want)
		}
	}
}

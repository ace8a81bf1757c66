package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"assaycore/internal/blob"
	"assaycore/internal/classify"
	"assaycore/internal/config"
	"assaycore/internal/export"
	"assaycore/internal/ingest"
	"assaycore/internal/metrics"
	"assaycore/internal/persistence"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const statusCSV = `status,condition_field,condition_value,order,score
no_issue,no_issue,null,4,0
S1,high_citation_rate,true,1,10
S2,review,true,2,5
S3,exact_data_citation,true,3,0
`

// csvRow renders values in columns order; absent cells stay empty.
func csvRow(columns []string, values map[string]string) string {
	cells := make([]string, len(columns))
	for i, col := range columns {
		cells[i] = values[col]
	}
	return strings.Join(cells, ",")
}

func writeInputs(t *testing.T, activityColumns []string) string {
	t.Helper()
	dir := t.TempDir()
	ids := map[string]string{
		classify.ColAssayID:         "ass1",
		classify.ColDocumentID:      "doc1",
		classify.ColTestItemID:      "t1",
		classify.ColTargetID:        "tar1",
		classify.ColMeasurementType: "type1",
	}
	with := func(extra map[string]string) map[string]string {
		out := map[string]string{}
		for k, v := range ids {
			out[k] = v
		}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}
	activities := strings.Join([]string{
		strings.Join(activityColumns, ","),
		csvRow(activityColumns, with(map[string]string{
			classify.ColActivityID: "a1", "high_citation_rate": "True",
			classify.ColIndependentIC50: "1", classify.ColIndependentKi: "2",
		})),
		csvRow(activityColumns, with(map[string]string{
			classify.ColActivityID:         "a2",
			classify.ColNonIndependentIC50: "3", classify.ColNonIndependentKi: "4",
		})),
	}, "\n") + "\n"
	pairs := strings.Join([]string{
		strings.Join(ingest.PairColumns, ","),
		csvRow(ingest.PairColumns, with(map[string]string{
			classify.ColActivityID1: "a1", classify.ColActivityID2: "a2",
			classify.ColIndependentIC50: "1", classify.ColNonIndependentIC50: "3",
			classify.ColIndependentKi: "2", classify.ColNonIndependentKi: "4",
		})),
	}, "\n") + "\n"

	for name, body := range map[string]string{
		StatusFile:     statusCSV,
		ActivitiesFile: activities,
		PairsFile:      pairs,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func testConfig(inputDir string) *config.Config {
	cfg := config.Default()
	cfg.IO.InputDir = inputDir
	return cfg
}

func readBlob(t *testing.T, store blob.Store, key string) string {
	t.Helper()
	_, rc, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get %s: %v", key, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %s: %v", key, err)
	}
	return string(data)
}

func fixedClock() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

func TestRunWritesEveryTable(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	sink := &persistence.Discard{}
	runner := New(testConfig(writeInputs(t, ingest.ActivityColumns)),
		WithStore(store), WithSink(sink), WithClock(fixedClock), WithRunID("run-1"))

	report, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.RunID != "run-1" {
		t.Fatalf("unexpected run id %q", report.RunID)
	}

	var names []string
	for _, a := range report.Artifacts {
		names = append(names, a.Name)
	}
	wantNames := []string{
		export.NameInitializeStatus, export.NameInitializePairs, export.NameActivityInitializeStatus,
		"activity", "assay", "document", "system", "testitem", "target",
	}
	if diff := cmp.Diff(wantNames, names); diff != "" {
		t.Fatalf("artifacts (-want +got):\n%s", diff)
	}

	wantActivity := "activity_chembl_id,Filtered.new,independent_IC50,non_independent_IC50,independent_Ki,non_independent_Ki\n" +
		"a1,S1,1,3,2,4\n" +
		"a2,S2,1,3,2,4\n"
	if got := readBlob(t, store, "activity.csv"); got != wantActivity {
		t.Fatalf("activity.csv:\n%s\nwant:\n%s", got, wantActivity)
	}
	if got := readBlob(t, store, "system.csv"); !strings.Contains(got, "t1_tar1_type1,no_issue,1,3,2,4") {
		t.Fatalf("unexpected system.csv:\n%s", got)
	}

	meta := readBlob(t, store, "activity.meta.yaml")
	for _, want := range []string{"run_id: run-1", "2026-03-01T12:00:00Z", "activities.csv", "pairs.csv", "rows: 2", "cols: 6"} {
		if !strings.Contains(meta, want) {
			t.Fatalf("activity meta missing %q:\n%s", want, meta)
		}
	}
	if assayMeta := readBlob(t, store, "assay.meta.yaml"); strings.Contains(assayMeta, "pairs.csv") {
		t.Fatalf("assay meta should only list activities:\n%s", assayMeta)
	}

	if report.RowCounts[ingest.TableActivities] != 2 || report.RowCounts[ingest.TablePairs] != 1 || report.RowCounts[ingest.TableStatus] != 4 {
		t.Fatalf("unexpected input counts %v", report.RowCounts)
	}
	if diff := cmp.Diff(map[string]int{"no_issue": 1}, report.Statuses[classify.LevelAssay]); diff != "" {
		t.Fatalf("assay statuses (-want +got):\n%s", diff)
	}

	stored, err := sink.Summaries(ctx, "run-1")
	if err != nil {
		t.Fatalf("Summaries: %v", err)
	}
	if len(stored) != 7 {
		t.Fatalf("expected 7 persisted summaries, got %d", len(stored))
	}
}

func TestRunSkipsIntermediates(t *testing.T) {
	cfg := testConfig(writeInputs(t, ingest.ActivityColumns))
	cfg.IO.WriteIntermediate = false
	store := blob.NewMemory()
	report, err := New(cfg, WithStore(store), WithSink(&persistence.Discard{})).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Artifacts) != len(classify.Levels) {
		t.Fatalf("expected only summary tables, got %d", len(report.Artifacts))
	}
	if _, err := store.Head(context.Background(), "InitializeStatus.csv"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected intermediate to be absent, got %v", err)
	}
}

func TestRunS3Store(t *testing.T) {
	cfg := testConfig(writeInputs(t, ingest.ActivityColumns))
	cfg.Blob.Prefix = "runs/2026"
	store := blob.NewMockS3ForTests()
	report, err := New(cfg, WithStore(store), WithSink(&persistence.Discard{})).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := report.Artifacts[len(report.Artifacts)-1].Key; got != "runs/2026/target.csv" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := readBlob(t, store, "runs/2026/target.csv"); !strings.HasPrefix(got, "target_chembl_id,Filtered.new") {
		t.Fatalf("unexpected target.csv:\n%s", got)
	}
}

func TestRunFilesystemSQLiteAndMetrics(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(writeInputs(t, ingest.ActivityColumns))
	out := t.TempDir()
	cfg.IO.OutputDir = out
	cfg.Blob.Prefix = "batch"
	cfg.Persistence = persistence.Config{Driver: persistence.DriverSQLite, DSN: filepath.Join(out, "runs.db")}
	cfg.Metrics.Textfile = filepath.Join(out, "metrics", "assaycore.prom")

	rec := metrics.NewRecorder()
	report, err := New(cfg, WithMetrics(rec), WithRunID("run-fs")).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "batch", "target.csv")); err != nil {
		t.Fatalf("target.csv missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "batch", "target.meta.yaml")); err != nil {
		t.Fatalf("target sidecar missing: %v", err)
	}
	prom, err := os.ReadFile(cfg.Metrics.Textfile)
	if err != nil {
		t.Fatalf("metrics textfile: %v", err)
	}
	for _, want := range []string{`assaycore_table_rows{table="activities"} 2`, `assaycore_stage_results_total{result="success",stage="export"} 1`} {
		if !strings.Contains(string(prom), want) {
			t.Fatalf("textfile missing %q:\n%s", want, prom)
		}
	}

	sink, err := persistence.Open(ctx, cfg.Persistence)
	if err != nil {
		t.Fatalf("reopen sink: %v", err)
	}
	defer func() { _ = sink.Close() }()
	stored, err := sink.Summaries(ctx, report.RunID)
	if err != nil {
		t.Fatalf("Summaries: %v", err)
	}
	if len(stored) != 7 || stored[0].Level != "activity" || stored[0].Key != "a1" {
		t.Fatalf("unexpected stored summaries %v", stored)
	}
}

func TestRunMissingColumns(t *testing.T) {
	var partial []string
	for _, col := range ingest.ActivityColumns {
		if col != "review" {
			partial = append(partial, col)
		}
	}
	dir := writeInputs(t, partial)

	_, err := New(testConfig(dir), WithStore(blob.NewMemory()), WithSink(&persistence.Discard{})).Run(context.Background())
	if !errors.Is(err, ingest.ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}

	cfg := testConfig(dir)
	cfg.Runtime.FailOnMissingColumns = false
	core, logs := observer.New(zapcore.WarnLevel)
	if _, err := New(cfg, WithStore(blob.NewMemory()), WithSink(&persistence.Discard{}), WithLogger(zap.New(core))).Run(context.Background()); err != nil {
		t.Fatalf("lenient Run: %v", err)
	}
	if logs.FilterMessage("missing columns").Len() != 1 {
		t.Fatalf("expected one missing columns warning, got %v", logs.All())
	}
}

func TestRunErrors(t *testing.T) {
	cfg := testConfig(t.TempDir())
	_, err := New(cfg, WithStore(blob.NewMemory()), WithSink(&persistence.Discard{})).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), StageLoad) {
		t.Fatalf("expected load failure, got %v", err)
	}

	bad := testConfig(writeInputs(t, ingest.ActivityColumns))
	bad.Log.Level = "loud"
	if _, err := New(bad).Run(context.Background()); err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Fatalf("expected config error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(testConfig(writeInputs(t, ingest.ActivityColumns)), WithStore(blob.NewMemory()), WithSink(&persistence.Discard{})).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunLogsStages(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	_, err := New(testConfig(writeInputs(t, ingest.ActivityColumns)),
		WithStore(blob.NewMemory()), WithSink(&persistence.Discard{}), WithLogger(zap.New(core))).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var stages []string
	for _, entry := range logs.FilterMessage("stage finished").All() {
		stages = append(stages, entry.ContextMap()["stage"].(string))
	}
	if diff := cmp.Diff([]string{StageLoad, StageClassify, StageExport, StagePersist}, stages); diff != "" {
		t.Fatalf("stages (-want +got):\n%s", diff)
	}
}

func TestPlan(t *testing.T) {
	want := "InitializeStatus -> InitializePairs -> Activity -> Assay -> Document -> System -> TestItem -> Target"
	if got := Plan(); got != want {
		t.Fatalf("Plan() = %q", got)
	}
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"assaycore/internal/ingest"
	"assaycore/internal/pipeline"
)

func writeInputs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	activityRow := func(values ...string) string {
		cells := make([]string, len(ingest.ActivityColumns))
		copy(cells, values)
		return strings.Join(cells, ",")
	}
	files := map[string]string{
		pipeline.StatusFile: "status,condition_field,condition_value,order,score\n" +
			"S1,high_citation_rate,true,1,10\n" +
			"no_issue,no_issue,null,2,0\n",
		pipeline.ActivitiesFile: strings.Join(ingest.ActivityColumns, ",") + "\n" +
			activityRow("a1", "ass1", "doc1", "t1", "tar1", "IC50", "true") + "\n" +
			activityRow("a2", "ass1", "doc1", "t1", "tar1", "IC50") + "\n",
		pipeline.PairsFile: strings.Join(ingest.PairColumns, ",") + "\n" +
			"a1,a2,t1,tar1,IC50,1,0,0,0\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestCLIRunsPipeline(t *testing.T) {
	in := writeInputs(t)
	out := filepath.Join(t.TempDir(), "out")
	var stdout, stderr bytes.Buffer
	code := cli([]string{
		"--config", filepath.Join(t.TempDir(), "none.yaml"),
		"--input", in,
		"--output", out,
		"--log-level", "error",
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr=%s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "wrote 9 tables") {
		t.Fatalf("unexpected stdout %q", stdout.String())
	}
	for _, name := range []string{"InitializeStatus.csv", "activity.csv", "target.meta.yaml"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Fatalf("%s missing: %v", name, err)
		}
	}
}

func TestCLIPrintPlan(t *testing.T) {
	for _, args := range [][]string{{"--print-plan"}, {"plan"}} {
		var stdout, stderr bytes.Buffer
		if code := cli(args, &stdout, &stderr); code != 0 {
			t.Fatalf("%v: exit code %d, stderr=%s", args, code, stderr.String())
		}
		if got := strings.TrimSpace(stdout.String()); got != pipeline.Plan() {
			t.Fatalf("%v: unexpected plan %q", args, got)
		}
	}
}

func TestCLIUsageErrors(t *testing.T) {
	for _, args := range [][]string{{"--no-such-flag"}, {"extra-arg"}} {
		var stdout, stderr bytes.Buffer
		if code := cli(args, &stdout, &stderr); code != 2 {
			t.Fatalf("%v: expected exit code 2, got %d", args, code)
		}
		if !strings.Contains(stderr.String(), "Usage:") {
			t.Fatalf("%v: expected usage in stderr, got %q", args, stderr.String())
		}
	}
}

func TestCLIFailures(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "none.yaml")
	cases := map[string][]string{
		"missing inputs": {"--config", cfgPath, "--input", t.TempDir(), "--output", t.TempDir()},
		"bad level":      {"--config", cfgPath, "--log-level", "loud"},
		"bad separator":  {"--config", cfgPath, "--sep", "ab"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := cli(args, &stdout, &stderr); code != 1 {
				t.Fatalf("expected exit code 1, got %d", code)
			}
			if !strings.Contains(stderr.String(), "classification failed: ") {
				t.Fatalf("unexpected stderr %q", stderr.String())
			}
		})
	}
}

func TestMainUsesExitFunc(t *testing.T) {
	var codes []int
	old := exitFunc
	exitFunc = func(code int) { codes = append(codes, code) }
	defer func() { exitFunc = old }()

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"classify", "--print-plan"}
	main()
	os.Args = []string{"classify", "--bogus"}
	main()
	if len(codes) != 2 || codes[0] != 0 || codes[1] != 2 {
		t.Fatalf("unexpected exit codes %v", codes)
	}
}

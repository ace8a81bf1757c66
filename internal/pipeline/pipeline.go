// Package pipeline runs a batch classification: load the three input
// tables, classify, export every table with its sidecar, persist the run and
// record metrics.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"assaycore/internal/blob"
	"assaycore/internal/classify"
	"assaycore/internal/config"
	"assaycore/internal/export"
	"assaycore/internal/ingest"
	"assaycore/internal/metrics"
	"assaycore/internal/persistence"
	"assaycore/internal/status"
	"assaycore/internal/tabular"
)

// Input file names inside io.input_dir.
const (
	StatusFile     = "status.csv"
	ActivitiesFile = "activities.csv"
	PairsFile      = "pairs.csv"
)

// Stage names used in logs and metrics.
const (
	StageLoad     = "load"
	StageClassify = "classify"
	StageExport   = "export"
	StagePersist  = "persist"
)

// Report summarises a finished run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	// RowCounts maps input tables and output artifact names to row counts.
	RowCounts map[string]int
	Artifacts []export.Artifact
	// Statuses counts entities per final status for every level.
	Statuses map[classify.Level]map[string]int
}

// Option customises a Runner.
type Option func(*Runner)

// WithStore replaces the blob store opened from configuration.
func WithStore(store blob.Store) Option { return func(r *Runner) { r.store = store } }

// WithSink replaces the persistence sink opened from configuration.
func WithSink(sink persistence.Sink) Option { return func(r *Runner) { r.sink = sink } }

// WithMetrics sets the recorder.
func WithMetrics(rec *metrics.Recorder) Option { return func(r *Runner) { r.metrics = rec } }

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option { return func(r *Runner) { r.logger = logger } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

// WithRunID fixes the run identifier.
func WithRunID(id string) Option { return func(r *Runner) { r.runID = id } }

// Runner executes one configured run.
type Runner struct {
	cfg     *config.Config
	store   blob.Store
	sink    persistence.Sink
	metrics *metrics.Recorder
	logger  *zap.Logger
	now     func() time.Time
	runID   string
	ownSink bool
}

// New constructs a Runner. Unset collaborators are opened from cfg when Run
// starts.
func New(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil && cfg.Metrics.Textfile != "" {
		r.metrics = metrics.NewRecorder()
	}
	return r
}

type inputs struct {
	table      *status.Table
	activities []classify.Activity
	pairs      []classify.Pair
	flags      []string
}

// Run executes every stage in order and stops at the first error.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	if err := r.cfg.Validate(); err != nil {
		return Report{}, fmt.Errorf("invalid config: %w", err)
	}
	sep, err := tabular.ParseSeparator(r.cfg.IO.Separator)
	if err != nil {
		return Report{}, err
	}
	if err := r.open(ctx); err != nil {
		return Report{}, err
	}
	defer r.close()

	exp := export.New(r.store, export.Options{
		Prefix:    r.cfg.Blob.Prefix,
		Separator: sep,
		Overwrite: r.cfg.Blob.Overwrite,
		RunID:     r.runID,
		Logger:    r.logger,
		Now:       r.now,
	})
	report := Report{
		RunID:     exp.RunID(),
		StartedAt: r.now().UTC(),
		RowCounts: map[string]int{},
		Statuses:  map[classify.Level]map[string]int{},
	}
	log := r.logger.With(zap.String("run_id", report.RunID))
	log.Info("run started",
		zap.String("input_dir", r.cfg.IO.InputDir),
		zap.String("output_dir", r.cfg.IO.OutputDir),
		zap.String("plan", Plan()),
	)

	var in inputs
	if err := r.stage(ctx, log, StageLoad, func() (int, error) {
		in, err = r.load(sep, log)
		return len(in.activities), err
	}); err != nil {
		return report, err
	}
	report.RowCounts[ingest.TableStatus] = in.table.Len()
	report.RowCounts[ingest.TableActivities] = len(in.activities)
	report.RowCounts[ingest.TablePairs] = len(in.pairs)

	var res *classify.Result
	if err := r.stage(ctx, log, StageClassify, func() (int, error) {
		res, err = classify.Classify(in.table, in.activities, in.pairs, classify.Options{
			Fallback:   r.cfg.Status.EmptyMinFallback,
			Sequential: !r.cfg.Runtime.Parallel,
		})
		if err != nil {
			return 0, err
		}
		return len(res.Unified), nil
	}); err != nil {
		return report, err
	}
	for _, level := range classify.Levels {
		report.Statuses[level] = countStatuses(res.Summaries[level])
	}

	if err := r.stage(ctx, log, StageExport, func() (int, error) {
		report.Artifacts, err = r.export(ctx, exp, res, in.flags)
		return len(report.Artifacts), err
	}); err != nil {
		return report, err
	}
	for _, a := range report.Artifacts {
		report.RowCounts[a.Name] = a.Rows
	}

	report.FinishedAt = r.now().UTC()
	if err := r.stage(ctx, log, StagePersist, func() (int, error) {
		run := runRecord(r.cfg, report, res)
		return len(run.Summaries), r.sink.WriteRun(ctx, run)
	}); err != nil {
		return report, err
	}

	r.recordMetrics(report)
	if err := r.metrics.WriteTextfile(r.cfg.Metrics.Textfile); err != nil {
		log.Warn("metrics textfile not written", zap.Error(err))
	}
	log.Info("run finished",
		zap.Int("artifacts", len(report.Artifacts)),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

func (r *Runner) open(ctx context.Context) error {
	if r.store == nil {
		store, err := blob.Open(ctx, r.cfg.BlobStore())
		if err != nil {
			return fmt.Errorf("open blob store: %w", err)
		}
		r.store = store
	}
	if r.sink == nil {
		sink, err := persistence.Open(ctx, r.cfg.Persistence)
		if err != nil {
			return fmt.Errorf("open persistence: %w", err)
		}
		r.sink = sink
		r.ownSink = true
	}
	return nil
}

func (r *Runner) close() {
	if !r.ownSink {
		return
	}
	if err := r.sink.Close(); err != nil {
		r.logger.Warn("close persistence", zap.Error(err))
	}
	r.sink, r.ownSink = nil, false
}

// stage runs fn, then logs and records its outcome. rows is the stage's
// headline row count.
func (r *Runner) stage(ctx context.Context, log *zap.Logger, name string, fn func() (rows int, err error)) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	start := time.Now()
	rows, err := fn()
	elapsed := time.Since(start)
	r.metrics.Observe(name, err == nil, elapsed)
	if err != nil {
		log.Error("stage failed", zap.String("stage", name), zap.Duration("duration", elapsed), zap.Error(err))
		return fmt.Errorf("%s: %w", name, err)
	}
	log.Info("stage finished", zap.String("stage", name), zap.Int("rows", rows), zap.Duration("duration", elapsed))
	return nil
}

func (r *Runner) inputPath(name string) string {
	return filepath.Join(r.cfg.IO.InputDir, name)
}

func (r *Runner) load(sep rune, log *zap.Logger) (inputs, error) {
	opts := ingest.Options{
		Strict: r.cfg.Runtime.FailOnMissingColumns,
		NAFill: r.cfg.Runtime.FloatNAFill,
		Logger: log,
	}

	statusFrame, err := tabular.ReadFile(r.inputPath(StatusFile), sep)
	if err != nil {
		return inputs{}, err
	}
	tbl, err := ingest.Status(statusFrame)
	if err != nil {
		return inputs{}, fmt.Errorf("status table: %w", err)
	}
	log.Debug("table loaded", zap.String("table", ingest.TableStatus), zap.Int("rows", tbl.Len()))

	actFrame, err := tabular.ReadFile(r.inputPath(ActivitiesFile), sep)
	if err != nil {
		return inputs{}, err
	}
	acts, err := ingest.Activities(actFrame, opts)
	if err != nil {
		return inputs{}, fmt.Errorf("activities table: %w", err)
	}
	log.Debug("table loaded", zap.String("table", ingest.TableActivities), zap.Int("rows", len(acts)))

	pairFrame, err := tabular.ReadFile(r.inputPath(PairsFile), sep)
	if err != nil {
		return inputs{}, err
	}
	pairs, err := ingest.Pairs(pairFrame, opts)
	if err != nil {
		return inputs{}, fmt.Errorf("pairs table: %w", err)
	}
	log.Debug("table loaded", zap.String("table", ingest.TablePairs), zap.Int("rows", len(pairs)))

	return inputs{
		table:      tbl,
		activities: acts,
		pairs:      pairs,
		flags:      ingest.FlagColumns(),
	}, nil
}

type artifactSpec struct {
	name   string
	frame  *tabular.Frame
	inputs []string
}

func (r *Runner) export(ctx context.Context, exp *export.Exporter, res *classify.Result, flags []string) ([]export.Artifact, error) {
	acts := []string{r.inputPath(ActivitiesFile)}
	actsAndPairs := []string{r.inputPath(ActivitiesFile), r.inputPath(PairsFile)}
	all := []string{r.inputPath(StatusFile), r.inputPath(ActivitiesFile), r.inputPath(PairsFile)}

	var specs []artifactSpec
	// Intermediates depend on every input table.
	if r.cfg.IO.WriteIntermediate {
		specs = append(specs,
			artifactSpec{export.NameInitializeStatus, export.InitializeStatusFrame(res.Activities, flags), all},
			artifactSpec{export.NameInitializePairs, export.InitializePairsFrame(res.Pairs), all},
			artifactSpec{export.NameActivityInitializeStatus, export.UnifiedFrame(res.Unified), all},
		)
	}
	for _, level := range classify.Levels {
		in := acts
		if level == classify.LevelActivity {
			in = actsAndPairs
		}
		specs = append(specs, artifactSpec{export.SummaryName(level), export.SummaryFrame(level, res.Summaries[level]), in})
	}

	artifacts := make([]export.Artifact, 0, len(specs))
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return artifacts, err
		}
		a, err := exp.Write(ctx, spec.name, spec.frame, spec.inputs)
		if err != nil {
			return artifacts, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, nil
}

func (r *Runner) recordMetrics(report Report) {
	for table, n := range report.RowCounts {
		r.metrics.Rows(table, n)
	}
	for level, counts := range report.Statuses {
		r.metrics.Statuses(string(level), counts)
	}
	r.metrics.Finished(report.FinishedAt)
}

func countStatuses(summaries []classify.Summary) map[string]int {
	counts := make(map[string]int)
	for _, s := range summaries {
		counts[s.Status]++
	}
	return counts
}

func runRecord(cfg *config.Config, report Report, res *classify.Result) persistence.Run {
	run := persistence.Run{
		ID:         report.RunID,
		Version:    export.Version,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		InputDir:   cfg.IO.InputDir,
		OutputDir:  cfg.IO.OutputDir,
		Fallback:   string(cfg.Status.EmptyMinFallback),
		RowCounts:  report.RowCounts,
	}
	for _, a := range report.Artifacts {
		run.Artifacts = append(run.Artifacts, a.Key)
	}
	for _, level := range classify.Levels {
		for _, s := range res.Summaries[level] {
			run.Summaries = append(run.Summaries, persistence.Summary{
				Level:              string(s.Level),
				Key:                s.Key,
				Status:             s.Status,
				IndependentIC50:    s.Metrics.IndependentIC50,
				NonIndependentIC50: s.Metrics.NonIndependentIC50,
				IndependentKi:      s.Metrics.IndependentKi,
				NonIndependentKi:   s.Metrics.NonIndependentKi,
			})
		}
	}
	return run
}

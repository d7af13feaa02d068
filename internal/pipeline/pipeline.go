package pipeline

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openeurope/energyaudit/internal/auditerr"
	"github.com/openeurope/energyaudit/internal/compute"
	"github.com/openeurope/energyaudit/internal/config"
	"github.com/openeurope/energyaudit/internal/findings"
	"github.com/openeurope/energyaudit/internal/ingest"
	"github.com/openeurope/energyaudit/internal/metrics"
	"github.com/openeurope/energyaudit/internal/normalize"
	"github.com/openeurope/energyaudit/internal/report"
	"github.com/openeurope/energyaudit/pkg/types"
)

const op = "pipeline"

// Source is the input of one run: a file path, or a reader plus a name.
type Source struct {
	// Path is read when Reader is nil.
	Path string

	// Reader, when set, is consumed instead of opening Path.
	Reader io.Reader

	// Name identifies a Reader input in the report and audit trail.
	// Defaults to Path.
	Name string

	// OutputDir overrides the configured output directory for this run.
	OutputDir string
}

// FromFile returns a Source reading the file at path.
func FromFile(path string) Source {
	return Source{Path: path}
}

// FromReader returns a Source consuming r, reported under name.
func FromReader(name string, r io.Reader) Source {
	return Source{Reader: r, Name: name}
}

func (s Source) name() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Path
}

// Stem returns the base name of the source without its extension.
func (s Source) Stem() string {
	base := filepath.Base(s.name())
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Runner executes audit runs with a fixed configuration.
// A Runner is safe for concurrent use when Findings is.
type Runner struct {
	Config config.AuditConfig

	// Now stamps audit entries. Defaults to time.Now.
	Now func() time.Time

	// Findings is evaluated against every successful run. May be nil.
	Findings *findings.Engine
}

// New returns a Runner for cfg using the wall clock.
func New(cfg config.AuditConfig, engine *findings.Engine) *Runner {
	return &Runner{Config: cfg, Now: time.Now, Findings: engine}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run executes ingest, normalize, calculate and report for src and returns
// the finished run. With Config.Metrics.Enabled a textfile is written next to
// the report.
//
// The returned error is always an *auditerr.Error. On error no report is
// written unless the failure happened after the report step.
func (r *Runner) Run(ctx context.Context, src Source) (*types.Run, error) {
	run := &types.Run{
		ID:        uuid.NewString(),
		Input:     src.name(),
		StartedAt: r.now(),
	}
	log := slog.With("run", run.ID, "input", run.Input)

	// Ingestion
	var (
		table *types.Table
		entry types.AuditEntry
		err   error
	)
	opts := ingest.Options{Comma: r.Config.Comma()}
	if src.Reader != nil {
		table, entry, err = ingest.Read(src.Reader, run.Input, opts, r.now())
	} else {
		table, entry, err = ingest.File(src.Path, opts, r.now())
	}
	if err != nil {
		return nil, r.fail(log, err)
	}
	run.Trail = run.Trail.Append(entry)
	run.Stats.Ingested = table.Len()

	if err := ctx.Err(); err != nil {
		return nil, r.fail(log, auditerr.Internal(op, err))
	}

	// Normalization
	readings, entry, err := normalize.Normalize(table, normalize.Columns{
		Baseline: r.Config.Columns.Baseline,
		New:      r.Config.Columns.New,
	}, r.now())
	if err != nil {
		return nil, r.fail(log, err)
	}
	run.Trail = run.Trail.Append(entry)
	run.Stats.Used = len(readings)
	run.Stats.Dropped = run.Stats.Ingested - run.Stats.Used

	if err := ctx.Err(); err != nil {
		return nil, r.fail(log, auditerr.Internal(op, err))
	}

	// Calculation
	summary, entry := compute.Calculate(readings, r.now())
	run.Trail = run.Trail.Append(entry)
	run.Summary = summary

	if summary.Rows == 0 && r.Config.FailOnEmpty {
		return nil, r.fail(log, auditerr.Empty(op, run.Input))
	}
	if err := ctx.Err(); err != nil {
		return nil, r.fail(log, auditerr.Internal(op, err))
	}

	// Reporting
	dir := r.Config.OutputDir
	if src.OutputDir != "" {
		dir = src.OutputDir
	}
	path, err := report.Write(dir, r.Config.ReportName, report.Document{
		InputFile: run.Input,
		Summary:   run.Summary,
		Trail:     run.Trail,
	})
	if err != nil {
		return nil, r.fail(log, auditerr.Internal("report", err))
	}
	run.ReportPath = path

	run.Findings = r.Findings.Evaluate(run)
	run.FinishedAt = r.now()

	if r.Config.Metrics.Enabled {
		mpath, err := metrics.Write(dir, r.Config.Metrics.File, run)
		if err != nil {
			return run, r.fail(log, auditerr.Internal("metrics", err))
		}
		run.MetricsPath = mpath
	}

	log.Info("pipeline: run complete",
		"report", run.ReportPath,
		"rows_used", run.Stats.Used,
		"rows_dropped", run.Stats.Dropped,
		"savings_pct", run.Summary.SavingsPct,
		"findings", len(run.Findings),
		"duration", run.FinishedAt.Sub(run.StartedAt),
	)
	return run, nil
}

func (r *Runner) fail(log *slog.Logger, err error) error {
	log.Error("pipeline: run failed", "kind", auditerr.KindOf(err), "err", err)
	return err
}

package metrics

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/openeurope/energyaudit/pkg/types"
)

// Metric family names.
const (
	MetricBaselineAvg = "energy_audit_baseline_avg"
	MetricNewAvg      = "energy_audit_new_avg"
	MetricSavingsAbs  = "energy_audit_savings_absolute"
	MetricSavingsPct  = "energy_audit_savings_percent"
	MetricRows        = "energy_audit_rows"
	MetricFindings    = "energy_audit_findings"
	MetricLastRun     = "energy_audit_last_run_timestamp_seconds"
)

// Families returns the gauge families describing run, in a stable order.
func Families(run *types.Run) []*dto.MetricFamily {
	input := filepath.Base(run.Input)
	s := run.Summary

	return []*dto.MetricFamily{
		gauge(MetricBaselineAvg, "Average baseline consumption over the audited rows.",
			sample(s.BaselineAvg, "input", input)),
		gauge(MetricNewAvg, "Average consumption after the measure over the audited rows.",
			sample(s.NewAvg, "input", input)),
		gauge(MetricSavingsAbs, "Baseline average minus new average.",
			sample(s.SavingsAbs, "input", input)),
		gauge(MetricSavingsPct, "Savings as a percentage of the baseline average (0 when the baseline is 0).",
			sample(s.SavingsPct, "input", input)),
		gauge(MetricRows, "Rows seen by each pipeline stage.",
			sample(float64(run.Stats.Ingested), "input", input, "stage", "ingested"),
			sample(float64(run.Stats.Dropped), "input", input, "stage", "dropped"),
			sample(float64(run.Stats.Used), "input", input, "stage", "used"),
		),
		gauge(MetricFindings, "Findings that fired for the run.",
			sample(float64(len(run.Findings)), "input", input)),
		gauge(MetricLastRun, "Unix time the run finished.",
			sample(float64(run.FinishedAt.UnixNano())/1e9, "input", input)),
	}
}

// Encode writes the text exposition of run to w.
func Encode(w io.Writer, run *types.Run) error {
	for _, mf := range Families(run) {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Write stores the exposition of run in dir/name and returns the path.
func Write(dir, name string, run *types.Run) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, run); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("metrics: create dir: %w", err)
	}

	path := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("metrics: create temp file: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("metrics: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("metrics: close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("metrics: chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("metrics: rename: %w", err)
	}
	return path, nil
}

// Parse decodes a text exposition into metric families keyed by name.
func Parse(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return nil, fmt.Errorf("metrics: parse exposition: %w", err)
	}
	return mfs, nil
}

// Value returns the gauge value of the sample in mf whose labels include all
// of the given name/value pairs, and whether one was found.
func Value(mf *dto.MetricFamily, labels ...string) (float64, bool) {
	if mf == nil {
		return 0, false
	}
	for _, m := range mf.GetMetric() {
		if hasLabels(m, labels) {
			return m.GetGauge().GetValue(), true
		}
	}
	return 0, false
}

func hasLabels(m *dto.Metric, labels []string) bool {
	for i := 0; i+1 < len(labels); i += 2 {
		found := false
		for _, lp := range m.GetLabel() {
			if lp.GetName() == labels[i] && lp.GetValue() == labels[i+1] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func gauge(name, help string, metrics ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: metrics,
	}
}

// sample builds one gauge sample; labels are name/value pairs.
func sample(v float64, labels ...string) *dto.Metric {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(v)}}
	for i := 0; i+1 < len(labels); i += 2 {
		m.Label = append(m.Label, &dto.LabelPair{
			Name:  proto.String(labels[i]),
			Value: proto.String(labels[i+1]),
		})
	}
	return m
}

// Package report renders an audit run as a Markdown document and writes it
// to the output directory. The layout is fixed: a title, the input file name,
// a Summary section with values to two decimal places and an Audit Trail with
// one line per entry in stage order.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openeurope/energyaudit/pkg/types"
)

// DefaultName is the report file name used when none is configured.
const DefaultName = "energy_audit_report.md"

// Document is everything the report shows.
type Document struct {
	// InputFile is the path or name of the audited input; only its base name
	// is printed.
	InputFile string
	Summary   types.Summary
	Trail     types.Trail
}

// Render returns the Markdown bytes for doc. Output depends only on doc, so
// identical summaries and trails render identically.
func Render(doc Document) []byte {
	var b bytes.Buffer
	s := doc.Summary

	b.WriteString("# Energy Audit Report\n\n")
	fmt.Fprintf(&b, "**Input file:** %s\n\n", filepath.Base(doc.InputFile))

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Baseline average consumption: %.2f\n", s.BaselineAvg)
	fmt.Fprintf(&b, "- New average consumption: %.2f\n", s.NewAvg)
	fmt.Fprintf(&b, "- Absolute energy savings: %.2f\n", s.SavingsAbs)
	fmt.Fprintf(&b, "- Savings percentage: %.2f%%\n\n", s.SavingsPct)

	b.WriteString("## Audit Trail\n\n")
	for _, e := range doc.Trail {
		fmt.Fprintf(&b, "- %s [%s] %s\n", e.Timestamp.Format(types.TimestampLayout), e.Step, e.Message)
	}
	return b.Bytes()
}

// Write renders doc into dir/name, creating dir if needed and replacing any
// existing report. It returns the path written.
func Write(dir, name string, doc Document) (string, error) {
	if name == "" {
		name = DefaultName
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("report: create output dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Render(doc), 0o644); err != nil {
		return "", fmt.Errorf("report: write %s: %w", path, err)
	}
	return path, nil
}

package api

import (
	"fmt"
	"sort"

	"github.com/openeurope/energyaudit/pkg/types"
)

// DiagnosticHint is one human-readable observation about a run's input data
// or result. The UI shows Title as a chip and Detail on hover.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level  string `json:"level"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

var levelOrder = map[string]int{"critical": 0, "warning": 1, "info": 2, "ok": 3}

// computeDiagnostics derives hints from a finished run, critical first.
func computeDiagnostics(run *types.Run) []DiagnosticHint {
	var hints []DiagnosticHint
	st, s := run.Stats, run.Summary

	if st.Used == 0 {
		return []DiagnosticHint{{
			Key:   "no_rows",
			Level: "critical",
			Title: "No usable rows",
			Detail: fmt.Sprintf(
				"All %d rows were dropped because a consumption value was missing. "+
					"The averages in the report are reported as 0 and say nothing about the site. "+
					"Check that the export fills both consumption columns.",
				st.Ingested),
		}}
	}

	if st.Dropped > 0 {
		pct := float64(st.Dropped) / float64(st.Ingested) * 100
		level := "info"
		if pct >= 25 {
			level = "warning"
		}
		hints = append(hints, DiagnosticHint{
			Key:   "rows_dropped",
			Level: level,
			Title: fmt.Sprintf("%.1f%% rows dropped", pct),
			Detail: fmt.Sprintf(
				"%d of %d rows had a missing consumption value and were left out of the averages.",
				st.Dropped, st.Ingested),
			Value: &pct,
		})
	}

	if s.BaselineAvg == 0 {
		hints = append(hints, DiagnosticHint{
			Key:    "zero_baseline",
			Level:  "warning",
			Title:  "Zero baseline",
			Detail: "The baseline average is 0, so the savings percentage is reported as 0.",
		})
	}

	if s.SavingsAbs < 0 {
		v := s.SavingsPct
		hints = append(hints, DiagnosticHint{
			Key:   "consumption_increased",
			Level: "warning",
			Title: "Consumption increased",
			Detail: fmt.Sprintf(
				"Average consumption went up by %.2f after the measure.", -s.SavingsAbs),
			Value: &v,
		})
	}

	if st.Used == 1 {
		hints = append(hints, DiagnosticHint{
			Key:    "single_row",
			Level:  "info",
			Title:  "Single reading",
			Detail: "The averages are taken over one row.",
		})
	}

	if len(hints) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:    "ok",
			Level:  "ok",
			Title:  "Complete data",
			Detail: fmt.Sprintf("All %d rows were used.", st.Used),
		})
	}

	sort.SliceStable(hints, func(i, j int) bool {
		return levelOrder[hints[i].Level] < levelOrder[hints[j].Level]
	})
	return hints
}

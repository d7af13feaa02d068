package findings

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/openeurope/energyaudit/pkg/types"
)

// Condition is a parsed rule expression of the form "field op value".
//
// Supported fields:
//
//	baseline_avg  new_avg  savings_abs  savings_pct  rows_used  rows_dropped
//	rows_ingested  dropped_pct
//
// Supported operators: > >= < <= == !=
type Condition struct {
	Field     string
	Op        string
	Threshold float64
}

// ParseCondition parses and validates a rule expression.
func ParseCondition(expr string) (Condition, error) {
	parts := strings.Fields(expr)
	if len(parts) != 3 {
		return Condition{}, fmt.Errorf("condition %q: want \"field op value\"", expr)
	}
	c := Condition{Field: parts[0], Op: parts[1]}
	if _, ok := fieldValue(c.Field, &types.Run{}); !ok {
		return Condition{}, fmt.Errorf("condition %q: unknown field %q", expr, c.Field)
	}
	switch c.Op {
	case ">", ">=", "<", "<=", "==", "!=":
	default:
		return Condition{}, fmt.Errorf("condition %q: unknown operator %q", expr, c.Op)
	}
	v, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return Condition{}, fmt.Errorf("condition %q: threshold: %w", expr, err)
	}
	c.Threshold = v
	return c, nil
}

// Eval reports whether the condition holds for run, and the field value
// that was compared.
func (c Condition) Eval(run *types.Run) (bool, float64) {
	v, ok := fieldValue(c.Field, run)
	if !ok {
		return false, 0
	}
	return compareFloat(v, c.Op, c.Threshold), v
}

// String returns the canonical "field op value" form.
func (c Condition) String() string {
	return fmt.Sprintf("%s %s %s", c.Field, c.Op, strconv.FormatFloat(c.Threshold, 'f', -1, 64))
}

// fieldValue maps a field name to its value in the run.
func fieldValue(field string, run *types.Run) (float64, bool) {
	s, st := run.Summary, run.Stats
	switch field {
	case "baseline_avg":
		return s.BaselineAvg, true
	case "new_avg":
		return s.NewAvg, true
	case "savings_abs":
		return s.SavingsAbs, true
	case "savings_pct":
		return s.SavingsPct, true
	case "rows_used":
		return float64(st.Used), true
	case "rows_dropped":
		return float64(st.Dropped), true
	case "rows_ingested":
		return float64(st.Ingested), true
	case "dropped_pct":
		if st.Ingested == 0 {
			return 0, true
		}
		return float64(st.Dropped) / float64(st.Ingested) * 100, true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}

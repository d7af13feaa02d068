package compute

import (
	"fmt"
	"time"

	"github.com/openeurope/energyaudit/pkg/types"
)

// Calculate computes the Summary over readings and returns the calculation
// stage's AuditEntry, stamped at now.
func Calculate(readings []types.Reading, now time.Time) (types.Summary, types.AuditEntry) {
	sum := types.Summary{Rows: len(readings)}

	if len(readings) > 0 {
		var before, after float64
		for _, r := range readings {
			before += r.Before
			after += r.After
		}
		n := float64(len(readings))
		sum.BaselineAvg = before / n
		sum.NewAvg = after / n
	}

	sum.SavingsAbs = sum.BaselineAvg - sum.NewAvg
	sum.SavingsPct = SavingsPercent(sum.BaselineAvg, sum.SavingsAbs)

	entry := types.NewEntry(types.StepCalculation, now, fmt.Sprintf(
		"Computed baseline average %.4f, new average %.4f, savings %.4f (%.4f%%)",
		sum.BaselineAvg, sum.NewAvg, sum.SavingsAbs, sum.SavingsPct))
	return sum, entry
}

// SavingsPercent returns savings as a percentage of baseline, or 0 when the
// baseline is 0 (no division is attempted).
func SavingsPercent(baseline, savings float64) float64 {
	if baseline == 0 {
		return 0
	}
	return savings / baseline * 100
}

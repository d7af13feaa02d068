package compute

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/openeurope/energyaudit/pkg/types"
)

// baseTime is a fixed reference point so entry timestamps are deterministic.
var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func readings(pairs ...[2]float64) []types.Reading {
	out := make([]types.Reading, len(pairs))
	for i, p := range pairs {
		out[i] = types.Reading{Before: p[0], After: p[1]}
	}
	return out
}

func TestCalculate_SingleRow(t *testing.T) {
	sum, entry := Calculate(readings([2]float64{100, 80}), baseTime)

	if sum.BaselineAvg != 100 || sum.NewAvg != 80 {
		t.Errorf("averages = %v/%v, want 100/80", sum.BaselineAvg, sum.NewAvg)
	}
	if sum.SavingsAbs != 20 {
		t.Errorf("SavingsAbs = %v, want 20", sum.SavingsAbs)
	}
	if !almostEqual(sum.SavingsPct, 20, 1e-9) {
		t.Errorf("SavingsPct = %v, want 20", sum.SavingsPct)
	}
	if sum.Rows != 1 {
		t.Errorf("Rows = %d", sum.Rows)
	}

	if entry.Step != types.StepCalculation {
		t.Errorf("entry step = %q", entry.Step)
	}
	want := "Computed baseline average 100.0000, new average 80.0000, savings 20.0000 (20.0000%)"
	if entry.Message != want {
		t.Errorf("entry message = %q, want %q", entry.Message, want)
	}
}

func TestCalculate_Means(t *testing.T) {
	sum, _ := Calculate(readings(
		[2]float64{100, 90},
		[2]float64{200, 150},
		[2]float64{300, 310},
	), baseTime)

	if !almostEqual(sum.BaselineAvg, 200, 1e-9) {
		t.Errorf("BaselineAvg = %v, want 200", sum.BaselineAvg)
	}
	if !almostEqual(sum.NewAvg, 550.0/3, 1e-9) {
		t.Errorf("NewAvg = %v, want %v", sum.NewAvg, 550.0/3)
	}
	if !almostEqual(sum.SavingsPct, (200-550.0/3)/200*100, 1e-9) {
		t.Errorf("SavingsPct = %v", sum.SavingsPct)
	}
}

func TestCalculate_NegativeSavings(t *testing.T) {
	sum, _ := Calculate(readings([2]float64{100, 125}), baseTime)
	if sum.SavingsAbs != -25 || !almostEqual(sum.SavingsPct, -25, 1e-9) {
		t.Errorf("savings = %v (%v%%), want -25 (-25%%)", sum.SavingsAbs, sum.SavingsPct)
	}
}

func TestCalculate_ZeroBaselineGuard(t *testing.T) {
	sum, entry := Calculate(readings([2]float64{0, 0}, [2]float64{0, 10}), baseTime)
	if sum.BaselineAvg != 0 {
		t.Fatalf("BaselineAvg = %v", sum.BaselineAvg)
	}
	if sum.SavingsPct != 0 {
		t.Errorf("SavingsPct = %v, want 0 for zero baseline", sum.SavingsPct)
	}
	if sum.SavingsAbs != -5 {
		t.Errorf("SavingsAbs = %v, want -5", sum.SavingsAbs)
	}
	if !strings.HasSuffix(entry.Message, "(0.0000%)") {
		t.Errorf("entry message = %q", entry.Message)
	}
}

// An empty table has no defined mean. Calculate reports zeros with Rows == 0
// instead of NaN; the pipeline decides whether that is fatal.
func TestCalculate_EmptyInput(t *testing.T) {
	sum, entry := Calculate(nil, baseTime)
	if sum != (types.Summary{}) {
		t.Errorf("empty Summary = %+v, want zero value", sum)
	}
	if math.IsNaN(sum.SavingsPct) {
		t.Error("SavingsPct is NaN")
	}
	want := "Computed baseline average 0.0000, new average 0.0000, savings 0.0000 (0.0000%)"
	if entry.Message != want {
		t.Errorf("entry message = %q", entry.Message)
	}
}

func TestSavingsPercent(t *testing.T) {
	cases := []struct {
		baseline, savings, want float64
	}{
		{100, 20, 20},
		{200, 50, 25},
		{0, 10, 0},
		{0, 0, 0},
		{50, -10, -20},
	}
	for _, c := range cases {
		if got := SavingsPercent(c.baseline, c.savings); !almostEqual(got, c.want, 1e-9) {
			t.Errorf("SavingsPercent(%v, %v) = %v, want %v", c.baseline, c.savings, got, c.want)
		}
	}
}

func TestProperty_Calculate(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	pairs := gen.SliceOf(gen.Float64Range(0, 1e6))

	properties.Property("averages are the column means", prop.ForAll(
		func(before, after []float64) bool {
			n := len(before)
			if len(after) < n {
				n = len(after)
			}
			if n == 0 {
				return true
			}
			in := make([]types.Reading, n)
			var sb, sa float64
			for i := 0; i < n; i++ {
				in[i] = types.Reading{Before: before[i], After: after[i]}
				sb += before[i]
				sa += after[i]
			}
			sum, _ := Calculate(in, baseTime)
			return almostEqual(sum.BaselineAvg, sb/float64(n), 1e-6) &&
				almostEqual(sum.NewAvg, sa/float64(n), 1e-6) &&
				sum.Rows == n
		},
		pairs, pairs,
	))

	properties.Property("savings is the exact difference of the averages", prop.ForAll(
		func(before, after []float64) bool {
			n := len(before)
			if len(after) < n {
				n = len(after)
			}
			in := make([]types.Reading, n)
			for i := 0; i < n; i++ {
				in[i] = types.Reading{Before: before[i], After: after[i]}
			}
			sum, _ := Calculate(in, baseTime)
			if sum.SavingsAbs != sum.BaselineAvg-sum.NewAvg {
				return false
			}
			if sum.BaselineAvg == 0 {
				return sum.SavingsPct == 0
			}
			return !math.IsNaN(sum.SavingsPct)
		},
		pairs, pairs,
	))

	properties.TestingRun(t)
}

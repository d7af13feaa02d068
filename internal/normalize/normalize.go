// Package normalize drops incomplete rows and coerces the two consumption
// columns to float64.
package normalize

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/openeurope/energyaudit/internal/auditerr"
	"github.com/openeurope/energyaudit/pkg/types"
)

const op = "normalize"

// Columns names the baseline and new consumption columns.
type Columns struct {
	Baseline string
	New      string
}

// missingTokens are the cell values read as "no value", matching the default
// NA markers of common dataframe tooling so exports from it round-trip.
var missingTokens = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true,
	"-1.#IND": true, "-1.#QNAN": true, "-NaN": true, "-nan": true,
	"1.#IND": true, "1.#QNAN": true, "<NA>": true, "N/A": true,
	"NA": true, "NULL": true, "NaN": true, "None": true,
	"n/a": true, "nan": true, "null": true,
}

// IsMissing reports whether a raw cell holds no value.
func IsMissing(cell string) bool {
	return missingTokens[strings.TrimSpace(cell)]
}

// Normalize keeps the rows of t where both columns hold a value and parses
// those values. Rows missing either value are dropped, never repaired.
//
// A column absent from the header, or a present value that is not a number,
// is a FORMAT error: the input cannot be audited as given.
func Normalize(t *types.Table, cols Columns, now time.Time) ([]types.Reading, types.AuditEntry, error) {
	for _, c := range []string{cols.Baseline, cols.New} {
		if !t.HasColumn(c) {
			return nil, types.AuditEntry{}, auditerr.Format(op, t.Source, 1,
				fmt.Sprintf("missing required column %q", c), nil)
		}
	}

	out := make([]types.Reading, 0, t.Len())
	for _, row := range t.Rows {
		before, okBefore := row.Get(cols.Baseline)
		after, okAfter := row.Get(cols.New)
		if !okBefore || !okAfter || IsMissing(before) || IsMissing(after) {
			continue
		}

		b, err := parseValue(before)
		if err != nil {
			return nil, types.AuditEntry{}, valueError(t.Source, row.Line, cols.Baseline, before, err)
		}
		a, err := parseValue(after)
		if err != nil {
			return nil, types.AuditEntry{}, valueError(t.Source, row.Line, cols.New, after, err)
		}
		out = append(out, types.Reading{Row: row, Before: b, After: a})
	}

	dropped := t.Len() - len(out)
	if dropped > 0 {
		slog.Debug("normalize: dropped incomplete rows", "source", t.Source, "dropped", dropped)
	}
	entry := types.NewEntry(types.StepNormalization, now,
		fmt.Sprintf("Dropped %d rows with missing consumption values", dropped))
	return out, entry, nil
}

// parseValue reads a decimal number. Hexadecimal literals are rejected and
// values beyond the float64 range become ±Inf rather than an error.
func parseValue(cell string) (float64, error) {
	v := strings.TrimSpace(cell)
	digits := strings.ToLower(strings.TrimLeft(v, "+-"))
	if strings.HasPrefix(digits, "0x") {
		return 0, &strconv.NumError{Func: "ParseFloat", Num: v, Err: strconv.ErrSyntax}
	}
	f, err := strconv.ParseFloat(v, 64)
	if errors.Is(err, strconv.ErrRange) {
		return f, nil
	}
	return f, err
}

func valueError(source string, line int, col, cell string, err error) error {
	return auditerr.Format(op, source, line,
		fmt.Sprintf("column %q: could not convert %q to float", col, cell), err)
}

package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/openeurope/energyaudit/internal/auditerr"
	"github.com/openeurope/energyaudit/pkg/types"
)

const op = "ingest"

// Options controls how the input is tokenized.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
}

// File reads the table stored at path.
func File(path string, opts Options, now time.Time) (*types.Table, types.AuditEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, types.AuditEntry{}, auditerr.NotFound(op, path, err)
		}
		return nil, types.AuditEntry{}, auditerr.Format(op, path, 0, "cannot open input", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err == nil && info.IsDir() {
		return nil, types.AuditEntry{}, auditerr.Format(op, path, 0, "input is a directory", nil)
	}

	return Read(f, path, opts, now)
}

// Read parses a delimited table from r. source names the input in errors and
// in the audit message.
func Read(r io.Reader, source string, opts Options, now time.Time) (*types.Table, types.AuditEntry, error) {
	reader := csv.NewReader(r)
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	// Short rows are allowed; long rows are rejected below.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, types.AuditEntry{}, auditerr.Format(op, source, 1, "no columns to parse from input", nil)
		}
		return nil, types.AuditEntry{}, auditerr.Format(op, source, parseLine(err), "read header", err)
	}

	cols, err := headerColumns(header)
	if err != nil {
		return nil, types.AuditEntry{}, auditerr.Format(op, source, 1, err.Error(), nil)
	}

	table := &types.Table{Source: source, Header: cols}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, types.AuditEntry{}, auditerr.Format(op, source, parseLine(err), "read record", err)
		}

		line, _ := reader.FieldPos(0)
		if len(record) > len(cols) {
			return nil, types.AuditEntry{}, auditerr.Format(op, source, line,
				fmt.Sprintf("expected %d fields, saw %d", len(cols), len(record)), nil)
		}
		if isBlank(record) {
			continue
		}

		row := types.Row{Line: line, Cells: make(map[string]string, len(record))}
		for i, v := range record {
			row.Cells[cols[i]] = v
		}
		table.Rows = append(table.Rows, row)
	}

	slog.Debug("ingest: table loaded", "source", source, "rows", table.Len(), "columns", len(cols))
	entry := types.NewEntry(types.StepIngestion, now,
		fmt.Sprintf("Loaded %d rows from %s", table.Len(), source))
	return table, entry, nil
}

// headerColumns trims header names and rejects empty headers and duplicates.
func headerColumns(header []string) ([]string, error) {
	cols := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name != "" && seen[name] {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = true
		cols[i] = name
	}
	if len(cols) == 1 && cols[0] == "" {
		return nil, fmt.Errorf("no columns to parse from input")
	}
	return cols, nil
}

// isBlank reports whether record came from an empty line. encoding/csv
// already skips truly empty lines; a lone delimiter-free whitespace field is
// the remaining case.
func isBlank(record []string) bool {
	return len(record) == 1 && strings.TrimSpace(record[0]) == ""
}

// parseLine extracts the line number from a csv.ParseError.
func parseLine(err error) int {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return pe.Line
	}
	return 0
}

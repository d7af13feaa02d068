package types

// Row is one record of the input table. Cells are kept as raw text keyed by
// header name; Line is the 1-based line number in the source file.
type Row struct {
	Line  int
	Cells map[string]string
}

// Get returns the raw cell for col and whether the row carries that column.
// A row shorter than the header does not carry its trailing columns.
func (r Row) Get(col string) (string, bool) {
	v, ok := r.Cells[col]
	return v, ok
}

// Table is an ordered sequence of Rows read from a single source.
type Table struct {
	Source string
	Header []string
	Rows   []Row
}

// Len returns the number of data rows (header excluded).
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether col appears in the header.
func (t *Table) HasColumn(col string) bool {
	for _, h := range t.Header {
		if h == col {
			return true
		}
	}
	return false
}

// Reading is a normalized row: both consumption values are present and numeric.
type Reading struct {
	Row    Row
	Before float64
	After  float64
}

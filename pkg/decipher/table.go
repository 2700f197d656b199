package decipher

// Row is one logical table row. Each declared column maps to one or more
// cell values: the first value comes from the primary line, later values
// from continuation lines merged into this row.
type Row struct {
	Cells map[string][]string
}

// Get returns the primary (first) value of a column, or "" if absent.
func (r Row) Get(column string) string {
	vals := r.Cells[column]
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// All returns every value of a column, primary first.
func (r Row) All(column string) []string {
	return r.Cells[column]
}

// SkippedRow is a diagnostic for a data line that could not be parsed as a
// row or continuation. Skipped rows never abort the parse and are never
// silently dropped.
type SkippedRow struct {
	Line   int // 1-based line number in the input
	Text   string
	Reason string
}

// Table is an ordered sequence of parsed rows plus the diagnostics
// accumulated while parsing them.
type Table struct {
	Columns []string // declared column order
	Rows    []Row
	Skipped []SkippedRow
}

// Column returns the primary cell of the named column for every row, in row
// order.
func (t *Table) Column(name string) []string {
	var vals []string
	for _, r := range t.Rows {
		vals = append(vals, r.Get(name))
	}
	return vals
}

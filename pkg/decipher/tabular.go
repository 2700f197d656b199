package decipher

import (
	"fmt"
	"strings"
)

// ParseTable parses misaligned whitespace-formatted tabular output using the
// declared column names. Column boundaries are derived from the positions of
// the column labels in the header line, and each data line is sliced at
// those boundaries — so cell values that legitimately contain internal
// whitespace ("96.217.1.202 (lp)", "406115 406151") survive intact.
//
// A data line whose key cell is blank continues the preceding row: its
// non-blank cells are appended to that row's multi-value cells. A line with
// no value in any declared column, or a continuation with no preceding row,
// is recorded as a skipped-row diagnostic instead of aborting the parse.
func ParseTable(text string, ts *TableSchema) (*Table, error) {
	if len(ts.Columns) == 0 {
		return nil, &SchemaMismatchError{Path: "columns", Msg: "table schema declares no columns"}
	}

	lines := splitLines(text)

	headerIdx, bounds := locateHeader(lines, ts)
	if headerIdx < 0 {
		return nil, &SchemaMismatchError{
			Path: "header",
			Msg:  fmt.Sprintf("no line contains the declared columns %v", requiredColumns(ts)),
		}
	}

	table := &Table{}
	for _, c := range ts.Columns {
		table.Columns = append(table.Columns, c.Name)
	}

	for i := headerIdx + 1; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}

		cells := sliceCells(line, ts, bounds)

		if allBlank(cells) {
			table.Skipped = append(table.Skipped, SkippedRow{
				Line:   i + 1,
				Text:   strings.TrimSpace(line),
				Reason: "no value in any declared column",
			})
			continue
		}

		if cells[ts.Key] == "" {
			// Continuation candidate: secondary/alternate values for the
			// preceding row.
			if len(table.Rows) == 0 {
				table.Skipped = append(table.Skipped, SkippedRow{
					Line:   i + 1,
					Text:   strings.TrimSpace(line),
					Reason: "continuation row with no preceding row",
				})
				continue
			}
			row := &table.Rows[len(table.Rows)-1]
			for col, val := range cells {
				if val != "" {
					row.Cells[col] = append(row.Cells[col], val)
				}
			}
			continue
		}

		if missing := missingRequired(cells, ts); missing != "" {
			table.Skipped = append(table.Skipped, SkippedRow{
				Line:   i + 1,
				Text:   strings.TrimSpace(line),
				Reason: fmt.Sprintf("missing required column %q", missing),
			})
			continue
		}

		row := Row{Cells: make(map[string][]string, len(cells))}
		for col, val := range cells {
			if val != "" {
				row.Cells[col] = []string{val}
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// columnBound is the half-open byte range a column occupies on each line,
// derived from the header label position.
type columnBound struct {
	start, end int
}

// locateHeader finds the first line containing every non-optional column
// label in left-to-right order and derives the slicing boundaries. Returns
// (-1, nil) when no line qualifies.
func locateHeader(lines []string, ts *TableSchema) (int, map[string]columnBound) {
	for i, line := range lines {
		starts := make(map[string]int, len(ts.Columns))
		pos := 0
		ok := true
		for _, c := range ts.Columns {
			idx := strings.Index(line[min(pos, len(line)):], c.Name)
			if idx < 0 {
				if c.Optional {
					continue
				}
				ok = false
				break
			}
			starts[c.Name] = pos + idx
			pos = pos + idx + len(c.Name)
		}
		if !ok || len(starts) == 0 {
			continue
		}

		// Boundaries run from each label start to the next located label.
		bounds := make(map[string]columnBound, len(starts))
		var order []string
		for _, c := range ts.Columns {
			if _, found := starts[c.Name]; found {
				order = append(order, c.Name)
			}
		}
		for j, name := range order {
			end := -1 // to end of line
			if j+1 < len(order) {
				end = starts[order[j+1]]
			}
			bounds[name] = columnBound{start: starts[name], end: end}
		}
		return i, bounds
	}
	return -1, nil
}

// sliceCells cuts one data line at the header-derived boundaries and trims
// each cell. Columns absent from the header slice to "".
func sliceCells(line string, ts *TableSchema, bounds map[string]columnBound) map[string]string {
	cells := make(map[string]string, len(ts.Columns))
	for _, c := range ts.Columns {
		b, found := bounds[c.Name]
		if !found {
			cells[c.Name] = ""
			continue
		}
		start := min(b.start, len(line))
		end := len(line)
		if b.end >= 0 {
			end = min(b.end, len(line))
		}
		cells[c.Name] = strings.TrimSpace(line[start:end])
	}
	return cells
}

func allBlank(cells map[string]string) bool {
	for _, v := range cells {
		if v != "" {
			return false
		}
	}
	return true
}

// missingRequired returns the first declared non-optional column with a
// blank cell, or "".
func missingRequired(cells map[string]string, ts *TableSchema) string {
	for _, c := range ts.Columns {
		if c.Optional || c.Name == ts.Key {
			continue
		}
		if cells[c.Name] == "" {
			return c.Name
		}
	}
	return ""
}

func requiredColumns(ts *TableSchema) []string {
	var cols []string
	for _, c := range ts.Columns {
		if !c.Optional {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

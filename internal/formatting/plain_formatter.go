package formatting

import (
	"fmt"
	"strings"
)

// plainFormatter writes kubectl-style columns without box-drawing
// characters.
type plainFormatter struct {
	options Options
}

const minPadding = 3

func (f *plainFormatter) Format(t Table, _ any) error {
	if len(t.Headers) == 0 {
		return nil
	}

	headers := make([]string, len(t.Headers))
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		headers[i] = strings.ToUpper(h)
		widths[i] = len(headers[i])
	}

	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		normalized := make([]string, len(headers))
		for i := range headers {
			if i < len(row) {
				normalized[i] = row[i]
				if len(row[i]) > widths[i] {
					widths[i] = len(row[i])
				}
			}
		}
		rows = append(rows, normalized)
	}

	if !f.options.NoHeaders {
		f.printRow(headers, widths)
	}
	for _, row := range rows {
		f.printRow(row, widths)
	}
	return nil
}

func (f *plainFormatter) printRow(row []string, widths []int) {
	var sb strings.Builder
	for i, cell := range row {
		if i == len(row)-1 {
			sb.WriteString(cell)
			continue
		}
		fmt.Fprintf(&sb, "%-*s", widths[i]+minPadding, cell)
	}
	fmt.Fprintln(f.options.Writer, strings.TrimRight(sb.String(), " "))
}

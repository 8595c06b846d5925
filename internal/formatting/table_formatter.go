package formatting

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type tableFormatter struct {
	options Options
}

func (f *tableFormatter) Format(t Table, _ any) error {
	if len(t.Rows) == 0 {
		fmt.Fprintf(f.options.Writer, "%s %s\n", text.FgYellow.Sprint("📋"), text.FgYellow.Sprint("No items found"))
		return nil
	}

	tw := f.createTable()
	if t.Title != "" {
		tw.SetTitle(t.Title)
	}
	if !f.options.NoHeaders && len(t.Headers) > 0 {
		header := make(table.Row, len(t.Headers))
		for i, h := range t.Headers {
			header[i] = text.FgHiCyan.Sprint(h)
		}
		tw.AppendHeader(header)
	}
	for _, row := range t.Rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		tw.AppendRow(r)
	}
	tw.Render()

	if t.Footer != "" {
		fmt.Fprintln(f.options.Writer, t.Footer)
	}
	return nil
}

// createTable creates a new table with standard styling
func (f *tableFormatter) createTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(f.options.Writer)
	t.SetStyle(table.StyleRounded)
	return t
}

package cli

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// RenderTable draws a static table sized to its content.
func RenderTable(headers []string, rows [][]string) string {
	t := newTable(headers, rows, false)
	t.SetHeight(len(rows) + 2)
	return t.View()
}

// newTable builds a table model whose columns fit their widest cell.
func newTable(headers []string, rows [][]string, focused bool) table.Model {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	tableRows := make([]table.Row, 0, len(rows))
	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
			if w := lipgloss.Width(r[i]); w > widths[i] {
				widths[i] = w
			}
		}
		tableRows = append(tableRows, r)
	}

	columns := make([]table.Column, len(headers))
	for i, h := range headers {
		columns[i] = table.Column{Title: h, Width: widths[i]}
	}

	styles := table.DefaultStyles()
	styles.Header = TableHeaderStyle.Padding(0, 1)
	if focused {
		styles.Selected = styles.Selected.Foreground(PrimaryColor).Bold(true)
	} else {
		styles.Selected = lipgloss.NewStyle()
	}

	return table.New(
		table.WithColumns(columns),
		table.WithRows(tableRows),
		table.WithFocused(focused),
		table.WithStyles(styles),
	)
}

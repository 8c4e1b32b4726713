package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Table renders rows under headers with a rounded border. Short rows are
// padded with empty cells.
func Table(headers []string, rows [][]string) string {
	padded := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) < len(headers) {
			row = append(append([]string(nil), row...), make([]string, len(headers)-len(row))...)
		}
		padded[i] = row
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(padded...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
	return t.Render()
}

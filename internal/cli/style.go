package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	cyan    = lipgloss.Color("#00E5FF")
	magenta = lipgloss.Color("#FF1B6B")
	yellow  = lipgloss.Color("#FFB500")
	green   = lipgloss.Color("#2AFFAA")
	red     = lipgloss.Color("#FF5555")
	muted   = lipgloss.Color("#6C7280")
	text    = lipgloss.Color("#ECEFF4")
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(cyan).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(muted)
	valueStyle   = lipgloss.NewStyle().Foreground(text)
	successStyle = lipgloss.NewStyle().Foreground(green).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(yellow).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(red).Bold(true)

	headerStyle = lipgloss.NewStyle().Foreground(magenta).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Foreground(text).Padding(0, 1)
	oddRowStyle = cellStyle.Foreground(lipgloss.Color("#B4BCC8"))
)

// renderTable draws rows under headers with a rounded border.
func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(muted)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row%2 == 1:
				return oddRowStyle
			default:
				return cellStyle
			}
		}).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}

// renderFields draws aligned "label: value" lines under a title.
func renderFields(title string, fields [][2]string) string {
	width := 0
	for _, f := range fields {
		width = max(width, len(f[0]))
	}

	var b strings.Builder
	if title != "" {
		b.WriteString(titleStyle.Render(title))
		b.WriteString("\n")
	}
	for _, f := range fields {
		b.WriteString("  ")
		b.WriteString(labelStyle.Render(f[0] + ":" + strings.Repeat(" ", width-len(f[0]))))
		b.WriteString(" ")
		b.WriteString(valueStyle.Render(f[1]))
		b.WriteString("\n")
	}
	return b.String()
}

package components

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/stockscanner-tui/internal/ui/styles"
)

// TableStyles returns table styles for the active theme.
func TableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Subtle).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Primary)
	s.Selected = s.Selected.
		Foreground(styles.TextPrimary).
		Background(styles.BgAccent).
		Bold(true)
	return s
}

// NewTable builds a focused table styled for the active theme.
func NewTable(columns []table.Column, height int) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	t.SetStyles(TableStyles())
	return t
}

// FlexColumns widens the column at flex so all columns fill width.
func FlexColumns(columns []table.Column, flex, width, minFlex, maxFlex int) []table.Column {
	fixed := 0
	for i, c := range columns {
		if i != flex {
			// Each cell carries one column of padding on either side.
			fixed += c.Width + 2
		}
	}
	out := make([]table.Column, len(columns))
	copy(out, columns)
	out[flex].Width = min(max(width-fixed-2, minFlex), maxFlex)
	return out
}

package market

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/stockscanner-tui/internal/app"
	"github.com/j-veylop/stockscanner-tui/internal/models"
	"github.com/j-veylop/stockscanner-tui/internal/ui/components"
	"github.com/j-veylop/stockscanner-tui/internal/ui/styles"
)

// View renders the market tab.
func (m *Model) View() string {
	if m.state.IsInitialLoading() && len(m.state.GetStocks()) == 0 {
		return m.renderLoading()
	}

	sections := []string{
		m.renderTitle(),
		m.renderStats(),
		m.renderSearchBar(),
		m.renderTable(),
		m.renderFooter(),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m *Model) renderLoading() string {
	return components.RenderSpinnerCentered(m.spinner, m.width, m.height)
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Market Scanner")

	updated := "not loaded yet"
	if t := m.state.GetLastUpdated(); !t.IsZero() {
		updated = "updated " + components.FormatAgo(t)
	}
	if m.state.IsLoading(app.ResourceMarket) {
		updated = m.spinner.View() + " refreshing"
	}
	subtitle := styles.HelpStyle.Render(fmt.Sprintf(
		"%d stocks · sorted by %s · %s", m.state.GetStockCount(), m.SortLabel(), updated,
	))

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

// renderStats renders the breadth line and the day's movers.
func (m *Model) renderStats() string {
	stats := m.state.GetStats()
	if stats == nil {
		return ""
	}

	breadth := strings.Join([]string{
		styles.GainStyle.Render(fmt.Sprintf("▲ %d", stats.Gainers)),
		styles.LossStyle.Render(fmt.Sprintf("▼ %d", stats.Losers)),
		styles.FlatStyle.Render(fmt.Sprintf("■ %d", stats.Unchanged)),
		"avg " + styles.GetChangeStyle(stats.AverageChange).Render(components.FormatPercent(stats.AverageChange)),
		"vol " + components.FormatCompact(float64(stats.TotalVolume)),
	}, "   ")

	lines := []string{breadth}
	if movers := renderMovers("Top", stats.TopGainers); movers != "" {
		lines = append(lines, movers)
	}
	if movers := renderMovers("Bottom", stats.TopLosers); movers != "" {
		lines = append(lines, movers)
	}
	lines = append(lines, "")

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderMovers(label string, stocks []models.Stock) string {
	if len(stocks) == 0 {
		return ""
	}
	parts := make([]string, 0, len(stocks))
	for _, s := range stocks {
		parts = append(parts, fmt.Sprintf("%s %s", s.Ticker,
			styles.GetChangeStyle(s.ChangePercent).Render(components.FormatPercent(s.ChangePercent))))
	}
	return styles.HelpStyle.Render(fmt.Sprintf("%-7s", label)) + strings.Join(parts, "  ")
}

func (m *Model) renderSearchBar() string {
	if m.searching {
		return styles.FocusedBorderStyle.Render(m.search.View())
	}
	if q := m.state.GetQuery().Search; q != "" {
		return styles.InfoTextStyle.Render(fmt.Sprintf("Filter: %q", q)) +
			styles.HelpStyle.Render("  (esc to clear)")
	}
	return styles.HelpStyle.Render("Press / to search")
}

func (m *Model) renderTable() string {
	cardWidth := max(m.width-6, 40)

	if len(m.state.GetStocks()) == 0 {
		msg := "No stocks match the current filter."
		if m.state.GetQuery().Search == "" {
			msg = "No market data available. Press r to retry."
		}
		return styles.CardStyle.Width(cardWidth).Render(
			lipgloss.JoinVertical(lipgloss.Center, "", styles.HelpStyle.Render(msg), ""),
		)
	}

	return styles.CardStyle.Width(cardWidth).Render(m.table.View())
}

func (m *Model) renderFooter() string {
	var shortcuts []string

	if m.searching {
		shortcuts = []string{
			styles.HelpKeyStyle.Render("Enter") + " apply",
			styles.HelpKeyStyle.Render("Esc") + " cancel",
		}
	} else {
		add := " add to watchlist"
		if !m.state.IsSignedIn() {
			add = " add (sign in)"
		}
		shortcuts = []string{
			styles.HelpKeyStyle.Render("/") + " search",
			styles.HelpKeyStyle.Render("s") + " sort",
			styles.HelpKeyStyle.Render("a") + add,
			styles.HelpKeyStyle.Render("r") + " refresh",
		}
	}

	return lipgloss.NewStyle().
		MarginTop(1).
		Foreground(styles.TextMuted).
		Render(strings.Join(shortcuts, styles.HelpSeparatorStyle.Render(" | ")))
}

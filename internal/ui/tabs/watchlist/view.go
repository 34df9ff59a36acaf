package watchlist

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/stockscanner-tui/internal/app"
	"github.com/j-veylop/stockscanner-tui/internal/models"
	"github.com/j-veylop/stockscanner-tui/internal/ui/components"
	"github.com/j-veylop/stockscanner-tui/internal/ui/styles"
)

// View renders the watchlist tab.
func (m *Model) View() string {
	var sections []string

	sections = append(sections, m.renderTitle())

	switch {
	case !m.state.IsSignedIn():
		sections = append(sections, m.renderSignedOut())
	case m.state.IsLoading(app.ResourceWatchlist) && len(m.ids) == 0:
		sections = append(sections, components.RenderSpinnerCentered(m.spinner, m.width, max(m.height/2, 3)))
	default:
		if m.confirmDelete {
			sections = append(sections, m.renderDeleteConfirm())
		}
		sections = append(sections, m.renderTable())
		sections = append(sections, m.renderPortfolio())
	}

	sections = append(sections, m.renderFooter())

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Watchlist")

	subtitle := styles.HelpStyle.Render("Sign in to track tickers and your portfolio")
	if m.state.IsSignedIn() {
		subtitle = styles.HelpStyle.Render(fmt.Sprintf("%d tickers watched", len(m.state.GetWatchlist())))
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) renderSignedOut() string {
	cardWidth := max(m.width-6, 40)

	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		styles.SubTitleStyle.Render("You are not signed in"),
		"",
		styles.HelpStyle.Render("Your watchlist and portfolio are only available to signed-in users."),
		"",
		styles.InfoTextStyle.Render("Press Enter or L to sign in"),
		"",
	)

	return styles.CardStyle.Width(cardWidth).Render(content)
}

func (m *Model) renderTable() string {
	cardWidth := max(m.width-6, 40)

	if len(m.ids) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Center,
			"",
			styles.SubTitleStyle.Render("Your watchlist is empty"),
			"",
			styles.InfoTextStyle.Render("Add tickers from the Market tab with 'a'"),
			"",
		)
		return styles.CardStyle.Width(cardWidth).Render(content)
	}

	return styles.CardStyle.Width(cardWidth).Render(m.table.View())
}

// renderPortfolio renders holdings and totals.
func (m *Model) renderPortfolio() string {
	p := m.state.GetPortfolio()
	if p == nil {
		return ""
	}
	cardWidth := max(m.width-6, 40)

	rows := []string{styles.CardTitleStyle.Render("Portfolio")}

	gain := p.TotalGainLoss()
	rows = append(rows, fmt.Sprintf("Value %s   Cash %s   Unrealized %s",
		styles.InfoTextStyle.Render(components.FormatMoney(p.TotalValue())),
		components.FormatMoney(p.Cash),
		styles.GetChangeStyle(gain).Render(components.FormatSignedMoney(gain)),
	))
	rows = append(rows, "")

	if len(p.Holdings) == 0 {
		rows = append(rows, styles.HelpStyle.Render("No holdings"))
	} else {
		rows = append(rows, styles.HelpStyle.Render(fmt.Sprintf("%-7s %9s %10s %12s %12s",
			"Ticker", "Shares", "Avg cost", "Value", "Gain/Loss")))
		for _, h := range p.Holdings {
			rows = append(rows, renderHolding(h))
		}
	}

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderHolding(h models.Holding) string {
	gl := h.GainLoss()
	return fmt.Sprintf("%-7s %9.2f %10.2f %12s %s",
		h.Ticker, h.Shares, h.AverageCost,
		components.FormatMoney(h.MarketValue()),
		styles.GetChangeStyle(gl).Render(fmt.Sprintf("%12s", components.FormatSignedMoney(gl))),
	)
}

// renderDeleteConfirm renders the delete confirmation dialog.
func (m *Model) renderDeleteConfirm() string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		styles.WarningTextStyle.Bold(true).Render("Remove from watchlist?"),
		"",
		styles.ErrorTextStyle.Render(m.deleteTicker),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			styles.ButtonActiveStyle.Render(" (Y)es "),
			"  ",
			styles.ButtonInactiveStyle.Render(" (N)o "),
		),
		"",
	)

	return styles.CenterHorizontal(
		styles.ModalContentStyle.Width(40).Render(content),
		m.width,
	)
}

// renderFooter renders the footer with keyboard shortcuts.
func (m *Model) renderFooter() string {
	var shortcuts []string

	switch {
	case m.confirmDelete:
		shortcuts = []string{
			styles.HelpKeyStyle.Render("Y") + " confirm",
			styles.HelpKeyStyle.Render("N") + " cancel",
		}
	case !m.state.IsSignedIn():
		shortcuts = []string{
			styles.HelpKeyStyle.Render("Enter") + " sign in",
		}
	default:
		shortcuts = []string{
			styles.HelpKeyStyle.Render("d") + " remove",
			styles.HelpKeyStyle.Render("r") + " refresh",
			styles.HelpKeyStyle.Render("L") + " sign out",
		}
	}

	return lipgloss.NewStyle().
		MarginTop(1).
		Foreground(styles.TextMuted).
		Render(strings.Join(shortcuts, styles.HelpSeparatorStyle.Render(" | ")))
}

package network

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/stockscanner-tui/internal/models"
	"github.com/j-veylop/stockscanner-tui/internal/ui/components"
	"github.com/j-veylop/stockscanner-tui/internal/ui/styles"
)

// View renders the network tab.
func (m *Model) View() string {
	if m.errorMsg != "" {
		return m.renderError()
	}
	if m.summary == nil {
		return m.renderLoading()
	}

	sections := []string{
		m.renderHeader(),
		m.renderLive(),
	}
	if m.summary.TotalRequests == 0 {
		sections = append(sections, m.renderEmpty())
	} else {
		sections = append(sections,
			m.renderLatencyChart(),
			m.renderVolume(),
		)
	}
	sections = append(sections, m.renderRecent())

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderLoading() string {
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(styles.HelpStyle.Render("Loading request log..."))
}

func (m *Model) renderError() string {
	content := fmt.Sprintf("%s %s",
		styles.ErrorTextStyle.Render("Error:"),
		m.errorMsg,
	)
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m *Model) renderEmpty() string {
	cardWidth := max(m.width-6, 40)
	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left,
		styles.HelpStyle.Render(fmt.Sprintf("No requests in the last %s.", timeRanges[m.rangeIndex])),
		styles.HelpStyle.Render("Latency appears here as the scanner talks to the API."),
	))
}

func (m *Model) renderHeader() string {
	title := styles.TitleStyle.Render("Network")

	rangeStyle := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Primary)
	rangeIndicator := rangeStyle.Render(fmt.Sprintf("[t] %s", timeRanges[m.rangeIndex]))

	header := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", rangeIndicator)

	s := m.summary
	subtitle := styles.HelpStyle.Render(fmt.Sprintf(
		"%d requests · avg %.0fms · max %dms · %d slow · %.1f%% errors",
		s.TotalRequests, s.AvgDurationMs, s.MaxDurationMs, s.SlowCount, s.ErrorRate(),
	))

	return lipgloss.JoinVertical(lipgloss.Left, header, subtitle, "")
}

// renderLive renders the current pipeline snapshot.
func (m *Model) renderLive() string {
	cardWidth := max(m.width-6, 40)
	net := m.state.GetNetwork()
	level := net.Level()

	rows := []string{styles.CardTitleStyle.Render("Live")}

	status := "-"
	if net.LastStatus > 0 {
		status = fmt.Sprintf("%d", net.LastStatus)
	}
	rows = append(rows, fmt.Sprintf("Latency %s   In flight %d   Last status %s   Last call %s",
		styles.GetLatencyStyle(level).Render(fmt.Sprintf("%dms (%s)", net.LastDurationMs, level)),
		net.InFlight,
		status,
		components.FormatAgo(net.LastAt),
	))
	if spark := components.RenderLatencySparkline(net.RecentMs, max(cardWidth-10, 10)); spark != "" {
		rows = append(rows, spark)
	}

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderLatencyChart() string {
	cardWidth := max(m.width-6, 40)

	avg := make([]float64, len(m.hourly))
	peak := make([]float64, len(m.hourly))
	for i, h := range m.hourly {
		avg[i] = h.AvgDurationMs
		peak[i] = float64(h.MaxDurationMs)
	}

	rows := []string{styles.CardTitleStyle.Render("Latency per hour"), ""}

	chart := components.RenderLatencyChart(avg, peak, max(cardWidth-14, 30), 6, "milliseconds")
	for line := range strings.SplitSeq(chart, "\n") {
		rows = append(rows, "  "+line)
	}
	rows = append(rows, "", "  "+components.RenderLegend([]components.LegendItem{
		{Label: "average", Color: styles.Success},
		{Label: "max", Color: styles.Error},
	}))

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// renderVolume renders requests per hour and the hour-of-day heatmap.
func (m *Model) renderVolume() string {
	cardWidth := max(m.width-6, 40)

	rows := []string{styles.CardTitleStyle.Render("Requests"), ""}

	// Only the most recent hours fit as bars.
	hourly := m.hourly
	if len(hourly) > 12 {
		hourly = hourly[len(hourly)-12:]
	}
	values := make([]float64, len(hourly))
	labels := make([]string, len(hourly))
	for i, h := range hourly {
		values[i] = float64(h.TotalRequests)
		labels[i] = h.Hour.Local().Format("Mon 15:00")
	}
	for line := range strings.SplitSeq(components.RenderBarChart(values, labels, max(cardWidth-12, 30)), "\n") {
		rows = append(rows, "  "+line)
	}

	rows = append(rows, "", "  "+components.RenderHourlyHeatmap(perHourOfDay(m.hourly)))

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// perHourOfDay folds hourly buckets onto the 24 hours of a day.
func perHourOfDay(hourly []models.HourlyLatency) []float64 {
	out := make([]float64, 24)
	for _, h := range hourly {
		out[h.Hour.Local().Hour()] += float64(h.TotalRequests)
	}
	return out
}

func (m *Model) renderRecent() string {
	cardWidth := max(m.width-6, 40)

	rows := []string{styles.CardTitleStyle.Render("Recent requests")}
	if len(m.recent) == 0 {
		rows = append(rows, styles.HelpStyle.Render("Nothing logged yet"))
	}

	urlWidth := max(cardWidth-38, 16)
	for i := range m.recent {
		rows = append(rows, renderRecord(&m.recent[i], urlWidth))
	}

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderRecord(r *models.RequestRecord, urlWidth int) string {
	status := fmt.Sprintf("%3d", r.StatusCode)
	if r.StatusCode == 0 {
		status = "ERR"
	}

	statusStyle := styles.SuccessTextStyle
	switch {
	case r.Failed():
		statusStyle = styles.ErrorTextStyle
	case r.Slow:
		statusStyle = styles.WarningTextStyle
	}

	url := r.URL
	if len(url) > urlWidth {
		url = url[:urlWidth-3] + "..."
	}

	duration := styles.GetLatencyStyle(components.LatencyLevel(float64(r.DurationMs))).
		Render(fmt.Sprintf("%6dms", r.DurationMs))

	return fmt.Sprintf("%s %-6s %s %s %s",
		r.Timestamp.Local().Format("15:04:05"),
		r.Method,
		statusStyle.Render(status),
		duration,
		url,
	)
}

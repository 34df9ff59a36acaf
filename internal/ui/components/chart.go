// Package components provides reusable UI components for the TUI.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/stockscanner-tui/internal/ui/styles"
)

// Latency thresholds in milliseconds, matching models.NetworkStatus.Level.
const (
	moderateLatencyMs = 300
	slowLatencyMs     = 1000
)

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RenderLineChart creates a single-series ASCII line chart.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// RenderLatencyChart plots average and maximum latency per bucket.
func RenderLatencyChart(avg, peak []float64, width, height int, caption string) string {
	if len(avg) == 0 && len(peak) == 0 {
		return styles.HelpStyle.Render("No requests recorded yet")
	}

	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	// Pad the shorter series with zeros
	n := max(len(avg), len(peak))
	avgData := make([]float64, n)
	peakData := make([]float64, n)
	copy(avgData, avg)
	copy(peakData, peak)

	return asciigraph.PlotMany([][]float64{avgData, peakData},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.LowerBound(0),
		asciigraph.SeriesColors(
			asciigraph.Green,
			asciigraph.Red,
		),
	)
}

// RenderBarChart creates a simple horizontal bar chart.
func RenderBarChart(values []float64, labels []string, width int) string {
	if len(values) == 0 {
		return ""
	}

	maxVal := 0.0
	for _, v := range values {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	maxLabelLen := 0
	for _, l := range labels {
		if len(l) > maxLabelLen {
			maxLabelLen = len(l)
		}
	}

	barWidth := width - maxLabelLen - 10 // Leave room for label and value
	if barWidth < 10 {
		barWidth = 10
	}

	var lines []string
	for i, v := range values {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}

		barLen := int((v / maxVal) * float64(barWidth))
		if barLen < 0 {
			barLen = 0
		}

		line := fmt.Sprintf("%*s │%s %.0f", maxLabelLen, label, strings.Repeat("█", barLen), v)
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

// HeatmapBlocks are Unicode block characters for heatmaps (low to high intensity).
var HeatmapBlocks = []rune{'░', '▒', '▓', '█'}

// RenderHourlyHeatmap creates a 24-hour heatmap, one cell per hour of day.
func RenderHourlyHeatmap(perHour []float64) string {
	if len(perHour) != 24 {
		padded := make([]float64, 24)
		copy(padded, perHour)
		perHour = padded
	}

	maxVal := 0.0
	for _, v := range perHour {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	var result strings.Builder
	result.WriteString("00 ")

	for i, v := range perHour {
		intensity := int((v / maxVal) * float64(len(HeatmapBlocks)-1))
		intensity = min(max(intensity, 0), len(HeatmapBlocks)-1)

		var color lipgloss.Color
		switch intensity {
		case 0:
			color = styles.Subtle
		case 1:
			color = styles.Success
		case 2:
			color = styles.Warning
		default:
			color = styles.Error
		}

		result.WriteString(lipgloss.NewStyle().Foreground(color).Render(string(HeatmapBlocks[intensity])))

		// Gap at noon
		if i == 11 {
			result.WriteString(" ")
		}
	}

	result.WriteString(" 23")
	return result.String()
}

// sample picks at most width values spread evenly over values.
func sample(values []float64, width int) []float64 {
	if width <= 0 {
		return nil
	}
	step := float64(len(values)) / float64(width)
	if step < 1 {
		step = 1
	}
	var out []float64
	for i := 0; i < width && int(float64(i)*step) < len(values); i++ {
		out = append(out, values[int(float64(i)*step)])
	}
	return out
}

func sparkIndex(val, maxVal float64) int {
	if maxVal <= 0 {
		return 0
	}
	idx := int((val / maxVal) * float64(len(sparkChars)-1))
	return min(max(idx, 0), len(sparkChars)-1)
}

// RenderSparkline creates a compact inline sparkline chart.
func RenderSparkline(values []float64, width int) string {
	if len(values) == 0 {
		return ""
	}

	points := sample(values, width)
	maxVal := 0.0
	for _, v := range points {
		maxVal = max(maxVal, v)
	}

	var result strings.Builder
	for _, v := range points {
		result.WriteRune(sparkChars[sparkIndex(v, maxVal)])
	}
	return result.String()
}

// LatencyLevel classifies a latency sample in milliseconds.
func LatencyLevel(ms float64) string {
	switch {
	case ms > slowLatencyMs:
		return "slow"
	case ms > moderateLatencyMs:
		return "moderate"
	default:
		return "fast"
	}
}

// RenderLatencySparkline renders latency samples with each bar colored by
// its absolute latency level.
func RenderLatencySparkline(values []float64, width int) string {
	if len(values) == 0 {
		return ""
	}

	points := sample(values, width)
	maxVal := 0.0
	for _, v := range points {
		maxVal = max(maxVal, v)
	}

	var result strings.Builder
	for _, v := range points {
		style := styles.GetLatencyStyle(LatencyLevel(v))
		result.WriteString(style.Render(string(sparkChars[sparkIndex(v, maxVal)])))
	}
	return result.String()
}

// RenderLegend creates a chart legend.
func RenderLegend(items []LegendItem) string {
	var parts []string
	for _, item := range items {
		colorBox := lipgloss.NewStyle().Foreground(item.Color).Render("■")
		parts = append(parts, fmt.Sprintf("%s %s", colorBox, item.Label))
	}
	return strings.Join(parts, "  ")
}

// LegendItem represents a single legend entry.
type LegendItem struct {
	Label string
	Color lipgloss.Color
}

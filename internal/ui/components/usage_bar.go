package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/stockscanner-tui/internal/logger"
	"github.com/j-veylop/stockscanner-tui/internal/ui/styles"
)

// AnimationTickMsg advances a UsageBar animation.
type AnimationTickMsg time.Time

func animationTick() tea.Cmd {
	return tea.Tick(time.Millisecond*50, func(t time.Time) tea.Msg {
		return AnimationTickMsg(t)
	})
}

// UsageBar renders how much of a budget (requests in the rate-limit window,
// session idle time) has been used. The bar eases toward its target.
type UsageBar struct {
	progress       progress.Model
	label          string
	targetPercent  float64
	currentPercent float64
	isAnimating    bool
}

// NewUsageBar creates a usage bar that runs green to red as it fills.
func NewUsageBar(width int) UsageBar {
	if width <= 0 {
		width = 30
	}
	p := progress.New(
		progress.WithScaledGradient("#51cf66", "#ff6b6b"),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	return UsageBar{progress: p}
}

// Init initializes the progress bar model.
func (u UsageBar) Init() tea.Cmd {
	return nil
}

// Update handles animation messages.
func (u UsageBar) Update(msg tea.Msg) (UsageBar, tea.Cmd) {
	var cmds []tea.Cmd

	if _, ok := msg.(AnimationTickMsg); ok && u.isAnimating {
		diff := u.targetPercent - u.currentPercent
		switch {
		case diff == 0:
			u.isAnimating = false
		case diff > 0:
			u.currentPercent = min(u.currentPercent+max(diff/10, 0.5), u.targetPercent)
			cmds = append(cmds, animationTick())
		default:
			u.currentPercent = max(u.currentPercent+min(diff/10, -0.5), u.targetPercent)
			cmds = append(cmds, animationTick())
		}
	}

	model, cmd := u.progress.Update(msg)
	u.progress = model.(progress.Model)
	cmds = append(cmds, cmd)

	return u, tea.Batch(cmds...)
}

// SetPercent sets the target percentage and starts the animation.
func (u *UsageBar) SetPercent(percent float64) tea.Cmd {
	percent = min(max(percent, 0), 100)
	u.targetPercent = percent

	if !u.isAnimating && u.currentPercent != percent {
		u.isAnimating = true
		return tea.Batch(u.progress.SetPercent(percent/100), animationTick())
	}
	return u.progress.SetPercent(percent / 100)
}

// Percent returns the target percentage.
func (u UsageBar) Percent() float64 {
	return u.targetPercent
}

// Displayed returns the percentage currently drawn.
func (u UsageBar) Displayed() float64 {
	return u.currentPercent
}

// SetLabel sets the bar label.
func (u *UsageBar) SetLabel(label string) {
	u.label = label
}

// View renders the bar with its label and the used/total figure.
func (u UsageBar) View(used, total int, width int) string {
	barWidth := max(width-30, 10)
	u.progress.Width = barWidth

	percent := 0.0
	if total > 0 {
		percent = float64(used) / float64(total) * 100
	}

	labelStr := lipgloss.NewStyle().Foreground(styles.TextSecondary).Width(15).Render(u.label)
	countStr := usageStyle(percent).Width(10).Align(lipgloss.Right).Render(fmt.Sprintf("%d/%d", used, total))

	return lipgloss.JoinHorizontal(lipgloss.Center,
		labelStr,
		u.progress.ViewAs(u.currentPercent/100),
		" ",
		countStr,
	)
}

// ViewExhausted renders the bar for a spent budget with a reset countdown.
func (u UsageBar) ViewExhausted(resetIn time.Duration, width int) string {
	barWidth := max(width-30, 10)

	labelStr := lipgloss.NewStyle().Foreground(styles.TextSecondary).Width(15).Render(u.label)
	emptyBar := lipgloss.NewStyle().Foreground(styles.Error).Render(strings.Repeat("░", barWidth))
	statusStr := styles.LatencySlow.Width(14).Align(lipgloss.Right).
		Render(fmt.Sprintf("LIMITED %ds", int(resetIn.Round(time.Second).Seconds())))

	return lipgloss.JoinHorizontal(lipgloss.Center, labelStr, emptyBar, " ", statusStr)
}

func usageStyle(percent float64) lipgloss.Style {
	switch {
	case percent >= 90:
		return styles.LatencySlow
	case percent >= 60:
		return styles.LatencyMedium
	default:
		return styles.LatencyFast
	}
}

// RenderGradientBar renders just the bar part with gradient colors.
func RenderGradientBar(percent float64, width int, fromHex, toHex string) string {
	if width < 1 {
		return ""
	}

	filled := min(max(int(float64(width)*percent/100), 0), width)

	var b strings.Builder
	for i := range width {
		if i < filled {
			t := float64(i) / float64(max(1, width-1))
			color := interpolateColor(fromHex, toHex, t)
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("█"))
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Subtle).Render("░"))
		}
	}
	return b.String()
}

// SimpleUsageBar renders a static bar with label and percentage.
func SimpleUsageBar(percent float64, label string, width int) string {
	const percentWidth = 6
	barWidth := max(width-len(label)-1-percentWidth-4, 5)

	bar := RenderGradientBar(percent, barWidth, "#51cf66", "#ff6b6b")
	labelStr := lipgloss.NewStyle().Foreground(styles.TextSecondary).Render(label)
	percentStr := usageStyle(percent).
		Width(percentWidth).
		Align(lipgloss.Right).
		Render(fmt.Sprintf("%.0f%%", percent))

	return fmt.Sprintf("%s [%s] %s", labelStr, bar, percentStr)
}

// RenderCountdownBar shows the share of period still remaining, e.g. the
// session idle window.
func RenderCountdownBar(remaining, period time.Duration, label string, width int) string {
	percent := 0.0
	if period > 0 {
		percent = min(max(float64(remaining)/float64(period)*100, 0), 100)
	}

	const timeWidth = 8
	barWidth := max(width-len(label)-1-timeWidth-4, 10)
	bar := RenderGradientBar(percent, barWidth, "#ffd93d", "#6c5ce7")

	minutes := int(remaining / time.Minute)
	seconds := int(remaining%time.Minute) / int(time.Second)
	timeStr := lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Width(timeWidth).
		Align(lipgloss.Right).
		Render(fmt.Sprintf("%dm %02ds", minutes, seconds))

	labelStr := lipgloss.NewStyle().Foreground(styles.TextSecondary).Render(label)
	return fmt.Sprintf("%s [%s] %s", labelStr, bar, timeStr)
}

// RenderLoadingBar renders a shimmer that sweeps back and forth while data loads.
func RenderLoadingBar(width, frame int) string {
	barWidth := max(width, 10)

	const cycle = 120
	t := float64(frame%cycle) / float64(cycle)
	p := t * 2
	if t >= 0.5 {
		p = (1 - t) * 2
	}
	eased := p * p * (3 - 2*p)
	shimmerPos := int(eased * float64(barWidth))

	var b strings.Builder
	for i := range barWidth {
		dist := shimmerPos - i
		if dist < 0 {
			dist = -dist
		}
		switch {
		case dist < 3:
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Primary).Render("▓"))
		case dist < 5:
			b.WriteString(lipgloss.NewStyle().Foreground(styles.TextSecondary).Render("▒"))
		default:
			b.WriteString(lipgloss.NewStyle().Foreground(styles.BgLight).Render("░"))
		}
	}
	return b.String()
}

func interpolateColor(fromHex, toHex string, t float64) string {
	from := hexToRGB(fromHex)
	to := hexToRGB(toHex)

	r := int(float64(from[0]) + t*(float64(to[0])-float64(from[0])))
	g := int(float64(from[1]) + t*(float64(to[1])-float64(from[1])))
	b := int(float64(from[2]) + t*(float64(to[2])-float64(from[2])))

	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hexToRGB(hex string) [3]int {
	hex = strings.TrimPrefix(hex, "#")
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		logger.Error("failed to parse hex color", "hex", hex, "error", err)
		return [3]int{0, 0, 0}
	}
	return [3]int{r, g, b}
}

// Package styles defines the visual styling for the application.
package styles

import "github.com/charmbracelet/lipgloss"

// Theme names persisted under the "theme" storage key.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Palette holds the colors a theme is built from.
type Palette struct {
	Primary       lipgloss.Color
	Secondary     lipgloss.Color
	Subtle        lipgloss.Color
	Success       lipgloss.Color
	Error         lipgloss.Color
	Warning       lipgloss.Color
	Info          lipgloss.Color
	BgDark        lipgloss.Color
	BgLight       lipgloss.Color
	BgAccent      lipgloss.Color
	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	TextMuted     lipgloss.Color
	Highlight     lipgloss.Color
}

var darkPalette = Palette{
	Primary:       lipgloss.Color("36"),  // Teal
	Secondary:     lipgloss.Color("63"),  // Purple
	Subtle:        lipgloss.Color("240"), // Gray
	Success:       lipgloss.Color("42"),  // Green
	Error:         lipgloss.Color("196"), // Red
	Warning:       lipgloss.Color("220"), // Yellow
	Info:          lipgloss.Color("39"),  // Blue
	BgDark:        lipgloss.Color("235"),
	BgLight:       lipgloss.Color("237"),
	BgAccent:      lipgloss.Color("236"),
	TextPrimary:   lipgloss.Color("252"),
	TextSecondary: lipgloss.Color("245"),
	TextMuted:     lipgloss.Color("240"),
	Highlight:     lipgloss.Color("229"),
}

var lightPalette = Palette{
	Primary:       lipgloss.Color("30"),
	Secondary:     lipgloss.Color("57"),
	Subtle:        lipgloss.Color("248"),
	Success:       lipgloss.Color("28"),
	Error:         lipgloss.Color("160"),
	Warning:       lipgloss.Color("136"),
	Info:          lipgloss.Color("25"),
	BgDark:        lipgloss.Color("255"),
	BgLight:       lipgloss.Color("253"),
	BgAccent:      lipgloss.Color("254"),
	TextPrimary:   lipgloss.Color("235"),
	TextSecondary: lipgloss.Color("240"),
	TextMuted:     lipgloss.Color("246"),
	Highlight:     lipgloss.Color("255"),
}

// Colors of the active theme.
var (
	Primary       lipgloss.Color
	Secondary     lipgloss.Color
	Subtle        lipgloss.Color
	Success       lipgloss.Color
	Error         lipgloss.Color
	Warning       lipgloss.Color
	Info          lipgloss.Color
	BgDark        lipgloss.Color
	BgLight       lipgloss.Color
	BgAccent      lipgloss.Color
	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	TextMuted     lipgloss.Color
)

// Styles of the active theme. They are rebuilt by Apply.
var (
	ToastStyle         lipgloss.Style
	TitleStyle         lipgloss.Style
	SubTitleStyle      lipgloss.Style
	DocStyle           lipgloss.Style
	ActiveTabStyle     lipgloss.Style
	InactiveTabStyle   lipgloss.Style
	TabNumberStyle     lipgloss.Style
	CardStyle          lipgloss.Style
	CardTitleStyle     lipgloss.Style
	FocusedStyle       lipgloss.Style
	BlurredStyle       lipgloss.Style
	FocusedBorderStyle lipgloss.Style
	BlurredBorderStyle lipgloss.Style

	NotificationSuccessStyle lipgloss.Style
	NotificationErrorStyle   lipgloss.Style
	NotificationWarningStyle lipgloss.Style
	NotificationInfoStyle    lipgloss.Style

	HelpStyle          lipgloss.Style
	HelpKeyStyle       lipgloss.Style
	HelpDescStyle      lipgloss.Style
	HelpSeparatorStyle lipgloss.Style
	HelpPanelStyle     lipgloss.Style

	TableHeaderStyle   lipgloss.Style
	TableSelectedStyle lipgloss.Style

	GainStyle      lipgloss.Style
	LossStyle      lipgloss.Style
	FlatStyle      lipgloss.Style
	LatencyFast    lipgloss.Style
	LatencyMedium  lipgloss.Style
	LatencySlow    lipgloss.Style
	LatencyIdle    lipgloss.Style
	PremiumStyle   lipgloss.Style
	AnonymousStyle lipgloss.Style

	ErrorTextStyle   lipgloss.Style
	SuccessTextStyle lipgloss.Style
	WarningTextStyle lipgloss.Style
	InfoTextStyle    lipgloss.Style

	ModalContentStyle   lipgloss.Style
	InputLabelStyle     lipgloss.Style
	ButtonActiveStyle   lipgloss.Style
	ButtonInactiveStyle lipgloss.Style
)

var current = ThemeDark

func init() {
	Apply(ThemeDark)
}

// Current returns the name of the active theme.
func Current() string {
	return current
}

// Next returns the theme that follows name in the toggle order.
func Next(name string) string {
	if name == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// PaletteFor returns the palette for a theme name. Unknown names get the dark palette.
func PaletteFor(name string) Palette {
	if name == ThemeLight {
		return lightPalette
	}
	return darkPalette
}

// Apply switches every package color and style to the named theme and
// returns the name actually applied. It must only be called from the UI goroutine.
func Apply(name string) string {
	if name != ThemeLight {
		name = ThemeDark
	}
	current = name
	p := PaletteFor(name)

	Primary, Secondary, Subtle = p.Primary, p.Secondary, p.Subtle
	Success, Error, Warning, Info = p.Success, p.Error, p.Warning, p.Info
	BgDark, BgLight, BgAccent = p.BgDark, p.BgLight, p.BgAccent
	TextPrimary, TextSecondary, TextMuted = p.TextPrimary, p.TextSecondary, p.TextMuted

	ToastStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Primary).
		Padding(0, 1).
		MarginBottom(1)

	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	SubTitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Secondary).
		MarginBottom(1)

	DocStyle = lipgloss.NewStyle().
		Margin(1, 2).
		Padding(0, 1)

	ActiveTabStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Highlight).
		Background(Primary).
		Padding(0, 2).
		MarginRight(1)

	InactiveTabStyle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(BgLight).
		Padding(0, 2).
		MarginRight(1)

	TabNumberStyle = lipgloss.NewStyle().
		Foreground(Subtle)

	CardStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Subtle).
		Padding(1, 2).
		MarginBottom(1)

	CardTitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	FocusedStyle = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)

	BlurredStyle = lipgloss.NewStyle().
		Foreground(TextMuted)

	FocusedBorderStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Primary).
		Padding(0, 1)

	BlurredBorderStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Subtle).
		Padding(0, 1)

	notification := lipgloss.NewStyle().
		Padding(0, 2).
		MarginBottom(1).
		Border(lipgloss.RoundedBorder())
	NotificationSuccessStyle = notification.BorderForeground(Success).Foreground(Success)
	NotificationErrorStyle = notification.BorderForeground(Error).Foreground(Error)
	NotificationWarningStyle = notification.BorderForeground(Warning).Foreground(Warning)
	NotificationInfoStyle = notification.BorderForeground(Info).Foreground(Info)

	HelpStyle = lipgloss.NewStyle().Foreground(TextMuted)
	HelpKeyStyle = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	HelpDescStyle = lipgloss.NewStyle().Foreground(TextSecondary)
	HelpSeparatorStyle = lipgloss.NewStyle().Foreground(Subtle)
	HelpPanelStyle = lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Primary).
		Padding(1, 3).
		Background(BgDark)

	TableHeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Subtle)

	TableSelectedStyle = lipgloss.NewStyle().
		Background(BgAccent).
		Foreground(TextPrimary).
		Bold(true)

	GainStyle = lipgloss.NewStyle().Foreground(Success)
	LossStyle = lipgloss.NewStyle().Foreground(Error)
	FlatStyle = lipgloss.NewStyle().Foreground(TextSecondary)

	LatencyFast = lipgloss.NewStyle().Foreground(Success)
	LatencyMedium = lipgloss.NewStyle().Foreground(Warning)
	LatencySlow = lipgloss.NewStyle().Foreground(Error).Bold(true)
	LatencyIdle = lipgloss.NewStyle().Foreground(Subtle)

	PremiumStyle = lipgloss.NewStyle().Foreground(Warning).Bold(true)
	AnonymousStyle = lipgloss.NewStyle().Foreground(Subtle).Italic(true)

	ErrorTextStyle = lipgloss.NewStyle().Foreground(Error)
	SuccessTextStyle = lipgloss.NewStyle().Foreground(Success)
	WarningTextStyle = lipgloss.NewStyle().Foreground(Warning)
	InfoTextStyle = lipgloss.NewStyle().Foreground(Info)

	ModalContentStyle = lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Primary).
		Padding(1, 2).
		Background(BgDark)

	InputLabelStyle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Width(10)

	button := lipgloss.NewStyle().
		Padding(0, 2).
		MarginRight(1)
	ButtonActiveStyle = button.
		Background(Primary).
		Foreground(p.Highlight).
		Bold(true)
	ButtonInactiveStyle = button.
		Background(BgLight).
		Foreground(TextSecondary)

	return name
}

// GetChangeStyle returns the style for a daily price change.
func GetChangeStyle(changePercent float64) lipgloss.Style {
	switch {
	case changePercent > 0:
		return GainStyle
	case changePercent < 0:
		return LossStyle
	default:
		return FlatStyle
	}
}

// GetLatencyStyle returns the style for a latency level as reported by
// models.NetworkStatus.Level.
func GetLatencyStyle(level string) lipgloss.Style {
	switch level {
	case "fast":
		return LatencyFast
	case "moderate":
		return LatencyMedium
	case "slow":
		return LatencySlow
	default:
		return LatencyIdle
	}
}

// CenterHorizontal centers content horizontally within a given width.
func CenterHorizontal(content string, width int) string {
	return lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Render(content)
}

// CenterBoth centers content both horizontally and vertically.
func CenterBoth(content string, width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center).
		AlignVertical(lipgloss.Center).
		Render(content)
}

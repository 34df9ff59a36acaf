package info

import (
	"fmt"
	"runtime"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/stockscanner-tui/internal/auth"
	"github.com/j-veylop/stockscanner-tui/internal/ui/components"
	"github.com/j-veylop/stockscanner-tui/internal/ui/styles"
	"github.com/j-veylop/stockscanner-tui/internal/version"
)

const labelWidth = 20

// View renders the info tab.
func (m *Model) View() string {
	sections := []string{
		m.renderTitle(),
		m.renderSessionCard(),
		m.renderPipelineCard(),
	}
	if m.profile != nil || m.profileErr != "" {
		sections = append(sections, m.renderProfileCard())
	}
	sections = append(sections,
		m.renderConfigCard(),
		m.renderAboutCard(),
	)

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 90)
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Session, request pipeline and configuration")
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

// renderSessionCard renders the auth state and the idle window.
func (m *Model) renderSessionCard() string {
	rows := []string{styles.CardTitleStyle.Render("Session"), ""}

	authState := m.state.GetAuthState()
	stateStyle := styles.HelpStyle
	switch authState {
	case auth.Authenticated:
		stateStyle = styles.SuccessTextStyle
	case auth.Expired:
		stateStyle = styles.WarningTextStyle
	}
	rows = append(rows, renderRow("State", stateStyle.Render(authState.String())))

	user := m.state.GetUser()
	if user == nil {
		rows = append(rows, renderRow("User", styles.HelpStyle.Render("signed out")))
		rows = append(rows, "", styles.HelpStyle.Render("Press L to sign in"))
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	name := user.DisplayName()
	if user.IsPremium {
		name += " " + styles.WarningTextStyle.Render("★ premium")
	}
	rows = append(rows, renderRow("User", name))

	if m.services != nil {
		client := m.services.Client()
		sess := client.Session()
		if cur := sess.Current(); cur != nil {
			rows = append(rows, renderRow("Signed in", fmt.Sprintf("%s (%s)",
				cur.StartedAt.Local().Format("15:04:05"), components.FormatAgo(cur.StartedAt))))
			rows = append(rows, renderRow("Last activity", components.FormatAgo(cur.LastActivityAt)))
		}
		if exp, ok := client.TokenExpiry(); ok {
			rows = append(rows, renderRow("Token expires", fmt.Sprintf("%s (in %s)",
				exp.Local().Format("2006-01-02 15:04"), components.FormatDuration(time.Until(exp)))))
		}
		rows = append(rows, renderRow("Token refreshes", fmt.Sprintf("%d", client.Coordinator().RefreshCalls())))
		rows = append(rows, "", components.RenderCountdownBar(sess.Remaining(), sess.IdleTimeout(), "Idle timeout", m.cardWidth()-4))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// renderPipelineCard renders the rate limiter, queue and last health check.
func (m *Model) renderPipelineCard() string {
	rows := []string{styles.CardTitleStyle.Render("Request pipeline"), ""}

	if m.services == nil {
		rows = append(rows, styles.HelpStyle.Render("Services not initialized"))
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	client := m.services.Client()
	limiter := client.Limiter()
	if limiter.CanMakeRequest() {
		used := limiter.Limit() - limiter.Remaining()
		rows = append(rows, m.usage.View(used, limiter.Limit(), m.cardWidth()-4))
	} else {
		rows = append(rows, m.usage.ViewExhausted(time.Until(limiter.ResetTime()), m.cardWidth()-4))
	}

	q := client.Queue()
	rows = append(rows, "")
	rows = append(rows, renderRow("Queue", fmt.Sprintf("%d pending · concurrency %d", q.Pending(), q.Concurrency())))

	net := m.state.GetNetwork()
	rows = append(rows, renderRow("Last latency", styles.GetLatencyStyle(net.Level()).
		Render(fmt.Sprintf("%dms", net.LastDurationMs))))

	switch {
	case m.healthErr != "":
		rows = append(rows, renderRow("Health", styles.ErrorTextStyle.Render(m.healthErr)))
	case m.health != nil:
		status := m.health.Status
		if m.health.Version != "" {
			status += " · server " + m.health.Version
		}
		rows = append(rows, renderRow("Health", fmt.Sprintf("%s · %dms · %s",
			styles.SuccessTextStyle.Render(status), m.healthTook.Milliseconds(), components.FormatAgo(m.checkedAt))))
	default:
		rows = append(rows, renderRow("Health", styles.HelpStyle.Render("press h to check")))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderProfileCard() string {
	rows := []string{styles.CardTitleStyle.Render("Profile"), ""}

	if m.profileErr != "" {
		rows = append(rows, styles.ErrorTextStyle.Render(m.profileErr))
	}
	if u := m.profile; u != nil {
		rows = append(rows, renderRow("Username", u.Username))
		rows = append(rows, renderRow("Email", u.Email))
		if u.MembershipLevel != "" {
			rows = append(rows, renderRow("Membership", u.MembershipLevel))
		}
		if !u.DateJoined.IsZero() {
			rows = append(rows, renderRow("Joined", u.DateJoined.Local().Format("2006-01-02")))
		}
	}
	if r := m.revenue; r != nil {
		rows = append(rows, "", styles.CardTitleStyle.Render("Revenue "+r.Period))
		rows = append(rows, renderRow("Total", components.FormatMoney(r.TotalRevenue)+" "+r.Currency))
		rows = append(rows, renderRow("Members", fmt.Sprintf("%d active · +%d new · -%d churned",
			r.ActiveMembers, r.NewMembers, r.ChurnedMembers)))
		rows = append(rows, renderRow("Avg order", components.FormatMoney(r.AverageOrderSize)))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderConfigCard() string {
	rows := []string{styles.CardTitleStyle.Render("Configuration"), ""}

	if m.services == nil || m.services.Config() == nil {
		rows = append(rows, styles.HelpStyle.Render("Configuration not loaded"))
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	cfg := m.services.Config()
	rows = append(rows,
		renderRow("API", cfg.APIBaseURL),
		renderRow("Environment", cfg.Environment),
		renderRow("Storage", cfg.StorageBackend),
		renderRow("Database", cfg.DatabasePath),
		renderRow("Credentials", cfg.CredentialsPath),
		renderRow("Rate limit", fmt.Sprintf("%d per %s", cfg.RateLimitMax, cfg.RateLimitWindow)),
		renderRow("Queue", fmt.Sprintf("%d concurrent", cfg.QueueConcurrency)),
		renderRow("Idle timeout", cfg.SessionIdleTimeout.String()),
		renderRow("Token refresh", fmt.Sprintf("%s before expiry", cfg.TokenRefreshThreshold)),
		renderRow("Retries", fmt.Sprintf("%d attempts from %s", cfg.RetryMaxAttempts, cfg.RetryBaseDelay)),
		renderRow("Request timeout", cfg.RequestTimeout.String()),
	)

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderAboutCard() string {
	rows := []string{
		styles.CardTitleStyle.Render("About"),
		"",
		renderRow("Version", version.ClientVersion()),
		renderRow("Commit", version.Commit),
		renderRow("Built", version.Date),
		renderRow("User agent", version.UserAgent()),
		renderRow("Go", runtime.Version()),
		renderRow("Platform", runtime.GOOS+"/"+runtime.GOARCH),
		"",
		styles.HelpStyle.Render("Stock Scanner TUI: market data, watchlist and request metrics"),
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderRow(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Width(labelWidth)
	return lipgloss.JoinHorizontal(lipgloss.Left, labelStyle.Render(label+":"), value)
}

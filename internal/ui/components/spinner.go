package components

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/stockscanner-tui/internal/ui/styles"
)

// SlowLoadAfter is how long a load runs before the spinner shows the wait.
const SlowLoadAfter = 2 * time.Second

// LoadingSpinner is shown while a tab waits on the API. It remembers when
// the current load began so a slow response shows its elapsed time.
type LoadingSpinner struct {
	spinner spinner.Model
	started time.Time
	now     func() time.Time
	label   string
}

// NewSpinner creates a new loading spinner with the given label.
func NewSpinner(label string) LoadingSpinner {
	s := spinner.New()
	s.Spinner = spinner.Dot

	return LoadingSpinner{
		spinner: s,
		label:   label,
		now:     time.Now,
	}
}

// Init starts the spinner animation.
func (l LoadingSpinner) Init() tea.Cmd {
	return l.spinner.Tick
}

// Update handles spinner tick messages.
func (l LoadingSpinner) Update(msg tea.Msg) (LoadingSpinner, tea.Cmd) {
	var cmd tea.Cmd
	l.spinner, cmd = l.spinner.Update(msg)
	return l, cmd
}

// Track records whether a load is in flight. The wait clock starts on the
// first call with loading set and stops when it is cleared.
func (l *LoadingSpinner) Track(loading bool) {
	switch {
	case !loading:
		l.started = time.Time{}
	case l.started.IsZero():
		l.started = l.now()
	}
}

// Waited returns how long the current load has been running.
func (l LoadingSpinner) Waited() time.Duration {
	if l.started.IsZero() {
		return 0
	}
	return l.now().Sub(l.started)
}

// View renders the spinner frame in the current theme.
func (l LoadingSpinner) View() string {
	return lipgloss.NewStyle().Foreground(styles.Primary).Render(l.spinner.View())
}

// ViewWithLabel renders the spinner with its label, plus the wait once the
// load is slow.
func (l LoadingSpinner) ViewWithLabel() string {
	label := l.label
	if waited := l.Waited(); waited >= SlowLoadAfter {
		label += " " + FormatDuration(waited)
	}
	return l.View() + " " + lipgloss.NewStyle().Foreground(styles.TextSecondary).Render(label)
}

// Label returns the current label.
func (l LoadingSpinner) Label() string {
	return l.label
}

// RenderSpinnerCentered renders a spinner centered in a given width and height.
func RenderSpinnerCentered(s LoadingSpinner, width, height int) string {
	return styles.CenterBoth(s.ViewWithLabel(), width, height)
}

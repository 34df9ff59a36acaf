package components

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func TestNewSpinner(t *testing.T) {
	s := NewSpinner("Loading")
	if s.label != "Loading" {
		t.Error("Spinner label mismatch")
	}
}

func TestSpinner_Methods(t *testing.T) {
	s := NewSpinner("Loading")

	if s.Label() != "Loading" {
		t.Errorf("Label = %s, want Loading", s.Label())
	}
	if s.View() == "" {
		t.Error("View returned empty")
	}
	if !strings.Contains(s.ViewWithLabel(), "Loading") {
		t.Error("ViewWithLabel missing label")
	}
	if s.Init() == nil {
		t.Error("Init should return command")
	}
	if _, cmd := s.Update(spinner.TickMsg{}); cmd == nil {
		t.Error("Update should return command for tick")
	}
}

func TestSpinner_Track(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	s := NewSpinner("Loading market data...")
	s.now = func() time.Time { return now }

	tests := []struct {
		name     string
		advance  time.Duration
		loading  bool
		want     time.Duration
		showWait bool
	}{
		{name: "Idle", loading: false, want: 0},
		{name: "Started", loading: true, want: 0},
		{name: "StillFast", advance: time.Second, loading: true, want: time.Second},
		{name: "Slow", advance: 11 * time.Second, loading: true, want: 12 * time.Second, showWait: true},
		{name: "Finished", advance: time.Second, loading: false, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now = now.Add(tt.advance)
			s.Track(tt.loading)
			if got := s.Waited(); got != tt.want {
				t.Errorf("Waited() = %v, want %v", got, tt.want)
			}
			if got := strings.Contains(s.ViewWithLabel(), "12s"); got != tt.showWait {
				t.Errorf("ViewWithLabel() shows wait = %v, want %v", got, tt.showWait)
			}
		})
	}
}

func TestRenderSpinnerCentered(t *testing.T) {
	s := NewSpinner("Loading...")
	if RenderSpinnerCentered(s, 20, 5) == "" {
		t.Error("RenderSpinnerCentered returned empty")
	}
}

func TestRenderLineChart(t *testing.T) {
	if RenderLineChart([]float64{1, 2, 3, 4}, 20, 5, "Test") == "" {
		t.Error("RenderLineChart returned empty")
	}
	if !strings.Contains(RenderLineChart(nil, 20, 5, ""), "No data") {
		t.Error("empty chart should say there is no data")
	}
}

func TestRenderLatencyChart(t *testing.T) {
	s := RenderLatencyChart([]float64{120, 80, 95}, []float64{300, 410}, 30, 5, "latency (ms)")
	if !strings.Contains(s, "latency (ms)") {
		t.Errorf("chart missing caption: %q", s)
	}
	if !strings.Contains(RenderLatencyChart(nil, nil, 30, 5, ""), "No requests") {
		t.Error("empty latency chart should say no requests")
	}
}

func TestRenderBarChart(t *testing.T) {
	s := RenderBarChart([]float64{10, 20}, []string{"09:00", "10:00"}, 40)
	lines := strings.Split(s, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if strings.Count(lines[1], "█") <= strings.Count(lines[0], "█") {
		t.Error("larger value should draw a longer bar")
	}
	if RenderBarChart(nil, nil, 40) != "" {
		t.Error("empty bar chart should render nothing")
	}
}

func TestRenderHourlyHeatmap(t *testing.T) {
	s := RenderHourlyHeatmap([]float64{1, 5, 9})
	if !strings.HasPrefix(s, "00 ") || !strings.HasSuffix(s, " 23") {
		t.Errorf("heatmap = %q, want hour labels on both ends", s)
	}
}

func TestRenderSparkline(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		width  int
		want   string
	}{
		{"Rising", []float64{0, 7}, 10, "▁█"},
		{"Flat", []float64{0, 0, 0}, 10, "▁▁▁"},
		{"Sampled", []float64{1, 1, 1, 1, 1, 1, 1, 1}, 4, "████"},
		{"Empty", nil, 10, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderSparkline(tt.values, tt.width); got != tt.want {
				t.Errorf("RenderSparkline() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLatencyLevel(t *testing.T) {
	tests := []struct {
		ms   float64
		want string
	}{
		{50, "fast"},
		{300, "fast"},
		{301, "moderate"},
		{1000, "moderate"},
		{1500, "slow"},
	}
	for _, tt := range tests {
		if got := LatencyLevel(tt.ms); got != tt.want {
			t.Errorf("LatencyLevel(%v) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestRenderLatencySparkline(t *testing.T) {
	if RenderLatencySparkline([]float64{100, 400, 1200}, 10) == "" {
		t.Error("RenderLatencySparkline returned empty")
	}
	if RenderLatencySparkline(nil, 10) != "" {
		t.Error("no samples should render nothing")
	}
}

func TestRenderLegend(t *testing.T) {
	s := RenderLegend([]LegendItem{
		{Label: "avg", Color: lipgloss.Color("#ffffff")},
		{Label: "max", Color: lipgloss.Color("#ff0000")},
	})
	if !strings.Contains(s, "avg") || !strings.Contains(s, "max") {
		t.Errorf("legend = %q", s)
	}
}

func TestUsageBar(t *testing.T) {
	bar := NewUsageBar(20)
	if bar.Init() != nil {
		t.Error("Init should return nil")
	}

	if cmd := bar.SetPercent(150); cmd == nil {
		t.Error("SetPercent should start the animation")
	}
	if bar.Percent() != 100 {
		t.Errorf("Percent = %v, want clamped 100", bar.Percent())
	}

	for range 200 {
		bar, _ = bar.Update(AnimationTickMsg(time.Now()))
	}
	if bar.Displayed() != 100 {
		t.Errorf("Displayed = %v, want 100 after animation", bar.Displayed())
	}

	bar.SetLabel("Requests")
	if view := bar.View(3, 10, 60); !strings.Contains(view, "Requests") || !strings.Contains(view, "3/10") {
		t.Errorf("View = %q", view)
	}
	if view := bar.ViewExhausted(12*time.Second, 60); !strings.Contains(view, "LIMITED 12s") {
		t.Errorf("ViewExhausted = %q", view)
	}
}

func TestSimpleBars(t *testing.T) {
	if !strings.Contains(SimpleUsageBar(50, "Queue", 40), "50%") {
		t.Error("SimpleUsageBar missing percentage")
	}
	if !strings.Contains(RenderCountdownBar(90*time.Second, 30*time.Minute, "Session", 50), "1m 30s") {
		t.Error("RenderCountdownBar missing remaining time")
	}
	if RenderGradientBar(50, 0, "#000000", "#ffffff") != "" {
		t.Error("zero-width bar should be empty")
	}
	if RenderLoadingBar(20, 7) == "" {
		t.Error("RenderLoadingBar returned empty")
	}
}

func TestInterpolateColor(t *testing.T) {
	if got := interpolateColor("#000000", "#ffffff", 0); got != "#000000" {
		t.Errorf("t=0 gives %s", got)
	}
	if got := interpolateColor("#000000", "#ffffff", 1); got != "#ffffff" {
		t.Errorf("t=1 gives %s", got)
	}
	if got := hexToRGB("zz"); got != [3]int{} {
		t.Errorf("invalid hex gives %v, want zeros", got)
	}
}

func typeKeys(f SignInForm, s string) SignInForm {
	for _, r := range s {
		f, _ = f.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return f
}

func TestSignInForm_Submit(t *testing.T) {
	f := NewSignInForm()
	f.Reset("Your session has expired.")

	f = typeKeys(f, "demo")
	f, _ = f.Update(tea.KeyMsg{Type: tea.KeyEnter})
	f = typeKeys(f, "demo1234")
	f, cmd := f.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("submit returned no command")
	}

	msg, ok := cmd().(SignInSubmitMsg)
	if !ok {
		t.Fatalf("got %T, want SignInSubmitMsg", cmd())
	}
	if msg.Username != "demo" || msg.Password != "demo1234" {
		t.Errorf("msg = %+v", msg)
	}
	if !f.Busy() {
		t.Error("form should be busy after submit")
	}
	if _, cmd := f.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("busy form should ignore keys")
	}

	f.SetError("Invalid username or password.")
	if f.Busy() {
		t.Error("SetError should re-enable the form")
	}
	view := f.View(50)
	if !strings.Contains(view, "Invalid username or password.") || !strings.Contains(view, "Your session has expired.") {
		t.Errorf("view missing error or reason: %q", view)
	}
	if strings.Contains(view, "demo1234") {
		t.Error("password must not be echoed")
	}
}

func TestSignInForm_Validation(t *testing.T) {
	f := NewSignInForm()
	f, _ = f.Update(tea.KeyMsg{Type: tea.KeyTab})
	f, cmd := f.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("empty form should not submit")
	}
	if f.Busy() || !strings.Contains(f.View(50), "Enter a username and password.") {
		t.Error("empty submit should show a validation error")
	}
}

func TestSignInForm_Cancel(t *testing.T) {
	f := NewSignInForm()
	_, cmd := f.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("esc returned no command")
	}
	if _, ok := cmd().(SignInCancelMsg); !ok {
		t.Errorf("got %T, want SignInCancelMsg", cmd())
	}
}

func TestFormatters(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"CompactTrillion", FormatCompact(2.95e12), "2.95T"},
		{"CompactBillion", FormatCompact(812e9), "812.00B"},
		{"CompactMillion", FormatCompact(52.3e6), "52.3M"},
		{"CompactThousand", FormatCompact(1500), "1.5K"},
		{"CompactSmall", FormatCompact(999), "999"},
		{"Money", FormatMoney(5544.75), "$5,544.75"},
		{"MoneyMillions", FormatMoney(1234567.891), "$1,234,567.89"},
		{"MoneyNegative", FormatMoney(-42), "-$42.00"},
		{"SignedMoneyGain", FormatSignedMoney(657.25), "+$657.25"},
		{"SignedMoneyLoss", FormatSignedMoney(-3.5), "-$3.50"},
		{"Percent", FormatPercent(1.123), "+1.12%"},
		{"PercentNegative", FormatPercent(-0.5), "-0.50%"},
		{"DurationHours", FormatDuration(65 * time.Minute), "1h 05m"},
		{"DurationMinutes", FormatDuration(249 * time.Second), "4m 09s"},
		{"DurationSeconds", FormatDuration(12 * time.Second), "12s"},
		{"AgoZero", FormatAgo(time.Time{}), "never"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}

	if got := FormatAgo(time.Now().Add(-2 * time.Minute)); !strings.HasSuffix(got, " ago") {
		t.Errorf("FormatAgo = %q, want a relative time", got)
	}
}

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/stockscanner-tui/internal/ui/styles"
)

// SignInSubmitMsg is emitted when the user submits the sign-in form.
type SignInSubmitMsg struct {
	Username string
	Password string
}

// SignInCancelMsg is emitted when the user dismisses the sign-in form.
type SignInCancelMsg struct{}

type signInField int

const (
	fieldUsername signInField = iota
	fieldPassword
	fieldSubmit
	fieldCancel
	signInFieldCount
)

// SignInForm is a username/password form rendered as a modal.
type SignInForm struct {
	username textinput.Model
	password textinput.Model
	reason   string
	err      string
	focused  signInField
	busy     bool
}

// NewSignInForm creates an empty sign-in form with the username focused.
func NewSignInForm() SignInForm {
	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 150
	username.Width = 32

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 128
	password.Width = 32
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	f := SignInForm{username: username, password: password}
	f.updateFocus()
	return f
}

// Reset clears the inputs and sets the explanation shown above them.
func (f *SignInForm) Reset(reason string) tea.Cmd {
	f.username.SetValue("")
	f.password.SetValue("")
	f.reason = reason
	f.err = ""
	f.busy = false
	f.focused = fieldUsername
	f.updateFocus()
	return textinput.Blink
}

// SetError shows a failed attempt and re-enables the form.
func (f *SignInForm) SetError(msg string) {
	f.err = msg
	f.busy = false
	f.password.SetValue("")
	f.focused = fieldPassword
	f.updateFocus()
}

// Reason returns the explanation currently shown.
func (f SignInForm) Reason() string {
	return f.reason
}

// Busy reports whether a submission is in flight.
func (f SignInForm) Busy() bool {
	return f.busy
}

// Update handles key input for the form.
func (f SignInForm) Update(msg tea.Msg) (SignInForm, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if f.busy {
			return f, nil
		}
		switch keyMsg.String() {
		case "esc":
			return f, func() tea.Msg { return SignInCancelMsg{} }

		case "tab", "down":
			f.focused = (f.focused + 1) % signInFieldCount
			f.updateFocus()
			return f, textinput.Blink

		case "shift+tab", "up":
			f.focused = (f.focused - 1 + signInFieldCount) % signInFieldCount
			f.updateFocus()
			return f, textinput.Blink

		case "enter":
			switch f.focused {
			case fieldUsername:
				f.focused = fieldPassword
				f.updateFocus()
				return f, textinput.Blink
			case fieldCancel:
				return f, func() tea.Msg { return SignInCancelMsg{} }
			default:
				return f.submit()
			}
		}
	}

	var cmd tea.Cmd
	switch f.focused {
	case fieldUsername:
		f.username, cmd = f.username.Update(msg)
	case fieldPassword:
		f.password, cmd = f.password.Update(msg)
	}
	return f, cmd
}

func (f SignInForm) submit() (SignInForm, tea.Cmd) {
	username := strings.TrimSpace(f.username.Value())
	password := f.password.Value()
	if username == "" || password == "" {
		f.err = "Enter a username and password."
		return f, nil
	}
	f.err = ""
	f.busy = true
	return f, func() tea.Msg {
		return SignInSubmitMsg{Username: username, Password: password}
	}
}

func (f *SignInForm) updateFocus() {
	f.username.Blur()
	f.password.Blur()
	switch f.focused {
	case fieldUsername:
		f.username.Focus()
	case fieldPassword:
		f.password.Focus()
	}
}

// View renders the form as a modal card of the given width.
func (f SignInForm) View(width int) string {
	width = min(max(width, 44), 64)

	rows := []string{styles.CardTitleStyle.Render("Sign in")}
	if f.reason != "" {
		rows = append(rows, styles.WarningTextStyle.Render(f.reason), "")
	}

	rows = append(rows, f.renderField("Username", f.username, fieldUsername, width))
	rows = append(rows, f.renderField("Password", f.password, fieldPassword, width))

	submitStyle, cancelStyle := styles.ButtonInactiveStyle, styles.ButtonInactiveStyle
	if f.focused == fieldSubmit {
		submitStyle = styles.ButtonActiveStyle
	}
	if f.focused == fieldCancel {
		cancelStyle = styles.ButtonActiveStyle
	}
	submitLabel := " Sign in "
	if f.busy {
		submitLabel = " Signing in... "
	}
	rows = append(rows, "", lipgloss.JoinHorizontal(lipgloss.Center,
		submitStyle.Render(submitLabel),
		"  ",
		cancelStyle.Render(" Cancel "),
	))

	if f.err != "" {
		rows = append(rows, "", styles.ErrorTextStyle.Render(f.err))
	}
	rows = append(rows, "", styles.HelpStyle.Render("Tab: next field | Enter: submit | Esc: cancel"))

	return styles.ModalContentStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (f SignInForm) renderField(label string, input textinput.Model, field signInField, width int) string {
	labelStyle, boxStyle := styles.BlurredStyle, styles.BlurredBorderStyle
	prefix := "  "
	if f.focused == field {
		labelStyle, boxStyle = styles.FocusedStyle, styles.FocusedBorderStyle
		prefix = "> "
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		labelStyle.Render(prefix+label+":"),
		boxStyle.Width(width-10).Render(input.View()),
	)
}

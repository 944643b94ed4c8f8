package chat

import (
	"github.com/rivo/tview"

	"github.com/m96-chan/zterm/internal/config"
)

// StatusBar displays identity, connection state and the last error at the
// bottom of the screen.
type StatusBar struct {
	*tview.TextView
	cfg        *config.Config
	identity   string
	connStatus string
	notice     string
	errText    string
}

// NewStatusBar creates a themed status bar.
func NewStatusBar(cfg *config.Config) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)

	tv.SetBackgroundColor(cfg.Theme.StatusBar.Text.Background())
	tv.SetTextColor(cfg.Theme.StatusBar.Text.Foreground())

	return &StatusBar{
		TextView: tv,
		cfg:      cfg,
	}
}

// SetIdentity sets the "name <email>" shown at the left.
func (sb *StatusBar) SetIdentity(s string) {
	sb.identity = s
	sb.render()
}

// SetConnectionStatus updates the connection status text.
func (sb *StatusBar) SetConnectionStatus(s string) {
	sb.connStatus = s
	sb.render()
}

// SetNotice shows a short informational message, such as a clipboard copy.
func (sb *StatusBar) SetNotice(s string) {
	sb.notice = s
	sb.render()
}

// SetError shows an error until the next ClearError.
func (sb *StatusBar) SetError(err error) {
	if err == nil {
		sb.errText = ""
	} else {
		sb.errText = err.Error()
	}
	sb.render()
}

// ClearError removes the error text.
func (sb *StatusBar) ClearError() {
	if sb.errText == "" {
		return
	}
	sb.errText = ""
	sb.render()
}

// render rebuilds the status bar text from current state.
func (sb *StatusBar) render() {
	text := " " + tview.Escape(sb.identity)
	if sb.connStatus != "" {
		if sb.identity != "" {
			text += "  |  "
		}
		text += tview.Escape(sb.connStatus)
	}
	if sb.notice != "" {
		text += "  |  " + tview.Escape(sb.notice)
	}
	if sb.errText != "" {
		style := sb.cfg.Theme.StatusBar.Error
		text += "  |  " + style.Tag() + tview.Escape(sb.errText) + style.Reset()
	}
	sb.TextView.SetText(text)
}

package chat

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/m96-chan/zterm/internal/config"
	"github.com/m96-chan/zterm/internal/ui/keys"
)

// SearchBox is the single-line full-text search field above the compose
// box. Submitting a query narrows to its results.
type SearchBox struct {
	*tview.InputField
	cfg      *config.Config
	onSubmit func(query string)
	onCancel func()
}

// NewSearchBox creates a search field.
func NewSearchBox(cfg *config.Config) *SearchBox {
	sb := &SearchBox{
		InputField: tview.NewInputField(),
		cfg:        cfg,
	}

	sb.SetLabel(" Search: ")
	sb.SetPlaceholder("full-text search")
	sb.SetInputCapture(sb.handleInput)

	return sb
}

// SetOnSubmit sets the callback for submitting a query.
func (sb *SearchBox) SetOnSubmit(fn func(query string)) {
	sb.onSubmit = fn
}

// SetOnCancel sets the callback for leaving the search box.
func (sb *SearchBox) SetOnCancel(fn func()) {
	sb.onCancel = fn
}

// handleInput processes submit and cancel.
func (sb *SearchBox) handleInput(event *tcell.EventKey) *tcell.EventKey {
	name := keys.Normalize(event.Name())
	kb := sb.cfg.Keybinds.SearchBox

	switch name {
	case kb.Submit:
		query := strings.TrimSpace(sb.GetText())
		if query == "" {
			return nil
		}
		if sb.onSubmit != nil {
			sb.onSubmit(query)
		}
		return nil

	case kb.Cancel:
		sb.SetText("")
		if sb.onCancel != nil {
			sb.onCancel()
		}
		return nil
	}

	return event
}

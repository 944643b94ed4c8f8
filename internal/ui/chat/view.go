package chat

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/m96-chan/zterm/internal/config"
	"github.com/m96-chan/zterm/internal/narrow"
	"github.com/m96-chan/zterm/internal/ui/keys"
)

// Panel identifies which panel is focused.
type Panel int

const (
	PanelStreams Panel = iota
	PanelMessages
	PanelSearch
	PanelInput
	PanelUsers
)

// typing reports whether the panel is a text field, where rune keys must
// reach the widget.
func (p Panel) typing() bool {
	return p == PanelSearch || p == PanelInput || p == PanelUsers
}

// Column weights of the three-column layout.
const (
	leftWeight   = 3
	middleWeight = 10
	rightWeight  = 3
)

// View is the main chat layout containing all panels.
type View struct {
	*tview.Flex
	app       *tview.Application
	cfg       *config.Config
	StatusBar *StatusBar

	Streams   *StreamsTree
	Header    *tview.TextView
	Messages  *MessagesList
	SearchBox *SearchBox
	Input     *MessageInput
	Users     *UsersList

	contentFlex *tview.Flex
	mainFlex    *tview.Flex
	activePanel Panel
	onNarrow    OnNarrowSelectedFunc
}

// New creates the main chat view with the full flex layout.
//
// Layout:
//
//	Outer Flex (FlexRow)
//	├── mainFlex (FlexColumn)
//	│   ├── Streams (weight 3)
//	│   ├── contentFlex (FlexRow, weight 10)
//	│   │   ├── Header (fixed 1 row)
//	│   │   ├── Messages (proportional)
//	│   │   ├── SearchBox (fixed 1 row)
//	│   │   └── Input (fixed 4 rows)
//	│   └── Users (weight 3)
//	└── StatusBar (fixed 1 row)
func New(app *tview.Application, cfg *config.Config) *View {
	v := &View{
		app: app,
		cfg: cfg,
	}

	v.Streams = NewStreamsTree(cfg)

	v.Header = tview.NewTextView().
		SetDynamicColors(true)
	v.Header.SetBorder(false)

	v.Messages = NewMessagesList(cfg)
	v.SearchBox = NewSearchBox(cfg)
	v.Input = NewMessageInput(cfg)
	v.Users = NewUsersList(cfg)
	v.StatusBar = NewStatusBar(cfg)

	v.contentFlex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(v.Header, 1, 0, false).
		AddItem(v.Messages, 0, 1, false).
		AddItem(v.SearchBox, 1, 0, false).
		AddItem(v.Input, 4, 0, false)

	v.mainFlex = tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(v.Streams, 0, leftWeight, false).
		AddItem(v.contentFlex, 0, middleWeight, false).
		AddItem(v.Users, 0, rightWeight, false)

	v.Flex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(v.mainFlex, 0, 1, false).
		AddItem(v.StatusBar, 1, 0, false)

	if bg := cfg.Theme.Background.Background(); bg != tcell.ColorDefault {
		v.SetBackgroundColor(bg)
	}

	v.activePanel = PanelMessages
	v.SetHeader(narrow.AllMessages())
	v.applyBorderStyles()

	return v
}

// SetOnNarrow sets the callback for the global narrow keys (all messages,
// all private).
func (v *View) SetOnNarrow(fn OnNarrowSelectedFunc) {
	v.onNarrow = fn
}

// ActivePanel returns the focused panel.
func (v *View) ActivePanel() Panel {
	return v.activePanel
}

// FocusPanel sets focus to the given panel and updates border colors.
func (v *View) FocusPanel(panel Panel) {
	v.activePanel = panel
	v.applyBorderStyles()

	switch panel {
	case PanelStreams:
		v.app.SetFocus(v.Streams)
	case PanelMessages:
		v.app.SetFocus(v.Messages)
	case PanelSearch:
		v.app.SetFocus(v.SearchBox)
	case PanelInput:
		v.app.SetFocus(v.Input)
	case PanelUsers:
		v.Users.Reset()
		v.app.SetFocus(v.Users)
	}
}

// HandleKey processes chat-level keybindings. Returns nil to consume the event.
func (v *View) HandleKey(event *tcell.EventKey) *tcell.EventKey {
	name := keys.Normalize(event.Name())

	// Text fields receive runes unchanged.
	if v.activePanel.typing() && event.Key() == tcell.KeyRune {
		return event
	}

	switch name {
	case v.cfg.Keybinds.FocusStreams:
		v.FocusPanel(PanelStreams)
		return nil
	case v.cfg.Keybinds.FocusMessages:
		v.FocusPanel(PanelMessages)
		return nil
	case v.cfg.Keybinds.FocusUsers:
		v.FocusPanel(PanelUsers)
		return nil
	case v.cfg.Keybinds.Search:
		v.FocusPanel(PanelSearch)
		return nil
	case v.cfg.Keybinds.AllMessages:
		v.narrow(narrow.AllMessages())
		return nil
	case v.cfg.Keybinds.AllPrivate:
		v.narrow(narrow.AllPrivate())
		return nil
	}

	return event
}

func (v *View) narrow(n narrow.Narrow) {
	if v.onNarrow != nil {
		v.onNarrow(n)
	}
}

// SetHeader shows the narrow's title above the messages.
func (v *View) SetHeader(n narrow.Narrow) {
	style := v.cfg.Theme.Header
	v.Header.SetText(" " + style.Tag() + tview.Escape(n.Title()) + style.Reset())
}

// applyBorderStyles updates border colors based on which panel is active.
func (v *View) applyBorderStyles() {
	focusedFg := v.cfg.Theme.Border.Focused.Foreground()
	normalFg := v.cfg.Theme.Border.Normal.Foreground()
	focusedTitleFg := v.cfg.Theme.Title.Focused.Foreground()
	normalTitleFg := v.cfg.Theme.Title.Normal.Foreground()

	panels := []struct {
		box    *tview.Box
		panels []Panel
	}{
		{v.Streams.Box, []Panel{PanelStreams}},
		{v.Messages.Box, []Panel{PanelMessages, PanelSearch}},
		{v.Input.Box, []Panel{PanelInput}},
		{v.Users.Box, []Panel{PanelUsers}},
	}

	for _, p := range panels {
		active := false
		for _, panel := range p.panels {
			if panel == v.activePanel {
				active = true
			}
		}
		if active {
			p.box.SetBorderColor(focusedFg)
			p.box.SetTitleColor(focusedTitleFg)
		} else {
			p.box.SetBorderColor(normalFg)
			p.box.SetTitleColor(normalTitleFg)
		}
	}
}

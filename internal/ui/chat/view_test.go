package chat

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/m96-chan/zterm/internal/config"
	"github.com/m96-chan/zterm/internal/narrow"
)

func newTestView() *View {
	cfg := &config.Config{}
	cfg.Keybinds.FocusStreams = "Ctrl+T"
	cfg.Keybinds.FocusMessages = "Ctrl+O"
	cfg.Keybinds.FocusUsers = "Rune[w]"
	cfg.Keybinds.Search = "Rune[/]"
	cfg.Keybinds.AllMessages = "Rune[a]"
	cfg.Keybinds.AllPrivate = "Rune[P]"
	return New(tview.NewApplication(), cfg)
}

func TestView_DefaultPanel(t *testing.T) {
	v := newTestView()
	if v.ActivePanel() != PanelMessages {
		t.Errorf("initial panel = %d, want messages", v.ActivePanel())
	}
	if !strings.Contains(v.Header.GetText(true), "All messages") {
		t.Errorf("header = %q", v.Header.GetText(true))
	}
}

func TestView_FocusKeys(t *testing.T) {
	tests := []struct {
		name  string
		event *tcell.EventKey
		want  Panel
	}{
		{"streams", tcell.NewEventKey(tcell.KeyCtrlT, 0, tcell.ModCtrl), PanelStreams},
		{"users", tcell.NewEventKey(tcell.KeyRune, 'w', tcell.ModNone), PanelUsers},
		{"search", tcell.NewEventKey(tcell.KeyRune, '/', tcell.ModNone), PanelSearch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestView()
			if v.HandleKey(tt.event) != nil {
				t.Error("focus key should be consumed")
			}
			if v.ActivePanel() != tt.want {
				t.Errorf("panel = %d, want %d", v.ActivePanel(), tt.want)
			}
		})
	}
}

func TestView_RunesPassThroughInTextPanels(t *testing.T) {
	for _, panel := range []Panel{PanelSearch, PanelInput, PanelUsers} {
		v := newTestView()
		v.FocusPanel(panel)

		ev := tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone)
		if v.HandleKey(ev) != ev {
			t.Errorf("panel %d: rune should pass through", panel)
		}
		if v.ActivePanel() != panel {
			t.Errorf("panel %d: focus changed to %d", panel, v.ActivePanel())
		}
	}
}

func TestView_CtrlKeysWorkInTextPanels(t *testing.T) {
	v := newTestView()
	v.FocusPanel(PanelInput)

	if v.HandleKey(tcell.NewEventKey(tcell.KeyCtrlO, 0, tcell.ModCtrl)) != nil {
		t.Error("Ctrl+O should be consumed")
	}
	if v.ActivePanel() != PanelMessages {
		t.Errorf("panel = %d, want messages", v.ActivePanel())
	}
}

func TestView_NarrowKeys(t *testing.T) {
	v := newTestView()

	var got []narrow.Narrow
	v.SetOnNarrow(func(n narrow.Narrow) { got = append(got, n) })

	v.HandleKey(tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone))
	v.HandleKey(tcell.NewEventKey(tcell.KeyRune, 'P', tcell.ModNone))

	if len(got) != 2 || !got[0].Equal(narrow.AllMessages()) || !got[1].Equal(narrow.AllPrivate()) {
		t.Errorf("narrows = %v", got)
	}
}

func TestView_UnboundKeyPassesThrough(t *testing.T) {
	v := newTestView()
	ev := tcell.NewEventKey(tcell.KeyRune, 'z', tcell.ModNone)
	if v.HandleKey(ev) != ev {
		t.Error("unbound key should pass through")
	}
}

func TestView_SetHeader(t *testing.T) {
	v := newTestView()
	v.SetHeader(narrow.Topic(1, "general", "lunch"))
	if got := v.Header.GetText(true); !strings.Contains(got, "#general > lunch") {
		t.Errorf("header = %q", got)
	}
}

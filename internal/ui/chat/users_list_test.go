package chat

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/m96-chan/zterm/internal/config"
	"github.com/m96-chan/zterm/internal/zulip"
)

func newTestUsersList() *UsersList {
	cfg := &config.Config{}
	cfg.Keybinds.UsersList.Close = "Esc"
	cfg.Keybinds.UsersList.Up = "Ctrl+P"
	cfg.Keybinds.UsersList.Down = "Ctrl+N"
	cfg.Keybinds.UsersList.Select = "Enter"
	return NewUsersList(cfg)
}

func testUsers() []zulip.User {
	return []zulip.User{
		{UserID: 1, FullName: "Me Myself", Email: "me@example.com", IsActive: true},
		{UserID: 2, FullName: "charlie Brown", Email: "charlie@example.com", IsActive: true},
		{UserID: 3, FullName: "Alice Smith", Email: "alice@example.com", IsActive: true},
		{UserID: 4, FullName: "Bob Jones", Email: "bob@example.com", IsActive: true},
		{UserID: 5, FullName: "Gone Away", Email: "gone@example.com", IsActive: false},
		{UserID: 6, FullName: "Welcome Bot", Email: "welcome-bot@example.com", IsActive: true, IsBot: true},
	}
}

func TestUsersList_SetUsers(t *testing.T) {
	ul := newTestUsersList()
	ul.SetUsers(testUsers(), 1)

	if ul.FilteredCount() != 4 {
		t.Fatalf("FilteredCount = %d, want 4 (self and inactive excluded)", ul.FilteredCount())
	}
	want := []string{"Alice Smith", "Bob Jones", "charlie Brown", "[::d]BOT[::-] Welcome Bot"}
	for i, w := range want {
		got, _ := ul.list.GetItemText(i)
		if got != w {
			t.Errorf("item %d = %q, want %q", i, got, w)
		}
	}
	if got := ul.status.GetText(true); got != " 4 users" {
		t.Errorf("status = %q", got)
	}
}

func TestUsersList_SetUsersEmpty(t *testing.T) {
	ul := newTestUsersList()
	ul.SetUsers(nil, 1)

	if ul.FilteredCount() != 0 {
		t.Errorf("FilteredCount = %d", ul.FilteredCount())
	}
	if got := ul.status.GetText(true); got != " No users" {
		t.Errorf("status = %q", got)
	}
}

func TestUsersList_FuzzyFilter(t *testing.T) {
	ul := newTestUsersList()
	ul.SetUsers(testUsers(), 1)

	ul.input.SetText("bob")

	if ul.FilteredCount() == 0 {
		t.Fatal("filter should match Bob Jones")
	}
	first, _ := ul.list.GetItemText(0)
	if first != "Bob Jones" {
		t.Errorf("best match = %q, want Bob Jones", first)
	}
	if got := ul.status.GetText(true); !strings.Contains(got, "/ 4 users") {
		t.Errorf("status = %q", got)
	}
}

func TestUsersList_FilterByEmail(t *testing.T) {
	ul := newTestUsersList()
	ul.SetUsers(testUsers(), 1)

	ul.input.SetText("alice@")
	if ul.FilteredCount() != 1 {
		t.Fatalf("FilteredCount = %d, want 1", ul.FilteredCount())
	}
}

func TestUsersList_Reset(t *testing.T) {
	ul := newTestUsersList()
	ul.SetUsers(testUsers(), 1)
	ul.input.SetText("zzzz")

	ul.Reset()
	if ul.input.GetText() != "" {
		t.Error("Reset should clear the filter")
	}
	if ul.FilteredCount() != 4 {
		t.Errorf("FilteredCount = %d, want 4", ul.FilteredCount())
	}
}

func TestUsersList_SelectCallsCallback(t *testing.T) {
	ul := newTestUsersList()
	ul.SetUsers(testUsers(), 1)

	var got zulip.User
	ul.SetOnSelect(func(u zulip.User) { got = u })

	ul.handleInput(tcell.NewEventKey(tcell.KeyCtrlN, 0, tcell.ModCtrl))
	ul.handleInput(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))

	if got.UserID != 4 {
		t.Errorf("selected user = %d, want 4 (Bob)", got.UserID)
	}
}

func TestUsersList_ArrowKeys(t *testing.T) {
	ul := newTestUsersList()
	ul.SetUsers(testUsers(), 1)

	ul.handleInput(tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone))
	ul.handleInput(tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone))
	ul.handleInput(tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone))

	if cur := ul.list.GetCurrentItem(); cur != 1 {
		t.Errorf("current item = %d, want 1", cur)
	}
}

func TestUsersList_SelectEmpty(t *testing.T) {
	ul := newTestUsersList()
	ul.SetUsers(nil, 1)

	called := false
	ul.SetOnSelect(func(zulip.User) { called = true })
	ul.selectCurrent()

	if called {
		t.Error("select on empty list should not fire")
	}
}

func TestUsersList_Close(t *testing.T) {
	ul := newTestUsersList()

	closed := false
	ul.SetOnClose(func() { closed = true })

	if ul.handleInput(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)) != nil {
		t.Error("close key should be consumed")
	}
	if !closed {
		t.Error("close callback not called")
	}
}

func TestUsersList_TypingPassesThrough(t *testing.T) {
	ul := newTestUsersList()
	ev := tcell.NewEventKey(tcell.KeyRune, 'j', tcell.ModNone)
	if ul.handleInput(ev) != ev {
		t.Error("runes should reach the filter field")
	}
}

package chat

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/sahilm/fuzzy"

	"github.com/m96-chan/zterm/internal/config"
	"github.com/m96-chan/zterm/internal/ui/keys"
	"github.com/m96-chan/zterm/internal/zulip"
)

// UsersList is the right column: realm members with a fuzzy filter. Selecting
// a user opens the private conversation with them.
type UsersList struct {
	*tview.Flex
	cfg      *config.Config
	input    *tview.InputField
	list     *tview.List
	status   *tview.TextView
	users    []zulip.User
	filtered []int // indices into users for current filter
	onSelect func(u zulip.User)
	onClose  func()
}

// NewUsersList creates the users panel.
func NewUsersList(cfg *config.Config) *UsersList {
	ul := &UsersList{
		cfg: cfg,
	}

	ul.input = tview.NewInputField()
	ul.input.SetLabel(" Filter: ")
	ul.input.SetChangedFunc(ul.onInputChanged)
	ul.input.SetInputCapture(ul.handleInput)

	ul.list = tview.NewList()
	ul.list.SetHighlightFullLine(true)
	ul.list.ShowSecondaryText(false)
	ul.list.SetWrapAround(false)
	ul.list.SetMainTextStyle(cfg.Theme.UsersList.Active.Style)
	ul.list.SetSelectedStyle(cfg.Theme.UsersList.Selected.Style)

	ul.status = tview.NewTextView()
	ul.status.SetTextAlign(tview.AlignLeft)
	ul.status.SetDynamicColors(true)

	ul.Flex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(ul.input, 1, 0, true).
		AddItem(ul.list, 0, 1, false).
		AddItem(ul.status, 1, 0, false)
	ul.SetBorder(true).SetTitle(" Users ")

	return ul
}

// SetOnSelect sets the callback for user selection.
func (ul *UsersList) SetOnSelect(fn func(u zulip.User)) {
	ul.onSelect = fn
}

// SetOnClose sets the callback for leaving the panel.
func (ul *UsersList) SetOnClose(fn func()) {
	ul.onClose = fn
}

// SetUsers populates the panel with active users, sorted by name, and
// excludes selfID.
func (ul *UsersList) SetUsers(users []zulip.User, selfID int64) {
	ul.users = ul.users[:0]
	for _, u := range users {
		if u.UserID == selfID || !u.IsActive {
			continue
		}
		ul.users = append(ul.users, u)
	}
	slices.SortFunc(ul.users, func(a, b zulip.User) int {
		return cmp.Compare(strings.ToLower(a.FullName), strings.ToLower(b.FullName))
	})
	ul.onInputChanged(ul.input.GetText())
}

// Reset clears the filter and shows all users.
func (ul *UsersList) Reset() {
	ul.input.SetText("")
	ul.showAll()
	ul.updateStatus()
}

// FilteredCount returns the number of currently visible entries.
func (ul *UsersList) FilteredCount() int {
	return len(ul.filtered)
}

// handleInput processes keybindings for the filter field.
func (ul *UsersList) handleInput(event *tcell.EventKey) *tcell.EventKey {
	name := keys.Normalize(event.Name())
	kb := ul.cfg.Keybinds.UsersList

	switch {
	case name == kb.Close:
		if ul.onClose != nil {
			ul.onClose()
		}
		return nil

	case name == kb.Select:
		ul.selectCurrent()
		return nil

	case name == kb.Up || event.Key() == tcell.KeyUp:
		if cur := ul.list.GetCurrentItem(); cur > 0 {
			ul.list.SetCurrentItem(cur - 1)
		}
		return nil

	case name == kb.Down || event.Key() == tcell.KeyDown:
		if cur := ul.list.GetCurrentItem(); cur < ul.list.GetItemCount()-1 {
			ul.list.SetCurrentItem(cur + 1)
		}
		return nil
	}

	return event
}

// onInputChanged filters the list based on the current filter text.
func (ul *UsersList) onInputChanged(text string) {
	if text == "" {
		ul.showAll()
		ul.updateStatus()
		return
	}

	targets := make([]string, len(ul.users))
	for i, u := range ul.users {
		targets[i] = userSearchText(u)
	}

	matches := fuzzy.Find(strings.ToLower(text), targets)

	ul.filtered = make([]int, len(matches))
	for i, m := range matches {
		ul.filtered[i] = m.Index
	}

	ul.rebuildList()
	ul.updateStatus()
}

// showAll displays all users (no filter).
func (ul *UsersList) showAll() {
	ul.filtered = make([]int, len(ul.users))
	for i := range ul.users {
		ul.filtered[i] = i
	}
	ul.rebuildList()
}

// rebuildList updates the tview.List from the filtered entries.
func (ul *UsersList) rebuildList() {
	ul.list.Clear()
	for _, idx := range ul.filtered {
		ul.list.AddItem(userDisplayText(ul.users[idx]), "", 0, nil)
	}
	if ul.list.GetItemCount() > 0 {
		ul.list.SetCurrentItem(0)
	}
}

// selectCurrent selects the currently highlighted user.
func (ul *UsersList) selectCurrent() {
	cur := ul.list.GetCurrentItem()
	if cur < 0 || cur >= len(ul.filtered) {
		return
	}
	if ul.onSelect != nil {
		ul.onSelect(ul.users[ul.filtered[cur]])
	}
}

// updateStatus updates the status text with the user count.
func (ul *UsersList) updateStatus() {
	total := len(ul.users)
	shown := len(ul.filtered)
	switch {
	case total == 0:
		ul.status.SetText(" No users")
	case shown == total && total == 1:
		ul.status.SetText(" 1 user")
	case shown == total:
		ul.status.SetText(fmt.Sprintf(" %d users", total))
	default:
		ul.status.SetText(fmt.Sprintf(" %d / %d users", shown, total))
	}
}

// userDisplayText returns the list text for a user.
func userDisplayText(u zulip.User) string {
	name := u.FullName
	if name == "" {
		name = u.Email
	}
	if u.IsBot {
		return "[::d]BOT[::-] " + tview.Escape(name)
	}
	return tview.Escape(name)
}

// userSearchText returns a lowercased search string for fuzzy matching.
func userSearchText(u zulip.User) string {
	return strings.ToLower(u.FullName + " " + u.Email)
}

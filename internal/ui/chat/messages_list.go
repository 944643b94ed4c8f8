package chat

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/m96-chan/zterm/internal/config"
	"github.com/m96-chan/zterm/internal/markdown"
	"github.com/m96-chan/zterm/internal/narrow"
	"github.com/m96-chan/zterm/internal/ui/keys"
	"github.com/m96-chan/zterm/internal/zulip"
)

const messageGroupingWindow = 5 * time.Minute

// OnNarrowRequestFunc is called when the user narrows from the selected
// message. messageID is the originating message.
type OnNarrowRequestFunc func(n narrow.Narrow, messageID int64)

// OnMessageActionFunc is called with the selected message for reply and yank.
type OnMessageActionFunc func(m zulip.Message)

// MessagesList displays the messages of the current narrow with selection
// and scrolling.
type MessagesList struct {
	*tview.TextView
	cfg         *config.Config
	mdOpts      markdown.Options
	messages    []zulip.Message // ascending by ID
	selectedIdx int             // -1 = no selection
	selfID      int64

	onFocusChanged func(id int64)
	onNarrow       OnNarrowRequestFunc
	onReply        OnMessageActionFunc
	onYank         OnMessageActionFunc
	onCompose      func()
}

// NewMessagesList creates a new messages list component.
func NewMessagesList(cfg *config.Config) *MessagesList {
	ml := &MessagesList{
		TextView:    tview.NewTextView(),
		cfg:         cfg,
		mdOpts:      markdownOptions(cfg),
		selectedIdx: -1,
	}

	ml.SetDynamicColors(true)
	ml.SetRegions(true)
	ml.SetScrollable(true)
	ml.SetWordWrap(true)
	ml.SetBorder(true).SetTitle(" Messages ")

	ml.SetInputCapture(ml.handleInput)

	return ml
}

// markdownOptions derives the renderer options from the config and theme.
func markdownOptions(cfg *config.Config) markdown.Options {
	md := cfg.Theme.Markdown
	return markdown.Options{
		Enabled:   cfg.Markdown.Enabled,
		CodeStyle: cfg.Markdown.CodeStyle,
		Colors: markdown.Colors{
			UserMention: md.UserMention.Tag(),
			StreamLink:  md.StreamLink.Tag(),
			Link:        md.Link.Tag(),
			InlineCode:  md.InlineCode.Tag(),
			CodeFence:   md.CodeFence.Tag(),
			Quote:       md.Quote.Tag(),
		},
	}
}

// SetSelfUserID sets the current user's ID, used for private narrows and
// recipient headers.
func (ml *MessagesList) SetSelfUserID(id int64) {
	ml.selfID = id
}

// SetOnFocusChanged sets the callback fired when the selected message changes.
func (ml *MessagesList) SetOnFocusChanged(fn func(id int64)) {
	ml.onFocusChanged = fn
}

// SetOnNarrowRequest sets the callback for the narrow keys.
func (ml *MessagesList) SetOnNarrowRequest(fn OnNarrowRequestFunc) {
	ml.onNarrow = fn
}

// SetOnReplyRequest sets the callback for reply requests.
func (ml *MessagesList) SetOnReplyRequest(fn OnMessageActionFunc) {
	ml.onReply = fn
}

// SetOnYankRequest sets the callback for copying a message.
func (ml *MessagesList) SetOnYankRequest(fn OnMessageActionFunc) {
	ml.onYank = fn
}

// SetOnComposeRequest sets the callback for starting a new message.
func (ml *MessagesList) SetOnComposeRequest(fn func()) {
	ml.onCompose = fn
}

// SetMessages replaces the displayed messages. focus is applied only when it
// is a valid position; otherwise nothing is selected and the view shows the
// newest messages.
func (ml *MessagesList) SetMessages(messages []zulip.Message, focus int) {
	ml.messages = slices.Clone(messages)
	ml.selectedIdx = -1
	if narrow.InRange(focus, len(ml.messages)) {
		ml.selectedIdx = focus
	}

	ml.render()
	if ml.selectedIdx < 0 {
		ml.ScrollToEnd()
	}
}

// Len returns the number of displayed messages.
func (ml *MessagesList) Len() int {
	return len(ml.messages)
}

// Selected returns the selected message.
func (ml *MessagesList) Selected() (zulip.Message, bool) {
	if !narrow.InRange(ml.selectedIdx, len(ml.messages)) {
		return zulip.Message{}, false
	}
	return ml.messages[ml.selectedIdx], true
}

// AppendMessage inserts a live message at its ID position. Duplicates are
// ignored.
func (ml *MessagesList) AppendMessage(m zulip.Message) {
	pos, found := slices.BinarySearchFunc(ml.messages, m.ID, func(e zulip.Message, id int64) int {
		switch {
		case e.ID < id:
			return -1
		case e.ID > id:
			return 1
		}
		return 0
	})
	if found {
		return
	}
	ml.messages = slices.Insert(ml.messages, pos, m)
	if ml.selectedIdx >= pos {
		ml.selectedIdx++
	}

	ml.render()
	if ml.selectedIdx < 0 {
		ml.ScrollToEnd()
	}
}

// UpdateMessage replaces a displayed message with a newer copy, for edits
// and reactions.
func (ml *MessagesList) UpdateMessage(m zulip.Message) {
	for i := range ml.messages {
		if ml.messages[i].ID == m.ID {
			ml.messages[i] = m
			ml.render()
			return
		}
	}
}

// render rebuilds the full text content from messages.
func (ml *MessagesList) render() {
	if len(ml.messages) == 0 {
		ml.SetText("[::d]No messages here.[::-]")
		ml.Highlight()
		return
	}

	theme := ml.cfg.Theme.Messages
	var b strings.Builder

	var prevRecipient string
	var prevSender int64
	var prevTime time.Time

	for _, msg := range ml.messages {
		t := msg.Time()

		recipient := recipientHeader(msg, ml.selfID)
		if recipient != prevRecipient {
			fmt.Fprintf(&b, "%s%s%s\n", theme.Recipient.Tag(), tview.Escape(recipient), theme.Recipient.Reset())
			prevRecipient = recipient
			prevSender = 0
		}

		fmt.Fprintf(&b, `["%d"]`, msg.ID)

		grouped := msg.SenderID == prevSender && t.Sub(prevTime) < messageGroupingWindow
		if !grouped {
			if ml.cfg.Timestamps.Enabled {
				fmt.Fprintf(&b, "%s%s%s ", theme.Timestamp.Tag(), t.Format(ml.cfg.Timestamps.Format), theme.Timestamp.Reset())
			}
			author := theme.Author
			if !msg.HasFlag(zulip.FlagRead) {
				author = theme.Unread
			}
			fmt.Fprintf(&b, "%s%s%s\n", author.Tag(), tview.Escape(msg.SenderFullName), author.Reset())
		}

		rendered := markdown.Render(msg.Content, ml.mdOpts)
		for _, line := range strings.Split(rendered, "\n") {
			fmt.Fprintf(&b, "  %s\n", line)
		}

		if summary := reactionSummary(msg.Reactions); summary != "" {
			fmt.Fprintf(&b, "  %s%s%s\n", theme.Reaction.Tag(), summary, theme.Reaction.Reset())
		}

		b.WriteString(`[""]`)

		prevSender = msg.SenderID
		prevTime = t
	}

	ml.SetText(b.String())

	if m, ok := ml.Selected(); ok {
		ml.Highlight(regionID(m.ID))
		ml.ScrollToHighlight()
	} else {
		ml.Highlight()
	}
}

// handleInput processes navigation and action keys.
func (ml *MessagesList) handleInput(event *tcell.EventKey) *tcell.EventKey {
	name := keys.Normalize(event.Name())
	kb := ml.cfg.Keybinds.MessagesList

	switch name {
	case kb.Down, kb.Up:
		switch {
		case ml.selectedIdx < 0:
			// Selection starts at the newest message.
			ml.selectIndex(len(ml.messages) - 1)
		case name == kb.Down:
			ml.selectIndex(ml.selectedIdx + 1)
		default:
			ml.selectIndex(ml.selectedIdx - 1)
		}
		return nil
	case kb.Top:
		ml.selectIndex(0)
		return nil
	case kb.Bottom:
		ml.selectIndex(len(ml.messages) - 1)
		return nil
	case kb.Compose:
		if ml.onCompose != nil {
			ml.onCompose()
		}
		return nil
	}

	msg, ok := ml.Selected()
	if !ok {
		return event
	}

	switch name {
	case kb.NarrowStream:
		ml.requestNarrow(narrow.StreamOf(msg))
		return nil
	case kb.NarrowTopic:
		ml.requestNarrow(narrow.TopicOf(msg))
		return nil
	case kb.NarrowPrivate:
		ml.requestNarrow(narrow.PrivateOf(msg, ml.selfID))
		return nil
	case kb.Reply:
		if ml.onReply != nil {
			ml.onReply(msg)
		}
		return nil
	case kb.Yank:
		if ml.onYank != nil {
			ml.onYank(msg)
		}
		return nil
	}

	return event
}

func (ml *MessagesList) requestNarrow(n narrow.Narrow, ok bool) {
	if !ok || ml.onNarrow == nil {
		return
	}
	msg, _ := ml.Selected()
	ml.onNarrow(n, msg.ID)
}

// selectIndex moves the selection, clamped to the list.
func (ml *MessagesList) selectIndex(i int) {
	if len(ml.messages) == 0 {
		return
	}
	i = max(0, min(i, len(ml.messages)-1))
	changed := i != ml.selectedIdx
	ml.selectedIdx = i

	id := ml.messages[i].ID
	ml.Highlight(regionID(id))
	ml.ScrollToHighlight()

	if changed && ml.onFocusChanged != nil {
		ml.onFocusChanged(id)
	}
}

func regionID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// recipientHeader returns the "stream > topic" or private conversation line
// shown above a run of messages.
func recipientHeader(m zulip.Message, selfID int64) string {
	if !m.IsPrivate() {
		return fmt.Sprintf("#%s > %s", m.StreamName(), m.Topic())
	}
	var names []string
	for _, u := range m.DisplayRecipient.Users {
		if u.ID != selfID {
			names = append(names, u.FullName)
		}
	}
	if len(names) == 0 {
		return "PM with yourself"
	}
	return "PM with " + strings.Join(names, ", ")
}

// reactionSummary aggregates reactions by emoji in order of first use,
// e.g. "👍 2  🎉 1".
func reactionSummary(reactions []zulip.Reaction) string {
	if len(reactions) == 0 {
		return ""
	}
	var order []string
	counts := make(map[string]int)
	glyphs := make(map[string]string)
	for _, r := range reactions {
		if _, seen := counts[r.EmojiName]; !seen {
			order = append(order, r.EmojiName)
			glyphs[r.EmojiName] = markdown.ReactionEmoji(r.EmojiName, r.EmojiCode, r.ReactionType)
		}
		counts[r.EmojiName]++
	}

	parts := make([]string, len(order))
	for i, name := range order {
		parts[i] = fmt.Sprintf("%s %d", tview.Escape(glyphs[name]), counts[name])
	}
	return strings.Join(parts, "  ")
}

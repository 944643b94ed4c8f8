package chat

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/m96-chan/zterm/internal/config"
	"github.com/m96-chan/zterm/internal/ui/keys"
)

// DefaultTopic is used when composing to a stream without a known topic.
const DefaultTopic = "(no topic)"

// ComposeTarget is the recipient of an outgoing message: a stream topic or a
// set of private recipients.
type ComposeTarget struct {
	Stream string
	Topic  string
	Emails []string
}

// StreamTarget returns a target for a stream topic. An empty topic becomes
// DefaultTopic.
func StreamTarget(stream, topic string) ComposeTarget {
	if strings.TrimSpace(topic) == "" {
		topic = DefaultTopic
	}
	return ComposeTarget{Stream: stream, Topic: topic}
}

// PrivateTarget returns a target for a private conversation.
func PrivateTarget(emails ...string) ComposeTarget {
	return ComposeTarget{Emails: slices.Clone(emails)}
}

// IsPrivate reports whether the target is a private conversation.
func (t ComposeTarget) IsPrivate() bool { return len(t.Emails) > 0 }

// IsZero reports whether no recipient is set.
func (t ComposeTarget) IsZero() bool { return t.Stream == "" && len(t.Emails) == 0 }

// Title returns the compose box title for the target.
func (t ComposeTarget) Title() string {
	switch {
	case t.IsPrivate():
		return fmt.Sprintf(" To %s ", strings.Join(t.Emails, ", "))
	case t.Stream != "":
		return fmt.Sprintf(" To #%s > %s ", t.Stream, t.Topic)
	default:
		return " Compose "
	}
}

// OnSendFunc is called when the user sends a message.
type OnSendFunc func(target ComposeTarget, text string)

// MessageInput wraps tview.TextArea with a recipient.
type MessageInput struct {
	*tview.TextArea
	cfg      *config.Config
	target   ComposeTarget
	onSend   OnSendFunc
	onCancel func() // called when the user leaves the compose box
}

// NewMessageInput creates a new message input component.
func NewMessageInput(cfg *config.Config) *MessageInput {
	mi := &MessageInput{
		TextArea: tview.NewTextArea(),
		cfg:      cfg,
	}

	mi.SetBorder(true).SetTitle(mi.target.Title())
	mi.SetPlaceholder("Type a message...")

	mi.SetInputCapture(mi.handleInput)

	return mi
}

// SetOnSend sets the callback for sending messages.
func (mi *MessageInput) SetOnSend(fn OnSendFunc) {
	mi.onSend = fn
}

// SetOnCancel sets the callback for leaving the compose box.
func (mi *MessageInput) SetOnCancel(fn func()) {
	mi.onCancel = fn
}

// SetTarget sets the recipient of the next message.
func (mi *MessageInput) SetTarget(t ComposeTarget) {
	mi.target = t
	mi.SetTitle(t.Title())
}

// Target returns the current recipient.
func (mi *MessageInput) Target() ComposeTarget {
	return mi.target
}

// handleInput processes keybindings for the input area.
func (mi *MessageInput) handleInput(event *tcell.EventKey) *tcell.EventKey {
	name := keys.Normalize(event.Name())
	kb := mi.cfg.Keybinds.MessageInput

	switch name {
	case kb.Send:
		mi.send()
		return nil

	case kb.Newline:
		// Hand a plain Enter to the TextArea so it inserts a newline.
		return tcell.NewEventKey(tcell.KeyEnter, '\n', tcell.ModNone)

	case kb.Cancel:
		mi.cancel()
		return nil
	}

	return event
}

// send dispatches the current input text.
func (mi *MessageInput) send() {
	text := strings.TrimSpace(mi.GetText())
	if text == "" || mi.target.IsZero() {
		return
	}

	if mi.onSend != nil {
		mi.onSend(mi.target, text)
	}

	mi.SetText("", false)
	mi.cancel()
}

// cancel resets the recipient, keeps any draft text and leaves the box.
func (mi *MessageInput) cancel() {
	mi.SetTarget(ComposeTarget{})
	if mi.onCancel != nil {
		mi.onCancel()
	}
}

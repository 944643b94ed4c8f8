package notifications

import (
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gen2brain/beeep"

	"github.com/m96-chan/zterm/internal/markdown"
	"github.com/m96-chan/zterm/internal/zulip"
)

// minInterval is the minimum time between notifications to prevent spam.
const minInterval = 3 * time.Second

// maxBody is the notification body length in runes.
const maxBody = 200

// Notifier sends desktop notifications with rate limiting.
type Notifier struct {
	sound bool

	// notify and alert default to beeep; tests replace them.
	notify func(title, message string, icon any) error
	alert  func(title, message string, icon any) error

	mu       sync.Mutex
	lastSent time.Time
}

// New creates a new Notifier. With sound enabled notifications are sent as
// alerts, which also play the system sound.
func New(sound bool) *Notifier {
	return &Notifier{
		sound:  sound,
		notify: beeep.Notify,
		alert:  beeep.Alert,
	}
}

// Send dispatches a desktop notification in the background. It returns false
// if the call was rate-limited.
func (n *Notifier) Send(title, body string) bool {
	n.mu.Lock()
	if time.Since(n.lastSent) < minInterval {
		n.mu.Unlock()
		return false
	}
	n.lastSent = time.Now()
	n.mu.Unlock()

	send := n.notify
	if n.sound {
		send = n.alert
	}
	go func() {
		if err := send(title, body, ""); err != nil {
			slog.Debug("notification failed", "error", err)
		}
	}()
	return true
}

// Reason identifies why a message deserves a notification.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonPrivate
	ReasonMention
	ReasonWildcard
)

// Classify decides whether a live message should notify the given user.
// Server-side flags are preferred; the content is scanned as a fallback for
// servers that omit them.
func Classify(m zulip.Message, selfID int64, selfName string) Reason {
	if m.SenderID == selfID {
		return ReasonNone
	}
	switch {
	case m.IsPrivate():
		return ReasonPrivate
	case m.HasFlag(zulip.FlagMentioned):
		return ReasonMention
	case m.HasFlag(zulip.FlagWildcardMentioned):
		return ReasonWildcard
	case markdown.Mentions(m.Content, selfName):
		return ReasonMention
	default:
		return ReasonNone
	}
}

// Title returns the notification title for a message.
func Title(m zulip.Message) string {
	if m.IsPrivate() {
		return m.SenderFullName
	}
	return m.SenderFullName + " in #" + m.StreamName() + " > " + m.Topic()
}

// Body returns the plain-text notification body for a message.
func Body(m zulip.Message) string {
	text := markdown.Plain(m.Content)
	if utf8.RuneCountInString(text) > maxBody {
		runes := []rune(text)
		text = string(runes[:maxBody]) + "…"
	}
	return text
}

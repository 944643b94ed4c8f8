package zulip

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"
)

// Message types as reported by the server.
const (
	TypeStream  = "stream"
	TypePrivate = "private"
)

// Message flags.
const (
	FlagRead              = "read"
	FlagMentioned         = "mentioned"
	FlagWildcardMentioned = "wildcard_mentioned"
	FlagStarred           = "starred"
)

// Message is a single message record as returned by GET /messages and the
// "message" event.
type Message struct {
	ID               int64      `json:"id"`
	SenderID         int64      `json:"sender_id"`
	SenderEmail      string     `json:"sender_email"`
	SenderFullName   string     `json:"sender_full_name"`
	Type             string     `json:"type"`
	StreamID         int64      `json:"stream_id"`
	Subject          string     `json:"subject"`
	DisplayRecipient Recipient  `json:"display_recipient"`
	Timestamp        int64      `json:"timestamp"`
	Content          string     `json:"content"`
	Flags            []string   `json:"flags"`
	Reactions        []Reaction `json:"reactions"`
}

// IsPrivate reports whether the message is a private (direct) message.
func (m Message) IsPrivate() bool { return m.Type == TypePrivate }

// StreamName returns the stream name for stream messages.
func (m Message) StreamName() string { return m.DisplayRecipient.Stream }

// Topic returns the topic ("subject") of a stream message.
func (m Message) Topic() string { return m.Subject }

// Time returns the message timestamp.
func (m Message) Time() time.Time { return time.Unix(m.Timestamp, 0) }

// HasFlag reports whether the message carries the given flag.
func (m Message) HasFlag(flag string) bool {
	return slices.Contains(m.Flags, flag)
}

// ParticipantIDs returns the user IDs of everyone in a private conversation,
// including the current user. Stream messages return nil.
func (m Message) ParticipantIDs() []int64 {
	if !m.IsPrivate() {
		return nil
	}
	ids := make([]int64, 0, len(m.DisplayRecipient.Users))
	for _, u := range m.DisplayRecipient.Users {
		ids = append(ids, u.ID)
	}
	return ids
}

// Recipient is the polymorphic display_recipient field: a stream name for
// stream messages, a list of users for private messages.
type Recipient struct {
	Stream string
	Users  []RecipientUser
}

// RecipientUser is one participant of a private conversation.
type RecipientUser struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Recipient) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		return json.Unmarshal(data, &r.Stream)
	case '[':
		return json.Unmarshal(data, &r.Users)
	default:
		return fmt.Errorf("unexpected display_recipient: %s", data)
	}
}

// MarshalJSON implements json.Marshaler.
func (r Recipient) MarshalJSON() ([]byte, error) {
	if r.Users != nil {
		return json.Marshal(r.Users)
	}
	return json.Marshal(r.Stream)
}

// Reaction is an emoji reaction on a message.
type Reaction struct {
	EmojiName    string `json:"emoji_name"`
	EmojiCode    string `json:"emoji_code"`
	ReactionType string `json:"reaction_type"`
	UserID       int64  `json:"user_id"`
}

// User is a realm member.
type User struct {
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	IsBot    bool   `json:"is_bot"`
	IsActive bool   `json:"is_active"`
}

// Subscription is a stream the current user is subscribed to.
type Subscription struct {
	StreamID    int64  `json:"stream_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	PinToTop    bool   `json:"pin_to_top"`
}

// Topic is a topic within a stream.
type Topic struct {
	Name  string `json:"name"`
	MaxID int64  `json:"max_id"`
}

// NarrowTerm is one operator/operand pair of a server-side narrow filter.
type NarrowTerm struct {
	Operator string `json:"operator"`
	Operand  string `json:"operand"`
	Negated  bool   `json:"negated,omitempty"`
}

// Anchor is the message a fetch window is centered on: either a concrete
// message ID or the "newest" sentinel.
type Anchor struct {
	id     int64
	newest bool
}

// Newest returns the anchor that selects the most recent message.
func Newest() Anchor { return Anchor{newest: true} }

// AnchorAt returns an anchor at the given message ID.
func AnchorAt(id int64) Anchor { return Anchor{id: id} }

// ID returns the anchor's message ID and false for the newest sentinel.
func (a Anchor) ID() (int64, bool) { return a.id, !a.newest }

// String returns the wire representation of the anchor.
func (a Anchor) String() string {
	if a.newest {
		return "newest"
	}
	return strconv.FormatInt(a.id, 10)
}

// GetMessagesParams bounds a message fetch.
type GetMessagesParams struct {
	Anchor    Anchor
	NumBefore int
	NumAfter  int
	Narrow    []NarrowTerm
}

// Queue identifies a registered event queue.
type Queue struct {
	ID           string `json:"queue_id"`
	LastEventID  int64  `json:"last_event_id"`
	MaxMessageID int64  `json:"max_message_id"`
}

// Event types delivered by the event queue.
const (
	EventMessage       = "message"
	EventUpdateMessage = "update_message"
	EventReaction      = "reaction"
	EventHeartbeat     = "heartbeat"
)

// Event is a single event from GET /events. Only the fields used by the
// registered event types are decoded.
type Event struct {
	ID           int64    `json:"id"`
	Type         string   `json:"type"`
	Op           string   `json:"op"`
	Message      *Message `json:"message"`
	Flags        []string `json:"flags"`
	MessageID    int64    `json:"message_id"`
	MessageIDs   []int64  `json:"message_ids"`
	Content      string   `json:"content"`
	Subject      string   `json:"subject"`
	UserID       int64    `json:"user_id"`
	EmojiName    string   `json:"emoji_name"`
	EmojiCode    string   `json:"emoji_code"`
	ReactionType string   `json:"reaction_type"`
}

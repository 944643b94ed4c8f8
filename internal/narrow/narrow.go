// Package narrow defines the conversation filters a user can view and the
// focus rules applied when switching between them.
package narrow

import (
	"slices"
	"strconv"
	"strings"

	"github.com/m96-chan/zterm/internal/zulip"
)

// Kind identifies a narrow variant.
type Kind int

const (
	KindAllMessages Kind = iota
	KindAllPrivate
	KindStream
	KindTopic
	KindPrivate
	KindSearch
)

func (k Kind) String() string {
	switch k {
	case KindAllMessages:
		return "all_messages"
	case KindAllPrivate:
		return "all_private"
	case KindStream:
		return "stream"
	case KindTopic:
		return "topic"
	case KindPrivate:
		return "private"
	case KindSearch:
		return "search"
	default:
		return "unknown"
	}
}

// Narrow is the active message filter. The zero value is AllMessages.
//
// Only the identity fields (kind, stream ID, topic, user set, query) take part
// in equality. Stream names and participant emails are carried for the
// server-side filter and for display.
type Narrow struct {
	kind     Kind
	streamID int64
	stream   string
	topic    string
	users    UserSet
	emails   []string
	query    string
}

// AllMessages returns the unfiltered narrow.
func AllMessages() Narrow { return Narrow{kind: KindAllMessages} }

// AllPrivate returns the narrow of every private conversation.
func AllPrivate() Narrow { return Narrow{kind: KindAllPrivate} }

// Stream returns the narrow of one stream.
func Stream(streamID int64, name string) Narrow {
	return Narrow{kind: KindStream, streamID: streamID, stream: name}
}

// Topic returns the narrow of one topic within a stream.
func Topic(streamID int64, name, topic string) Narrow {
	return Narrow{kind: KindTopic, streamID: streamID, stream: name, topic: topic}
}

// Private returns the narrow of a private conversation. The identity is the
// unordered set of all participants including self, so a conversation with
// oneself is {self}.
func Private(self int64, others ...int64) Narrow {
	return Narrow{kind: KindPrivate, users: NewUserSet(append([]int64{self}, others...)...)}
}

// WithEmails returns a copy of a private narrow carrying the other
// participants' emails, which the server filter needs.
func (n Narrow) WithEmails(emails ...string) Narrow {
	n.emails = slices.Clone(emails)
	slices.Sort(n.emails)
	return n
}

// TopicKey folds a topic name for comparison. The server matches topics
// case-insensitively.
func TopicKey(topic string) string { return strings.ToLower(topic) }

// Search returns the narrow of messages matching a full-text query.
func Search(query string) Narrow {
	return Narrow{kind: KindSearch, query: strings.TrimSpace(query)}
}

// Kind returns the narrow variant.
func (n Narrow) Kind() Kind { return n.kind }

// StreamID returns the stream ID of stream and topic narrows.
func (n Narrow) StreamID() int64 { return n.streamID }

// StreamName returns the stream name of stream and topic narrows.
func (n Narrow) StreamName() string { return n.stream }

// TopicName returns the topic of a topic narrow.
func (n Narrow) TopicName() string { return n.topic }

// Users returns the participant set of a private narrow.
func (n Narrow) Users() UserSet { return n.users }

// Emails returns the participant emails of a private narrow, if known.
func (n Narrow) Emails() []string { return slices.Clone(n.emails) }

// Query returns the search text of a search narrow.
func (n Narrow) Query() string { return n.query }

// Equal reports whether two narrows select the same conversation.
func (n Narrow) Equal(o Narrow) bool {
	if n.kind != o.kind {
		return false
	}
	switch n.kind {
	case KindAllMessages, KindAllPrivate:
		return true
	case KindStream:
		return n.streamID == o.streamID
	case KindTopic:
		return n.streamID == o.streamID && TopicKey(n.topic) == TopicKey(o.topic)
	case KindPrivate:
		return n.users.Equal(o.users)
	case KindSearch:
		return n.query == o.query
	default:
		return false
	}
}

// Key returns a stable identity key; equal narrows have equal keys.
func (n Narrow) Key() string {
	switch n.kind {
	case KindStream:
		return "stream:" + strconv.FormatInt(n.streamID, 10)
	case KindTopic:
		return "topic:" + strconv.FormatInt(n.streamID, 10) + ":" + TopicKey(n.topic)
	case KindPrivate:
		return "private:" + n.users.Key()
	case KindSearch:
		return "search:" + n.query
	default:
		return n.kind.String()
	}
}

// Filter returns the server-side narrow for fetching this narrow's messages.
func (n Narrow) Filter() []zulip.NarrowTerm {
	switch n.kind {
	case KindAllPrivate:
		return []zulip.NarrowTerm{{Operator: "is", Operand: "private"}}
	case KindStream:
		return []zulip.NarrowTerm{{Operator: "stream", Operand: n.stream}}
	case KindTopic:
		return []zulip.NarrowTerm{
			{Operator: "stream", Operand: n.stream},
			{Operator: "topic", Operand: n.topic},
		}
	case KindPrivate:
		if len(n.emails) == 0 {
			return []zulip.NarrowTerm{{Operator: "is", Operand: "private"}}
		}
		return []zulip.NarrowTerm{{Operator: "pm-with", Operand: strings.Join(n.emails, ",")}}
	case KindSearch:
		return []zulip.NarrowTerm{{Operator: "search", Operand: n.query}}
	default:
		return nil
	}
}

// Contains reports whether a message belongs in this narrow. Search results
// are decided by the server, so a search narrow never claims a message.
func (n Narrow) Contains(m zulip.Message) bool {
	switch n.kind {
	case KindAllMessages:
		return true
	case KindAllPrivate:
		return m.IsPrivate()
	case KindStream:
		return !m.IsPrivate() && m.StreamID == n.streamID
	case KindTopic:
		return !m.IsPrivate() && m.StreamID == n.streamID && TopicKey(m.Topic()) == TopicKey(n.topic)
	case KindPrivate:
		return m.IsPrivate() && NewUserSet(m.ParticipantIDs()...).Equal(n.users)
	default:
		return false
	}
}

// Title returns a short human-readable description.
func (n Narrow) Title() string {
	switch n.kind {
	case KindAllMessages:
		return "All messages"
	case KindAllPrivate:
		return "All private messages"
	case KindStream:
		return "#" + n.stream
	case KindTopic:
		return "#" + n.stream + " > " + n.topic
	case KindPrivate:
		if len(n.emails) > 0 {
			return "PM with " + strings.Join(n.emails, ", ")
		}
		return "Private conversation"
	case KindSearch:
		return "Search: " + n.query
	default:
		return ""
	}
}

// UserSet is an immutable, order-independent set of user IDs.
type UserSet struct {
	ids []int64 // sorted, unique
}

// NewUserSet builds a set from IDs in any order, dropping duplicates.
func NewUserSet(ids ...int64) UserSet {
	s := slices.Clone(ids)
	slices.Sort(s)
	return UserSet{ids: slices.Compact(s)}
}

// IDs returns the members in ascending order.
func (s UserSet) IDs() []int64 { return slices.Clone(s.ids) }

// Len returns the number of members.
func (s UserSet) Len() int { return len(s.ids) }

// Has reports whether id is a member.
func (s UserSet) Has(id int64) bool {
	_, ok := slices.BinarySearch(s.ids, id)
	return ok
}

// Equal reports whether both sets have the same members.
func (s UserSet) Equal(o UserSet) bool { return slices.Equal(s.ids, o.ids) }

// Key returns the comma-joined members, usable as a map key.
func (s UserSet) Key() string {
	parts := make([]string, len(s.ids))
	for i, id := range s.ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// StreamOf returns the stream narrow of a stream message.
func StreamOf(m zulip.Message) (Narrow, bool) {
	if m.IsPrivate() {
		return Narrow{}, false
	}
	return Stream(m.StreamID, m.StreamName()), true
}

// TopicOf returns the topic narrow of a stream message.
func TopicOf(m zulip.Message) (Narrow, bool) {
	if m.IsPrivate() {
		return Narrow{}, false
	}
	return Topic(m.StreamID, m.StreamName(), m.Topic()), true
}

// PrivateOf returns the narrow of the private conversation a message belongs
// to, carrying the other participants' emails. A conversation with oneself
// carries self's email.
func PrivateOf(m zulip.Message, self int64) (Narrow, bool) {
	if !m.IsPrivate() {
		return Narrow{}, false
	}
	var ids []int64
	var emails, selfEmails []string
	for _, u := range m.DisplayRecipient.Users {
		ids = append(ids, u.ID)
		if u.ID == self {
			selfEmails = append(selfEmails, u.Email)
		} else {
			emails = append(emails, u.Email)
		}
	}
	if len(emails) == 0 {
		emails = selfEmails
	}
	return Private(self, ids...).WithEmails(emails...), true
}

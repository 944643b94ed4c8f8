// Package index is the in-memory message cache. Messages are grouped into
// buckets by narrow category; each bucket is an ascending, duplicate-free
// list of message IDs. Nothing is ever evicted.
package index

import (
	"slices"
	"sync"

	"github.com/m96-chan/zterm/internal/narrow"
	"github.com/m96-chan/zterm/internal/zulip"
)

// Store maps message IDs and narrow categories to cached messages.
// It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	messages   map[int64]zulip.Message
	all        []int64
	allPrivate []int64
	allStream  map[int64][]int64
	stream     map[int64]map[string][]int64
	private    map[string][]int64 // user set key → IDs
	search     map[string][]int64 // query → IDs
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		messages:  make(map[int64]zulip.Message),
		allStream: make(map[int64][]int64),
		stream:    make(map[int64]map[string][]int64),
		private:   make(map[string][]int64),
		search:    make(map[string][]int64),
	}
}

// Merge inserts each message into every bucket it belongs to and returns the
// number of messages that were not cached before. Merging a known message is
// a no-op; the first stored value wins.
func (s *Store) Merge(msgs ...zulip.Message) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, m := range msgs {
		if s.merge(m) {
			added++
		}
	}
	return added
}

// MergeSearch merges msgs like Merge and also records them as results of
// the given search query.
func (s *Store) MergeSearch(query string, msgs ...zulip.Message) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, m := range msgs {
		if s.merge(m) {
			added++
		}
		bucket := s.search[query]
		insert(&bucket, m.ID)
		s.search[query] = bucket
	}
	return added
}

// merge must be called with s.mu held.
func (s *Store) merge(m zulip.Message) bool {
	if _, ok := s.messages[m.ID]; ok {
		return false
	}
	s.messages[m.ID] = m
	insert(&s.all, m.ID)

	if m.IsPrivate() {
		insert(&s.allPrivate, m.ID)
		key := narrow.NewUserSet(m.ParticipantIDs()...).Key()
		bucket := s.private[key]
		insert(&bucket, m.ID)
		s.private[key] = bucket
		return true
	}

	bucket := s.allStream[m.StreamID]
	insert(&bucket, m.ID)
	s.allStream[m.StreamID] = bucket

	topics := s.stream[m.StreamID]
	if topics == nil {
		topics = make(map[string][]int64)
		s.stream[m.StreamID] = topics
	}
	key := narrow.TopicKey(m.Topic())
	tb := topics[key]
	insert(&tb, m.ID)
	topics[key] = tb
	return true
}

// insert adds id to the sorted bucket unless already present.
func insert(bucket *[]int64, id int64) bool {
	i, found := slices.BinarySearch(*bucket, id)
	if found {
		return false
	}
	*bucket = slices.Insert(*bucket, i, id)
	return true
}

// Lookup returns a copy of the message IDs cached for the narrow's category,
// oldest first. A category never populated yields an empty slice.
func (s *Store) Lookup(n narrow.Narrow) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bucket []int64
	switch n.Kind() {
	case narrow.KindAllMessages:
		bucket = s.all
	case narrow.KindAllPrivate:
		bucket = s.allPrivate
	case narrow.KindStream:
		bucket = s.allStream[n.StreamID()]
	case narrow.KindTopic:
		bucket = s.stream[n.StreamID()][narrow.TopicKey(n.TopicName())]
	case narrow.KindPrivate:
		bucket = s.private[n.Users().Key()]
	case narrow.KindSearch:
		bucket = s.search[n.Query()]
	}
	return append([]int64{}, bucket...)
}

// Message returns the cached message with the given ID.
func (s *Store) Message(id int64) (zulip.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	return m, ok
}

// Messages resolves IDs to cached messages in order, skipping unknown IDs.
func (s *Store) Messages(ids []int64) []zulip.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]zulip.Message, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.messages[id]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Len returns the number of cached messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Edit replaces the content of a cached message. It reports whether the
// message was known.
func (s *Store) Edit(id int64, content string) bool {
	return s.update(id, func(m *zulip.Message) {
		m.Content = content
	})
}

// AddReaction records a reaction on a cached message.
func (s *Store) AddReaction(id int64, r zulip.Reaction) bool {
	return s.update(id, func(m *zulip.Message) {
		for _, existing := range m.Reactions {
			if existing.EmojiName == r.EmojiName && existing.UserID == r.UserID {
				return
			}
		}
		m.Reactions = append(slices.Clone(m.Reactions), r)
	})
}

// RemoveReaction removes a user's reaction from a cached message.
func (s *Store) RemoveReaction(id int64, r zulip.Reaction) bool {
	return s.update(id, func(m *zulip.Message) {
		m.Reactions = slices.DeleteFunc(slices.Clone(m.Reactions), func(e zulip.Reaction) bool {
			return e.EmojiName == r.EmojiName && e.UserID == r.UserID
		})
	})
}

// MoveTopic moves cached stream messages to another topic of their stream,
// updating both the message and the topic buckets. It returns the number of
// messages moved.
func (s *Store) MoveTopic(topic string, ids ...int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	newKey := narrow.TopicKey(topic)
	moved := 0
	for _, id := range ids {
		m, ok := s.messages[id]
		if !ok || m.IsPrivate() || m.Topic() == topic {
			continue
		}

		topics := s.stream[m.StreamID]
		oldKey := narrow.TopicKey(m.Topic())
		if i, found := slices.BinarySearch(topics[oldKey], id); found {
			topics[oldKey] = slices.Delete(topics[oldKey], i, i+1)
			if len(topics[oldKey]) == 0 {
				delete(topics, oldKey)
			}
		}
		tb := topics[newKey]
		insert(&tb, id)
		topics[newKey] = tb

		m.Subject = topic
		s.messages[id] = m
		moved++
	}
	return moved
}

// MarkRead sets the read flag on the given cached messages.
func (s *Store) MarkRead(ids ...int64) {
	for _, id := range ids {
		s.update(id, func(m *zulip.Message) {
			if !m.HasFlag(zulip.FlagRead) {
				m.Flags = append(slices.Clone(m.Flags), zulip.FlagRead)
			}
		})
	}
}

// update replaces a stored message with a modified copy.
func (s *Store) update(id int64, fn func(*zulip.Message)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return false
	}
	fn(&m)
	s.messages[id] = m
	return true
}

// Unread holds unread message counts.
type Unread struct {
	All     int
	Private int
	Streams map[int64]int
}

// UnreadCounts counts cached messages without the read flag.
func (s *Store) UnreadCounts() Unread {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u := Unread{Streams: make(map[int64]int)}
	for _, m := range s.messages {
		if m.HasFlag(zulip.FlagRead) {
			continue
		}
		u.All++
		if m.IsPrivate() {
			u.Private++
		} else {
			u.Streams[m.StreamID]++
		}
	}
	return u
}

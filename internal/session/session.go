// Package session owns the current narrow and the message index, and
// decides when switching narrows requires fetching from the server.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/m96-chan/zterm/internal/index"
	"github.com/m96-chan/zterm/internal/narrow"
	"github.com/m96-chan/zterm/internal/zulip"
)

// Fetch window sizes.
const (
	DefaultBefore = 30
	DefaultAfter  = 10

	// SearchAnchor is above any real message ID, so a search window with
	// after=0 returns the newest matches.
	SearchAnchor int64 = 10000000000
	SearchBefore       = 30
	SearchAfter        = 0
)

// Fetcher retrieves a bounded window of messages from the server.
type Fetcher interface {
	GetMessages(ctx context.Context, p zulip.GetMessagesParams) ([]zulip.Message, error)
}

// Origin records how a navigation was triggered: directly (menu, stream
// list, user list) or from a specific message in the current view.
type Origin struct {
	messageID   int64
	fromMessage bool
}

// Direct returns the origin of a navigation not tied to a message.
func Direct() Origin { return Origin{} }

// FromMessage returns the origin of a navigation started from a message.
func FromMessage(id int64) Origin { return Origin{messageID: id, fromMessage: true} }

// MessageID returns the originating message ID, if any.
func (o Origin) MessageID() (int64, bool) { return o.messageID, o.fromMessage }

// Request asks to switch to a narrow.
type Request struct {
	Narrow narrow.Narrow
	Origin Origin
}

// Result describes the view to render after a navigation.
type Result struct {
	Narrow narrow.Narrow
	// AlreadyNarrowed is set when the requested narrow was already current;
	// the caller must leave the view untouched.
	AlreadyNarrowed bool
	// IDs are the message IDs to display, oldest first.
	IDs []int64
	// Focus is the position in IDs to focus; apply only if narrow.InRange.
	Focus int
	// Fetched reports whether the server was queried.
	Fetched bool
}

// Session holds the per-login navigation state.
type Session struct {
	fetcher Fetcher
	store   *index.Store

	mu      sync.Mutex
	current narrow.Narrow
	focus   map[string]int64 // narrow key → last focused message ID
}

// New creates a Session starting at the all-messages narrow.
func New(fetcher Fetcher, store *index.Store) *Session {
	return &Session{
		fetcher: fetcher,
		store:   store,
		current: narrow.AllMessages(),
		focus:   make(map[string]int64),
	}
}

// Store returns the message index.
func (s *Session) Store() *index.Store { return s.store }

// Current returns the active narrow.
func (s *Session) Current() narrow.Narrow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SetNarrow makes n the current narrow. It returns true, and changes
// nothing, when n equals the current narrow.
func (s *Session) SetNarrow(n narrow.Narrow) bool {
	_, already := s.swap(n)
	return already
}

func (s *Session) swap(n narrow.Narrow) (prev narrow.Narrow, already bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev = s.current
	if prev.Equal(n) {
		return prev, true
	}
	s.current = n
	return prev, false
}

// restore puts prev back as the current narrow if n is still current.
func (s *Session) restore(n, prev narrow.Narrow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.Equal(n) {
		s.current = prev
	}
}

// GetMessages fetches a window of the current narrow's messages with exactly
// the given bounds and merges them into the index.
func (s *Session) GetMessages(ctx context.Context, anchor zulip.Anchor, before, after int) error {
	return s.fetch(ctx, s.Current(), anchor, before, after)
}

func (s *Session) fetch(ctx context.Context, n narrow.Narrow, anchor zulip.Anchor, before, after int) error {
	msgs, err := s.fetcher.GetMessages(ctx, zulip.GetMessagesParams{
		Anchor:    anchor,
		NumBefore: before,
		NumAfter:  after,
		Narrow:    n.Filter(),
	})
	if err != nil {
		return fmt.Errorf("fetching %s: %w", n.Title(), err)
	}

	var added int
	if n.Kind() == narrow.KindSearch {
		added = s.store.MergeSearch(n.Query(), msgs...)
	} else {
		added = s.store.Merge(msgs...)
	}
	slog.Debug("messages fetched",
		"narrow", n.Key(), "anchor", anchor.String(),
		"before", before, "after", after,
		"received", len(msgs), "new", added)
	return nil
}

// Navigate switches to the requested narrow. Search narrows always query the
// server for the newest matches; other narrows are fetched only when the
// index holds nothing for them. If the fetch fails the previous narrow is
// restored, so repeating the same action retries.
func (s *Session) Navigate(ctx context.Context, req Request) (Result, error) {
	n := req.Narrow
	prev, already := s.swap(n)
	if already {
		return Result{Narrow: n, AlreadyNarrowed: true}, nil
	}

	var (
		err     error
		fetched bool
	)
	switch {
	case n.Kind() == narrow.KindSearch:
		fetched = true
		err = s.fetch(ctx, n, zulip.AnchorAt(SearchAnchor), SearchBefore, SearchAfter)
	case len(s.store.Lookup(n)) == 0:
		anchor := zulip.Newest()
		if id, ok := req.Origin.MessageID(); ok {
			anchor = zulip.AnchorAt(id)
		}
		fetched = true
		err = s.fetch(ctx, n, anchor, DefaultBefore, DefaultAfter)
	}
	if err != nil {
		s.restore(n, prev)
		return Result{Narrow: n}, err
	}

	ids := s.store.Lookup(n)
	return Result{
		Narrow:  n,
		IDs:     ids,
		Focus:   s.focusFor(n, ids, req.Origin),
		Fetched: fetched,
	}, nil
}

// focusFor picks the initial focus: the originating message, then the
// message last focused in this narrow, then the newest message. Search
// results start at the top.
func (s *Session) focusFor(n narrow.Narrow, ids []int64, origin Origin) int {
	if id, ok := origin.MessageID(); ok {
		return narrow.Focus(ids, narrow.TargetMessage(id))
	}

	s.mu.Lock()
	remembered, ok := s.focus[n.Key()]
	s.mu.Unlock()
	if ok {
		return narrow.Focus(ids, narrow.TargetMessage(remembered))
	}

	if n.Kind() == narrow.KindSearch {
		if len(ids) == 0 {
			return -1
		}
		return 0
	}
	return narrow.Focus(ids, narrow.NoTarget())
}

// RememberFocus records the focused message of the current narrow so that
// returning to it restores the position.
func (s *Session) RememberFocus(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focus[s.current.Key()] = id
}

// Ingest merges a live message into the index. It reports whether the
// message was new and whether it belongs to the current narrow.
func (s *Session) Ingest(m zulip.Message) (added, visible bool) {
	added = s.store.Merge(m) == 1
	return added, s.Current().Contains(m)
}

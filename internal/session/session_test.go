package session

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/m96-chan/zterm/internal/index"
	"github.com/m96-chan/zterm/internal/narrow"
	"github.com/m96-chan/zterm/internal/zulip"
)

// fakeFetcher records requests and answers with canned messages.
type fakeFetcher struct {
	calls []zulip.GetMessagesParams
	reply []zulip.Message
	err   error
}

func (f *fakeFetcher) GetMessages(_ context.Context, p zulip.GetMessagesParams) ([]zulip.Message, error) {
	f.calls = append(f.calls, p)
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func streamMsg(id, streamID int64, stream, topic string) zulip.Message {
	return zulip.Message{
		ID:               id,
		Type:             zulip.TypeStream,
		StreamID:         streamID,
		Subject:          topic,
		DisplayRecipient: zulip.Recipient{Stream: stream},
	}
}

func newTestSession(reply ...zulip.Message) (*Session, *fakeFetcher) {
	f := &fakeFetcher{reply: reply}
	return New(f, index.New()), f
}

func TestSetNarrowEqualIsNoop(t *testing.T) {
	s, _ := newTestSession()

	if s.SetNarrow(narrow.Stream(42, "general")) {
		t.Fatal("first SetNarrow should report a change")
	}
	if !s.SetNarrow(narrow.Stream(42, "general")) {
		t.Error("equal narrow should report already narrowed")
	}
	if !s.SetNarrow(narrow.Stream(42, "renamed")) {
		t.Error("stream name is not part of identity")
	}
	if s.SetNarrow(narrow.Topic(42, "general", "lunch")) {
		t.Error("topic narrow differs from stream narrow")
	}
}

func TestSetNarrowPrivateOrderIndependent(t *testing.T) {
	s, _ := newTestSession()
	s.SetNarrow(narrow.Private(1, 2))
	if !s.SetNarrow(narrow.Private(2, 1)) {
		t.Error("{A,B} and {B,A} should be the same narrow")
	}
}

func TestInitialNarrowIsAllMessages(t *testing.T) {
	s, _ := newTestSession()
	if !s.Current().Equal(narrow.AllMessages()) {
		t.Errorf("Current = %s, want all_messages", s.Current().Key())
	}
}

func TestNavigateStreamFetchesOnceWhenEmpty(t *testing.T) {
	s, f := newTestSession(
		streamMsg(10, 42, "general", "lunch"),
		streamMsg(11, 42, "general", "dinner"),
	)

	res, err := s.Navigate(context.Background(), Request{Narrow: narrow.Stream(42, "general"), Origin: Direct()})
	if err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if len(f.calls) != 1 {
		t.Fatalf("fetch calls = %d, want 1", len(f.calls))
	}
	call := f.calls[0]
	if call.NumBefore != 30 || call.NumAfter != 10 || call.Anchor.String() != "newest" {
		t.Errorf("window = %s/%d/%d, want newest/30/10", call.Anchor, call.NumBefore, call.NumAfter)
	}
	if len(call.Narrow) != 1 || call.Narrow[0].Operand != "general" {
		t.Errorf("narrow filter = %+v", call.Narrow)
	}

	if !res.Fetched || res.AlreadyNarrowed {
		t.Errorf("result = %+v", res)
	}
	if !slices.Equal(res.IDs, []int64{10, 11}) {
		t.Errorf("IDs = %v", res.IDs)
	}
	if res.Focus != 1 {
		t.Errorf("Focus = %d, want 1 (last)", res.Focus)
	}

	if got := s.Store().Lookup(narrow.Topic(42, "general", "lunch")); !slices.Equal(got, []int64{10}) {
		t.Errorf("topic bucket = %v, want [10]", got)
	}

	// Same stream again: already narrowed, no fetch.
	res, err = s.Navigate(context.Background(), Request{Narrow: narrow.Stream(42, "general")})
	if err != nil {
		t.Fatal(err)
	}
	if !res.AlreadyNarrowed {
		t.Error("second navigation should be already narrowed")
	}
	if len(f.calls) != 1 {
		t.Errorf("fetch calls = %d, want still 1", len(f.calls))
	}

	// Leave and come back: cached, no fetch.
	if _, err := s.Navigate(context.Background(), Request{Narrow: narrow.AllMessages()}); err != nil {
		t.Fatal(err)
	}
	res, err = s.Navigate(context.Background(), Request{Narrow: narrow.Stream(42, "general")})
	if err != nil {
		t.Fatal(err)
	}
	if res.Fetched || len(f.calls) != 1 {
		t.Errorf("re-entering cached stream fetched (calls=%d)", len(f.calls))
	}
}

func TestNavigateFromMessageAnchorsAndFocuses(t *testing.T) {
	s, f := newTestSession(
		streamMsg(10, 42, "general", "lunch"),
		streamMsg(20, 42, "general", "lunch"),
		streamMsg(30, 42, "general", "lunch"),
	)

	res, err := s.Navigate(context.Background(), Request{
		Narrow: narrow.Topic(42, "general", "lunch"),
		Origin: FromMessage(20),
	})
	if err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if got := f.calls[0].Anchor.String(); got != "20" {
		t.Errorf("anchor = %s, want 20", got)
	}
	if res.Focus != 1 {
		t.Errorf("Focus = %d, want 1", res.Focus)
	}
}

func TestNavigateSearchAlwaysFetches(t *testing.T) {
	s, f := newTestSession(streamMsg(10, 42, "general", "hello there"))

	for i := 0; i < 2; i++ {
		if _, err := s.Navigate(context.Background(), Request{Narrow: narrow.Search("hello")}); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Navigate(context.Background(), Request{Narrow: narrow.AllMessages()}); err != nil {
			t.Fatal(err)
		}
	}

	if len(f.calls) != 2 {
		t.Fatalf("fetch calls = %d, want 2", len(f.calls))
	}
	for _, call := range f.calls {
		if call.Anchor.String() != "10000000000" || call.NumBefore != 30 || call.NumAfter != 0 {
			t.Errorf("search window = %s/%d/%d", call.Anchor, call.NumBefore, call.NumAfter)
		}
		if len(call.Narrow) != 1 || call.Narrow[0].Operator != "search" || call.Narrow[0].Operand != "hello" {
			t.Errorf("search filter = %+v", call.Narrow)
		}
	}
	if got := s.Store().Lookup(narrow.Search("hello")); !slices.Equal(got, []int64{10}) {
		t.Errorf("search bucket = %v", got)
	}
}

func TestNavigateRepeatedSearchIsAlreadyNarrowed(t *testing.T) {
	s, f := newTestSession(streamMsg(10, 42, "general", "hello there"))
	req := Request{Narrow: narrow.Search("hello")}

	if _, err := s.Navigate(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	res, err := s.Navigate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !res.AlreadyNarrowed || res.Fetched {
		t.Errorf("repeated search = %+v, want AlreadyNarrowed without fetch", res)
	}
	if len(f.calls) != 1 {
		t.Errorf("fetch calls = %d, want 1", len(f.calls))
	}
}

func TestNavigateSearchFocusesFirstResult(t *testing.T) {
	s, _ := newTestSession(streamMsg(10, 1, "a", "t"), streamMsg(11, 1, "a", "t"))
	res, err := s.Navigate(context.Background(), Request{Narrow: narrow.Search("t")})
	if err != nil {
		t.Fatal(err)
	}
	if res.Focus != 0 {
		t.Errorf("Focus = %d, want 0", res.Focus)
	}
}

func TestNavigateAllMessagesCached(t *testing.T) {
	s, f := newTestSession()
	s.Store().Merge(streamMsg(1, 1, "a", "t"))
	s.SetNarrow(narrow.AllPrivate())

	res, err := s.Navigate(context.Background(), Request{Narrow: narrow.AllMessages()})
	if err != nil {
		t.Fatal(err)
	}
	if res.Fetched || len(f.calls) != 0 {
		t.Error("non-empty bucket must not be re-fetched")
	}
}

func TestNavigateEmptyResultFocusOutOfRange(t *testing.T) {
	s, _ := newTestSession()
	res, err := s.Navigate(context.Background(), Request{Narrow: narrow.Stream(9, "empty")})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.IDs) != 0 {
		t.Errorf("IDs = %v", res.IDs)
	}
	if narrow.InRange(res.Focus, len(res.IDs)) {
		t.Errorf("Focus %d should be out of range for an empty view", res.Focus)
	}
}

func TestNavigateFetchErrorRestoresNarrow(t *testing.T) {
	s, f := newTestSession()
	f.err = errors.New("connection refused")

	_, err := s.Navigate(context.Background(), Request{Narrow: narrow.Stream(42, "general")})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, f.err) {
		t.Errorf("error should wrap the fetch error, got %v", err)
	}
	if !s.Current().Equal(narrow.AllMessages()) {
		t.Errorf("Current = %s, want previous narrow restored", s.Current().Key())
	}

	// Retrying the same action fetches again.
	f.err = nil
	f.reply = []zulip.Message{streamMsg(10, 42, "general", "x")}
	res, err := s.Navigate(context.Background(), Request{Narrow: narrow.Stream(42, "general")})
	if err != nil {
		t.Fatal(err)
	}
	if res.AlreadyNarrowed || len(f.calls) != 2 {
		t.Errorf("retry did not fetch: %+v calls=%d", res, len(f.calls))
	}
}

func TestGetMessagesUsesCurrentNarrow(t *testing.T) {
	s, f := newTestSession(streamMsg(10, 42, "general", "x"))
	s.SetNarrow(narrow.Topic(42, "general", "x"))

	if err := s.GetMessages(context.Background(), zulip.AnchorAt(5), 3, 4); err != nil {
		t.Fatal(err)
	}
	call := f.calls[0]
	if call.Anchor.String() != "5" || call.NumBefore != 3 || call.NumAfter != 4 || len(call.Narrow) != 2 {
		t.Errorf("call = %+v", call)
	}
}

func TestRememberFocus(t *testing.T) {
	s, _ := newTestSession()
	s.Store().Merge(streamMsg(10, 1, "a", "t"), streamMsg(20, 1, "a", "t"), streamMsg(30, 1, "a", "t"))

	if _, err := s.Navigate(context.Background(), Request{Narrow: narrow.Stream(1, "a")}); err != nil {
		t.Fatal(err)
	}
	s.RememberFocus(20)
	if _, err := s.Navigate(context.Background(), Request{Narrow: narrow.AllMessages()}); err != nil {
		t.Fatal(err)
	}

	res, err := s.Navigate(context.Background(), Request{Narrow: narrow.Stream(1, "a")})
	if err != nil {
		t.Fatal(err)
	}
	if res.Focus != 1 {
		t.Errorf("Focus = %d, want remembered position 1", res.Focus)
	}
}

func TestIngest(t *testing.T) {
	s, _ := newTestSession()
	s.SetNarrow(narrow.Stream(42, "general"))

	added, visible := s.Ingest(streamMsg(10, 42, "general", "x"))
	if !added || !visible {
		t.Errorf("added=%v visible=%v, want true true", added, visible)
	}
	added, _ = s.Ingest(streamMsg(10, 42, "general", "x"))
	if added {
		t.Error("duplicate live message must not be added twice")
	}
	_, visible = s.Ingest(streamMsg(11, 43, "random", "x"))
	if visible {
		t.Error("message from another stream should not be visible")
	}
}

package zulip

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatchEventRouting(t *testing.T) {
	tests := []struct {
		name        string
		ev          Event
		wantMsg     bool
		wantUpdate  bool
		wantAdded   bool
		wantRemoved bool
	}{
		{"message", Event{Type: EventMessage, Message: &Message{ID: 1}}, true, false, false, false},
		{"message without body", Event{Type: EventMessage}, false, false, false, false},
		{"update", Event{Type: EventUpdateMessage, MessageID: 1, Content: "edited"}, false, true, false, false},
		{"update without content", Event{Type: EventUpdateMessage, MessageID: 1}, false, false, false, false},
		{"reaction add", Event{Type: EventReaction, Op: "add", MessageID: 1, EmojiName: "tada"}, false, false, true, false},
		{"reaction remove", Event{Type: EventReaction, Op: "remove", MessageID: 1, EmojiName: "tada"}, false, false, false, true},
		{"heartbeat", Event{Type: EventHeartbeat}, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotMsg, gotUpdate, gotAdded, gotRemoved bool
			handler := &EventHandler{
				OnMessage:        func(Message) { gotMsg = true },
				OnMessageUpdated: func(int64, string) { gotUpdate = true },
				OnReactionAdded:  func(int64, Reaction) { gotAdded = true },
				OnReactionRemove: func(int64, Reaction) { gotRemoved = true },
			}
			dispatchEvent(handler, tt.ev)

			if gotMsg != tt.wantMsg || gotUpdate != tt.wantUpdate || gotAdded != tt.wantAdded || gotRemoved != tt.wantRemoved {
				t.Errorf("got msg=%v update=%v added=%v removed=%v", gotMsg, gotUpdate, gotAdded, gotRemoved)
			}
		})
	}
}

func TestDispatchMessageCarriesEventFlags(t *testing.T) {
	var got Message
	handler := &EventHandler{OnMessage: func(m Message) { got = m }}
	dispatchEvent(handler, Event{Type: EventMessage, Message: &Message{ID: 5}, Flags: []string{FlagMentioned}})

	if !got.HasFlag(FlagMentioned) {
		t.Errorf("flags = %v, want mentioned", got.Flags)
	}
}

func TestDispatchTopicChange(t *testing.T) {
	tests := []struct {
		name        string
		ev          Event
		wantIDs     []int64
		wantTopic   string
		wantContent bool
	}{
		{
			name:      "move only",
			ev:        Event{Type: EventUpdateMessage, MessageID: 1, MessageIDs: []int64{1, 2, 3}, Subject: "new"},
			wantIDs:   []int64{1, 2, 3},
			wantTopic: "new",
		},
		{
			name:        "edit and move",
			ev:          Event{Type: EventUpdateMessage, MessageID: 1, Content: "edited", Subject: "new"},
			wantIDs:     []int64{1},
			wantTopic:   "new",
			wantContent: true,
		},
		{
			name:        "edit only",
			ev:          Event{Type: EventUpdateMessage, MessageID: 1, MessageIDs: []int64{1}, Content: "edited"},
			wantContent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				gotIDs     []int64
				gotTopic   string
				gotContent bool
			)
			handler := &EventHandler{
				OnMessageUpdated: func(int64, string) { gotContent = true },
				OnTopicChanged: func(ids []int64, topic string) {
					gotIDs, gotTopic = ids, topic
				},
			}
			dispatchEvent(handler, tt.ev)

			if !slices.Equal(gotIDs, tt.wantIDs) || gotTopic != tt.wantTopic {
				t.Errorf("topic change = %v %q, want %v %q", gotIDs, gotTopic, tt.wantIDs, tt.wantTopic)
			}
			if gotContent != tt.wantContent {
				t.Errorf("content update = %v, want %v", gotContent, tt.wantContent)
			}
		})
	}
}

func TestNilCallbacksDoNotPanic(t *testing.T) {
	handler := &EventHandler{}
	dispatchEvent(handler, Event{Type: EventMessage, Message: &Message{ID: 1}})
	dispatchEvent(handler, Event{Type: EventUpdateMessage, MessageID: 1, Content: "x"})
	dispatchEvent(handler, Event{Type: EventUpdateMessage, MessageID: 1, Subject: "moved"})
	dispatchEvent(handler, Event{Type: EventReaction, Op: "add"})
	dispatchEvent(handler, Event{Type: EventReaction, Op: "remove"})
	dispatchEvent(handler, Event{Type: "presence"})
}

func TestRunEventsReregistersExpiredQueue(t *testing.T) {
	var (
		registers atomic.Int32
		mu        sync.Mutex
		seen      []int64
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newTestClient(t, map[string]http.HandlerFunc{
		"/api/v1/register": func(w http.ResponseWriter, r *http.Request) {
			registers.Add(1)
			writeJSON(w, map[string]any{"result": "success", "queue_id": "q-2", "last_event_id": -1})
		},
		"/api/v1/events": func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Query().Get("queue_id") {
			case "q-1":
				w.WriteHeader(http.StatusBadRequest)
				writeJSON(w, map[string]any{"result": "error", "msg": "Bad event queue ID: q-1", "code": "BAD_EVENT_QUEUE_ID"})
			default:
				if r.URL.Query().Get("last_event_id") != "-1" {
					<-r.Context().Done()
					return
				}
				writeJSON(w, map[string]any{"result": "success", "events": []map[string]any{
					{"id": 0, "type": "message", "message": map[string]any{"id": 77, "type": "stream", "display_recipient": "general"}, "flags": []string{}},
				}})
			}
		},
	})

	var disconnected atomic.Bool
	done := make(chan error, 1)
	go func() {
		done <- c.RunEvents(ctx, &Queue{ID: "q-1", LastEventID: 3}, DefaultEventTypes, &EventHandler{
			OnMessage: func(m Message) {
				mu.Lock()
				seen = append(seen, m.ID)
				mu.Unlock()
				cancel()
			},
			OnDisconnected: func() { disconnected.Store(true) },
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("RunEvents did not return")
	}

	if registers.Load() != 1 {
		t.Errorf("registers = %d, want 1", registers.Load())
	}
	if !disconnected.Load() {
		t.Error("OnDisconnected not called for expired queue")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != 77 {
		t.Errorf("seen = %v, want [77]", seen)
	}
}

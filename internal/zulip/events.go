package zulip

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// DefaultEventTypes are the event types zterm registers for.
var DefaultEventTypes = []string{EventMessage, EventUpdateMessage, EventReaction}

const (
	codeBadEventQueue = "BAD_EVENT_QUEUE_ID"
	pollErrorBackoff  = 2 * time.Second
)

// EventHandler holds typed callback fields, one per event kind.
// Nil callbacks are silently skipped.
type EventHandler struct {
	OnMessage        func(Message)
	OnMessageUpdated func(messageID int64, content string)
	OnTopicChanged   func(messageIDs []int64, topic string)
	OnReactionAdded  func(messageID int64, r Reaction)
	OnReactionRemove func(messageID int64, r Reaction)
	OnConnected      func()
	OnDisconnected   func()
	OnError          func(error)
}

// RunEvents long-polls the given queue and dispatches events to handler. When
// the server expires the queue it registers a new one. It blocks until ctx is
// cancelled.
func (c *Client) RunEvents(ctx context.Context, q *Queue, eventTypes []string, handler *EventHandler) error {
	if q == nil {
		q = &Queue{}
	}
	connected := q.ID != ""
	if connected && handler.OnConnected != nil {
		handler.OnConnected()
	}

	for {
		if !connected {
			nq, err := c.Register(ctx, eventTypes)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				reportError(handler, err)
				if !sleepCtx(ctx, pollErrorBackoff) {
					return ctx.Err()
				}
				continue
			}
			*q = *nq
			connected = true
			slog.Info("event queue registered", "queue_id", q.ID)
			if handler.OnConnected != nil {
				handler.OnConnected()
			}
		}

		events, err := c.GetEvents(ctx, q.ID, q.LastEventID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Code == codeBadEventQueue {
				slog.Warn("event queue expired, re-registering", "queue_id", q.ID)
				connected = false
				if handler.OnDisconnected != nil {
					handler.OnDisconnected()
				}
				continue
			}
			reportError(handler, err)
			if !sleepCtx(ctx, pollErrorBackoff) {
				return ctx.Err()
			}
			continue
		}

		for _, ev := range events {
			if ev.ID > q.LastEventID {
				q.LastEventID = ev.ID
			}
			dispatchEvent(handler, ev)
		}
	}
}

// dispatchEvent routes a single event to the matching callback.
func dispatchEvent(handler *EventHandler, ev Event) {
	switch ev.Type {
	case EventMessage:
		if ev.Message == nil || handler.OnMessage == nil {
			return
		}
		msg := *ev.Message
		if ev.Flags != nil {
			msg.Flags = ev.Flags
		}
		handler.OnMessage(msg)
	case EventUpdateMessage:
		if ev.MessageID != 0 && ev.Content != "" && handler.OnMessageUpdated != nil {
			handler.OnMessageUpdated(ev.MessageID, ev.Content)
		}
		// subject is only present when the topic changed.
		if ev.Subject != "" && handler.OnTopicChanged != nil {
			ids := ev.MessageIDs
			if len(ids) == 0 && ev.MessageID != 0 {
				ids = []int64{ev.MessageID}
			}
			if len(ids) > 0 {
				handler.OnTopicChanged(ids, ev.Subject)
			}
		}
	case EventReaction:
		r := Reaction{EmojiName: ev.EmojiName, EmojiCode: ev.EmojiCode, ReactionType: ev.ReactionType, UserID: ev.UserID}
		switch ev.Op {
		case "add":
			if handler.OnReactionAdded != nil {
				handler.OnReactionAdded(ev.MessageID, r)
			}
		case "remove":
			if handler.OnReactionRemove != nil {
				handler.OnReactionRemove(ev.MessageID, r)
			}
		}
	case EventHeartbeat:
	default:
		slog.Debug("ignoring event", "type", ev.Type, "id", ev.ID)
	}
}

func reportError(handler *EventHandler, err error) {
	slog.Warn("event poll failed", "error", err)
	if handler.OnError != nil {
		handler.OnError(err)
	}
}

// sleepCtx waits for d and reports false if ctx was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

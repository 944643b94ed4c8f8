package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/m96-chan/zterm/internal/clipboard"
	"github.com/m96-chan/zterm/internal/config"
	"github.com/m96-chan/zterm/internal/index"
	"github.com/m96-chan/zterm/internal/keyring"
	"github.com/m96-chan/zterm/internal/markdown"
	"github.com/m96-chan/zterm/internal/narrow"
	"github.com/m96-chan/zterm/internal/notifications"
	"github.com/m96-chan/zterm/internal/session"
	"github.com/m96-chan/zterm/internal/ui/chat"
	"github.com/m96-chan/zterm/internal/ui/keys"
	"github.com/m96-chan/zterm/internal/ui/login"
	"github.com/m96-chan/zterm/internal/zulip"
)

const (
	connectTimeout = 15 * time.Second
	requestTimeout = 30 * time.Second
)

// App is the top-level application struct.
type App struct {
	Config   *config.Config
	tview    *tview.Application
	client   *zulip.Client
	session  *session.Session
	chatView *chat.View
	notifier *notifications.Notifier
	cancel   context.CancelFunc
	mu       sync.Mutex

	// shown is the narrow on screen. It lags the session's current narrow
	// while a navigation is in flight. Only touched from the tview event loop.
	shown narrow.Narrow
}

// New creates a new App with the given config.
func New(cfg *config.Config) *App {
	return &App{
		Config:   cfg,
		tview:    tview.NewApplication(),
		notifier: notifications.New(cfg.Notifications.Sound.Enabled),
	}
}

// Run starts the TUI event loop. It connects with stored credentials when
// there are any and shows the login form otherwise.
func (a *App) Run() error {
	a.tview.EnableMouse(a.Config.Mouse)

	// Set up OS signal handling for graceful shutdown.
	sigCtx, sigStop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCtx.Done()
		sigStop()
		a.shutdown()
	}()

	a.tview.SetInputCapture(a.handleGlobalKey)

	if creds, ok := a.storedCredentials(); ok {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		client, err := zulip.New(ctx, creds)
		cancel()
		if err != nil {
			slog.Warn("stored credentials rejected, showing login", "site", creds.Site, "error", err)
			a.showLogin()
		} else {
			a.client = client
			a.showMain()
		}
	} else {
		a.showLogin()
	}

	return a.tview.Run()
}

// storedCredentials looks for credentials in the zuliprc file, then for the
// configured or last used account with its API key in the keyring.
func (a *App) storedCredentials() (zulip.Credentials, bool) {
	if path := a.Config.Zuliprc; path != "" {
		creds, err := zulip.LoadZuliprc(path)
		if err == nil {
			slog.Info("using zuliprc", "path", path)
			return creds, true
		}
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to read zuliprc", "path", path, "error", err)
		}
	}

	site, email := a.Config.Server.Site, a.Config.Server.Email
	if site == "" {
		last, ok := keyring.LastAccount()
		if !ok {
			return zulip.Credentials{}, false
		}
		site, email = last.Site, last.Email
	}

	key, err := keyring.GetAPIKey(site, email)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			slog.Warn("error reading API key", "site", site, "email", email, "error", err)
		}
		return zulip.Credentials{}, false
	}
	return zulip.Credentials{Site: site, Email: email, APIKey: key}, true
}

// shutdown stops the event poller and the TUI.
func (a *App) shutdown() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	a.tview.Stop()
}

// handleGlobalKey processes global keybindings. It returns nil to consume the
// event or the original event to let it propagate.
func (a *App) handleGlobalKey(event *tcell.EventKey) *tcell.EventKey {
	name := keys.Normalize(event.Name())

	if name == a.Config.Keybinds.Quit {
		a.shutdown()
		return nil
	}

	if a.chatView != nil {
		return a.chatView.HandleKey(event)
	}

	return event
}

// showLogin sets the root to the login form.
func (a *App) showLogin() {
	form := login.New(a.tview, a.Config, func(client *zulip.Client) {
		a.client = client
		a.showMain()
	})
	a.tview.SetRoot(form, true)
}

// showMain sets the root to the chat layout and starts loading data and
// polling events in the background.
func (a *App) showMain() {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.mu.Unlock()

	a.session = session.New(a.client, index.New())
	a.chatView = chat.New(a.tview, a.Config)
	v := a.chatView

	direct := func(n narrow.Narrow) {
		a.navigate(n, session.Direct())
	}
	v.SetOnNarrow(direct)
	v.Streams.SetOnNarrowSelected(func(n narrow.Narrow) {
		direct(n)
		v.FocusPanel(chat.PanelMessages)
	})
	v.Streams.SetOnLoadTopics(func(streamID int64) {
		go a.loadTopics(ctx, streamID)
	})

	v.Users.SetOnSelect(func(u zulip.User) {
		direct(narrow.Private(a.client.UserID, u.UserID).WithEmails(u.Email))
		v.FocusPanel(chat.PanelMessages)
	})
	v.Users.SetOnClose(func() {
		v.FocusPanel(chat.PanelMessages)
	})

	v.Messages.SetSelfUserID(a.client.UserID)
	v.Messages.SetOnNarrowRequest(func(n narrow.Narrow, messageID int64) {
		a.navigate(n, session.FromMessage(messageID))
	})
	v.Messages.SetOnFocusChanged(a.onFocusChanged)
	v.Messages.SetOnReplyRequest(func(m zulip.Message) {
		a.openCompose(replyTarget(m, a.client.UserID))
	})
	v.Messages.SetOnComposeRequest(func() {
		selected, ok := v.Messages.Selected()
		target := composeTarget(a.shown, selected, ok, a.client.UserID)
		if target.IsZero() {
			v.StatusBar.SetNotice("Select a stream, topic or conversation to compose")
			return
		}
		a.openCompose(target)
	})
	v.Messages.SetOnYankRequest(a.yank)

	v.SearchBox.SetOnSubmit(func(query string) {
		direct(narrow.Search(query))
		v.FocusPanel(chat.PanelMessages)
	})
	v.SearchBox.SetOnCancel(func() {
		v.FocusPanel(chat.PanelMessages)
	})

	v.Input.SetOnSend(func(target chat.ComposeTarget, text string) {
		go a.send(ctx, target, text)
	})
	v.Input.SetOnCancel(func() {
		v.FocusPanel(chat.PanelMessages)
	})

	v.StatusBar.SetIdentity(fmt.Sprintf("%s <%s>", a.client.FullName, a.client.Email))
	v.StatusBar.SetConnectionStatus(a.client.Site + " connecting...")
	a.tview.SetRoot(v, true)
	v.FocusPanel(chat.PanelMessages)

	go a.start(ctx)
}

// start registers the event queue, loads the initial data and then polls
// events until ctx is cancelled. Registering first means no event that
// arrives during the initial fetch is lost.
func (a *App) start(ctx context.Context) {
	q, err := a.client.Register(ctx, zulip.DefaultEventTypes)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("failed to register event queue", "error", err)
		a.showError(err)
		q = nil
	}

	a.fetchInitialData(ctx)

	if err := a.client.RunEvents(ctx, q, zulip.DefaultEventTypes, a.eventHandler()); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("event loop exited", "error", err)
	}
}

// fetchInitialData loads subscriptions, users and the newest messages.
func (a *App) fetchInitialData(ctx context.Context) {
	v := a.chatView

	subs, err := a.client.GetSubscriptions(ctx)
	if err != nil {
		slog.Error("failed to fetch subscriptions", "error", err)
		a.showError(err)
	}

	users, err := a.client.GetUsers(ctx)
	if err != nil {
		slog.Error("failed to fetch users", "error", err)
		a.showError(err)
	}

	slog.Info("initial data loaded", "streams", len(subs), "users", len(users))
	a.tview.QueueUpdateDraw(func() {
		v.Streams.Populate(subs)
		v.Users.SetUsers(users, a.client.UserID)
	})

	if err := a.session.GetMessages(ctx, zulip.Newest(), session.DefaultBefore, session.DefaultAfter); err != nil {
		slog.Error("failed to fetch initial messages", "error", err)
		a.showError(err)
		return
	}

	n := a.session.Current()
	ids := a.session.Store().Lookup(n)
	focus := narrow.Focus(ids, narrow.NoTarget())
	a.tview.QueueUpdateDraw(func() {
		a.showNarrow(n, ids, focus)
	})
}

// navigate switches narrows in the background and renders the result.
// Must be called from the tview event loop.
func (a *App) navigate(n narrow.Narrow, origin session.Origin) {
	v := a.chatView
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		res, err := a.session.Navigate(ctx, session.Request{Narrow: n, Origin: origin})
		if err != nil {
			slog.Error("failed to switch narrow", "narrow", n.Key(), "error", err)
			a.showError(err)
			return
		}
		if res.AlreadyNarrowed {
			return
		}

		slog.Debug("narrowed", "narrow", n.Key(), "messages", len(res.IDs), "focus", res.Focus, "fetched", res.Fetched)
		a.tview.QueueUpdateDraw(func() {
			// A later navigation may have finished first.
			if !a.session.Current().Equal(res.Narrow) {
				return
			}
			v.StatusBar.ClearError()
			a.showNarrow(res.Narrow, res.IDs, res.Focus)
		})
	}()
}

// showNarrow puts n on screen. ids and focus are the navigation's snapshot;
// the bucket is read again here so live messages merged since the snapshot
// are not lost. Must be called from the tview event loop.
func (a *App) showNarrow(n narrow.Narrow, ids []int64, focus int) {
	target := narrow.NoTarget()
	if narrow.InRange(focus, len(ids)) {
		target = narrow.TargetMessage(ids[focus])
	}

	a.shown = n
	a.chatView.SetHeader(n)
	a.chatView.Streams.Select(n)
	a.renderShown(target)

	if m, ok := a.chatView.Messages.Selected(); ok {
		a.onFocusChanged(m.ID)
	}
}

// renderShown redraws the shown narrow from the index, selecting target if
// it is still there. Must be called from the tview event loop.
func (a *App) renderShown(target narrow.Target) {
	store := a.session.Store()
	ids := store.Lookup(a.shown)

	focus := -1
	if id, ok := target.ID(); ok && slices.Contains(ids, id) {
		focus = narrow.Focus(ids, target)
	}
	a.chatView.Messages.SetMessages(store.Messages(ids), focus)
}

// appendLive adds a newly merged message to the view if the shown narrow
// includes it. Must be called from the tview event loop.
func (a *App) appendLive(m zulip.Message) {
	if a.shown.Contains(m) {
		a.chatView.Messages.AppendMessage(m)
	}
	a.chatView.Streams.SetUnread(a.session.Store().UnreadCounts())
}

// moveTopic applies a topic change to the index and redraws the view.
// Must be called from the tview event loop.
func (a *App) moveTopic(ids []int64, topic string) {
	if a.session.Store().MoveTopic(topic, ids...) == 0 {
		return
	}
	target := narrow.NoTarget()
	if m, ok := a.chatView.Messages.Selected(); ok {
		target = narrow.TargetMessage(m.ID)
	}
	a.renderShown(target)
}

// onFocusChanged remembers the focused message and marks it as read.
func (a *App) onFocusChanged(id int64) {
	a.session.RememberFocus(id)

	store := a.session.Store()
	m, ok := store.Message(id)
	if !ok || m.HasFlag(zulip.FlagRead) {
		return
	}
	store.MarkRead(id)
	if m, ok := store.Message(id); ok {
		a.chatView.Messages.UpdateMessage(m)
	}
	a.chatView.Streams.SetUnread(store.UnreadCounts())

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := a.client.MarkRead(ctx, []int64{id}); err != nil {
			slog.Warn("failed to mark message read", "id", id, "error", err)
		}
	}()
}

// openCompose points the compose box at target and focuses it.
func (a *App) openCompose(target chat.ComposeTarget) {
	a.chatView.Input.SetTarget(target)
	a.chatView.FocusPanel(chat.PanelInput)
}

// replyTarget addresses a reply to the message's topic or conversation.
func replyTarget(m zulip.Message, self int64) chat.ComposeTarget {
	if m.IsPrivate() {
		n, _ := narrow.PrivateOf(m, self)
		return chat.PrivateTarget(n.Emails()...)
	}
	return chat.StreamTarget(m.StreamName(), m.Topic())
}

// composeTarget derives a new message's recipient from the current narrow.
// In a stream narrow the selected message's topic is used when it belongs to
// that stream. Narrows spanning several conversations fall back to the
// selected message.
func composeTarget(n narrow.Narrow, selected zulip.Message, hasSelected bool, self int64) chat.ComposeTarget {
	switch n.Kind() {
	case narrow.KindTopic:
		return chat.StreamTarget(n.StreamName(), n.TopicName())
	case narrow.KindStream:
		topic := chat.DefaultTopic
		if hasSelected && !selected.IsPrivate() && selected.StreamID == n.StreamID() {
			topic = selected.Topic()
		}
		return chat.StreamTarget(n.StreamName(), topic)
	case narrow.KindPrivate:
		return chat.PrivateTarget(n.Emails()...)
	}
	if hasSelected {
		return replyTarget(selected, self)
	}
	return chat.ComposeTarget{}
}

// yank copies the message's plain text to the system clipboard.
func (a *App) yank(m zulip.Message) {
	if err := clipboard.WriteText(markdown.Plain(m.Content)); err != nil {
		slog.Error("failed to copy to clipboard", "error", err)
		a.chatView.StatusBar.SetError(err)
		return
	}
	a.chatView.StatusBar.SetNotice("Copied message text")
}

// send posts a message. The sent message comes back through the event queue.
func (a *App) send(ctx context.Context, target chat.ComposeTarget, text string) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var err error
	if target.IsPrivate() {
		_, err = a.client.SendPrivateMessage(ctx, target.Emails, text)
	} else {
		_, err = a.client.SendStreamMessage(ctx, target.Stream, target.Topic, text)
	}
	if err != nil {
		slog.Error("failed to send message", "to", target.Title(), "error", err)
		a.showError(fmt.Errorf("sending message: %w", err))
	}
}

// loadTopics fetches a stream's topics into the stream tree.
func (a *App) loadTopics(ctx context.Context, streamID int64) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	topics, err := a.client.GetStreamTopics(ctx, streamID)
	if err != nil {
		slog.Error("failed to fetch topics", "stream_id", streamID, "error", err)
		a.showError(err)
		return
	}
	a.tview.QueueUpdateDraw(func() {
		a.chatView.Streams.SetTopics(streamID, topics)
	})
}

// showError reports a background failure in the status bar.
func (a *App) showError(err error) {
	v := a.chatView
	a.tview.QueueUpdateDraw(func() {
		v.StatusBar.SetError(err)
	})
}

// eventHandler routes live events into the index and the view.
func (a *App) eventHandler() *zulip.EventHandler {
	v := a.chatView
	store := a.session.Store()
	status := func(s string) {
		a.tview.QueueUpdateDraw(func() {
			v.StatusBar.SetConnectionStatus(a.client.Site + " " + s)
		})
	}

	rerender := func(id int64) {
		m, ok := store.Message(id)
		if !ok {
			return
		}
		a.tview.QueueUpdateDraw(func() {
			v.Messages.UpdateMessage(m)
		})
	}

	return &zulip.EventHandler{
		OnConnected: func() {
			slog.Info("event queue connected")
			status("connected")
		},
		OnDisconnected: func() {
			slog.Warn("event queue lost")
			status("reconnecting...")
		},
		OnError: func(err error) {
			a.showError(err)
		},
		OnMessage: func(m zulip.Message) {
			added, _ := a.session.Ingest(m)
			if !added {
				return
			}
			a.tview.QueueUpdateDraw(func() {
				a.appendLive(m)
			})
			a.maybeNotify(m)
		},
		OnMessageUpdated: func(id int64, content string) {
			if store.Edit(id, content) {
				rerender(id)
			}
		},
		OnTopicChanged: func(ids []int64, topic string) {
			a.tview.QueueUpdateDraw(func() {
				a.moveTopic(ids, topic)
			})
		},
		OnReactionAdded: func(id int64, r zulip.Reaction) {
			if store.AddReaction(id, r) {
				rerender(id)
			}
		},
		OnReactionRemove: func(id int64, r zulip.Reaction) {
			if store.RemoveReaction(id, r) {
				rerender(id)
			}
		},
	}
}

// maybeNotify sends a desktop notification for private messages and
// mentions, as enabled in the config.
func (a *App) maybeNotify(m zulip.Message) {
	reason := notifications.Classify(m, a.client.UserID, a.client.FullName)
	if !shouldNotify(a.Config.Notifications, reason) {
		return
	}
	a.notifier.Send(notifications.Title(m), notifications.Body(m))
}

func shouldNotify(cfg config.Notifications, reason notifications.Reason) bool {
	if !cfg.Enabled {
		return false
	}
	switch reason {
	case notifications.ReasonPrivate:
		return cfg.Private
	case notifications.ReasonMention, notifications.ReasonWildcard:
		return cfg.Mentions
	default:
		return false
	}
}

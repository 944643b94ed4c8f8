package chat

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/m96-chan/zterm/internal/config"
	"github.com/m96-chan/zterm/internal/index"
	"github.com/m96-chan/zterm/internal/narrow"
	"github.com/m96-chan/zterm/internal/ui/keys"
	"github.com/m96-chan/zterm/internal/zulip"
)

// sectionKind identifies a stream section.
type sectionKind int

const (
	sectionPinned sectionKind = iota
	sectionStreams
)

// nodeRef stores metadata for a selectable tree node, used as
// tview.TreeNode.Reference.
type nodeRef struct {
	narrow narrow.Narrow
	label  string // text without the unread badge
}

// OnNarrowSelectedFunc is called when the user picks a menu entry, a stream
// or a topic.
type OnNarrowSelectedFunc func(n narrow.Narrow)

// StreamsTree is the left column: the All messages / Private messages menu
// followed by the subscribed streams, with topics as children.
type StreamsTree struct {
	*tview.TreeView
	cfg          *config.Config
	root         *tview.TreeNode
	allNode      *tview.TreeNode
	privateNode  *tview.TreeNode
	sections     map[sectionKind]*tview.TreeNode
	streamNodes  map[int64]*tview.TreeNode
	onSelected   OnNarrowSelectedFunc
	onLoadTopics func(streamID int64)
}

// NewStreamsTree creates the menu and the two stream sections.
func NewStreamsTree(cfg *config.Config) *StreamsTree {
	st := &StreamsTree{
		TreeView:    tview.NewTreeView(),
		cfg:         cfg,
		streamNodes: make(map[int64]*tview.TreeNode),
	}

	st.root = tview.NewTreeNode("")
	st.SetRoot(st.root)
	st.SetTopLevel(1)
	st.SetGraphics(false)
	st.SetBorder(true).SetTitle(" Streams ")

	st.allNode = st.newNode(narrow.AllMessages(), "All messages", cfg.Theme.StreamsTree.Stream)
	st.privateNode = st.newNode(narrow.AllPrivate(), "Private messages", cfg.Theme.StreamsTree.Stream)
	st.root.AddChild(st.allNode)
	st.root.AddChild(st.privateNode)

	st.sections = map[sectionKind]*tview.TreeNode{
		sectionPinned:  tview.NewTreeNode("Pinned Streams"),
		sectionStreams: tview.NewTreeNode("Streams"),
	}
	for _, kind := range []sectionKind{sectionPinned, sectionStreams} {
		node := st.sections[kind]
		node.SetSelectable(true)
		node.SetExpanded(true)
		node.SetTextStyle(cfg.Theme.StreamsTree.Section.Style)
		st.root.AddChild(node)
	}

	st.SetCurrentNode(st.allNode)
	st.SetSelectedFunc(st.onNodeSelected)
	st.SetInputCapture(st.handleInput)

	return st
}

// SetOnNarrowSelected sets the callback for menu, stream and topic selection.
func (st *StreamsTree) SetOnNarrowSelected(fn OnNarrowSelectedFunc) {
	st.onSelected = fn
}

// SetOnLoadTopics sets the callback used when a stream without topics is
// expanded.
func (st *StreamsTree) SetOnLoadTopics(fn func(streamID int64)) {
	st.onLoadTopics = fn
}

// Populate clears and rebuilds the stream sections from the subscriptions.
func (st *StreamsTree) Populate(subs []zulip.Subscription) {
	for _, section := range st.sections {
		section.ClearChildren()
	}
	st.streamNodes = make(map[int64]*tview.TreeNode)

	sorted := slices.Clone(subs)
	slices.SortFunc(sorted, func(a, b zulip.Subscription) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})

	for _, sub := range sorted {
		node := st.newNode(narrow.Stream(sub.StreamID, sub.Name), "# "+sub.Name, st.cfg.Theme.StreamsTree.Stream)
		node.SetExpanded(false)

		section := st.sections[sectionStreams]
		if sub.PinToTop {
			section = st.sections[sectionPinned]
		}
		section.AddChild(node)
		st.streamNodes[sub.StreamID] = node
	}
}

// SetTopics replaces the topic children of a stream, most recent first, and
// expands it.
func (st *StreamsTree) SetTopics(streamID int64, topics []zulip.Topic) {
	node, ok := st.streamNodes[streamID]
	if !ok {
		return
	}
	ref := node.GetReference().(*nodeRef)

	sorted := slices.Clone(topics)
	slices.SortStableFunc(sorted, func(a, b zulip.Topic) int {
		return cmp.Compare(b.MaxID, a.MaxID)
	})

	node.ClearChildren()
	for _, t := range sorted {
		n := narrow.Topic(streamID, ref.narrow.StreamName(), t.Name)
		node.AddChild(st.newNode(n, t.Name, st.cfg.Theme.StreamsTree.Topic))
	}
	node.SetExpanded(true)
}

// StreamCount returns the number of streams in the tree.
func (st *StreamsTree) StreamCount() int {
	return len(st.streamNodes)
}

// SetUnread updates the unread badges of the menu entries and streams.
func (st *StreamsTree) SetUnread(u index.Unread) {
	st.setBadge(st.allNode, u.All, st.cfg.Theme.StreamsTree.Stream)
	st.setBadge(st.privateNode, u.Private, st.cfg.Theme.StreamsTree.Stream)
	for id, node := range st.streamNodes {
		st.setBadge(node, u.Streams[id], st.cfg.Theme.StreamsTree.Stream)
	}
}

// UnreadText returns the displayed text of the node for n, badge included.
func (st *StreamsTree) UnreadText(n narrow.Narrow) string {
	if node := st.find(n); node != nil {
		return node.GetText()
	}
	return ""
}

// Select moves the cursor to the node of n, if there is one.
func (st *StreamsTree) Select(n narrow.Narrow) {
	if node := st.find(n); node != nil {
		st.SetCurrentNode(node)
	}
}

func (st *StreamsTree) find(n narrow.Narrow) *tview.TreeNode {
	switch n.Kind() {
	case narrow.KindAllMessages:
		return st.allNode
	case narrow.KindAllPrivate:
		return st.privateNode
	case narrow.KindStream:
		return st.streamNodes[n.StreamID()]
	case narrow.KindTopic:
		parent, ok := st.streamNodes[n.StreamID()]
		if !ok {
			return nil
		}
		for _, child := range parent.GetChildren() {
			if ref, ok := child.GetReference().(*nodeRef); ok && ref.narrow.Equal(n) {
				return child
			}
		}
	}
	return nil
}

func (st *StreamsTree) newNode(n narrow.Narrow, label string, style config.StyleWrapper) *tview.TreeNode {
	node := tview.NewTreeNode(label)
	node.SetReference(&nodeRef{narrow: n, label: label})
	node.SetSelectable(true)
	node.SetTextStyle(style.Style)
	return node
}

func (st *StreamsTree) setBadge(node *tview.TreeNode, count int, normal config.StyleWrapper) {
	ref := node.GetReference().(*nodeRef)
	if count > 0 {
		node.SetText(fmt.Sprintf("%s (%d)", ref.label, count))
		node.SetTextStyle(st.cfg.Theme.StreamsTree.Unread.Style)
		return
	}
	node.SetText(ref.label)
	node.SetTextStyle(normal.Style)
}

func (st *StreamsTree) onNodeSelected(node *tview.TreeNode) {
	ref, ok := node.GetReference().(*nodeRef)
	if !ok {
		node.SetExpanded(!node.IsExpanded())
		return
	}
	if st.onSelected != nil {
		st.onSelected(ref.narrow)
	}
}

// handleInput maps the configured movement keys and toggles expansion.
func (st *StreamsTree) handleInput(event *tcell.EventKey) *tcell.EventKey {
	name := keys.Normalize(event.Name())
	kb := st.cfg.Keybinds.StreamsTree

	switch name {
	case kb.Up:
		return tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone)
	case kb.Down:
		return tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone)
	case kb.Top:
		return tcell.NewEventKey(tcell.KeyHome, 0, tcell.ModNone)
	case kb.Bottom:
		return tcell.NewEventKey(tcell.KeyEnd, 0, tcell.ModNone)
	case kb.SelectCurrent:
		return tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)
	case kb.Collapse:
		st.toggleCurrent()
		return nil
	}
	return event
}

// toggleCurrent expands or collapses the stream or section under the
// cursor. From a topic it collapses the parent stream.
func (st *StreamsTree) toggleCurrent() {
	current := st.GetCurrentNode()
	if current == nil {
		return
	}

	ref, ok := current.GetReference().(*nodeRef)
	if !ok {
		current.SetExpanded(!current.IsExpanded())
		return
	}

	switch ref.narrow.Kind() {
	case narrow.KindStream:
		if current.IsExpanded() {
			current.SetExpanded(false)
			return
		}
		current.SetExpanded(true)
		if len(current.GetChildren()) == 0 && st.onLoadTopics != nil {
			st.onLoadTopics(ref.narrow.StreamID())
		}
	case narrow.KindTopic:
		if parent, ok := st.streamNodes[ref.narrow.StreamID()]; ok {
			parent.SetExpanded(false)
			st.SetCurrentNode(parent)
		}
	}
}

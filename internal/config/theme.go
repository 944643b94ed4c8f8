package config

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// StyleWrapper wraps tcell.Style and implements TOML unmarshalling.
// In TOML it is represented as a table with optional "foreground",
// "background", and "attributes" string fields.
//
// The color names are kept alongside the style so the same value can be
// rendered as a tview color tag.
type StyleWrapper struct {
	tcell.Style

	fg    string
	bg    string
	attrs string // tview attribute letters, e.g. "bu"
}

// makeStyle builds a StyleWrapper from tview-style components. attrs uses
// tview's letters: b bold, i italic, u underline, d dim, r reverse,
// l blink, s strikethrough.
func makeStyle(fg, bg, attrs string) StyleWrapper {
	style := tcell.StyleDefault
	if fg != "" {
		style = style.Foreground(tcell.GetColor(fg))
	}
	if bg != "" {
		style = style.Background(tcell.GetColor(bg))
	}
	style = style.Attributes(lettersToAttrMask(attrs))
	return StyleWrapper{Style: style, fg: fg, bg: bg, attrs: attrs}
}

// UnmarshalTOML implements the toml.Unmarshaler interface.
func (s *StyleWrapper) UnmarshalTOML(data any) error {
	m, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("expected table for style, got %T", data)
	}

	fg, _ := m["foreground"].(string)
	bg, _ := m["background"].(string)
	attrs, _ := m["attributes"].(string)
	if _, err := stringToAttrMask(attrs); err != nil {
		return err
	}

	*s = makeStyle(fg, bg, attrsToTviewString(attrs))
	return nil
}

// Foreground returns the foreground color.
func (s StyleWrapper) Foreground() tcell.Color {
	fg, _, _ := s.Decompose()
	return fg
}

// Background returns the background color.
func (s StyleWrapper) Background() tcell.Color {
	_, bg, _ := s.Decompose()
	return bg
}

// Tag returns the tview color tag for the style, e.g. "[green:-:b]".
func (s StyleWrapper) Tag() string {
	fg, bg := s.fg, s.bg
	if fg == "" {
		fg = "-"
	}
	switch {
	case s.attrs != "":
		if bg == "" {
			bg = "-"
		}
		return "[" + fg + ":" + bg + ":" + s.attrs + "]"
	case bg != "":
		return "[" + fg + ":" + bg + ":-]"
	default:
		return "[" + fg + "]"
	}
}

// Reset returns the tag that undoes Tag.
func (s StyleWrapper) Reset() string {
	if s.attrs != "" || s.bg != "" {
		return "[-:-:-]"
	}
	return "[-]"
}

// stringToAttrMask parses a pipe-separated list of attribute names into
// a tcell.AttrMask. For example: "bold|underline".
func stringToAttrMask(s string) (tcell.AttrMask, error) {
	var mask tcell.AttrMask
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(strings.ToLower(part))
		switch part {
		case "bold":
			mask |= tcell.AttrBold
		case "italic":
			mask |= tcell.AttrItalic
		case "underline":
			mask |= tcell.AttrUnderline
		case "dim":
			mask |= tcell.AttrDim
		case "reverse":
			mask |= tcell.AttrReverse
		case "blink":
			mask |= tcell.AttrBlink
		case "strikethrough":
			mask |= tcell.AttrStrikeThrough
		case "none", "":
			// no-op
		default:
			return 0, fmt.Errorf("unknown style attribute: %q", part)
		}
	}
	return mask, nil
}

var attrLetters = map[string]string{
	"bold":          "b",
	"italic":        "i",
	"underline":     "u",
	"dim":           "d",
	"reverse":       "r",
	"blink":         "l",
	"strikethrough": "s",
}

// attrsToTviewString converts "bold|underline" to "bu".
func attrsToTviewString(s string) string {
	var b strings.Builder
	for _, part := range strings.Split(s, "|") {
		b.WriteString(attrLetters[strings.TrimSpace(strings.ToLower(part))])
	}
	return b.String()
}

func lettersToAttrMask(letters string) tcell.AttrMask {
	var mask tcell.AttrMask
	for _, r := range letters {
		switch r {
		case 'b':
			mask |= tcell.AttrBold
		case 'i':
			mask |= tcell.AttrItalic
		case 'u':
			mask |= tcell.AttrUnderline
		case 'd':
			mask |= tcell.AttrDim
		case 'r':
			mask |= tcell.AttrReverse
		case 'l':
			mask |= tcell.AttrBlink
		case 's':
			mask |= tcell.AttrStrikeThrough
		}
	}
	return mask
}

// Theme holds the complete theme configuration. Preset selects a built-in
// palette; any style tables present in the config file override it.
type Theme struct {
	Preset string `toml:"preset"`

	Background  StyleWrapper      `toml:"background"`
	Border      BorderTheme       `toml:"border"`
	Title       TitleTheme        `toml:"title"`
	Header      StyleWrapper      `toml:"header"`
	StreamsTree StreamsTreeTheme  `toml:"streams_tree"`
	Messages    MessagesListTheme `toml:"messages_list"`
	UsersList   UsersListTheme    `toml:"users_list"`
	Markdown    MarkdownTheme     `toml:"markdown"`
	StatusBar   StatusBarTheme    `toml:"status_bar"`
}

// BorderTheme configures border styling.
type BorderTheme struct {
	Focused StyleWrapper `toml:"focused"`
	Normal  StyleWrapper `toml:"normal"`
}

// TitleTheme configures title bar styling.
type TitleTheme struct {
	Focused StyleWrapper `toml:"focused"`
	Normal  StyleWrapper `toml:"normal"`
}

// StreamsTreeTheme configures the menu and stream tree styling.
type StreamsTreeTheme struct {
	Stream   StyleWrapper `toml:"stream"`
	Topic    StyleWrapper `toml:"topic"`
	Section  StyleWrapper `toml:"section"`
	Selected StyleWrapper `toml:"selected"`
	Unread   StyleWrapper `toml:"unread"`
}

// MessagesListTheme configures the messages list styling.
type MessagesListTheme struct {
	Recipient StyleWrapper `toml:"recipient"`
	Author    StyleWrapper `toml:"author"`
	Content   StyleWrapper `toml:"content"`
	Timestamp StyleWrapper `toml:"timestamp"`
	Selected  StyleWrapper `toml:"selected"`
	Reaction  StyleWrapper `toml:"reaction"`
	Unread    StyleWrapper `toml:"unread"`
}

// UsersListTheme configures the users list styling.
type UsersListTheme struct {
	Active   StyleWrapper `toml:"active"`
	Idle     StyleWrapper `toml:"idle"`
	Selected StyleWrapper `toml:"selected"`
}

// MarkdownTheme configures inline markup in message content.
type MarkdownTheme struct {
	UserMention StyleWrapper `toml:"user_mention"`
	StreamLink  StyleWrapper `toml:"stream_link"`
	Link        StyleWrapper `toml:"link"`
	InlineCode  StyleWrapper `toml:"inline_code"`
	CodeFence   StyleWrapper `toml:"code_fence"`
	Quote       StyleWrapper `toml:"quote"`
}

// StatusBarTheme configures the status bar styling.
type StatusBarTheme struct {
	Text  StyleWrapper `toml:"text"`
	Error StyleWrapper `toml:"error"`
}

package markdown

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/rivo/tview"
)

// placeholder markers for tokens that should not be processed by inline formatting.
const placeholderPrefix = "\x00T"
const placeholderSuffix = "\x00"

// Compiled patterns for Zulip markdown as typed by users.
var (
	// User mentions: @**Full Name**, @**Full Name|12**, silent @_**Name**.
	userMentionRe = regexp.MustCompile(`@_?\*\*([^*\n]+)\*\*`)

	// Group mentions: @*group*, silent @_*group*.
	groupMentionRe = regexp.MustCompile(`@_?\*([^*\n]+)\*`)

	// Stream links: #**stream** or #**stream>topic**.
	streamLinkRe = regexp.MustCompile(`#\*\*([^*\n]+)\*\*`)

	// Links: [label](url).
	linkRe = regexp.MustCompile(`\[([^\]\n]+)\]\((https?://[^)\s]+)\)`)

	// Inline code: `text` (single backtick, not inside code blocks).
	inlineCodeRe = regexp.MustCompile("`([^`\n]+)`")

	// Bold: **text**.
	boldRe = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)

	// Italic: *text*.
	italicRe = regexp.MustCompile(`\*([^*\n]+)\*`)

	// Strikethrough: ~~text~~.
	strikeRe = regexp.MustCompile(`~~([^~\n]+)~~`)

	// Emoji: :name: (alphanumeric, underscore, hyphen, plus).
	emojiRe = regexp.MustCompile(`:([a-zA-Z0-9_+\-]+):`)

	// Code block: ```lang\ncode``` or ~~~lang\ncode~~~. A block closes with
	// the fence it opened with.
	codeBlockRe = regexp.MustCompile("(?s)```(\\w*)\\n?(.*?)```|~~~(\\w*)\\n?(.*?)~~~")
)

// wildcards are mention targets that address everyone in the conversation.
var wildcards = map[string]bool{
	"all":      true,
	"everyone": true,
	"stream":   true,
	"channel":  true,
	"topic":    true,
}

// Colors holds pre-computed tview tag strings for markdown rendering,
// avoiding a direct dependency on the config package.
type Colors struct {
	UserMention string // e.g. "[yellow::b]"
	StreamLink  string // e.g. "[darkcyan::b]"
	Link        string // e.g. "[lightblue::u]"
	InlineCode  string // e.g. "[gray]"
	CodeFence   string // e.g. "[gray]"
	Quote       string // e.g. "[gray::d]"
}

// DefaultColors returns the colors of the default theme.
func DefaultColors() Colors {
	return Colors{
		UserMention: "[yellow::b]",
		StreamLink:  "[darkcyan::b]",
		Link:        "[lightblue::u]",
		InlineCode:  "[gray]",
		CodeFence:   "[gray]",
		Quote:       "[gray::d]",
	}
}

// Options controls rendering.
type Options struct {
	// Enabled turns on formatting. When false only mentions and stream links
	// are reduced to plain text.
	Enabled bool
	// CodeStyle names the chroma style for fenced code.
	CodeStyle string
	Colors    Colors
}

// Render converts the raw markdown of a Zulip message to tview-formatted
// output.
func Render(text string, opts Options) string {
	if !opts.Enabled {
		return tview.Escape(plainTokens(text))
	}

	var b strings.Builder
	for _, seg := range splitCodeBlocks(text) {
		if seg.isCode {
			b.WriteString(renderCodeBlock(seg.lang, seg.code, opts.CodeStyle, opts.Colors))
		} else {
			b.WriteString(renderInline(seg.text, opts.Colors))
		}
	}
	return b.String()
}

// segment represents either a code block or inline text.
type segment struct {
	isCode bool
	lang   string // language hint for code blocks
	code   string // code block content
	text   string // inline text content
}

// splitCodeBlocks splits text into alternating inline/code-block segments.
func splitCodeBlocks(text string) []segment {
	matches := codeBlockRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []segment{{text: text}}
	}

	var segments []segment
	prev := 0
	for _, m := range matches {
		if m[0] > prev {
			segments = append(segments, segment{text: text[prev:m[0]]})
		}
		// Groups 1-2 hold a backtick block, groups 3-4 a tilde block.
		g := 2
		if m[g] < 0 {
			g = 6
		}
		segments = append(segments, segment{
			isCode: true,
			lang:   text[m[g]:m[g+1]],
			code:   text[m[g+2]:m[g+3]],
		})
		prev = m[1]
	}
	if prev < len(text) {
		segments = append(segments, segment{text: text[prev:]})
	}
	return segments
}

// resetFor returns the tag that undoes tag.
func resetFor(tag string) string {
	if strings.Count(tag, ":") >= 1 {
		return "[-:-:-]"
	}
	return "[-]"
}

// renderCodeBlock renders a fenced code block with syntax highlighting.
func renderCodeBlock(lang, code, codeStyle string, colors Colors) string {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get(codeStyle)
	if style == nil {
		style = styles.Fallback
	}

	fenceTag := colors.CodeFence
	fenceReset := resetFor(fenceTag)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return fenceTag + "```" + fenceReset + "\n" + tview.Escape(code) + "\n" + fenceTag + "```" + fenceReset
	}

	var buf strings.Builder
	buf.WriteString(fenceTag + "```" + fenceReset)
	if lang != "" {
		buf.WriteString(fenceTag + tview.Escape(lang) + fenceReset)
	}
	buf.WriteString("\n")

	for _, token := range iterator.Tokens() {
		text := tview.Escape(token.Value)
		entry := style.Get(token.Type)
		if !entry.Colour.IsSet() {
			buf.WriteString(text)
			continue
		}

		attrs := ""
		if entry.Bold == chroma.Yes {
			attrs += "b"
		}
		if entry.Italic == chroma.Yes {
			attrs += "i"
		}
		if attrs != "" {
			fmt.Fprintf(&buf, "[%s::%s]%s[-::-]", entry.Colour.String(), attrs, text)
		} else {
			fmt.Fprintf(&buf, "[%s]%s[-]", entry.Colour.String(), text)
		}
	}

	result := strings.TrimRight(buf.String(), "\n")
	return result + "\n" + fenceTag + "```" + fenceReset
}

// renderInline processes inline formatting outside code blocks.
func renderInline(text string, colors Colors) string {
	var placeholders []string
	hold := func(rendered string) string {
		idx := len(placeholders)
		placeholders = append(placeholders, rendered)
		return fmt.Sprintf("%s%d%s", placeholderPrefix, idx, placeholderSuffix)
	}

	// Tokens are rendered before escaping so their markers never reach the
	// formatting passes.
	text = inlineCodeRe.ReplaceAllStringFunc(text, func(match string) string {
		content := match[1 : len(match)-1]
		return hold(colors.InlineCode + "`" + tview.Escape(content) + "`" + resetFor(colors.InlineCode))
	})
	text = userMentionRe.ReplaceAllStringFunc(text, func(match string) string {
		name := mentionName(userMentionRe.FindStringSubmatch(match)[1])
		return hold(colors.UserMention + "@" + tview.Escape(name) + resetFor(colors.UserMention))
	})
	text = groupMentionRe.ReplaceAllStringFunc(text, func(match string) string {
		name := groupMentionRe.FindStringSubmatch(match)[1]
		return hold(colors.UserMention + "@" + tview.Escape(name) + resetFor(colors.UserMention))
	})
	text = streamLinkRe.ReplaceAllStringFunc(text, func(match string) string {
		label := streamLabel(streamLinkRe.FindStringSubmatch(match)[1])
		return hold(colors.StreamLink + "#" + tview.Escape(label) + resetFor(colors.StreamLink))
	})
	text = linkRe.ReplaceAllStringFunc(text, func(match string) string {
		sub := linkRe.FindStringSubmatch(match)
		return hold(colors.Link + tview.Escape(sub[1]) + resetFor(colors.Link))
	})

	text = tview.Escape(text)
	text = renderBlockquotes(text, colors)

	text = boldRe.ReplaceAllString(text, "[::b]$1[::-]")
	text = italicRe.ReplaceAllString(text, "[::i]$1[::-]")
	text = strikeRe.ReplaceAllString(text, "[::s]$1[::-]")

	text = emojiRe.ReplaceAllStringFunc(text, func(match string) string {
		return lookupEmoji(match[1 : len(match)-1])
	})

	for i, p := range placeholders {
		placeholder := fmt.Sprintf("%s%d%s", placeholderPrefix, i, placeholderSuffix)
		text = strings.Replace(text, placeholder, p, 1)
	}
	return text
}

// renderBlockquotes converts lines starting with "> " to styled quotes.
func renderBlockquotes(text string, colors Colors) string {
	tag := colors.Quote
	reset := resetFor(tag)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		stripped := strings.TrimLeft(line, " \t")
		if content, ok := strings.CutPrefix(stripped, "> "); ok {
			lines[i] = tag + "▎ " + content + reset
		} else if stripped == ">" {
			lines[i] = tag + "▎" + reset
		}
	}
	return strings.Join(lines, "\n")
}

// mentionName strips the "|id" disambiguation suffix from a mention.
func mentionName(token string) string {
	name, _, _ := strings.Cut(token, "|")
	return name
}

// streamLabel renders "stream>topic" as "stream > topic".
func streamLabel(token string) string {
	if stream, topic, ok := strings.Cut(token, ">"); ok {
		return stream + " > " + topic
	}
	return token
}

// plainTokens resolves mentions, stream links and links to plain text.
func plainTokens(text string) string {
	text = userMentionRe.ReplaceAllStringFunc(text, func(match string) string {
		return "@" + mentionName(userMentionRe.FindStringSubmatch(match)[1])
	})
	text = groupMentionRe.ReplaceAllString(text, "@$1")
	text = streamLinkRe.ReplaceAllStringFunc(text, func(match string) string {
		return "#" + streamLabel(streamLinkRe.FindStringSubmatch(match)[1])
	})
	return linkRe.ReplaceAllString(text, "$1 ($2)")
}

// Plain returns message text with markup reduced to readable plain text,
// for notifications and the clipboard.
func Plain(text string) string {
	return plainTokens(text)
}

// Mentions reports whether text mentions fullName, either directly or
// through a wildcard such as @**all**. Silent mentions do not count.
func Mentions(text, fullName string) bool {
	for _, m := range userMentionRe.FindAllStringSubmatch(text, -1) {
		if strings.HasPrefix(m[0], "@_") {
			continue
		}
		name := mentionName(m[1])
		if strings.EqualFold(name, fullName) || wildcards[strings.ToLower(name)] {
			return true
		}
	}
	return false
}

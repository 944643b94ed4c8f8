package markdown

import (
	"slices"
	"strings"
	"testing"
)

var defOpts = Options{Enabled: true, CodeStyle: "monokai", Colors: DefaultColors()}

func render(text string) string {
	return Render(text, defOpts)
}

func TestRender_Disabled(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain text", "hello world", "hello world"},
		{"user mention", "hi @**Alice Smith**", "hi @Alice Smith"},
		{"user mention with id", "hi @**Alice|12**", "hi @Alice"},
		{"silent mention", "hi @_**Alice**", "hi @Alice"},
		{"group mention", "ping @*support*", "ping @support"},
		{"stream link", "see #**general**", "see #general"},
		{"topic link", "see #**general>lunch**", "see #general > lunch"},
		{"link", "[docs](https://example.com)", "docs (https://example.com)"},
		{"formatting not applied", "**bold** *italic* ~~strike~~", "**bold** *italic* ~~strike~~"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render(tt.text, Options{Colors: DefaultColors()})
			if got != tt.want {
				t.Errorf("Render(%q, disabled) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestRender_Formatting(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"bold", "hello **world**", "hello [::b]world[::-]"},
		{"italic", "hello *world*", "hello [::i]world[::-]"},
		{"strikethrough", "hello ~~world~~", "hello [::s]world[::-]"},
		{"inline code", "use `fmt.Println`", "use [gray]`fmt.Println`[-]"},
		{"user mention", "hi @**Alice**!", "hi [yellow::b]@Alice[-:-:-]!"},
		{"user mention with id", "hi @**Alice|12**!", "hi [yellow::b]@Alice[-:-:-]!"},
		{"stream link", "see #**general**", "see [darkcyan::b]#general[-:-:-]"},
		{"topic link", "see #**general>lunch**", "see [darkcyan::b]#general > lunch[-:-:-]"},
		{"link", "[Click here](https://example.com)", "[lightblue::u]Click here[-:-:-]"},
		{"blockquote", "> quoted text", "[gray::d]▎ quoted text[-:-:-]"},
		{"empty blockquote", ">", "[gray::d]▎[-:-:-]"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := render(tt.text)
			if got != tt.want {
				t.Errorf("Render(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestRender_InlineCode_NoFormattingInside(t *testing.T) {
	got := render("`**not bold** @**Alice**`")
	if strings.Contains(got, "[::b]") || strings.Contains(got, "[yellow::b]") {
		t.Errorf("formatting should not be applied inside inline code: got %q", got)
	}
	if !strings.Contains(got, "[gray]") {
		t.Errorf("inline code style should be present: got %q", got)
	}
}

func TestRender_MentionNotTreatedAsBold(t *testing.T) {
	got := render("@**Alice** and #**general**")
	if strings.Contains(got, "[::b]") {
		t.Errorf("mention markers leaked into bold pass: %q", got)
	}
}

func TestRender_Emoji(t *testing.T) {
	if got := render("nice :thumbsup:"); got != "nice 👍" {
		t.Errorf("emoji: got %q", got)
	}
	if got := render("nice :custom_emoji:"); got != "nice :custom_emoji:" {
		t.Errorf("unknown emoji: got %q", got)
	}
}

func TestRender_CodeBlock(t *testing.T) {
	text := "```\nfmt.Println(\"hello\")\n```"
	got := render(text)

	if !strings.Contains(got, "[gray]```[-]") {
		t.Errorf("code block should have styled fences: got %q", got)
	}
	if !strings.Contains(got, "Println") {
		t.Errorf("code block should contain code content: got %q", got)
	}
}

func TestRender_CodeBlock_TildeFence(t *testing.T) {
	got := render("~~~python\nprint('hi')\n~~~")
	if !strings.Contains(got, "print") || !strings.Contains(got, "python") {
		t.Errorf("tilde fence should render as code: got %q", got)
	}
	if strings.Contains(got, "[::s]") {
		t.Errorf("tilde fence treated as strikethrough: got %q", got)
	}
}

func TestRender_Mixed(t *testing.T) {
	got := render("Hey @**Alice**, check **this** out :fire:")

	if !strings.Contains(got, "[yellow::b]@Alice[-:-:-]") {
		t.Errorf("should contain styled user mention: got %q", got)
	}
	if !strings.Contains(got, "[::b]this[::-]") {
		t.Errorf("should contain bold text: got %q", got)
	}
	if !strings.Contains(got, "🔥") {
		t.Errorf("should contain fire emoji: got %q", got)
	}
}

func TestRender_TviewEscape(t *testing.T) {
	got := render("[red]not a color tag[-]")
	if strings.Contains(got, "[red]") && !strings.Contains(got, "[]") {
		t.Errorf("tview tags in user text should be escaped: got %q", got)
	}
}

func TestRender_MultipleLines(t *testing.T) {
	got := render("**bold line**\n*italic line*")

	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("should have 2 lines, got %d: %q", len(lines), got)
	}
	if !strings.Contains(lines[0], "[::b]") {
		t.Errorf("first line should be bold: %q", lines[0])
	}
	if !strings.Contains(lines[1], "[::i]") {
		t.Errorf("second line should be italic: %q", lines[1])
	}
}

func TestSplitCodeBlocks(t *testing.T) {
	segs := splitCodeBlocks("before\n```go\ncode\n```\nafter")

	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}
	if segs[0].isCode || segs[0].text != "before\n" {
		t.Errorf("seg 0: expected inline 'before\\n', got %+v", segs[0])
	}
	if !segs[1].isCode || segs[1].lang != "go" || segs[1].code != "code\n" {
		t.Errorf("seg 1: expected code block, got %+v", segs[1])
	}
	if segs[2].isCode || segs[2].text != "\nafter" {
		t.Errorf("seg 2: expected inline '\\nafter', got %+v", segs[2])
	}
}

func TestSplitCodeBlocks_NoBlocks(t *testing.T) {
	segs := splitCodeBlocks("just text")
	if len(segs) != 1 || segs[0].isCode {
		t.Errorf("expected 1 inline segment, got %+v", segs)
	}
}

func TestLookupEmoji(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"thumbsup", "👍"},
		{"+1", "👍"},
		{"thumbs_up", "👍"},
		{"fire", "🔥"},
		{"unknown_custom", ":unknown_custom:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lookupEmoji(tt.name); got != tt.want {
				t.Errorf("lookupEmoji(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestReactionEmoji(t *testing.T) {
	tests := []struct {
		name, code, typ string
		want            string
	}{
		{"thumbs_up", "1f44d", "unicode_emoji", "👍"},
		{"flag_us", "1f1fa-1f1f8", "unicode_emoji", "🇺🇸"},
		{"fire", "zz", "unicode_emoji", "🔥"},
		{"party_parrot", "42", "realm_emoji", ":party_parrot:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReactionEmoji(tt.name, tt.code, tt.typ); got != tt.want {
				t.Errorf("ReactionEmoji = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMentions(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"hi @**Alice Smith**", true},
		{"hi @**alice smith|7**", true},
		{"hi @**Bob**", false},
		{"hi @_**Alice Smith**", false},
		{"heads up @**all**", true},
		{"heads up @**topic**", true},
		{"Alice Smith without markup", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := Mentions(tt.text, "Alice Smith"); got != tt.want {
				t.Errorf("Mentions(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestPlain(t *testing.T) {
	got := Plain("@**Alice** see #**general>lunch** and [docs](https://example.com)")
	want := "@Alice see #general > lunch and docs (https://example.com)"
	if got != want {
		t.Errorf("Plain = %q, want %q", got, want)
	}
}

func TestSplitCodeBlocks_MatchingFences(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantCode []string
	}{
		{"backticks", "```\na\n```", []string{"a\n"}},
		{"tildes", "~~~\na\n~~~", []string{"a\n"}},
		{"backtick open tilde close", "```\na\n~~~", nil},
		{"tilde open backtick close", "~~~\na\n```", nil},
		{"other fence inside block", "~~~\na```b\n~~~", []string{"a```b\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var code []string
			for _, seg := range splitCodeBlocks(tt.in) {
				if seg.isCode {
					code = append(code, seg.code)
				}
			}
			if !slices.Equal(code, tt.wantCode) {
				t.Errorf("code blocks = %q, want %q", code, tt.wantCode)
			}
		})
	}
}

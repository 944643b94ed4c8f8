package config

import (
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/gdamore/tcell/v2"
)

func TestMakeStyle_Tag(t *testing.T) {
	tests := []struct {
		name string
		fg   string
		bg   string
		attr string
		want string
	}{
		{"fg only", "green", "", "", "[green]"},
		{"fg+attr", "green", "", "b", "[green:-:b]"},
		{"fg+bg+attr", "green", "black", "b", "[green:black:b]"},
		{"fg+bg", "white", "blue", "", "[white:blue:-]"},
		{"empty", "", "", "", "[-]"},
		{"attr only", "", "", "d", "[-:-:d]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := makeStyle(tt.fg, tt.bg, tt.attr)
			got := s.Tag()
			if got != tt.want {
				t.Errorf("makeStyle(%q,%q,%q).Tag() = %q, want %q", tt.fg, tt.bg, tt.attr, got, tt.want)
			}
		})
	}
}

func TestStyleWrapper_Reset(t *testing.T) {
	tests := []struct {
		name string
		fg   string
		bg   string
		attr string
		want string
	}{
		{"fg only", "green", "", "", "[-]"},
		{"fg+attr", "green", "", "b", "[-:-:-]"},
		{"fg+bg", "green", "black", "", "[-:-:-]"},
		{"empty", "", "", "", "[-]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := makeStyle(tt.fg, tt.bg, tt.attr)
			got := s.Reset()
			if got != tt.want {
				t.Errorf("Reset() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAttrsToTviewString(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"bold", "b"},
		{"bold|underline", "bu"},
		{"dim|italic", "di"},
		{"bold|italic|underline|dim|reverse|blink|strikethrough", "biudrls"},
		{"", ""},
		{"none", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := attrsToTviewString(tt.input)
			if got != tt.want {
				t.Errorf("attrsToTviewString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStyleWrapper_UnmarshalTOML(t *testing.T) {
	var v struct {
		Style StyleWrapper `toml:"style"`
	}
	data := `
[style]
foreground = "red"
background = "black"
attributes = "bold"
`
	if _, err := toml.Decode(data, &v); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.Style.Foreground() != tcell.GetColor("red") {
		t.Errorf("foreground = %v", v.Style.Foreground())
	}
	if v.Style.Background() != tcell.GetColor("black") {
		t.Errorf("background = %v", v.Style.Background())
	}
	if _, _, attrs := v.Style.Decompose(); attrs&tcell.AttrBold == 0 {
		t.Error("bold attribute not set")
	}
	if v.Style.Tag() != "[red:black:b]" {
		t.Errorf("Tag = %q", v.Style.Tag())
	}
}

func TestStyleWrapper_UnmarshalTOMLBadAttribute(t *testing.T) {
	var v struct {
		Style StyleWrapper `toml:"style"`
	}
	if _, err := toml.Decode("[style]\nattributes = \"sparkly\"\n", &v); err == nil {
		t.Fatal("expected error for unknown attribute")
	}
}

func TestBuiltinTheme_AllPresetsPopulated(t *testing.T) {
	for _, name := range ThemeNames() {
		t.Run(name, func(t *testing.T) {
			theme, err := BuiltinTheme(name)
			if err != nil {
				t.Fatal(err)
			}
			if theme.Preset != name {
				t.Errorf("preset = %q, want %q", theme.Preset, name)
			}
			if theme.Messages.Author.Tag() == "[-]" {
				t.Error("author tag should not be empty default")
			}
			if theme.Markdown.UserMention.Tag() == "[-]" {
				t.Error("user mention tag should not be empty default")
			}
			if theme.Header.Tag() == "[-]" {
				t.Error("header tag should not be empty default")
			}
		})
	}
}

func TestBuiltinTheme_Unknown(t *testing.T) {
	_, err := BuiltinTheme("gruvbox")
	if err == nil {
		t.Fatal("expected error")
	}
	if IsThemeName("gruvbox") || !IsThemeName("blue") {
		t.Error("IsThemeName mismatch")
	}
	want := `unknown theme "gruvbox" (available: default, light, blue)`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestMakeStyle_ForegroundBackground(t *testing.T) {
	s := makeStyle("green", "blue", "b")
	if s.Foreground() != tcell.GetColor("green") {
		t.Error("foreground should be set")
	}
	if s.Background() != tcell.GetColor("blue") {
		t.Error("background should be set")
	}
}

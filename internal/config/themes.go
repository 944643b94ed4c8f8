package config

import (
	"fmt"
	"slices"
	"strings"
)

// ThemeNames lists the built-in presets.
func ThemeNames() []string {
	return []string{"default", "light", "blue"}
}

// UnknownThemeError is returned when the configured preset is not built in.
type UnknownThemeError struct {
	Name  string
	Valid []string
}

func (e *UnknownThemeError) Error() string {
	return fmt.Sprintf("unknown theme %q (available: %s)", e.Name, strings.Join(e.Valid, ", "))
}

// BuiltinTheme returns a fully populated Theme for the given preset name.
func BuiltinTheme(name string) (Theme, error) {
	switch name {
	case "default":
		return defaultTheme(), nil
	case "light":
		return lightTheme(), nil
	case "blue":
		return blueTheme(), nil
	default:
		return Theme{}, &UnknownThemeError{Name: name, Valid: ThemeNames()}
	}
}

// IsThemeName reports whether name is a built-in preset.
func IsThemeName(name string) bool {
	return slices.Contains(ThemeNames(), name)
}

func defaultTheme() Theme {
	return Theme{
		Preset:     "default",
		Background: makeStyle("lightgray", "black", ""),
		Border: BorderTheme{
			Focused: makeStyle("darkcyan", "", ""),
			Normal:  makeStyle("gray", "", ""),
		},
		Title: TitleTheme{
			Focused: makeStyle("white", "", "b"),
			Normal:  makeStyle("gray", "", ""),
		},
		Header: makeStyle("darkcyan", "darkblue", "b"),
		StreamsTree: StreamsTreeTheme{
			Stream:   makeStyle("lightgray", "", ""),
			Topic:    makeStyle("gray", "", ""),
			Section:  makeStyle("darkcyan", "", "b"),
			Selected: makeStyle("violet", "darkblue", ""),
			Unread:   makeStyle("black", "lightgray", ""),
		},
		Messages: MessagesListTheme{
			Recipient: makeStyle("white", "darkblue", "u"),
			Author:    makeStyle("yellow", "", "b"),
			Content:   makeStyle("white", "", ""),
			Timestamp: makeStyle("gray", "", ""),
			Selected:  makeStyle("lightcoral", "black", "b"),
			Reaction:  makeStyle("gray", "", ""),
			Unread:    makeStyle("black", "lightgray", ""),
		},
		UsersList: UsersListTheme{
			Active:   makeStyle("white", "", ""),
			Idle:     makeStyle("yellow", "", ""),
			Selected: makeStyle("violet", "darkblue", ""),
		},
		Markdown: MarkdownTheme{
			UserMention: makeStyle("yellow", "", "b"),
			StreamLink:  makeStyle("darkcyan", "", "b"),
			Link:        makeStyle("lightblue", "", "u"),
			InlineCode:  makeStyle("gray", "", ""),
			CodeFence:   makeStyle("gray", "", ""),
			Quote:       makeStyle("gray", "", "d"),
		},
		StatusBar: StatusBarTheme{
			Text:  makeStyle("white", "darkblue", ""),
			Error: makeStyle("lightcoral", "", "b"),
		},
	}
}

func lightTheme() Theme {
	return Theme{
		Preset:     "light",
		Background: makeStyle("black", "white", ""),
		Border: BorderTheme{
			Focused: makeStyle("darkblue", "", ""),
			Normal:  makeStyle("gray", "", ""),
		},
		Title: TitleTheme{
			Focused: makeStyle("darkblue", "", "b"),
			Normal:  makeStyle("gray", "", ""),
		},
		Header: makeStyle("white", "darkblue", "b"),
		StreamsTree: StreamsTreeTheme{
			Stream:   makeStyle("black", "", ""),
			Topic:    makeStyle("gray", "", ""),
			Section:  makeStyle("darkblue", "", "b"),
			Selected: makeStyle("white", "darkblue", ""),
			Unread:   makeStyle("black", "lightgray", "b"),
		},
		Messages: MessagesListTheme{
			Recipient: makeStyle("white", "darkblue", "u"),
			Author:    makeStyle("darkmagenta", "", "b"),
			Content:   makeStyle("black", "", ""),
			Timestamp: makeStyle("gray", "", ""),
			Selected:  makeStyle("darkblue", "lightgray", ""),
			Reaction:  makeStyle("gray", "", ""),
			Unread:    makeStyle("black", "lightgray", "b"),
		},
		UsersList: UsersListTheme{
			Active:   makeStyle("black", "", ""),
			Idle:     makeStyle("gray", "", ""),
			Selected: makeStyle("white", "darkblue", ""),
		},
		Markdown: MarkdownTheme{
			UserMention: makeStyle("darkmagenta", "", "b"),
			StreamLink:  makeStyle("darkblue", "", "b"),
			Link:        makeStyle("darkblue", "", "u"),
			InlineCode:  makeStyle("darkred", "", ""),
			CodeFence:   makeStyle("gray", "", ""),
			Quote:       makeStyle("gray", "", ""),
		},
		StatusBar: StatusBarTheme{
			Text:  makeStyle("white", "darkblue", ""),
			Error: makeStyle("darkred", "", "b"),
		},
	}
}

func blueTheme() Theme {
	return Theme{
		Preset:     "blue",
		Background: makeStyle("black", "lightblue", ""),
		Border: BorderTheme{
			Focused: makeStyle("darkblue", "", ""),
			Normal:  makeStyle("black", "", ""),
		},
		Title: TitleTheme{
			Focused: makeStyle("white", "", "b"),
			Normal:  makeStyle("black", "", ""),
		},
		Header: makeStyle("black", "darkblue", "b"),
		StreamsTree: StreamsTreeTheme{
			Stream:   makeStyle("black", "", ""),
			Topic:    makeStyle("darkblue", "", ""),
			Section:  makeStyle("darkblue", "", "b"),
			Selected: makeStyle("white", "darkblue", ""),
			Unread:   makeStyle("black", "lightgray", "b"),
		},
		Messages: MessagesListTheme{
			Recipient: makeStyle("white", "darkblue", "u"),
			Author:    makeStyle("darkred", "", "b"),
			Content:   makeStyle("black", "", ""),
			Timestamp: makeStyle("darkblue", "", ""),
			Selected:  makeStyle("black", "lightgray", ""),
			Reaction:  makeStyle("darkblue", "", ""),
			Unread:    makeStyle("black", "lightgray", "b"),
		},
		UsersList: UsersListTheme{
			Active:   makeStyle("black", "", ""),
			Idle:     makeStyle("darkblue", "", ""),
			Selected: makeStyle("white", "darkblue", ""),
		},
		Markdown: MarkdownTheme{
			UserMention: makeStyle("darkred", "", "b"),
			StreamLink:  makeStyle("darkblue", "", "b"),
			Link:        makeStyle("darkblue", "", "u"),
			InlineCode:  makeStyle("darkmagenta", "", ""),
			CodeFence:   makeStyle("darkblue", "", ""),
			Quote:       makeStyle("darkblue", "", "d"),
		},
		StatusBar: StatusBarTheme{
			Text:  makeStyle("white", "darkblue", ""),
			Error: makeStyle("darkred", "", "b"),
		},
	}
}

package markdown

import (
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/kyokomi/emoji/v2"
)

var (
	emojiEntries     map[string]string
	emojiEntriesOnce sync.Once
)

// Zulip names some common emoji differently from the gemoji set.
var zulipAliases = map[string]string{
	"thumbs_up":     "+1",
	"thumbs_down":   "-1",
	"working_on_it": "hammer_and_wrench",
}

// buildEmojiEntries creates the name→unicode map from kyokomi/emoji,
// keeping lowercase shortcodes only.
func buildEmojiEntries() map[string]string {
	codeMap := emoji.CodeMap()
	result := make(map[string]string, len(codeMap)+len(zulipAliases))
	for k, v := range codeMap {
		name := strings.TrimPrefix(strings.TrimSuffix(k, ":"), ":")
		if !isShortcode(name) {
			continue
		}
		result[name] = strings.TrimSpace(v)
	}
	for alias, target := range zulipAliases {
		if _, ok := result[alias]; ok {
			continue
		}
		if v, ok := result[target]; ok {
			result[alias] = v
		}
	}
	return result
}

// isShortcode returns true if the name contains only lowercase letters,
// digits, underscores, hyphens, and plus signs.
func isShortcode(name string) bool {
	for _, r := range name {
		if !unicode.IsLower(r) && !unicode.IsDigit(r) && r != '_' && r != '-' && r != '+' {
			return false
		}
	}
	return len(name) > 0
}

func getEmojiEntries() map[string]string {
	emojiEntriesOnce.Do(func() {
		emojiEntries = buildEmojiEntries()
	})
	return emojiEntries
}

// lookupEmoji returns the unicode emoji for a name, or the :name: fallback.
// The name parameter should be without surrounding colons.
func lookupEmoji(name string) string {
	if u, ok := getEmojiEntries()[name]; ok {
		return u
	}
	return ":" + name + ":"
}

// LookupEmoji returns the unicode emoji for a name, or the :name: fallback.
func LookupEmoji(name string) string {
	return lookupEmoji(name)
}

// ReactionEmoji returns the glyph for a Zulip reaction. Unicode reactions
// carry their code points ("1f44d", "1f1fa-1f1f8"); custom and realm emoji
// fall back to the :name: form.
func ReactionEmoji(name, code, reactionType string) string {
	if reactionType == "unicode_emoji" && code != "" {
		var b strings.Builder
		for _, part := range strings.Split(code, "-") {
			cp, err := strconv.ParseUint(part, 16, 32)
			if err != nil {
				return lookupEmoji(name)
			}
			b.WriteRune(rune(cp))
		}
		return b.String()
	}
	return lookupEmoji(name)
}

package clipboard

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

// ErrUnavailable is returned when no clipboard utility was found.
var ErrUnavailable = errors.New("clipboard: no clipboard utility available")

// writeAll and readAll default to the system clipboard; tests replace them.
var (
	writeAll    = clipboard.WriteAll
	readAll     = clipboard.ReadAll
	unsupported = func() bool { return clipboard.Unsupported }
)

// Available returns true if a clipboard provider was detected.
func Available() bool {
	return !unsupported()
}

// WriteText copies text to the system clipboard.
func WriteText(text string) error {
	if !Available() {
		return ErrUnavailable
	}
	if err := writeAll(text); err != nil {
		return fmt.Errorf("clipboard: copy failed: %w", err)
	}
	return nil
}

// ReadText returns text from the system clipboard.
func ReadText() (string, error) {
	if !Available() {
		return "", ErrUnavailable
	}
	text, err := readAll()
	if err != nil {
		return "", fmt.Errorf("clipboard: paste failed: %w", err)
	}
	return text, nil
}

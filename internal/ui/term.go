package ui

import (
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether fd refers to a terminal.
func IsTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd)) //nolint:gosec // G115: fd fits in int
}

// Width returns the column count of the terminal behind f. It is 0 when f
// is not a terminal or its size cannot be read, which callers treat as
// unbounded.
func Width(f *os.File) int {
	cols, _, err := term.GetSize(int(f.Fd())) //nolint:gosec // G115: fd fits in int
	if err != nil || cols < 0 {
		return 0
	}
	return cols
}

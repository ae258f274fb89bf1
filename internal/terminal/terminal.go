// Package terminal provides small helpers for interactive terminal output.
package terminal

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

// IsInteractive reports whether f is attached to a terminal. Live output
// such as spinners and cursor control is only used when it is.
func IsInteractive(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// Width returns the width of the terminal on f, or 80 when unknown.
func Width(f *os.File) int {
	if f != nil {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return 80
}

// LinesFor returns how many rows text of the given length occupies at width,
// plus the empty line left behind after Enter.
func LinesFor(textLength, width int) int {
	if width <= 0 {
		width = 80
	}
	n := int(math.Ceil(float64(textLength) / float64(width)))
	if n < 1 {
		n = 1
	}
	return n + 1
}

// ClearPreviousLines erases the last n lines written to w and leaves the
// cursor at the start of the topmost one.
func ClearPreviousLines(w io.Writer, n int) {
	for i := 0; i < n; i++ {
		fmt.Fprint(w, "\r\x1b[2K")
		if i < n-1 {
			fmt.Fprint(w, "\x1b[1A")
		}
	}
}

// ReadSecret prompts on out and reads one line from in without echo when in
// is a terminal. Otherwise the line is read as is.
func ReadSecret(in *os.File, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	if IsInteractive(in) {
		b, err := term.ReadPassword(int(in.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

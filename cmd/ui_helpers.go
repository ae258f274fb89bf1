package cmd

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"atomicgo.dev/cursor"

	"castline/cli/internal/terminal"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// startInlineSpinner draws frames followed by text on one line of w until the
// returned stop function is called, which also erases the line. The cursor
// is hidden meanwhile.
func startInlineSpinner(w io.Writer, text string, frames []string, interval time.Duration) func() {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	cursor.Hide()
	go func() {
		defer wg.Done()
		i := 0
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			line := fmt.Sprintf("%s %s", frames[i%len(frames)], text)
			select {
			case <-stop:
				fmt.Fprintf(w, "\r%*s\r", len(line), "")
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s", line)
				i++
			}
		}
	}()
	return func() {
		close(stop)
		wg.Wait()
		cursor.Show()
	}
}

// spin runs the spinner on stderr only when stderr is a terminal.
func spin(text string) func() {
	if !terminal.IsInteractive(os.Stderr) {
		return func() {}
	}
	return startInlineSpinner(os.Stderr, text, spinnerFrames, 120*time.Millisecond)
}

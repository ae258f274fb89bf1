// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
)

// ParseLevel maps a config string to a pterm log level. Unknown values fall back to info.
func ParseLevel(s string) pterm.LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return pterm.LogLevelTrace
	case "debug":
		return pterm.LogLevelDebug
	case "warn", "warning":
		return pterm.LogLevelWarn
	case "error":
		return pterm.LogLevelError
	case "off", "disabled", "none":
		return pterm.LogLevelDisabled
	default:
		return pterm.LogLevelInfo
	}
}

// New returns a structured logger writing to stderr at the given level.
// CASTLINE_VERBOSE=1 forces debug output, like the CLI's --verbose flag.
func New(level string) *pterm.Logger {
	lvl := ParseLevel(level)
	if os.Getenv("CASTLINE_VERBOSE") == "1" && (lvl > pterm.LogLevelDebug || lvl == pterm.LogLevelDisabled) {
		lvl = pterm.LogLevelDebug
	}
	if lvl == pterm.LogLevelDisabled {
		return Discard()
	}
	return NewWithWriter(os.Stderr, lvl)
}

// NewWithWriter returns a logger bound to w, mainly for tests.
func NewWithWriter(w io.Writer, lvl pterm.LogLevel) *pterm.Logger {
	return pterm.DefaultLogger.WithWriter(w).WithLevel(lvl)
}

// Discard returns a logger that drops everything.
func Discard() *pterm.Logger {
	return pterm.DefaultLogger.WithWriter(io.Discard).WithLevel(pterm.LogLevelDisabled)
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *pterm.Logger) *pterm.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

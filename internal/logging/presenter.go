// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	cerrors "castline/cli/internal/errors"
)

// PresentError formats an error for user display with masking.
func PresentError(context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Mask(err.Error())
	}
	return fmt.Sprintf("%s: %s", context, Mask(err.Error()))
}

// FormatStreamError formats an event stream failure in a user-friendly way.
func FormatStreamError(err error) string {
	var builder strings.Builder

	builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Stream interrupted"))
	builder.WriteString("\n\n")

	msg := ""
	if err != nil {
		msg = err.Error()
	}
	lower := strings.ToLower(msg)
	switch {
	case cerrors.Is(err, cerrors.Timeout) || strings.Contains(lower, "deadline") || strings.Contains(lower, "timeout"):
		builder.WriteString("The generation service took too long to send the next event.\n")
	case strings.Contains(lower, "connection reset") || strings.Contains(lower, "unexpected eof"):
		builder.WriteString("The connection to the generation service was interrupted.\n")
	case cerrors.Is(err, cerrors.HTTPStatus):
		builder.WriteString("The generation service refused to open the stream.\n")
	default:
		builder.WriteString("The event stream ended with an error.\n")
	}
	builder.WriteString("\n")
	builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Streams do not resume; re-issue the request to try again"))
	builder.WriteString("\n")

	if strings.TrimSpace(msg) != "" {
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(msg)))
	}
	return builder.String()
}

// PresentStreamError displays a formatted stream error
func PresentStreamError(err error) {
	fmt.Println()
	fmt.Println(FormatStreamError(err))
	fmt.Println()
}

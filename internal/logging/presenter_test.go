// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"

	cerrors "castline/cli/internal/errors"
)

func TestPresentErrorMasks(t *testing.T) {
	err := errors.New("connect postgres://app:hunter2@db:5432/chat: refused")
	assert.Equal(t, "select: connect postgres://*:*@db:5432/chat: refused", PresentError("select", err))
	assert.Equal(t, "", PresentError("select", nil))
}

func TestFormatStreamErrorTimeout(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	out := FormatStreamError(cerrors.Wrap(cerrors.Timeout, "read", errors.New("deadline")))
	assert.Contains(t, out, "took too long")
	assert.Contains(t, out, "re-issue the request")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, pterm.LogLevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, pterm.LogLevelDisabled, ParseLevel("off"))
	assert.Equal(t, pterm.LogLevelInfo, ParseLevel("bogus"))
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, pterm.LogLevelWarn)
	l.Info("hidden")
	l.Warn("shown", l.Args("table", "chats"))
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "chats")

	OrDiscard(nil).Error("nobody hears this")
}

// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package sse decodes Server-Sent-Event bodies produced by the generation backend.
//
// The backend frames every event as a single "data: <payload>" line. A payload of
// exactly [DONE] ends the stream; anything else is delivered to the handler as a
// message. Other SSE fields (event:, id:, retry:, comments) are ignored.
//
// A decode ends in exactly one of two terminal states: done (sentinel seen or the
// body ended cleanly) or errored (read failure, oversize line, cancellation).
// There is no reconnect; a caller that wants to retry re-issues the request.
package sse

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	cerrors "castline/cli/internal/errors"
	"castline/cli/internal/httperrors"
)

// MaxLineSize is the longest line accepted from a stream (64KB).
const MaxLineSize = 64 * 1024

// DoneSentinel is the payload that terminates a stream.
const DoneSentinel = "[DONE]"

const dataPrefix = "data:"

// Handler receives decoded events. Exactly one of OnDone or OnError is called per stream.
type Handler interface {
	OnMessage(payload string)
	OnDone()
	OnError(err error)
}

// Callbacks adapts plain functions to Handler. Nil fields are skipped.
type Callbacks struct {
	Message func(payload string)
	Done    func()
	Error   func(err error)
}

func (c Callbacks) OnMessage(payload string) {
	if c.Message != nil {
		c.Message(payload)
	}
}

func (c Callbacks) OnDone() {
	if c.Done != nil {
		c.Done()
	}
}

func (c Callbacks) OnError(err error) {
	if c.Error != nil {
		c.Error(err)
	}
}

// State is the decoder's position in its lifecycle.
type State int

const (
	Reading State = iota
	Done
	Errored
)

func (s State) String() string {
	switch s {
	case Reading:
		return "reading"
	case Done:
		return "done"
	case Errored:
		return "errored"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Decode consumes r line by line until the sentinel, end of input, or an error,
// and reports the terminal state. Reading stops at the sentinel; nothing after
// it is consumed. The returned error is the one passed to OnError, if any.
func Decode(ctx context.Context, r io.Reader, h Handler) (State, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), MaxLineSize)

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return fail(h, err)
		}
		payload, ok := parseLine(sc.Text())
		if !ok {
			continue
		}
		if payload == DoneSentinel {
			h.OnDone()
			return Done, nil
		}
		if err := deliver(h, payload); err != nil {
			return fail(h, err)
		}
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			err = fmt.Errorf("event line exceeds %d bytes: %w", MaxLineSize, err)
		}
		return fail(h, err)
	}
	if err := ctx.Err(); err != nil {
		return fail(h, err)
	}
	h.OnDone()
	return Done, nil
}

// deliver hands payload to h, turning a panic in the handler into an error
// so the stream still ends through OnError.
func deliver(h Handler, payload string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("message handler panicked: %v", r)
		}
	}()
	h.OnMessage(payload)
	return nil
}

func fail(h Handler, err error) (State, error) {
	err = cerrors.Wrap(cerrors.Stream, "read event stream", err)
	h.OnError(err)
	return Errored, err
}

// parseLine extracts the payload of a data line. The line is trimmed first,
// then the prefix and a single following space are removed.
func parseLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, dataPrefix) {
		return "", false
	}
	return strings.TrimPrefix(line[len(dataPrefix):], " "), true
}

// Doer issues HTTP requests; *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Stream sends req with Accept: text/event-stream and decodes the response into h.
// A transport failure, non-2xx status or missing body is returned before any
// callback runs. Once decoding starts, failures go to h.OnError and Stream returns nil.
func Stream(ctx context.Context, doer Doer, req *http.Request, h Handler) error {
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := doer.Do(req)
	if err != nil {
		return err
	}
	if resp.Body != nil {
		defer resp.Body.Close()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return cerrors.Wrap(cerrors.HTTPStatus, req.Method+" "+req.URL.Path, httperrors.NewStatusError(resp))
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return cerrors.New(cerrors.Stream, "response has no body")
	}

	_, _ = Decode(ctx, resp.Body, h)
	return nil
}

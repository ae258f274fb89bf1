// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages, so the CLI can decide how to present a failure
// without string matching on the underlying cause.
//
// Errors built here always keep the original cause reachable through errors.Is
// and errors.As; the data layer never swallows a remote failure.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// RemoteQuery indicates a failing per-table operation on the table service.
	RemoteQuery Kind = "remote_query"
	// HTTPStatus indicates a non-2xx response from the HTTP backend.
	HTTPStatus Kind = "http_status"
	// Timeout indicates the caller stopped waiting for a response.
	Timeout Kind = "timeout"
	// Stream indicates a failure while consuming an event stream.
	Stream Kind = "stream"
	// Config indicates invalid or missing configuration.
	Config Kind = "config"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf reports the kind of the first *E in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *E
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

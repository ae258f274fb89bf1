// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors turns HTTP failures into typed errors and user-friendly messages.
package httperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"github.com/pterm/pterm"

	cerrors "castline/cli/internal/errors"
)

// ErrTimeout is returned when a request does not settle within its deadline.
var ErrTimeout = errors.New("Request timed out")

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 * 1024

// StatusError is a non-2xx response. Message is the best human-readable
// explanation found in the body: a JSON error field, or the plain text itself.
type StatusError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *StatusError) Error() string {
	status := strings.TrimSpace(e.Status)
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Message == "" {
		return "HTTP " + status
	}
	return "HTTP " + status + ": " + e.Message
}

// NewStatusError builds a StatusError from resp, consuming up to 64KB of its body.
// The caller still owns closing the body.
func NewStatusError(resp *http.Response) *StatusError {
	e := &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	if resp.Body == nil {
		return e
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	e.Message = messageFromBody(b, resp.Header.Get("Content-Type"))
	return e
}

// messageFromBody extracts an error message from a JSON error payload,
// falling back to the trimmed raw body.
func messageFromBody(b []byte, contentType string) string {
	text := strings.TrimSpace(string(b))
	if text == "" {
		return ""
	}
	if strings.Contains(strings.ToLower(contentType), "json") || json.Valid(b) {
		var anyBody any
		if err := json.Unmarshal(b, &anyBody); err == nil {
			if msg := findMessage(anyBody, 0); msg != "" {
				return msg
			}
		}
	}
	return text
}

// findMessage looks for common error fields, descending into "error" and "data" objects.
func findMessage(node any, depth int) string {
	obj, ok := node.(map[string]any)
	if !ok || depth > 3 {
		return ""
	}
	for _, k := range []string{"message", "error_description", "msg", "detail"} {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	switch v := obj["error"].(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	case map[string]any:
		if msg := findMessage(v, depth+1); msg != "" {
			return msg
		}
	}
	if inner, ok := obj["data"].(map[string]any); ok {
		return findMessage(inner, depth+1)
	}
	return ""
}

// Class groups network failures by what the user can do about them.
type Class int

const (
	ClassGeneric Class = iota
	ClassTimeout
	ClassDNS
	ClassRefused
	ClassTLS
	ClassServer
	ClassClient
)

// Classify inspects err and returns its Class.
func Classify(err error) Class {
	if err == nil {
		return ClassGeneric
	}
	var se *StatusError
	if errors.As(err, &se) {
		if se.StatusCode >= 500 {
			return ClassServer
		}
		return ClassClient
	}
	if errors.Is(err, ErrTimeout) || cerrors.Is(err, cerrors.Timeout) || isTimeoutError(err) {
		return ClassTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ClassDNS
	}
	if isConnectionRefusedError(err) {
		return ClassRefused
	}
	if isSSLError(err) {
		return ClassTLS
	}
	return ClassGeneric
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded")
}

func isConnectionRefusedError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

func isSSLError(err error) bool {
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "tls") ||
		strings.Contains(lower, "x509") ||
		strings.Contains(lower, "certificate") ||
		strings.Contains(lower, "handshake")
}

// FormatNetworkError displays a user-friendly explanation of err and returns it wrapped.
func FormatNetworkError(err error, context string) error {
	if err == nil {
		return nil
	}
	displayErrorMessage(err, context)
	return fmt.Errorf("network error: %w", err)
}

func displayErrorMessage(err error, context string) {
	switch Classify(err) {
	case ClassTimeout:
		pterm.Printf("⏱️  Request timed out while %s\n", context)
		pterm.Println()
		pterm.Println("The backend did not answer in time. The request was cancelled;")
		pterm.Println("re-run the command or raise api.request_timeout in config.json.")
	case ClassDNS:
		pterm.Printf("🌐 Cannot resolve backend address while %s\n", context)
		pterm.Println()
		pterm.Println("Check api.default_url / api.privileged_url and your DNS settings.")
	case ClassRefused:
		pterm.Printf("🚫 Connection refused while %s\n", context)
		pterm.Println()
		pterm.Println("The backend is not accepting connections on the configured address.")
	case ClassTLS:
		pterm.Printf("🔒 Secure connection failed while %s\n", context)
		pterm.Println()
		pterm.Println("Check the system clock and any HTTPS proxy between you and the backend.")
	case ClassServer:
		pterm.Printf("⚠️  Backend error while %s\n", context)
		pterm.Println()
		pterm.Println("The backend reported an internal error. This is not a problem with your setup.")
	case ClassClient:
		pterm.Printf("❌ Backend rejected the request while %s\n", context)
	default:
		pterm.Printf("❌ Cannot reach the backend while %s\n", context)
	}
	pterm.Println()

	details := err.Error()
	if len(details) > 200 {
		details = details[:200] + "..."
	}
	pterm.Debug.Printf("Technical details: %s\n", details)
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "server"
	}
	return u.Host
}

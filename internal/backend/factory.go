// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"net/http"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"castline/cli/internal/identity"
	"castline/cli/internal/logging"
)

// DefaultTimeout bounds Do when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// Options configures a Client.
type Options struct {
	DefaultURL    string
	PrivilegedURL string
	// Identity supplies the caller's identifiers; nil means anonymous.
	Identity   identity.Provider
	HTTPClient *http.Client
	Timeout    time.Duration
	UserAgent  string
	Logger     *pterm.Logger
}

// New creates a Client. It owns its own in-flight registry for Do.
func New(opts Options) *Client {
	c := &Client{
		defaultURL:    strings.TrimRight(opts.DefaultURL, "/"),
		privilegedURL: strings.TrimRight(opts.PrivilegedURL, "/"),
		identity:      opts.Identity,
		http:          opts.HTTPClient,
		timeout:       opts.Timeout,
		userAgent:     opts.UserAgent,
		log:           logging.OrDiscard(opts.Logger),
	}
	if c.identity == nil {
		c.identity = identity.Static{}
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.userAgent == "" {
		c.userAgent = "castline-cli"
	}
	if c.privilegedURL == "" {
		c.privilegedURL = c.defaultURL
	}
	return c
}

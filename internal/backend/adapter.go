// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backend routes calls to the two-tier Castline HTTP API.
//
// Callers holding both a user UUID and a purchase ID are sent to the
// privileged service; everyone else goes to the default one. Responses are
// decoded by content type: JSON (with its data envelope peeled), PNG images,
// or plain text. Streaming endpoints are handed to the sse package.
package backend

import "context"

// API is the backend surface the CLI and data client depend on.
// Implementations may call the real service or provide fakes for tests.
type API interface {
	// Request performs one call without interpreting the status code.
	Request(ctx context.Context, d Descriptor) (Result, error)
	// Do is the strict variant: deduplicated by URL, bounded by the request
	// timeout, and failing on any non-2xx status.
	Do(ctx context.Context, d Descriptor) (Result, error)
}

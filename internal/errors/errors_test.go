// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("relation \"chats\" does not exist")
	err := Wrap(RemoteQuery, "select chats", cause)

	assert.Equal(t, "remote_query: select chats: relation \"chats\" does not exist", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, RemoteQuery, KindOf(err))
}

func TestIsWalksNestedKinds(t *testing.T) {
	inner := New(Timeout, "Request timed out")
	outer := fmt.Errorf("fetch characters: %w", Wrap(HTTPStatus, "GET /characters", inner))

	assert.True(t, Is(outer, HTTPStatus))
	assert.True(t, Is(outer, Timeout))
	assert.False(t, Is(outer, Stream))
	assert.Equal(t, HTTPStatus, KindOf(outer))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(stderrors.New("plain")))
	assert.False(t, Is(nil, Config))
}

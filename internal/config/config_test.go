// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "castline/cli/internal/errors"
)

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	c, err := LoadFile(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "https://api.castline.chat", c.API.DefaultURL)
	assert.Equal(t, "https://plus.castline.chat", c.API.PrivilegedURL)
	assert.Equal(t, 5*time.Second, c.API.RequestTimeout.Std())
	assert.Equal(t, 10, c.Query.PageSize)
	assert.Equal(t, "public", c.Tables.Schema)
	assert.Empty(t, c.Cache.Path)
}

func TestLoadFileEnvOverridesFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(p, []byte(`{
		"log_level": "debug",
		"api": {"default_url": "http://localhost:8080", "request_timeout": "2s"},
		"query": {"page_size": 25}
	}`), 0o600))
	t.Setenv("CASTLINE_PAGE_SIZE", "7")
	t.Setenv("CASTLINE_REST_KEY", "anon")

	c, err := LoadFile(p)
	require.NoError(t, err)

	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "http://localhost:8080", c.API.DefaultURL)
	assert.Equal(t, 2*time.Second, c.API.RequestTimeout.Std())
	assert.Equal(t, 7, c.Query.PageSize)
	assert.Equal(t, "anon", c.Tables.RESTKey)
}

func TestValidateRejectsBadValues(t *testing.T) {
	c, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	bad := c
	bad.Query.PageSize = 0
	assert.True(t, cerrors.Is(bad.Validate(), cerrors.Config))

	bad = c
	bad.API.PrivilegedURL = "not a url"
	assert.True(t, cerrors.Is(bad.Validate(), cerrors.Config))
}

func TestSaveFileRoundTripKeepsSecretsOut(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.json")
	c, err := LoadFile(p)
	require.NoError(t, err)
	c.Tables.RESTKey = "service-role-key"
	c.Cache.Path = "/tmp/castline.db"

	require.NoError(t, SaveFile(p, c))

	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "service-role-key")
	assert.Contains(t, string(raw), `"request_timeout": "5s"`)

	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	back, err := LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/castline.db", back.Cache.Path)
}

func TestCacheResolvePath(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	p, err := CacheConfig{}.ResolvePath()
	require.NoError(t, err)
	assert.Empty(t, p)

	p, err = CacheConfig{Path: "/tmp/explicit.db", Persist: true}.ResolvePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/explicit.db", p)

	p, err = CacheConfig{Persist: true}.ResolvePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(os.Getenv("XDG_CACHE_HOME"), "castline", "queries.db"), p)
}

// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Rows  []string `json:"rows"`
	Count int      `json:"count"`
}

func stores(t *testing.T) map[string]Store[entry] {
	t.Helper()
	sq, err := OpenSQLite[entry](filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	return map[string]Store[entry]{
		"memory": NewMemory[entry](),
		"sqlite": sq,
	}
}

func TestStoreGetSet(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			want := entry{Rows: []string{"a", "b"}, Count: 2}
			require.NoError(t, s.Set(ctx, "k", want))

			got, ok, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, want, got)
		})
	}
}

func TestStoreLastWriterWins(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set(ctx, "k", entry{Count: 1}))
			require.NoError(t, s.Set(ctx, "k", entry{Count: 2}))

			got, ok, err := s.Get(ctx, "k")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, 2, got.Count)
		})
	}
}

func TestStoreConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					assert.NoError(t, s.Set(ctx, fmt.Sprintf("k%d", i%4), entry{Count: i}))
				}(i)
			}
			wg.Wait()

			for i := 0; i < 4; i++ {
				_, ok, err := s.Get(ctx, fmt.Sprintf("k%d", i))
				require.NoError(t, err)
				assert.True(t, ok)
			}
		})
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := OpenSQLite[entry](path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", entry{Rows: []string{"x"}, Count: 1}))
	require.NoError(t, s.Close())

	s, err = OpenSQLite[entry](path)
	require.NoError(t, err)
	defer s.Close()

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"x"}, got.Rows)
}

func TestMemoryLen(t *testing.T) {
	m := NewMemory[int]()
	require.NoError(t, m.Set(context.Background(), "a", 1))
	require.NoError(t, m.Set(context.Background(), "a", 2))
	assert.Equal(t, 1, m.Len())
}

type paged struct {
	Data  []map[string]any   `json:"data"`
	Pages [][]map[string]any `json:"pages"`
}

func TestSQLiteKeepsWideIntegersAndEmptyPages(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite[paged](filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set(ctx, "ids", paged{
		Data:  []map[string]any{{"id": int64(9007199254740993)}},
		Pages: [][]map[string]any{},
	}))

	got, ok, err := s.Get(ctx, "ids")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got.Data, 1)
	assert.Equal(t, json.Number("9007199254740993"), got.Data[0]["id"])
	assert.NotNil(t, got.Pages)
	assert.Empty(t, got.Pages)
}

// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"castline/cli/internal/httperrors"
	"castline/cli/internal/query"
)

func TestSelectBuildsPostgRESTQuery(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Range", "0-4/7")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id":7},{"id":6},{"id":5},{"id":4},{"id":3}]`)
	}))
	defer srv.Close()

	s := New(srv.URL+"/", "anon-key")
	res, err := s.Select(context.Background(), query.Query{
		Table:   "chats",
		Columns: "id, title",
		Count:   query.CountExact,
		Filters: []query.Filter{
			query.Eq("user_id", "u-1"),
			query.In("model", "a,b", "c"),
			query.NotOverlaps("tags", "nsfw"),
			query.Pattern("title", "%hello%"),
		},
		Order: &query.Order{Column: "created_at"},
		Range: &query.Range{From: 0, To: 4},
	})

	require.NoError(t, err)
	assert.Len(t, res.Rows, 5)
	assert.Equal(t, json.Number("7"), res.Rows[0]["id"])
	require.NotNil(t, res.Count)
	assert.Equal(t, int64(7), *res.Count)

	require.NotNil(t, got)
	assert.Equal(t, "/chats", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "id,title", q.Get("select"))
	assert.Equal(t, "eq.u-1", q.Get("user_id"))
	assert.Equal(t, `in.("a,b","c")`, q.Get("model"))
	assert.Equal(t, `not.ov.{"nsfw"}`, q.Get("tags"))
	assert.Equal(t, "ilike.*hello*", q.Get("title"))
	assert.Equal(t, "created_at.desc", q.Get("order"))
	assert.Equal(t, "0", q.Get("offset"))
	assert.Equal(t, "5", q.Get("limit"))
	assert.Equal(t, "count=exact", got.Header.Get("Prefer"))
	assert.Equal(t, "anon-key", got.Header.Get("apikey"))
	assert.Equal(t, "Bearer anon-key", got.Header.Get("Authorization"))
}

func TestSelectWithoutCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Prefer"))
		assert.Empty(t, r.Header.Get("apikey"))
		w.Header().Set("Content-Range", "0-0/*")
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	res, err := New(srv.URL, "").Select(context.Background(), query.Query{Table: "t"})
	require.NoError(t, err)
	assert.Nil(t, res.Count)
	assert.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)
}

func TestSelectStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"relation \"public.nope\" does not exist"}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").Select(context.Background(), query.Query{Table: "nope"})
	var se *httperrors.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Contains(t, se.Message, "does not exist")
}

func TestWritesAndCall(t *testing.T) {
	type seen struct {
		method, path string
		query        url.Values
		body         string
	}
	var calls []seen
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		calls = append(calls, seen{r.Method, r.URL.Path, r.URL.Query(), string(b)})
		if r.URL.Path == "/rpc/pick" {
			_, _ = io.WriteString(w, `{"picked":3}`)
			return
		}
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		_, _ = io.WriteString(w, `[{"id":1}]`)
	}))
	defer srv.Close()

	s := New(srv.URL, "")
	ctx := context.Background()

	rows, err := s.Insert(ctx, "chats", []query.Row{{"title": "hi"}})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = s.Update(ctx, "chats", query.Row{"title": "x"}, []query.Filter{query.Eq("id", 1)})
	require.NoError(t, err)

	_, err = s.Delete(ctx, "chats", []query.Filter{query.NotIn("id", 2, 3)})
	require.NoError(t, err)

	raw, err := s.Call(ctx, "pick", map[string]any{"n": 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"picked":3}`, string(raw))

	require.Len(t, calls, 4)
	assert.Equal(t, http.MethodPost, calls[0].method)
	assert.JSONEq(t, `[{"title":"hi"}]`, calls[0].body)
	assert.Equal(t, http.MethodPatch, calls[1].method)
	assert.Equal(t, "eq.1", calls[1].query.Get("id"))
	assert.Equal(t, http.MethodDelete, calls[2].method)
	assert.Equal(t, "not.in.(2,3)", calls[2].query.Get("id"))
	var args map[string]any
	require.NoError(t, json.Unmarshal([]byte(calls[3].body), &args))
	assert.Equal(t, float64(3), args["n"])
}

func TestParseContentRange(t *testing.T) {
	n := parseContentRange("*/0")
	require.NotNil(t, n)
	assert.Equal(t, int64(0), *n)
	assert.Nil(t, parseContentRange("0-4/*"))
	assert.Nil(t, parseContentRange(""))
}

func TestConditionEmptyIn(t *testing.T) {
	assert.Equal(t, "in.()", condition(query.In("id")))
	assert.Equal(t, "is.null", condition(query.Eq("deleted_at", nil)))
}

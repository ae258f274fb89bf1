// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"castline/cli/internal/query"
)

func TestBuildSelectChatsWindow(t *testing.T) {
	q := query.Query{
		Table:   "chats",
		Columns: "id, title,created_at",
		Count:   query.CountExact,
		Filters: []query.Filter{query.Eq("user_id", "u-1")},
		Order:   &query.Order{Column: "created_at"},
		Range:   &query.Range{From: 0, To: 4},
	}

	sql, args, err := buildSelect("public", q)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id", "title", "created_at" FROM "public"."chats" WHERE "user_id" = $1 ORDER BY "created_at" DESC LIMIT 5 OFFSET 0`, sql)
	assert.Equal(t, []any{"u-1"}, args)

	sql, args, err = buildCount("public", q)
	require.NoError(t, err)
	assert.Equal(t, `SELECT count(*) FROM "public"."chats" WHERE "user_id" = $1`, sql)
	assert.Equal(t, []any{"u-1"}, args)
}

func TestBuildSelectOperators(t *testing.T) {
	q := query.Query{
		Table: "characters",
		Filters: []query.Filter{
			query.In("id", 1, 2),
			query.NotIn("creator", "x"),
			query.NotOverlaps("tags", "nsfw", "gore"),
			query.Pattern("name", "%ali%"),
			query.Eq("deleted_at", nil),
		},
		Order: &query.Order{Column: "name", Ascending: true},
		Range: &query.Range{From: 10, To: 19},
	}

	sql, args, err := buildSelect("", q)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "characters" WHERE "id" = ANY($1) AND "creator" <> ALL($2) AND NOT ("tags" && $3) AND "name" ILIKE $4 AND "deleted_at" IS NULL ORDER BY "name" ASC LIMIT 10 OFFSET 10`, sql)
	assert.Equal(t, []any{[]any{1, 2}, []any{"x"}, []any{"nsfw", "gore"}, "%ali%"}, args)
}

func TestBuildSelectEmptyInMatchesNothing(t *testing.T) {
	sql, args, err := buildSelect("", query.Query{Table: "t", Filters: []query.Filter{query.In("id")}})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "t" WHERE false`, sql)
	assert.Empty(t, args)
}

func TestIdentifiersAreQuoted(t *testing.T) {
	sql, _, err := buildSelect("", query.Query{Table: `x"; drop table y; --`, Columns: `a"b`})
	require.NoError(t, err)
	assert.Equal(t, `SELECT "a""b" FROM "x""; drop table y; --"`, sql)
}

func TestBuildColumnListRejectsEmptyPart(t *testing.T) {
	_, _, err := buildSelect("", query.Query{Table: "t", Columns: "a,,b"})
	assert.Error(t, err)
}

func TestBuildWrites(t *testing.T) {
	sql, args, err := buildInsert("public", "chats", query.Row{"title": "hi", "user_id": "u-1"})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "public"."chats" ("title", "user_id") VALUES ($1, $2) RETURNING *`, sql)
	assert.Equal(t, []any{"hi", "u-1"}, args)

	sql, args, err = buildUpdate("public", "chats", query.Row{"title": "renamed"}, []query.Filter{query.Eq("id", 3)})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "public"."chats" SET "title" = $1 WHERE "id" = $2 RETURNING *`, sql)
	assert.Equal(t, []any{"renamed", 3}, args)

	sql, _, err = buildDelete("public", "chats", []query.Filter{query.In("id", 1)})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "public"."chats" WHERE "id" = ANY($1) RETURNING *`, sql)

	_, _, err = buildInsert("public", "chats", query.Row{})
	assert.Error(t, err)
	_, _, err = buildUpdate("public", "chats", nil, nil)
	assert.Error(t, err)
}

func TestBuildCall(t *testing.T) {
	sql, args := buildCall("public", "random_characters", map[string]any{"n": 3, "exclude": []string{"a"}})
	assert.Equal(t, `SELECT coalesce(jsonb_agg(r), '[]'::jsonb) FROM "public"."random_characters"("exclude" => $1, "n" => $2) AS r`, sql)
	assert.Equal(t, []any{[]string{"a"}, 3}, args)
}

func TestNormalize(t *testing.T) {
	u := [16]byte{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	assert.Equal(t, "12345678-9abc-def0-0102-030405060708", normalize(u))
	assert.Equal(t, `\x123456789abcdef00102030405060708`, normalize(u[:]))
	assert.Equal(t, `\x0a0b`, normalize([]byte{0x0a, 0x0b}))
	assert.Equal(t, 42, normalize(42))
}

// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMatchInfersOperators(t *testing.T) {
	got := FromMatch(map[string]any{
		"user_id": "u-1",
		"tags":    []string{"a", "b"},
		"name":    "%ali%",
		"age":     30,
	})

	require.Len(t, got, 4)
	assert.Equal(t, Eq("age", 30), got[0])
	assert.Equal(t, Pattern("name", "%ali%"), got[1])
	assert.Equal(t, In("tags", "a", "b"), got[2])
	assert.Equal(t, Eq("user_id", "u-1"), got[3])
}

func TestFromMatchBytesAreScalar(t *testing.T) {
	got := FromMatch(map[string]any{"blob": []byte("xy")})
	require.Len(t, got, 1)
	assert.Equal(t, OpEq, got[0].Op)
}

func TestFilterEmpty(t *testing.T) {
	assert.True(t, In("id").Empty())
	assert.True(t, NotIn("id").Empty())
	assert.True(t, Filter{Column: "id", Op: OpNotOverlaps}.Empty())
	assert.False(t, In("id", 1).Empty())
	assert.False(t, Eq("id", nil).Empty())
}

func TestFilterValidate(t *testing.T) {
	assert.NoError(t, In("id", 1, 2).Validate())
	assert.NoError(t, Filter{Column: "id", Op: OpIn}.Validate())
	assert.Error(t, Filter{Column: "id", Op: OpIn, Value: 3}.Validate())
	assert.Error(t, Filter{Column: "name", Op: OpPattern, Value: 3}.Validate())
	assert.Error(t, Filter{Column: "", Op: OpEq}.Validate())
	assert.Error(t, Filter{Column: "id", Op: "gt"}.Validate())
}

func TestBuildSkipsEmptyExtraFilters(t *testing.T) {
	r := Request{
		Tables:  []string{"chats"},
		Match:   map[string]any{"user_id": "u-1"},
		Filters: []Filter{NotIn("id"), NotOverlaps("tags", "nsfw")},
		OrderBy: &Order{Column: "created_at"},
		Range:   &Range{From: 0, To: 4},
	}

	q := Build(r, "chats")

	assert.Equal(t, "*", q.Columns)
	assert.Equal(t, []Filter{Eq("user_id", "u-1"), NotOverlaps("tags", "nsfw")}, q.Filters)
	require.NotNil(t, q.Range)
	assert.Equal(t, 5, q.Range.Limit())
	assert.Equal(t, "created_at", q.Order.Column)
}

func TestSignatureStable(t *testing.T) {
	a := Request{Tables: []string{"a"}, Match: map[string]any{"x": 1, "y": 2}}
	b := Request{Tables: []string{"a"}, Match: map[string]any{"y": 2, "x": 1}}
	c := Request{Tables: []string{"a"}, Match: map[string]any{"x": 1, "y": 3}}

	sa, err := Signature(a)
	require.NoError(t, err)
	sb, _ := Signature(b)
	sc, _ := Signature(c)
	assert.Equal(t, sa, sb)
	assert.NotEqual(t, sa, sc)
}

func TestRequestValidate(t *testing.T) {
	assert.Error(t, Request{}.Validate())
	assert.Error(t, Request{Tables: []string{" "}}.Validate())
	assert.Error(t, Request{Tables: []string{"a"}, Count: "lots"}.Validate())
	assert.Error(t, Request{Tables: []string{"a"}, Range: &Range{From: 3, To: 1}}.Validate())
	assert.NoError(t, Request{Tables: []string{"a"}, Count: CountExact}.Validate())
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}
	pages := Paginate(items, 3)
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}, {7}}, pages)

	var flat []int
	for _, p := range pages {
		flat = append(flat, p...)
	}
	assert.Equal(t, items, flat)

	assert.Empty(t, Paginate([]int{}, 3))
	assert.NotNil(t, Paginate([]int(nil), 3))
}

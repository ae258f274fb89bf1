// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package query

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// memTables is an in-memory TableService used by the composer tests.
type memTables struct {
	mu     sync.Mutex
	tables map[string][]Row
	delay  map[string]time.Duration
	fail   map[string]error
	gate   chan struct{}
	calls  atomic.Int64
}

func newMemTables() *memTables {
	return &memTables{
		tables: map[string][]Row{},
		delay:  map[string]time.Duration{},
		fail:   map[string]error{},
	}
}

func (m *memTables) Select(ctx context.Context, q Query) (Result, error) {
	m.calls.Add(1)
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	if d := m.delay[q.Table]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	if err := m.fail[q.Table]; err != nil {
		return Result{}, err
	}

	m.mu.Lock()
	src := m.tables[q.Table]
	m.mu.Unlock()

	var rows []Row
	for _, r := range src {
		if matchAll(r, q.Filters) {
			rows = append(rows, r)
		}
	}
	if q.Order != nil {
		col, asc := q.Order.Column, q.Order.Ascending
		sort.SliceStable(rows, func(i, j int) bool {
			a, b := fmt.Sprint(rows[i][col]), fmt.Sprint(rows[j][col])
			if asc {
				return a < b
			}
			return a > b
		})
	}
	var count *int64
	if q.Count != CountNone {
		n := int64(len(rows))
		count = &n
	}
	if q.Range != nil {
		from, to := q.Range.From, q.Range.To+1
		if from > len(rows) {
			from = len(rows)
		}
		if to > len(rows) {
			to = len(rows)
		}
		rows = rows[from:to]
	}
	if rows == nil {
		rows = []Row{}
	}
	return Result{Rows: rows, Count: count}, nil
}

func matchAll(r Row, filters []Filter) bool {
	for _, f := range filters {
		if !matchOne(r, f) {
			return false
		}
	}
	return true
}

func matchOne(r Row, f Filter) bool {
	v := r[f.Column]
	switch f.Op {
	case OpEq:
		return fmt.Sprint(v) == fmt.Sprint(f.Value)
	case OpIn, OpNotIn:
		vs, _ := f.Values()
		found := false
		for _, x := range vs {
			if fmt.Sprint(x) == fmt.Sprint(v) {
				found = true
			}
		}
		return found == (f.Op == OpIn)
	case OpNotOverlaps:
		vs, _ := f.Values()
		have, _ := listValues(v)
		for _, x := range vs {
			for _, h := range have {
				if fmt.Sprint(x) == fmt.Sprint(h) {
					return false
				}
			}
		}
		return true
	case OpPattern:
		return likeMatch(strings.ToLower(fmt.Sprint(v)), strings.ToLower(f.Value.(string)))
	}
	return false
}

// likeMatch supports % only.
func likeMatch(s, p string) bool {
	parts := strings.Split(p, Wildcard)
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	for i := 1; i < len(parts); i++ {
		last := i == len(parts)-1
		if last {
			return strings.HasSuffix(s, parts[i])
		}
		idx := strings.Index(s, parts[i])
		if idx < 0 {
			return false
		}
		s = s[idx+len(parts[i]):]
	}
	return s == ""
}

func (m *memTables) Insert(_ context.Context, table string, rows []Row) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table] = append(m.tables[table], rows...)
	return rows, nil
}

func (m *memTables) Update(_ context.Context, table string, values Row, filters []Filter) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Row
	for _, r := range m.tables[table] {
		if matchAll(r, filters) {
			for k, v := range values {
				r[k] = v
			}
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memTables) Delete(_ context.Context, table string, filters []Filter) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept, gone []Row
	for _, r := range m.tables[table] {
		if matchAll(r, filters) {
			gone = append(gone, r)
		} else {
			kept = append(kept, r)
		}
	}
	m.tables[table] = kept
	return gone, nil
}

func (m *memTables) Call(_ context.Context, fn string, args map[string]any) (json.RawMessage, error) {
	return json.Marshal(map[string]any{"fn": fn, "args": args})
}

// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Row is one record returned by a table service.
type Row = map[string]any

// CountOption asks the table service for a total row count.
type CountOption string

const (
	CountNone      CountOption = ""
	CountExact     CountOption = "exact"
	CountPlanned   CountOption = "planned"
	CountEstimated CountOption = "estimated"
)

// Range is an inclusive row window, as in "rows 0..4".
type Range struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Limit returns the number of rows the window covers.
func (r Range) Limit() int { return r.To - r.From + 1 }

// Order sorts results on a single column.
type Order struct {
	Column    string `json:"column"`
	Ascending bool   `json:"ascending"`
}

// Request is a logical read over one or more tables. Results from all tables
// are unioned in table order. A Request should not be modified after it has
// been passed to Select; its signature is its cache and dedup key.
type Request struct {
	Tables  []string       `json:"tables"`
	Columns string         `json:"columns"`
	Count   CountOption    `json:"count"`
	Match   map[string]any `json:"match,omitempty"`
	Range   *Range         `json:"range,omitempty"`
	OrderBy *Order         `json:"order_by,omitempty"`
	Filters []Filter       `json:"filters,omitempty"`
	Paging  bool           `json:"paging"`
	NoCache bool           `json:"nocache"`
}

// Validate reports malformed requests before any network call.
func (r Request) Validate() error {
	if len(r.Tables) == 0 {
		return errors.New("query names no tables")
	}
	for _, t := range r.Tables {
		if strings.TrimSpace(t) == "" {
			return errors.New("query has an empty table name")
		}
	}
	switch r.Count {
	case CountNone, CountExact, CountPlanned, CountEstimated:
	default:
		return fmt.Errorf("unknown count option %q", r.Count)
	}
	if r.Range != nil && (r.Range.From < 0 || r.Range.To < r.Range.From) {
		return fmt.Errorf("invalid range %d..%d", r.Range.From, r.Range.To)
	}
	for _, f := range r.Filters {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Signature returns the canonical serialization of r. Map keys are sorted,
// list order is kept, so equal requests always produce equal signatures.
func Signature(r Request) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("request signature: %w", err)
	}
	return string(b), nil
}

// Query is the per-table query a TableService executes.
type Query struct {
	Table   string
	Columns string
	Count   CountOption
	Filters []Filter
	Order   *Order
	Range   *Range
}

// Normalize returns every condition of r as explicit filters: the match map
// through FromMatch, then the extra filters minus empty list filters.
func (r Request) Normalize() []Filter {
	out := FromMatch(r.Match)
	for _, f := range r.Filters {
		if f.Empty() {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Build composes the query sent to one table. Match entries come first, in
// column order; extra filters follow in request order, minus empty list filters.
func Build(r Request, table string) Query {
	q := Query{
		Table:   table,
		Columns: r.Columns,
		Count:   r.Count,
		Filters: r.Normalize(),
	}
	if strings.TrimSpace(q.Columns) == "" {
		q.Columns = "*"
	}
	if r.OrderBy != nil && r.OrderBy.Column != "" {
		o := *r.OrderBy
		q.Order = &o
	}
	if r.Range != nil {
		rg := *r.Range
		q.Range = &rg
	}
	return q
}

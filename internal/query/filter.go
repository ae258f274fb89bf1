// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package query

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Op is a filter operator understood by every TableService.
type Op string

const (
	OpEq          Op = "eq"
	OpIn          Op = "in"
	OpNotIn       Op = "not_in"
	OpNotOverlaps Op = "not_overlaps"
	// OpPattern is a case-insensitive LIKE match; % is the wildcard.
	OpPattern Op = "pattern"
)

// Wildcard marks a string match value as a pattern.
const Wildcard = "%"

// Filter is one condition on one column. Value is a scalar for eq/pattern
// and a list for in/not_in/not_overlaps.
type Filter struct {
	Column string `json:"column"`
	Op     Op     `json:"operator"`
	Value  any    `json:"value"`
}

func Eq(column string, value any) Filter { return Filter{Column: column, Op: OpEq, Value: value} }

func In(column string, values ...any) Filter {
	return Filter{Column: column, Op: OpIn, Value: orEmpty(values)}
}

func NotIn(column string, values ...any) Filter {
	return Filter{Column: column, Op: OpNotIn, Value: orEmpty(values)}
}

// NotOverlaps keeps rows whose array column shares no element with values.
func NotOverlaps(column string, values ...any) Filter {
	return Filter{Column: column, Op: OpNotOverlaps, Value: orEmpty(values)}
}

func Pattern(column, pattern string) Filter {
	return Filter{Column: column, Op: OpPattern, Value: pattern}
}

func orEmpty(values []any) []any {
	if values == nil {
		return []any{}
	}
	return values
}

// IsList reports whether op takes a list value.
func (o Op) IsList() bool {
	return o == OpIn || o == OpNotIn || o == OpNotOverlaps
}

// Values returns the list value of f. Non-list values yield nil, false.
func (f Filter) Values() ([]any, bool) {
	return listValues(f.Value)
}

// Empty reports whether f is a list filter with no values. Such filters are
// dropped from extra filters rather than sent to the table service.
func (f Filter) Empty() bool {
	if !f.Op.IsList() {
		return false
	}
	vs, ok := f.Values()
	return !ok || len(vs) == 0
}

// Validate checks the operator/value pairing.
func (f Filter) Validate() error {
	if strings.TrimSpace(f.Column) == "" {
		return fmt.Errorf("filter has no column")
	}
	switch f.Op {
	case OpEq:
		return nil
	case OpPattern:
		if _, ok := f.Value.(string); !ok {
			return fmt.Errorf("filter %s: pattern value must be a string, got %T", f.Column, f.Value)
		}
		return nil
	case OpIn, OpNotIn, OpNotOverlaps:
		if f.Value == nil {
			return nil
		}
		if _, ok := f.Values(); !ok {
			return fmt.Errorf("filter %s: %s value must be a list, got %T", f.Column, f.Op, f.Value)
		}
		return nil
	}
	return fmt.Errorf("filter %s: unknown operator %q", f.Column, f.Op)
}

// FromMatch converts a legacy match map into filters, sorted by column.
// Lists become In, strings containing the wildcard become Pattern, and
// everything else becomes Eq.
func FromMatch(match map[string]any) []Filter {
	cols := make([]string, 0, len(match))
	for c := range match {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	out := make([]Filter, 0, len(cols))
	for _, c := range cols {
		v := match[c]
		if vs, ok := listValues(v); ok {
			out = append(out, In(c, vs...))
			continue
		}
		if s, ok := v.(string); ok && strings.Contains(s, Wildcard) {
			out = append(out, Pattern(c, s))
			continue
		}
		out = append(out, Eq(c, v))
	}
	return out
}

// listValues flattens any slice or array into []any. []byte counts as a scalar.
func listValues(v any) ([]any, bool) {
	if vs, ok := v.([]any); ok {
		return vs, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, false
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

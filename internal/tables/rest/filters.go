package rest

import (
	"fmt"
	"net/url"
	"strings"

	"castline/cli/internal/query"
)

// addFilters appends one PostgREST condition per filter. Conditions on the
// same column are all kept; PostgREST ANDs them.
func addFilters(params url.Values, filters []query.Filter) {
	for _, f := range filters {
		params.Add(f.Column, condition(f))
	}
}

func condition(f query.Filter) string {
	switch f.Op {
	case query.OpEq:
		if f.Value == nil {
			return "is.null"
		}
		return "eq." + scalar(f.Value)
	case query.OpPattern:
		s, _ := f.Value.(string)
		return "ilike." + strings.ReplaceAll(s, query.Wildcard, "*")
	case query.OpIn:
		vs, _ := f.Values()
		return "in.(" + list(vs) + ")"
	case query.OpNotIn:
		vs, _ := f.Values()
		return "not.in.(" + list(vs) + ")"
	case query.OpNotOverlaps:
		vs, _ := f.Values()
		return "not.ov.{" + list(vs) + "}"
	}
	return string(f.Op) + "." + scalar(f.Value)
}

func scalar(v any) string { return fmt.Sprint(v) }

// list renders values for in/ov, double-quoting strings so that commas and
// parentheses inside values survive.
func list(vs []any) string {
	out := make([]string, len(vs))
	for i, v := range vs {
		if s, ok := v.(string); ok {
			out[i] = `"` + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`) + `"`
			continue
		}
		out[i] = scalar(v)
	}
	return strings.Join(out, ",")
}

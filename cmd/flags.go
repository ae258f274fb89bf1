package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"castline/cli/internal/query"
)

// parseValue reads a flag value as JSON when it is valid JSON (numbers,
// booleans, null, arrays, objects, quoted strings) and as a bare string otherwise.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

// parseMatch turns repeated key=value flags into a match map.
func parseMatch(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid match %q: expected column=value", p)
		}
		out[strings.TrimSpace(k)] = parseValue(v)
	}
	return out, nil
}

// parseFilter reads column:op:value. List operators take comma separated
// values; an empty list is allowed and skipped like any empty list filter.
func parseFilter(s string) (query.Filter, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return query.Filter{}, fmt.Errorf("invalid filter %q: expected column:op:value", s)
	}
	col, op, raw := parts[0], query.Op(parts[1]), parts[2]
	var f query.Filter
	if op.IsList() {
		var vs []any
		if raw != "" {
			for _, v := range strings.Split(raw, ",") {
				vs = append(vs, parseValue(v))
			}
		}
		f = query.Filter{Column: col, Op: op, Value: vs}
		if vs == nil {
			f.Value = []any{}
		}
	} else if op == query.OpPattern {
		f = query.Pattern(col, raw)
	} else {
		f = query.Filter{Column: col, Op: op, Value: parseValue(raw)}
	}
	if err := f.Validate(); err != nil {
		return query.Filter{}, err
	}
	return f, nil
}

func parseFilters(specs []string) ([]query.Filter, error) {
	out := make([]query.Filter, 0, len(specs))
	for _, s := range specs {
		f, err := parseFilter(s)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// parseOrder reads column[:asc|desc]. Ascending is the default.
func parseOrder(s string) (*query.Order, error) {
	if s == "" {
		return nil, nil
	}
	col, dir, _ := strings.Cut(s, ":")
	o := &query.Order{Column: col, Ascending: true}
	switch strings.ToLower(dir) {
	case "", "asc":
	case "desc":
		o.Ascending = false
	default:
		return nil, fmt.Errorf("invalid order direction %q", dir)
	}
	return o, nil
}

// parseRange reads from:to, both inclusive.
func parseRange(s string) (*query.Range, error) {
	if s == "" {
		return nil, nil
	}
	a, b, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("invalid range %q: expected from:to", s)
	}
	from, err := strconv.Atoi(a)
	if err != nil {
		return nil, fmt.Errorf("invalid range start: %w", err)
	}
	to, err := strconv.Atoi(b)
	if err != nil {
		return nil, fmt.Errorf("invalid range end: %w", err)
	}
	return &query.Range{From: from, To: to}, nil
}

// parseParams turns repeated key=value flags into query parameters.
func parseParams(pairs []string) (url.Values, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	v := url.Values{}
	for _, p := range pairs {
		k, val, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid param %q: expected key=value", p)
		}
		v.Add(k, val)
	}
	return v, nil
}

// parseBody decodes a JSON body flag. Empty means no body.
func parseBody(s string) (json.RawMessage, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	if !json.Valid([]byte(s)) {
		return nil, fmt.Errorf("body is not valid JSON")
	}
	return json.RawMessage(s), nil
}

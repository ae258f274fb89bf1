package pg

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"castline/cli/internal/query"
)

// builder accumulates positional arguments while a statement is assembled.
type builder struct {
	sb   strings.Builder
	args []any
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func qualified(schema, table string) string {
	if schema == "" {
		return pgx.Identifier{table}.Sanitize()
	}
	return pgx.Identifier{schema, table}.Sanitize()
}

func ident(col string) string { return pgx.Identifier{col}.Sanitize() }

// columnList renders a comma separated column selection. "*" passes through.
func columnList(cols string) (string, error) {
	cols = strings.TrimSpace(cols)
	if cols == "" || cols == "*" {
		return "*", nil
	}
	parts := strings.Split(cols, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return "", fmt.Errorf("empty column in %q", cols)
		}
		out = append(out, ident(p))
	}
	return strings.Join(out, ", "), nil
}

// where renders filters joined by AND. An empty In can match nothing and
// renders as false; an empty NotIn or NotOverlaps excludes nothing.
func (b *builder) where(filters []query.Filter) error {
	if len(filters) == 0 {
		return nil
	}
	conds := make([]string, 0, len(filters))
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return err
		}
		col := ident(f.Column)
		switch f.Op {
		case query.OpEq:
			if f.Value == nil {
				conds = append(conds, col+" IS NULL")
			} else {
				conds = append(conds, col+" = "+b.arg(f.Value))
			}
		case query.OpPattern:
			conds = append(conds, col+" ILIKE "+b.arg(f.Value))
		case query.OpIn:
			vs, _ := f.Values()
			if len(vs) == 0 {
				conds = append(conds, "false")
				continue
			}
			conds = append(conds, col+" = ANY("+b.arg(vs)+")")
		case query.OpNotIn:
			vs, _ := f.Values()
			if len(vs) == 0 {
				conds = append(conds, "true")
				continue
			}
			conds = append(conds, col+" <> ALL("+b.arg(vs)+")")
		case query.OpNotOverlaps:
			vs, _ := f.Values()
			if len(vs) == 0 {
				conds = append(conds, "true")
				continue
			}
			conds = append(conds, "NOT ("+col+" && "+b.arg(vs)+")")
		}
	}
	b.sb.WriteString(" WHERE ")
	b.sb.WriteString(strings.Join(conds, " AND "))
	return nil
}

func buildSelect(schema string, q query.Query) (string, []any, error) {
	cols, err := columnList(q.Columns)
	if err != nil {
		return "", nil, err
	}
	var b builder
	fmt.Fprintf(&b.sb, "SELECT %s FROM %s", cols, qualified(schema, q.Table))
	if err := b.where(q.Filters); err != nil {
		return "", nil, err
	}
	if q.Order != nil {
		dir := "DESC"
		if q.Order.Ascending {
			dir = "ASC"
		}
		fmt.Fprintf(&b.sb, " ORDER BY %s %s", ident(q.Order.Column), dir)
	}
	if q.Range != nil {
		fmt.Fprintf(&b.sb, " LIMIT %d OFFSET %d", q.Range.Limit(), q.Range.From)
	}
	return b.sb.String(), b.args, nil
}

// buildCount counts the filtered rows before any window applies.
func buildCount(schema string, q query.Query) (string, []any, error) {
	var b builder
	fmt.Fprintf(&b.sb, "SELECT count(*) FROM %s", qualified(schema, q.Table))
	if err := b.where(q.Filters); err != nil {
		return "", nil, err
	}
	return b.sb.String(), b.args, nil
}

func sortedKeys(r query.Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func buildInsert(schema, table string, row query.Row) (string, []any, error) {
	if len(row) == 0 {
		return "", nil, fmt.Errorf("insert into %s: row has no columns", table)
	}
	var b builder
	keys := sortedKeys(row)
	cols := make([]string, len(keys))
	vals := make([]string, len(keys))
	for i, k := range keys {
		cols[i] = ident(k)
		vals[i] = b.arg(row[k])
	}
	fmt.Fprintf(&b.sb, "INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		qualified(schema, table), strings.Join(cols, ", "), strings.Join(vals, ", "))
	return b.sb.String(), b.args, nil
}

func buildUpdate(schema, table string, values query.Row, filters []query.Filter) (string, []any, error) {
	if len(values) == 0 {
		return "", nil, fmt.Errorf("update %s: no values to set", table)
	}
	var b builder
	keys := sortedKeys(values)
	sets := make([]string, len(keys))
	for i, k := range keys {
		sets[i] = ident(k) + " = " + b.arg(values[k])
	}
	fmt.Fprintf(&b.sb, "UPDATE %s SET %s", qualified(schema, table), strings.Join(sets, ", "))
	if err := b.where(filters); err != nil {
		return "", nil, err
	}
	b.sb.WriteString(" RETURNING *")
	return b.sb.String(), b.args, nil
}

func buildDelete(schema, table string, filters []query.Filter) (string, []any, error) {
	var b builder
	fmt.Fprintf(&b.sb, "DELETE FROM %s", qualified(schema, table))
	if err := b.where(filters); err != nil {
		return "", nil, err
	}
	b.sb.WriteString(" RETURNING *")
	return b.sb.String(), b.args, nil
}

// buildCall invokes fn with named arguments and aggregates whatever it
// returns into one JSON array.
func buildCall(schema, fn string, args map[string]any) (string, []any) {
	var b builder
	keys := sortedKeys(args)
	named := make([]string, len(keys))
	for i, k := range keys {
		named[i] = ident(k) + " => " + b.arg(args[k])
	}
	return fmt.Sprintf("SELECT coalesce(jsonb_agg(r), '[]'::jsonb) FROM %s(%s) AS r",
		qualified(schema, fn), strings.Join(named, ", ")), b.args
}

// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package pg implements the table service directly against PostgreSQL over a
// pgx connection pool.
//
// Every statement is built from sanitized identifiers and positional arguments;
// no caller value is ever spliced into SQL text. Writes run in a transaction
// and return the affected rows.
package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pterm/pterm"

	"castline/cli/internal/logging"
	"castline/cli/internal/query"
)

// DB is the subset of *pgxpool.Pool the service uses.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service is a query.TableService backed by PostgreSQL.
type Service struct {
	db     DB
	schema string
	log    *pterm.Logger
}

var _ query.TableService = (*Service)(nil)

// New wraps an existing pool or connection.
func New(db DB, schema string, log *pterm.Logger) *Service {
	return &Service{db: db, schema: schema, log: logging.OrDiscard(log)}
}

// Open parses dsn, connects a pool and verifies it with a ping.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.ConnConfig.Host, err)
	}
	return pool, nil
}

// Select implements query.TableService. With a count requested, the total is
// taken before the range window applies.
func (s *Service) Select(ctx context.Context, q query.Query) (query.Result, error) {
	sql, args, err := buildSelect(s.schema, q)
	if err != nil {
		return query.Result{}, err
	}
	s.log.Trace("select", s.log.Args("sql", sql, "args", len(args)))

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return query.Result{}, err
	}
	out, err := collect(rows)
	if err != nil {
		return query.Result{}, err
	}

	res := query.Result{Rows: out}
	if q.Count != query.CountNone {
		sql, args, err := buildCount(s.schema, q)
		if err != nil {
			return query.Result{}, err
		}
		var n int64
		if err := s.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
			return query.Result{}, fmt.Errorf("count %s: %w", q.Table, err)
		}
		res.Count = &n
	}
	return res, nil
}

// Insert implements query.TableService. All rows go in one transaction.
func (s *Service) Insert(ctx context.Context, table string, rows []query.Row) ([]query.Row, error) {
	var out []query.Row
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		for _, r := range rows {
			sql, args, err := buildInsert(s.schema, table, r)
			if err != nil {
				return err
			}
			got, err := queryRows(ctx, tx, sql, args)
			if err != nil {
				return err
			}
			out = append(out, got...)
		}
		return nil
	})
	return out, err
}

// Update implements query.TableService.
func (s *Service) Update(ctx context.Context, table string, values query.Row, filters []query.Filter) ([]query.Row, error) {
	sql, args, err := buildUpdate(s.schema, table, values, filters)
	if err != nil {
		return nil, err
	}
	var out []query.Row
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		out, err = queryRows(ctx, tx, sql, args)
		return err
	})
	return out, err
}

// Delete implements query.TableService.
func (s *Service) Delete(ctx context.Context, table string, filters []query.Filter) ([]query.Row, error) {
	sql, args, err := buildDelete(s.schema, table, filters)
	if err != nil {
		return nil, err
	}
	var out []query.Row
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		out, err = queryRows(ctx, tx, sql, args)
		return err
	})
	return out, err
}

// Call implements query.TableService. The result is always a JSON array.
func (s *Service) Call(ctx context.Context, fn string, args map[string]any) (json.RawMessage, error) {
	sql, vals := buildCall(s.schema, fn, args)
	s.log.Trace("rpc", s.log.Args("sql", sql))
	var raw []byte
	if err := s.db.QueryRow(ctx, sql, vals...).Scan(&raw); err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

func (s *Service) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryRows(ctx context.Context, q queryer, sql string, args []any) ([]query.Row, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// collect drains rows into column-keyed maps.
func collect(rows pgx.Rows) ([]query.Row, error) {
	defer rows.Close()
	fds := rows.FieldDescriptions()
	out := []query.Row{}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		out = append(out, toRow(fds, vals))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func toRow(fds []pgconn.FieldDescription, vals []any) query.Row {
	r := make(query.Row, len(fds))
	for i, fd := range fds {
		r[fd.Name] = normalize(vals[i])
	}
	return r
}

// normalize turns pgx values that do not encode to sensible JSON into strings.
// uuid columns arrive as [16]byte; bytea stays hex whatever its length.
func normalize(v any) any {
	switch x := v.(type) {
	case [16]byte:
		return formatUUID(x)
	case []byte:
		return fmt.Sprintf("\\x%x", x)
	}
	return v
}

func formatUUID(v [16]byte) string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", v[0:4], v[4:6], v[6:8], v[8:10], v[10:16])
}

// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package query is the cached, de-duplicated, fan-out read path over the
// remote table service.
//
// Select composes one Query per named table, runs them concurrently, and
// unions the rows in table order no matter which table answers first. Counts
// are summed. Identical concurrent requests share one set of table calls, and
// completed responses are cached by request signature unless the request opts
// out with NoCache. A failure on any table fails the whole request.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/pterm/pterm"
	"golang.org/x/sync/errgroup"

	"castline/cli/internal/cache"
	"castline/cli/internal/dedup"
	cerrors "castline/cli/internal/errors"
	"castline/cli/internal/logging"
)

// Result is what a table service returns for one Query. Count is nil when
// no count was requested or the service did not report one.
type Result struct {
	Rows  []Row
	Count *int64
}

// TableService is the remote table/RPC capability the composer wraps.
type TableService interface {
	Select(ctx context.Context, q Query) (Result, error)
	Insert(ctx context.Context, table string, rows []Row) ([]Row, error)
	Update(ctx context.Context, table string, values Row, filters []Filter) ([]Row, error)
	Delete(ctx context.Context, table string, filters []Filter) ([]Row, error)
	Call(ctx context.Context, fn string, args map[string]any) (json.RawMessage, error)
}

// Response is the unioned result of a Select. Count is nil when the request
// asked for no count. Pages is set only for paging requests.
// Responses may be shared between callers and must not be modified.
type Response struct {
	Data  []Row   `json:"data"`
	Count *int64  `json:"count"`
	Pages [][]Row `json:"pages"`
}

// Composer executes Requests against a TableService.
type Composer struct {
	tables   TableService
	cache    cache.Store[Response]
	flights  dedup.Group[Response]
	pageSize int
	log      *pterm.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithCache replaces the default in-memory cache.
func WithCache(s cache.Store[Response]) Option {
	return func(c *Composer) { c.cache = s }
}

// WithPageSize sets the page length for paging requests.
func WithPageSize(n int) Option {
	return func(c *Composer) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *pterm.Logger) Option {
	return func(c *Composer) { c.log = logging.OrDiscard(l) }
}

// New creates a Composer that owns its cache and in-flight registry.
func New(tables TableService, opts ...Option) *Composer {
	c := &Composer{
		tables:   tables,
		cache:    cache.NewMemory[Response](),
		pageSize: DefaultPageSize,
		log:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Select runs r, serving it from cache or from an identical in-flight
// request when possible.
func (c *Composer) Select(ctx context.Context, r Request) (Response, error) {
	if err := r.Validate(); err != nil {
		return Response{}, err
	}
	key, err := Signature(r)
	if err != nil {
		return Response{}, err
	}

	if !r.NoCache {
		resp, ok, err := c.cache.Get(ctx, key)
		switch {
		case err != nil:
			c.log.Warn("cache read failed, querying tables", c.log.Args("tables", r.Tables, "error", err))
		case ok:
			c.log.Debug("cache hit", c.log.Args("tables", r.Tables))
			return resp, nil
		}
	}

	resp, shared, err := c.flights.Begin(ctx, key, func(ctx context.Context) (Response, error) {
		resp, err := c.fanOut(ctx, r)
		if err != nil {
			return Response{}, err
		}
		if !r.NoCache {
			if err := c.cache.Set(ctx, key, resp); err != nil {
				c.log.Warn("cache write failed", c.log.Args("tables", r.Tables, "error", err))
			}
		}
		return resp, nil
	})
	if shared {
		c.log.Debug("joined in-flight select", c.log.Args("tables", r.Tables))
	}
	return resp, err
}

// fanOut queries every table concurrently and merges the results in table order.
func (c *Composer) fanOut(ctx context.Context, r Request) (Response, error) {
	start := time.Now()
	results := make([]Result, len(r.Tables))

	g, gctx := errgroup.WithContext(ctx)
	for i, table := range r.Tables {
		q := Build(r, table)
		g.Go(func() error {
			res, err := c.tables.Select(gctx, q)
			if err != nil {
				return cerrors.Wrap(cerrors.RemoteQuery, "select "+table, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.log.Debug("select failed", c.log.Args("tables", r.Tables, "error", err))
		return Response{}, err
	}

	resp := merge(results, r.Count != CountNone)
	if r.Paging {
		resp.Pages = Paginate(resp.Data, c.pageSize)
	}
	c.log.Debug("select complete", c.log.Args(
		"tables", r.Tables,
		"rows", len(resp.Data),
		"elapsed", time.Since(start).String(),
	))
	return resp, nil
}

// merge concatenates rows in result order and sums counts. Missing counts
// add nothing; with counting requested the total is at least zero.
func merge(results []Result, counted bool) Response {
	total := 0
	for _, res := range results {
		total += len(res.Rows)
	}
	resp := Response{Data: make([]Row, 0, total)}
	var sum int64
	for _, res := range results {
		resp.Data = append(resp.Data, res.Rows...)
		if res.Count != nil {
			sum += *res.Count
		}
	}
	if counted {
		resp.Count = &sum
	}
	return resp
}

// ErrUnfiltered guards writes that would touch every row of a table.
var ErrUnfiltered = errors.New("refusing to write without a filter")

// Insert adds rows to table. Writes bypass the cache and the in-flight registry.
func (c *Composer) Insert(ctx context.Context, table string, rows []Row) ([]Row, error) {
	out, err := c.tables.Insert(ctx, table, rows)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.RemoteQuery, "insert "+table, err)
	}
	return out, nil
}

// Update sets values on the rows of table matching filters.
func (c *Composer) Update(ctx context.Context, table string, values Row, filters ...Filter) ([]Row, error) {
	filters, err := writeFilters(filters)
	if err != nil {
		return nil, err
	}
	out, err := c.tables.Update(ctx, table, values, filters)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.RemoteQuery, "update "+table, err)
	}
	return out, nil
}

// Delete removes the rows of table matching filters.
func (c *Composer) Delete(ctx context.Context, table string, filters ...Filter) ([]Row, error) {
	filters, err := writeFilters(filters)
	if err != nil {
		return nil, err
	}
	out, err := c.tables.Delete(ctx, table, filters)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.RemoteQuery, "delete "+table, err)
	}
	return out, nil
}

// Call invokes a named remote procedure.
func (c *Composer) Call(ctx context.Context, fn string, args map[string]any) (json.RawMessage, error) {
	out, err := c.tables.Call(ctx, fn, args)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.RemoteQuery, "rpc "+fn, err)
	}
	return out, nil
}

// writeFilters drops empty list filters and rejects what is left if it is nothing.
func writeFilters(filters []Filter) ([]Filter, error) {
	out := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		if f.Empty() {
			continue
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, ErrUnfiltered
	}
	return out, nil
}

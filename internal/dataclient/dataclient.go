// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package dataclient assembles the data layer from configuration.
//
// A Client owns one query cache, one in-flight registry per path (table reads
// and backend calls), and one router. Nothing here is a package-level
// singleton: each Client, and so each test, starts from a clean state.
package dataclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/pterm/pterm"

	"castline/cli/internal/backend"
	"castline/cli/internal/cache"
	"castline/cli/internal/config"
	cerrors "castline/cli/internal/errors"
	"castline/cli/internal/identity"
	"castline/cli/internal/logging"
	"castline/cli/internal/query"
	"castline/cli/internal/tables/pg"
	"castline/cli/internal/tables/rest"
)

// Deps are the collaborators that do not come from configuration.
// Zero values fall back to sensible defaults.
type Deps struct {
	Identity   identity.Provider
	Logger     *pterm.Logger
	HTTPClient *http.Client
	UserAgent  string
	// Tables overrides the table service chosen from configuration.
	Tables query.TableService
	// Cache overrides the cache chosen from configuration.
	Cache cache.Store[query.Response]
}

// Client is the assembled data layer.
type Client struct {
	Backend *backend.Client

	query *query.Composer

	closers []func() error
}

// New builds a Client. The table service is Postgres when a DSN is set and
// PostgREST when a REST URL is set; the cache is SQLite when a path is set
// and memory otherwise.
func New(ctx context.Context, cfg config.Config, deps Deps) (*Client, error) {
	log := logging.OrDiscard(deps.Logger)
	c := &Client{}

	tables := deps.Tables
	if tables == nil {
		var err error
		tables, err = c.openTables(ctx, cfg.Tables, deps, log)
		if err != nil {
			c.Close()
			return nil, err
		}
	}

	if tables != nil {
		store := deps.Cache
		if store == nil {
			path, err := cfg.Cache.ResolvePath()
			if err != nil {
				c.Close()
				return nil, err
			}
			if path != "" {
				s, err := cache.OpenSQLite[query.Response](path)
				if err != nil {
					c.Close()
					return nil, err
				}
				c.closers = append(c.closers, s.Close)
				store = s
				log.Debug("query cache on disk", log.Args("path", path))
			} else {
				store = cache.NewMemory[query.Response]()
			}
		}
		c.query = query.New(tables,
			query.WithCache(store),
			query.WithPageSize(cfg.Query.PageSize),
			query.WithLogger(log),
		)
	}

	c.Backend = backend.New(backend.Options{
		DefaultURL:    cfg.API.DefaultURL,
		PrivilegedURL: cfg.API.PrivilegedURL,
		Identity:      deps.Identity,
		HTTPClient:    deps.HTTPClient,
		Timeout:       cfg.API.RequestTimeout.Std(),
		UserAgent:     deps.UserAgent,
		Logger:        log,
	})
	return c, nil
}

func (c *Client) openTables(ctx context.Context, cfg config.TablesConfig, deps Deps, log *pterm.Logger) (query.TableService, error) {
	switch {
	case cfg.DSN != "":
		pool, err := pg.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, cerrors.Wrap(cerrors.Config, "connect table database", errors.New(logging.Mask(err.Error())))
		}
		c.closers = append(c.closers, func() error { pool.Close(); return nil })
		log.Debug("table service: postgres", log.Args("dsn", logging.Mask(cfg.DSN), "schema", cfg.Schema))
		return pg.New(pool, cfg.Schema, log), nil
	case cfg.RESTURL != "":
		opts := []rest.Option{rest.WithLogger(log)}
		if deps.HTTPClient != nil {
			opts = append(opts, rest.WithHTTPClient(deps.HTTPClient))
		}
		log.Debug("table service: rest", log.Args("url", cfg.RESTURL))
		return rest.New(cfg.RESTURL, cfg.RESTKey, opts...), nil
	}
	return nil, nil
}

// ErrNoTables is returned by Query when neither a DSN nor a REST URL is configured.
var ErrNoTables = cerrors.New(cerrors.Config, "no table service configured: set tables.dsn or tables.rest_url")

// Query returns the query composer, or ErrNoTables when no table service
// is configured. Backend calls work either way.
func (c *Client) Query() (*query.Composer, error) {
	if c.query == nil {
		return nil, ErrNoTables
	}
	return c.query, nil
}

// Close releases pools and cache files.
func (c *Client) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("close data client: %w", errors.Join(errs...))
	}
	return nil
}

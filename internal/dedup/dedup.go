// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package dedup keeps a registry of in-flight operations keyed by request
// signature so that identical concurrent requests share one underlying call.
//
// The registry entry exists from just before the operation starts until it
// settles, success or failure, and is gone before any caller sees the result.
// Every caller that joined the flight receives the same value or the same error.
// Values are shared, so callers must treat them as read-only.
package dedup

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Group is a single-flight registry for operations producing V.
// The zero value is ready to use.
type Group[V any] struct {
	flights singleflight.Group

	mu       sync.Mutex
	inflight map[string]struct{}
}

// Begin runs fn under key unless a call with the same key is already running,
// in which case it waits for that call instead. shared reports whether the
// result was delivered to more than one caller.
//
// fn receives a context that carries ctx's values but not its cancellation,
// since other callers may be waiting on the same flight. A caller whose ctx
// ends stops waiting and gets ctx.Err(); the flight itself keeps running.
func (g *Group[V]) Begin(ctx context.Context, key string, fn func(ctx context.Context) (V, error)) (v V, shared bool, err error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := g.flights.DoChan(key, func() (any, error) {
		g.track(key)
		defer g.untrack(key)
		return fn(flightCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return v, res.Shared, res.Err
		}
		return res.Val.(V), res.Shared, nil
	case <-ctx.Done():
		return v, false, ctx.Err()
	}
}

// InFlight reports whether an operation is currently registered under key.
func (g *Group[V]) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inflight[key]
	return ok
}

// Len returns the number of registered operations.
func (g *Group[V]) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inflight)
}

func (g *Group[V]) track(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inflight == nil {
		g.inflight = make(map[string]struct{})
	}
	g.inflight[key] = struct{}{}
}

func (g *Group[V]) untrack(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, key)
}

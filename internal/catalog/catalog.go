// Package catalog keeps the most recently loaded conferences per type in
// memory and coalesces concurrent loads of the same type.
package catalog

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	appLog "confcal/internal/log"
	"confcal/internal/model"
	"confcal/internal/source"
)

// Loader loads all configured years for a type. *source.Loader implements it.
type Loader interface {
	Load(ctx context.Context, typ string, now time.Time) (source.LoadResult, error)
}

// Entry is a loaded snapshot for one type.
type Entry struct {
	Type        string
	URL         string
	Conferences []model.Conference
	LoadedAt    time.Time
	// FailedYears lists years that could not be fetched in the last load.
	FailedYears []int
}

// DefaultLoadTimeout bounds a single load when no other limit is set.
const DefaultLoadTimeout = time.Minute

// Catalog is safe for concurrent use.
type Catalog struct {
	loader      Loader
	now         func() time.Time
	loadTimeout time.Duration

	// held restricts which types are kept in memory. Nil keeps every type.
	held map[string]bool

	mu      sync.RWMutex
	entries map[string]Entry

	group singleflight.Group
}

// Option customizes a Catalog.
type Option func(*Catalog)

// WithTypes limits the cached and refreshed types to types. Other types
// are still loaded on request, but never stored.
func WithTypes(types ...string) Option {
	return func(c *Catalog) {
		c.held = make(map[string]bool, len(types))
		for _, t := range types {
			c.held[strings.ToLower(t)] = true
		}
	}
}

// WithLoadTimeout bounds each load, independent of the callers waiting on it.
func WithLoadTimeout(d time.Duration) Option {
	return func(c *Catalog) { c.loadTimeout = d }
}

// New returns an empty Catalog. now is used as the reference time for
// each load; nil means time.Now.
func New(loader Loader, now func() time.Time, opts ...Option) *Catalog {
	if now == nil {
		now = time.Now
	}
	c := &Catalog{
		loader:      loader,
		now:         now,
		loadTimeout: DefaultLoadTimeout,
		entries:     make(map[string]Entry),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Catalog) holds(key string) bool {
	return c.held == nil || c.held[key]
}

// Get returns the conferences for typ, loading them on first use.
// Concurrent calls for the same type share one load.
func (c *Catalog) Get(ctx context.Context, typ string) (Entry, error) {
	key := strings.ToLower(typ)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return e, nil
	}

	return c.load(ctx, key)
}

// Refresh reloads typ unconditionally.
func (c *Catalog) Refresh(ctx context.Context, typ string) (Entry, error) {
	return c.load(ctx, strings.ToLower(typ))
}

// RefreshAll reloads every type currently held, plus extra. Errors are
// logged; the previous entry of a failing type is kept. Types outside
// WithTypes are skipped.
func (c *Catalog) RefreshAll(ctx context.Context, extra ...string) {
	types := c.Types()
	for _, t := range extra {
		t = strings.ToLower(t)
		if c.holds(t) && !slices.Contains(types, t) {
			types = append(types, t)
		}
	}

	for _, t := range types {
		if ctx.Err() != nil {
			return
		}
		if _, err := c.Refresh(ctx, t); err != nil {
			appLog.Warn("catalog refresh failed", err, "type", t)
		}
	}
}

// Types returns the types currently held, sorted.
func (c *Catalog) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// load runs one shared load per key, detached from the callers' contexts.
// Each caller returns as soon as its own ctx is done.
func (c *Catalog) load(ctx context.Context, key string) (Entry, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()
		return c.loadShared(loadCtx, key)
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return Entry{}, r.Err
		}
		if r.Shared {
			appLog.Debug("catalog load shared", "type", key)
		}
		return r.Val.(Entry), nil
	case <-ctx.Done():
		return Entry{}, ctx.Err()
	}
}

func (c *Catalog) loadShared(ctx context.Context, key string) (Entry, error) {
	now := c.now()
	res, err := c.loader.Load(ctx, key, now)
	if err != nil {
		return Entry{}, err
	}

	e := Entry{
		Type:        key,
		URL:         res.PrimaryURL(),
		Conferences: res.Conferences,
		LoadedAt:    now,
	}
	for _, y := range res.Failed() {
		e.FailedYears = append(e.FailedYears, y.Year)
	}

	if !c.holds(key) {
		return e, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if res.AllFailed() {
		// Keep stale data rather than replacing it with nothing, and never
		// cache a load that produced nothing so the next Get retries.
		if prev, ok := c.entries[key]; ok {
			appLog.Warn("catalog load failed for every year; keeping previous data", res.Err(), "type", key, "loaded_at", prev.LoadedAt)
			return prev, nil
		}
		appLog.Warn("catalog load failed for every year; not caching", res.Err(), "type", key)
		return e, nil
	}
	c.entries[key] = e
	return e, nil
}

// Package cache provides an in-memory cache that fills itself through a
// loader function.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mpapenbr/racedash/log"
)

var (
	ErrNoLoader    = errors.New("no loader configured")
	ErrLoaderPanic = errors.New("loader panicked")
)

type (
	LoaderFunc[K comparable, V any] func(ctx context.Context, key K) (*V, error)
	Option[K comparable, V any]     func(*config[K, V])
	config[K comparable, V any]     struct {
		expiration time.Duration
		loader     LoaderFunc[K, V]
		l          *log.Logger
	}
	entry[V any] struct {
		data    *V
		expires time.Time // zero: never
	}
	// call is a load in progress, done is closed when data and err are set.
	call[V any] struct {
		done chan struct{}
		data *V
		err  error
	}
)

// WithExpiration sets the lifetime of loaded entries. Zero keeps them until
// they are invalidated.
func WithExpiration[K comparable, V any](expiration time.Duration) Option[K, V] {
	return func(c *config[K, V]) {
		c.expiration = expiration
	}
}

func WithLoader[K comparable, V any](lf LoaderFunc[K, V]) Option[K, V] {
	return func(c *config[K, V]) {
		c.loader = lf
	}
}

func WithLogger[K comparable, V any](arg *log.Logger) Option[K, V] {
	return func(c *config[K, V]) {
		c.l = arg
	}
}

// Cache keeps loaded values per key. Concurrent requests for a missing key
// share one load, loads of different keys run in parallel.
type Cache[K comparable, V any] struct {
	mutex    sync.Mutex
	items    map[K]entry[V]
	inflight map[K]*call[V]
	gen      uint64 // incremented on invalidation, stale loads are not stored
	config   *config[K, V]
}

func New[K comparable, V any](opts ...Option[K, V]) *Cache[K, V] {
	c := &config[K, V]{
		expiration: 5 * time.Minute,
		l:          log.Default().Named("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return &Cache[K, V]{
		items:    make(map[K]entry[V]),
		inflight: make(map[K]*call[V]),
		config:   c,
	}
}

// Get returns the cached value or loads it. A caller waiting for a load of
// another caller returns early with ctx.Err() when ctx is done.
// Failed loads are not stored, the next Get tries again.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (*V, error) {
	if c.config.loader == nil {
		return nil, ErrNoLoader
	}
	c.mutex.Lock()
	if e, ok := c.items[key]; ok {
		if e.expires.IsZero() || time.Now().Before(e.expires) {
			c.mutex.Unlock()
			return e.data, nil
		}
		delete(c.items, key)
	}
	if cl, ok := c.inflight[key]; ok {
		c.mutex.Unlock()
		select {
		case <-cl.done:
			return cl.data, cl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	cl := &call[V]{done: make(chan struct{})}
	c.inflight[key] = cl
	gen := c.gen
	c.mutex.Unlock()

	c.load(ctx, key, cl, gen)
	return cl.data, cl.err
}

// load runs the loader for cl. The in-flight entry is removed and waiters
// are released even if the loader panics.
func (c *Cache[K, V]) load(ctx context.Context, key K, cl *call[V], gen uint64) {
	finished := false
	defer func() {
		c.mutex.Lock()
		delete(c.inflight, key)
		if !finished && cl.err == nil {
			cl.data, cl.err = nil, ErrLoaderPanic
		}
		c.mutex.Unlock()
		close(cl.done)
	}()

	c.config.l.Debug("load", log.Any("key", key))
	cl.data, cl.err = c.config.loader(ctx, key)

	c.mutex.Lock()
	switch {
	case cl.err != nil:
		c.config.l.Error("error loading entry", log.Any("key", key), log.ErrorField(cl.err))
	case gen == c.gen:
		e := entry[V]{data: cl.data}
		if c.config.expiration > 0 {
			e.expires = time.Now().Add(c.config.expiration)
		}
		c.items[key] = e
	}
	finished = true
	c.mutex.Unlock()
}

func (c *Cache[K, V]) Invalidate(ctx context.Context, key K) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.items, key)
	c.gen++
	c.config.l.Debug("Invalidate", log.Any("key", key), log.Int("remain items", len(c.items)))
}

func (c *Cache[K, V]) InvalidateAll(ctx context.Context) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.config.l.Debug("InvalidateAll", log.Int("items", len(c.items)))
	clear(c.items)
	c.gen++
}

// Len returns the number of stored entries, loads in progress are not counted.
func (c *Cache[K, V]) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.items)
}

// Package session keeps loaded sessions for the lifetime of the process.
package session

import (
	"context"
	"time"

	"github.com/mpapenbr/racedash/log"
	"github.com/mpapenbr/racedash/pkg/model"
	"github.com/mpapenbr/racedash/pkg/provider"
	"github.com/mpapenbr/racedash/pkg/utils/cache"
)

type Option func(*Cache)

// WithExpiration limits how long a loaded session is kept. Default is
// until invalidated.
func WithExpiration(d time.Duration) Option {
	return func(c *Cache) { c.expiration = d }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Cache) { c.l = l }
}

// Cache holds one session per key. A session is loaded on first use, a
// failed load is not kept and the next request tries again.
type Cache struct {
	p          provider.Provider
	expiration time.Duration
	l          *log.Logger
	sessions   *cache.Cache[model.SessionKey, model.Session]
}

func NewCache(p provider.Provider, opts ...Option) *Cache {
	ret := &Cache{p: p, l: log.Default().Named("session")}
	for _, opt := range opts {
		opt(ret)
	}
	ret.sessions = cache.New(
		cache.WithLoader[model.SessionKey, model.Session](ret.load),
		cache.WithExpiration[model.SessionKey, model.Session](ret.expiration),
		cache.WithLogger[model.SessionKey, model.Session](ret.l.Named("cache")),
	)
	return ret
}

func (c *Cache) load(ctx context.Context, key model.SessionKey) (*model.Session, error) {
	start := time.Now()
	s, err := c.p.Load(ctx, key)
	if err != nil {
		return nil, provider.NewDataLoadError(key, err)
	}
	c.l.Info("session loaded",
		log.String("session", key.String()),
		log.Int("laps", len(s.Laps())),
		log.Duration("took", time.Since(start)))
	return s, nil
}

func (c *Cache) Get(ctx context.Context, key model.SessionKey) (*model.Session, error) {
	return c.sessions.Get(ctx, key)
}

func (c *Cache) Invalidate(ctx context.Context, key model.SessionKey) {
	c.sessions.Invalidate(ctx, key)
}

// Clear drops all sessions.
func (c *Cache) Clear(ctx context.Context) {
	c.sessions.InvalidateAll(ctx)
}

func (c *Cache) Len() int {
	return c.sessions.Len()
}

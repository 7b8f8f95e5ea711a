// Package cached puts a session store in front of another provider.
package cached

import (
	"context"
	"errors"

	"github.com/mpapenbr/racedash/log"
	"github.com/mpapenbr/racedash/pkg/model"
	"github.com/mpapenbr/racedash/pkg/provider"
	"github.com/mpapenbr/racedash/pkg/store"
)

type Option func(*Provider)

func WithLogger(l *log.Logger) Option {
	return func(p *Provider) { p.l = l }
}

type Provider struct {
	upstream provider.Provider
	store    store.Store
	l        *log.Logger
}

var _ provider.Provider = (*Provider)(nil)

func New(upstream provider.Provider, s store.Store, opts ...Option) *Provider {
	ret := &Provider{upstream: upstream, store: s, l: log.Default().Named("provider.cached")}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Load returns the stored lap table if present. Otherwise the session is
// loaded upstream and its lap table is stored. Telemetry is looked up in the
// store first, fetched series are written through.
func (p *Provider) Load(ctx context.Context, key model.SessionKey) (*model.Session, error) {
	laps, err := p.store.LoadLaps(ctx, key)
	var upstream *model.Session
	switch {
	case err == nil:
		p.l.Debug("lap table from store", log.String("session", key.String()))
	case errors.Is(err, store.ErrNotFound):
		if upstream, err = p.upstream.Load(ctx, key); err != nil {
			return nil, provider.NewDataLoadError(key, err)
		}
		laps = upstream.Laps()
		if err := p.store.SaveLaps(ctx, key, laps); err != nil {
			p.l.Warn("could not store lap table",
				log.String("session", key.String()), log.ErrorField(err))
		}
	default:
		// a broken store should not prevent loading from the source
		p.l.Warn("store lookup failed", log.String("session", key.String()), log.ErrorField(err))
		if upstream, err = p.upstream.Load(ctx, key); err != nil {
			return nil, provider.NewDataLoadError(key, err)
		}
		laps = upstream.Laps()
	}
	f := &fetcher{p: p, key: key, upstream: upstream}
	return model.NewSession(key, laps, f), nil
}

type fetcher struct {
	p        *Provider
	key      model.SessionKey
	upstream *model.Session // loaded on demand if the lap table came from the store
}

func (f *fetcher) FetchTelemetry(ctx context.Context, driver string, lap int) (*model.Telemetry, error) {
	t, err := f.p.store.LoadTelemetry(ctx, f.key, driver, lap)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		f.p.l.Warn("store lookup failed", log.ErrorField(err))
	}
	if f.upstream == nil {
		if f.upstream, err = f.p.upstream.Load(ctx, f.key); err != nil {
			return nil, provider.NewDataLoadError(f.key, err)
		}
	}
	t, err = f.upstream.Telemetry(ctx, model.Lap{Driver: driver, LapNumber: lap})
	if err != nil {
		return nil, provider.NewDataLoadError(f.key, err)
	}
	if err := f.p.store.SaveTelemetry(ctx, f.key, t); err != nil {
		f.p.l.Warn("could not store telemetry",
			log.String("driver", driver), log.Int("lap", lap), log.ErrorField(err))
	}
	return t, nil
}

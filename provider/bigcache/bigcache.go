package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	pr "github.com/unkn0wn-root/redcache/provider"
)

// Provider is an in-process byte map on top of BigCache.
// BigCache has no per-entry TTL: every entry lives for the configured LifeWindow
// and the ttl passed to Set is ignored.
type Provider struct {
	c *bc.BigCache
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(ctx context.Context, cfg Config) (*Provider, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(ctx, conf)
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	return p.c.Set(key, value)
}

func (p *Provider) Del(_ context.Context, keys ...string) (int64, error) {
	var n int64
	for _, k := range keys {
		err := p.c.Delete(k)
		switch {
		case err == nil:
			n++
		case errors.Is(err, bc.ErrEntryNotFound):
		default:
			return n, err
		}
	}
	return n, nil
}

// Len returns the number of stored entries.
func (p *Provider) Len() int { return p.c.Len() }

func (p *Provider) Close(_ context.Context) error {
	return p.c.Close()
}

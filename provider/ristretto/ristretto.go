package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	pr "github.com/unkn0wn-root/redcache/provider"
)

// Provider is an in-process byte map on top of Ristretto. Writes go through
// Ristretto's admission policy: under pressure a Set may be dropped, which the
// caching operations observe as a later miss.
type Provider struct {
	c    *rc.Cache
	cost func(key string, value []byte) int64
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
	// Cost computes the admission cost of an entry; nil => 1 per entry.
	Cost func(key string, value []byte) int64
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	cost := cfg.Cost
	if cost == nil {
		cost = func(string, []byte) int64 { return 1 }
	}
	return &Provider{c: c, cost: cost}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

// Set buffers the write; call Wait when a following Get must observe it.
func (p *Provider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	p.c.SetWithTTL(key, value, p.cost(key, value), ttl)
	return nil
}

func (p *Provider) Del(_ context.Context, keys ...string) (int64, error) {
	var n int64
	for _, k := range keys {
		if _, ok := p.c.Get(k); ok {
			n++
		}
		p.c.Del(k)
	}
	return n, nil
}

// Wait blocks until buffered writes are applied.
func (p *Provider) Wait() { p.c.Wait() }

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Helper to expose metrics if desired by the application (not part of provider.Provider).
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }

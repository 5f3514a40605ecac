package redcache

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/unkn0wn-root/redcache/codec"
	pr "github.com/unkn0wn-root/redcache/provider"
)

// Token is an object cached as a whole under "prefix:TokenID()".
type Token interface {
	TokenID() string
}

type TokenOptions[T any] struct {
	Prefix string         // "" => Go type name of T (pointer types use the element name)
	TTL    time.Duration  // 0 => 30m, negative => never expire
	Codec  codec.Codec[T] // nil => codec.JSON[T]
	Logger Logger
	Hooks  Hooks
}

// TokenStore saves, loads and removes tokens of one type. Every write
// refreshes the TTL.
type TokenStore[T Token] struct {
	p      pr.Provider
	prefix string
	ttl    time.Duration
	codec  codec.Codec[T]
	hooks  Hooks
	save   *CacheIt[T, T]
	remove *RemoveIt[string, struct{}]
}

func NewTokenStore[T Token](p pr.Provider, opts TokenOptions[T]) (*TokenStore[T], error) {
	if p == nil {
		return nil, ErrNilProvider
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = typeName[T]()
		if prefix == "" {
			return nil, &ConfigError{Field: "token prefix", Reason: "required for unnamed types"}
		}
	}
	ts := &TokenStore[T]{
		p:      p,
		prefix: prefix,
		ttl:    coalesce(opts.TTL, defaultTokenTTL),
		codec:  coalesce[codec.Codec[T]](opts.Codec, codec.JSON[T]{}),
		hooks:  coalesce[Hooks](opts.Hooks, NopHooks{}),
	}
	if ts.ttl < 0 {
		ts.ttl = 0
	}

	var err error
	ts.save, err = NewCacheIt[T, T](p,
		func(t T) string { return ts.Key(t.TokenID()) },
		func(_ context.Context, t T) (T, error) { return t, nil },
		CacheItOptions[T]{TTL: ts.ttl, Codec: ts.codec, Force: true, Logger: opts.Logger, Hooks: opts.Hooks},
	)
	if err != nil {
		return nil, err
	}
	ts.remove, err = NewRemoveIt[string, struct{}](p,
		ts.Key,
		func(context.Context, string) (struct{}, error) { return struct{}{}, nil },
		RemoveItOptions{Logger: opts.Logger, Hooks: opts.Hooks},
	)
	if err != nil {
		return nil, err
	}
	return ts, nil
}

func (s *TokenStore[T]) Prefix() string     { return s.prefix }
func (s *TokenStore[T]) TTL() time.Duration { return s.ttl }

// Key returns the store key of the token with the given id.
func (s *TokenStore[T]) Key(id string) string { return s.prefix + ":" + id }

// Read looks the token up without touching the store otherwise.
func (s *TokenStore[T]) Read(ctx context.Context, id string) (T, bool, error) {
	key := s.Key(id)
	t, ok, err := lookup(ctx, s.p, s.codec, key)
	if err != nil {
		return t, false, err
	}
	// A payload decoding to the zero token (e.g. "null") counts as absent.
	if !ok || isZero(t) {
		s.hooks.CacheMiss(key)
		var zero T
		return zero, false, nil
	}
	s.hooks.CacheHit(key)
	return t, true, nil
}

// Load is Read followed by a Flush on hit, extending the token's lifetime.
func (s *TokenStore[T]) Load(ctx context.Context, id string) (T, bool, error) {
	t, ok, err := s.Read(ctx, id)
	if err != nil || !ok {
		return t, ok, err
	}
	if _, err := s.Flush(ctx, t); err != nil {
		return t, true, err
	}
	return t, true, nil
}

// Flush writes t (overwriting any stored copy) and returns it. A zero token
// or one with an empty id is rejected with ErrInvalidKey.
func (s *TokenStore[T]) Flush(ctx context.Context, t T) (T, error) {
	if err := checkToken(t); err != nil {
		return t, err
	}
	return s.save.Invoke(ctx, t)
}

func (s *TokenStore[T]) Save(ctx context.Context, t T) error {
	_, err := s.Flush(ctx, t)
	return err
}

func (s *TokenStore[T]) Remove(ctx context.Context, t T) error {
	if err := checkToken(t); err != nil {
		return err
	}
	return s.RemoveID(ctx, t.TokenID())
}

func (s *TokenStore[T]) RemoveID(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty token id", ErrInvalidKey)
	}
	_, err := s.remove.Invoke(ctx, id)
	return err
}

func checkToken[T Token](t T) error {
	if isZero(t) {
		return fmt.Errorf("%w: zero token", ErrInvalidKey)
	}
	if t.TokenID() == "" {
		return fmt.Errorf("%w: empty token id", ErrInvalidKey)
	}
	return nil
}

// isZero reports whether v is its type's zero value (nil for pointers).
func isZero[T any](v T) bool {
	return reflect.ValueOf(&v).Elem().IsZero()
}

func typeName[T any]() string {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

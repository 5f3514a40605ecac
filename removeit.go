package redcache

import (
	"context"

	pr "github.com/unkn0wn-root/redcache/provider"
)

type RemoveItOptions struct {
	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks
}

// RemoveIt runs a Func and then deletes one key, derived either from the
// call's arguments or from its result. Nothing is deleted when the function
// fails.
type RemoveIt[A, R any] struct {
	p       pr.Provider
	fn      Func[A, R]
	byArgs  KeyFunc[A]
	byValue KeyFunc[R]
	log     Logger
	hooks   Hooks
}

// NewRemoveIt deletes key(args) after each successful call.
func NewRemoveIt[A, R any](p pr.Provider, key KeyFunc[A], fn Func[A, R], opts RemoveItOptions) (*RemoveIt[A, R], error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	r, err := newRemoveIt(p, fn, opts)
	if err != nil {
		return nil, err
	}
	r.byArgs = key
	return r, nil
}

// NewRemoveItByReturn deletes key(result) after each successful call.
func NewRemoveItByReturn[A, R any](p pr.Provider, key KeyFunc[R], fn Func[A, R], opts RemoveItOptions) (*RemoveIt[A, R], error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	r, err := newRemoveIt(p, fn, opts)
	if err != nil {
		return nil, err
	}
	r.byValue = key
	return r, nil
}

func newRemoveIt[A, R any](p pr.Provider, fn Func[A, R], opts RemoveItOptions) (*RemoveIt[A, R], error) {
	if p == nil {
		return nil, ErrNilProvider
	}
	if fn == nil {
		return nil, ErrNilFunc
	}
	return &RemoveIt[A, R]{
		p:     p,
		fn:    fn,
		log:   coalesce[Logger](opts.Logger, NopLogger{}),
		hooks: coalesce[Hooks](opts.Hooks, NopHooks{}),
	}, nil
}

// ByReturn reports whether the key is derived from the result.
func (r *RemoveIt[A, R]) ByReturn() bool { return r.byValue != nil }

// Invoke calls the wrapped function, then invalidates. A failed delete is
// reported together with the (valid) result.
func (r *RemoveIt[A, R]) Invoke(ctx context.Context, args A) (R, error) {
	res, err := r.fn(ctx, args)
	if err != nil {
		return res, err
	}
	var key string
	if r.byValue != nil {
		key = r.byValue(res)
	} else {
		key = r.byArgs(args)
	}
	return res, invalidate(ctx, r.p, key, r.log, r.hooks)
}

func (r *RemoveIt[A, R]) Func() Func[A, R] { return r.Invoke }

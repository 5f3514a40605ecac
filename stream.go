package redcache

import (
	"context"
	"iter"

	pr "github.com/unkn0wn-root/redcache/provider"
)

// StreamRemoveIt is RemoveIt for functions producing lazy sequences.
//
// By return, every produced item has its key deleted right before the item
// is handed to the consumer, so deletions interleave with production in
// order. By arguments, key(args) is deleted once, after the source is
// exhausted; a consumer that stops early or a source error skips it.
//
// A source error is passed on and ends the sequence. A failed delete is
// yielded as (zero, err) and ends the sequence. Deletions already performed
// are not rolled back.
type StreamRemoveIt[A, T any] struct {
	p       pr.Provider
	fn      SeqFunc[A, T]
	byArgs  KeyFunc[A]
	byValue KeyFunc[T]
	log     Logger
	hooks   Hooks
}

func NewStreamRemoveIt[A, T any](p pr.Provider, key KeyFunc[A], fn SeqFunc[A, T], opts RemoveItOptions) (*StreamRemoveIt[A, T], error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	s, err := newStreamRemoveIt(p, fn, opts)
	if err != nil {
		return nil, err
	}
	s.byArgs = key
	return s, nil
}

func NewStreamRemoveItByReturn[A, T any](p pr.Provider, key KeyFunc[T], fn SeqFunc[A, T], opts RemoveItOptions) (*StreamRemoveIt[A, T], error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	s, err := newStreamRemoveIt(p, fn, opts)
	if err != nil {
		return nil, err
	}
	s.byValue = key
	return s, nil
}

func newStreamRemoveIt[A, T any](p pr.Provider, fn SeqFunc[A, T], opts RemoveItOptions) (*StreamRemoveIt[A, T], error) {
	if p == nil {
		return nil, ErrNilProvider
	}
	if fn == nil {
		return nil, ErrNilFunc
	}
	return &StreamRemoveIt[A, T]{
		p:     p,
		fn:    fn,
		log:   coalesce[Logger](opts.Logger, NopLogger{}),
		hooks: coalesce[Hooks](opts.Hooks, NopHooks{}),
	}, nil
}

func (s *StreamRemoveIt[A, T]) ByReturn() bool { return s.byValue != nil }

// Invoke returns a sequence that does nothing until ranged over.
func (s *StreamRemoveIt[A, T]) Invoke(ctx context.Context, args A) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		for item, err := range s.fn(ctx, args) {
			if err != nil {
				yield(item, err)
				return
			}
			if s.byValue != nil {
				if err := invalidate(ctx, s.p, s.byValue(item), s.log, s.hooks); err != nil {
					yield(zero, err)
					return
				}
			}
			if !yield(item, nil) {
				return
			}
		}
		if s.byArgs != nil {
			if err := invalidate(ctx, s.p, s.byArgs(args), s.log, s.hooks); err != nil {
				yield(zero, err)
			}
		}
	}
}

func (s *StreamRemoveIt[A, T]) Func() SeqFunc[A, T] { return s.Invoke }

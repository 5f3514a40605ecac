package redcache

import (
	"fmt"
	"strings"

	"github.com/unkn0wn-root/redcache/internal/util"
)

// KeyFunc resolves the resource key of one call. It must be pure: equal inputs
// yield equal keys.
type KeyFunc[A any] func(A) string

// Key returns a resolver that ignores its input and always yields literal.
func Key[A any](literal string) (KeyFunc[A], error) {
	if literal == "" {
		return nil, fmt.Errorf("%w: empty literal", ErrInvalidKey)
	}
	return func(A) string { return literal }, nil
}

// KeyFrom validates fn and returns it as a resolver.
func KeyFrom[A any](fn func(A) string) (KeyFunc[A], error) {
	if fn == nil {
		return nil, ErrInvalidKey
	}
	return KeyFunc[A](fn), nil
}

// MustKey panics if Key would fail. Meant for package-level declarations.
func MustKey[A any](literal string) KeyFunc[A] {
	k, err := Key[A](literal)
	if err != nil {
		panic(err)
	}
	return k
}

// HashedKey derives "prefix:<digest>" from the canonical JSON form of the input.
// Useful when arguments are structs too large or too sensitive to spell out.
func HashedKey[A any](prefix string) (KeyFunc[A], error) {
	if prefix == "" {
		return nil, fmt.Errorf("%w: empty prefix", ErrInvalidKey)
	}
	return func(a A) string { return util.Digest(prefix, a) }, nil
}

// Join builds a colon separated key ("user", "42" => "user:42").
func Join(parts ...string) string { return strings.Join(parts, ":") }

func checkKey[A any](k KeyFunc[A]) error {
	if k == nil {
		return ErrInvalidKey
	}
	return nil
}

// Package codec turns cached values into the opaque bytes a provider stores
// and back. The caching operations are agnostic to the scheme.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Funcs adapts a plain encoder/decoder function pair to Codec.
// Both functions must be set.
type Funcs[V any] struct {
	Enc func(V) ([]byte, error)
	Dec func([]byte) (V, error)
}

var _ Codec[struct{}] = Funcs[struct{}]{}

func (f Funcs[V]) Encode(v V) ([]byte, error) { return f.Enc(v) }
func (f Funcs[V]) Decode(b []byte) (V, error) { return f.Dec(b) }

package codec

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack stores values as MessagePack, usually smaller than the JSON form of
// the same cached result. Field names follow `msgpack` tags, not `json` ones,
// so entries written by JSON-configured processes will not decode here.
type Msgpack[V any] struct{}

func (Msgpack[V]) Encode(v V) ([]byte, error) { return msgpack.Marshal(v) }
func (Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	if err := msgpack.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("msgpack decode: %w", err)
	}
	return v, nil
}

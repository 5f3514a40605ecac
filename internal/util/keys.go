package util

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Digest returns prefix + ":" + the first 16 hex chars of SHA-256 over the
// canonical JSON form of v. encoding/json sorts map keys, so equal values give
// equal digests regardless of map iteration order. Values JSON cannot encode
// (funcs, channels, cyclic data) fall back to their %#v rendering.
func Digest(prefix string, v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		b = []byte(fmt.Sprintf("%#v", v))
	}
	sum := sha256.Sum256(b)
	return prefix + ":" + hex.EncodeToString(sum[:8])
}

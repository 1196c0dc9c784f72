// Package codec provides the pluggable value serialization used by the
// cache tier. JSON is the default (cached blobs stay readable by other
// consumers of the cache backend); Msgpack and CBOR are available for
// deployments that prefer a compact binary form.
package codec

import (
	"fmt"
	"strings"
)

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// ByName selects a codec by its configuration name. An empty name means
// JSON.
func ByName[V any](name string) (Codec[V], error) {
	switch strings.ToLower(name) {
	case "", "json":
		return JSON[V]{}, nil
	case "msgpack":
		return Msgpack[V]{}, nil
	case "cbor":
		return CBOR[V]{}, nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}

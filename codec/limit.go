package codec

import "fmt"

// Limited rejects payloads larger than Max before decoding them. Entries in a
// shared store (redis) are not trusted to be small. Max <= 0 disables the check.
type Limited[V any] struct {
	Inner Codec[V]
	Max   int
}

// WithLimit wraps inner with a decode size limit.
func WithLimit[V any](inner Codec[V], max int) Limited[V] {
	return Limited[V]{Inner: inner, Max: max}
}

func (c Limited[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }

func (c Limited[V]) Decode(b []byte) (V, error) {
	if c.Max > 0 && len(b) > c.Max {
		var zero V
		return zero, fmt.Errorf("codec: payload of %d bytes exceeds limit %d", len(b), c.Max)
	}
	return c.Inner.Decode(b)
}

// Package codec serializes cached values. skucache uses a Codec for
// provider.SkuDetails; JSON is the default.
package codec

// Codec converts V to bytes and back.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// ByName returns the codec registered under name ("json", "msgpack",
// "cbor"), or false.
func ByName[V any](name string) (Codec[V], bool) {
	switch name {
	case "", "json":
		return JSON[V]{}, true
	case "msgpack":
		return Msgpack[V]{}, true
	case "cbor":
		c, err := NewCBOR[V](false)
		if err != nil {
			return nil, false
		}
		return c, true
	default:
		return nil, false
	}
}

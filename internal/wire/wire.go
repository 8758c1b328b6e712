// Package wire frames skucache entries. A frame carries the generation it was
// written under so readers can drop entries from before an invalidation.
package wire

import (
	"encoding/binary"
	"errors"
	"time"
)

const (
	version byte = 1

	kindPresent byte = 1 // payload holds encoded sku details
	kindAbsent  byte = 2 // provider reported no such sku; no payload

	headerLen = 4 + 1 + 1 + 8 + 8 + 4
)

var (
	ErrCorrupt = errors.New("unibill: corrupt cache entry")
	magic      = [4]byte{'U', 'N', 'I', 'B'}
)

// Frame is a decoded entry. Payload aliases the decoded buffer.
type Frame struct {
	Gen      uint64
	StoredAt time.Time
	Absent   bool
	Payload  []byte
}

// Layout: magic(4) | ver(1) | kind(1) | gen(u64 be) | storedAt(unix nanos, i64 be) | vlen(u32 be) | payload(vlen)
func encode(kind byte, gen uint64, at time.Time, payload []byte) []byte {
	b := make([]byte, headerLen, headerLen+len(payload))
	copy(b, magic[:])
	b[4] = version
	b[5] = kind
	binary.BigEndian.PutUint64(b[6:14], gen)
	binary.BigEndian.PutUint64(b[14:22], uint64(at.UnixNano()))
	binary.BigEndian.PutUint32(b[22:26], uint32(len(payload)))
	return append(b, payload...)
}

// EncodePresent frames payload written under gen.
func EncodePresent(gen uint64, at time.Time, payload []byte) []byte {
	return encode(kindPresent, gen, at, payload)
}

// EncodeAbsent frames a negative entry written under gen.
func EncodeAbsent(gen uint64, at time.Time) []byte {
	return encode(kindAbsent, gen, at, nil)
}

func Decode(b []byte) (Frame, error) {
	if len(b) < headerLen || [4]byte(b[:4]) != magic || b[4] != version {
		return Frame{}, ErrCorrupt
	}
	kind := b[5]
	if kind != kindPresent && kind != kindAbsent {
		return Frame{}, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[22:26]))
	if vlen != len(b)-headerLen {
		// truncated or trailing bytes
		return Frame{}, ErrCorrupt
	}
	if kind == kindAbsent && vlen != 0 {
		return Frame{}, ErrCorrupt
	}

	f := Frame{
		Gen:      binary.BigEndian.Uint64(b[6:14]),
		StoredAt: time.Unix(0, int64(binary.BigEndian.Uint64(b[14:22]))),
		Absent:   kind == kindAbsent,
	}
	if vlen > 0 {
		f.Payload = b[headerLen:]
	}
	return f, nil
}

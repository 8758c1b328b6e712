package wire

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func mustDecode(t *testing.T, b []byte) Frame {
	t.Helper()
	f, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	return f
}

func TestPresentRoundTrip(t *testing.T) {
	at := time.Unix(1700000000, 123)
	cases := []struct {
		gen     uint64
		payload []byte
	}{
		{0, nil},
		{42, []byte("hello")},
		{math.MaxUint64, []byte{0, 1, 2, 3, 4}},
	}
	for _, tc := range cases {
		f := mustDecode(t, EncodePresent(tc.gen, at, tc.payload))
		if f.Gen != tc.gen {
			t.Fatalf("gen mismatch: got %d want %d", f.Gen, tc.gen)
		}
		if f.Absent {
			t.Fatalf("present entry decoded as absent")
		}
		if !f.StoredAt.Equal(at) {
			t.Fatalf("storedAt mismatch: got %v want %v", f.StoredAt, at)
		}
		if !bytes.Equal(f.Payload, tc.payload) {
			t.Fatalf("payload mismatch: got %x want %x", f.Payload, tc.payload)
		}
	}
}

func TestAbsentRoundTrip(t *testing.T) {
	f := mustDecode(t, EncodeAbsent(7, time.Now()))
	if !f.Absent || f.Gen != 7 || f.Payload != nil {
		t.Fatalf("unexpected frame: %+v", f)
	}
}

func TestRejectsTrailingBytes(t *testing.T) {
	enc := EncodePresent(7, time.Now(), []byte("x"))
	enc = append(enc, 0xDE, 0xAD)
	if _, err := Decode(enc); err == nil {
		t.Fatalf("expected error on trailing bytes")
	}
}

func TestCorruptHeadersAndLengths(t *testing.T) {
	enc := EncodePresent(1, time.Now(), []byte("abc"))

	badMagic := append([]byte(nil), enc...)
	badMagic[0] = 'X'
	if _, err := Decode(badMagic); err == nil {
		t.Fatalf("expected error on bad magic")
	}

	badVer := append([]byte(nil), enc...)
	badVer[4] = version + 1
	if _, err := Decode(badVer); err == nil {
		t.Fatalf("expected error on bad version")
	}

	badKind := append([]byte(nil), enc...)
	badKind[5] = 9
	if _, err := Decode(badKind); err == nil {
		t.Fatalf("expected error on bad kind")
	}

	// absent entries never carry a payload
	absentWithPayload := append([]byte(nil), enc...)
	absentWithPayload[5] = kindAbsent
	if _, err := Decode(absentWithPayload); err == nil {
		t.Fatalf("expected error on absent entry with payload")
	}

	tooLong := append([]byte(nil), enc...)
	binary.BigEndian.PutUint32(tooLong[22:26], uint32(len("abc")+1))
	if _, err := Decode(tooLong); err == nil {
		t.Fatalf("expected error on vlen beyond buffer")
	}

	if _, err := Decode(enc[:len(enc)-1]); err == nil {
		t.Fatalf("expected error on truncated buffer")
	}
	if _, err := Decode(enc[:headerLen-1]); err == nil {
		t.Fatalf("expected error on short header")
	}
}

func TestZeroCopyPayload(t *testing.T) {
	enc := EncodePresent(1, time.Now(), []byte("Z"))
	f := mustDecode(t, enc)
	f.Payload[0] = 'Q'
	if mustDecode(t, enc).Payload[0] != 'Q' {
		t.Fatalf("expected payload to alias the encoded buffer")
	}
}

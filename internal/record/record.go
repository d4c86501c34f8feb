// Package record frames a cache record's expiration and payload into a single
// byte slice for backends whose native unit is an opaque value (redis, bolt,
// bigcache). Document stores persist the fields natively and do not use it.
package record

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const version byte = 1

var (
	ErrCorrupt = errors.New("docache: corrupt record")
	magic4     = [...]byte{'D', 'O', 'C', 'R'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Layout: magic(4) | ver(1) | expiresAt(u64 be, epoch seconds) | plen(u32 be) | payload(plen)

// Encode frames expiresAt and payload. expiresAt < 0 is clamped to 0 (never).
func Encode(expiresAt int64, payload []byte) []byte {
	if expiresAt < 0 {
		expiresAt = 0
	}

	var buf bytes.Buffer
	buf.Grow(4 + 1 + 8 + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], uint64(expiresAt))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// Decode validates the framing and returns the expiration and payload.
// The payload aliases b; callers must not retain it past b's lifetime.
func Decode(b []byte) (expiresAt int64, payload []byte, err error) {
	const hdr = 4 + 1 + 8 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version {
		return 0, nil, ErrCorrupt
	}

	off := 5

	exp := binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	if exp > 1<<62 { // not a plausible timestamp; reject rather than overflow int64
		return 0, nil, ErrCorrupt
	}

	plen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if plen < 0 || plen > len(b)-off { // overflow-safe bound check
		return 0, nil, ErrCorrupt
	}

	return int64(exp), b[off : off+plen], nil
}

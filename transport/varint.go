package transport

import "github.com/pkg/errors"

// VarInt is the RFC 9000 section 16 variable-length integer encoding: a
// 62-bit unsigned value packed into 1, 2, 4 or 8 bytes, with the two most
// significant bits of the first byte selecting the length class.
type VarInt uint64

// MaxVarInt is the largest value representable as a VarInt (2^62 - 1).
const MaxVarInt = (uint64(1) << 62) - 1

// errTruncated is returned when the input does not contain enough bytes to
// decode the length class indicated by the first byte.
var errTruncated = errors.New("varint: truncated")

// errVarIntOverflow is returned when encode is asked to write a value that
// exceeds the 62-bit VarInt range.
var errVarIntOverflow = errors.New("varint: value exceeds 62-bit range")

// varintLen returns the number of bytes needed to encode v in the shortest
// length class that fits it.
func varintLen(v uint64) int {
	switch {
	case v <= 63:
		return 1
	case v <= 16383:
		return 2
	case v <= 1073741823:
		return 4
	case v <= MaxVarInt:
		return 8
	default:
		// Encoded as 8 bytes by putVarint, which will itself return
		// errVarIntOverflow; callers sizing buffers should treat this
		// as the worst case.
		return 8
	}
}

// putVarint writes v into b using the shortest length class that fits and
// returns the number of bytes written. b must have at least varintLen(v)
// bytes of capacity.
func putVarint(b []byte, v uint64) (int, error) {
	switch {
	case v > MaxVarInt:
		return 0, errVarIntOverflow
	case v <= 63:
		b[0] = byte(v)
		return 1, nil
	case v <= 16383:
		b[0] = 0x40 | byte(v>>8)
		b[1] = byte(v)
		return 2, nil
	case v <= 1073741823:
		b[0] = 0x80 | byte(v>>24)
		b[1] = byte(v >> 16)
		b[2] = byte(v >> 8)
		b[3] = byte(v)
		return 4, nil
	default:
		b[0] = 0xc0 | byte(v>>56)
		b[1] = byte(v >> 48)
		b[2] = byte(v >> 40)
		b[3] = byte(v >> 32)
		b[4] = byte(v >> 24)
		b[5] = byte(v >> 16)
		b[6] = byte(v >> 8)
		b[7] = byte(v)
		return 8, nil
	}
}

// getVarint decodes a VarInt from the front of b into *v and returns the
// number of bytes consumed. It returns 0, leaving *v untouched, if b is too
// short for the length class its first byte selects.
func getVarint(b []byte, v *uint64) int {
	if len(b) == 0 {
		return 0
	}
	ln := 1 << (b[0] >> 6)
	if len(b) < ln {
		return 0
	}
	x := uint64(b[0] & 0x3f)
	for i := 1; i < ln; i++ {
		x = x<<8 | uint64(b[i])
	}
	*v = x
	return ln
}

// decodeVarInt is the error-returning counterpart of getVarint, used where a
// truncated input must be reported as errTruncated (header and frame
// parsing).
func decodeVarInt(b []byte) (VarInt, int, error) {
	var v uint64
	n := getVarint(b, &v)
	if n == 0 {
		return 0, 0, errTruncated
	}
	return VarInt(v), n, nil
}

// encodedSize returns the size class VarInt(v) would encode to.
func (v VarInt) encodedSize() int {
	return varintLen(uint64(v))
}

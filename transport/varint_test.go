package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarIntRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 37, 63, 64, 16383, 16384, 1073741823, 1073741824, MaxVarInt}
	for _, v := range values {
		buf := make([]byte, 8)
		n, err := putVarint(buf, v)
		require.NoError(t, err)
		assert.Equal(t, varintLen(v), n)
		assert.Contains(t, []int{1, 2, 4, 8}, n)

		var got uint64
		m := getVarint(buf[:n], &got)
		assert.Equal(t, n, m)
		assert.Equal(t, v, got)
	}
}

func TestVarIntOverflow(t *testing.T) {
	buf := make([]byte, 8)
	_, err := putVarint(buf, MaxVarInt+1)
	assert.ErrorIs(t, err, errVarIntOverflow)
}

func TestVarIntTruncated(t *testing.T) {
	var v uint64
	assert.Equal(t, 0, getVarint(nil, &v))
	// First byte selects the 8-byte class but only 3 bytes follow.
	assert.Equal(t, 0, getVarint([]byte{0xc0, 0x01, 0x02}, &v))
}

// RFC 9000 appendix A.1 worked examples.
func TestVarIntRFCExamples(t *testing.T) {
	cases := []struct {
		bytes []byte
		value uint64
	}{
		{[]byte{0xc2, 0x19, 0x7c, 0x5e, 0xff, 0x14, 0xe8, 0x8c}, 151288809941952652},
		{[]byte{0x9d, 0x7f, 0x3e, 0x7d}, 494878333},
		{[]byte{0x7b, 0xbd}, 15293},
		{[]byte{0x25}, 37},
		{[]byte{0x40, 0x25}, 37},
	}
	for _, c := range cases {
		var got uint64
		n := getVarint(c.bytes, &got)
		require.Equal(t, len(c.bytes), n)
		assert.Equal(t, c.value, got)
	}
}

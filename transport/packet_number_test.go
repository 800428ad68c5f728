package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPacketNumberLen(t *testing.T) {
	assert.Equal(t, 1, packetNumberLen(0, invalidPacketNumber))
	assert.Equal(t, 2, packetNumberLen(0x100, invalidPacketNumber))
	assert.Equal(t, 1, packetNumberLen(200, 190))
	assert.Equal(t, 2, packetNumberLen(0xabe8b3, 0xabe8a2))
}

func TestPacketNumberEncodeDecodeRoundTrip(t *testing.T) {
	buf := make([]byte, 4)
	pnLen := packetNumberLen(0xac5c02, 0xabe8b3)
	encodePacketNumber(buf, 0xac5c02, pnLen)
	truncated := truncatedPacketNumber(buf, pnLen)
	got := decodePacketNumber(0xabe8b3, truncated, pnLen)
	assert.Equal(t, packetNumber(0xac5c02), got)
}

// Invariant from spec.md section 8: for all truncated values and plausible
// largest-received values, the reconstructed full PN is the unique value
// within +/- 2^(bits-1) of the expected next packet number.
func TestDecodePacketNumberUniqueWithinWindow(t *testing.T) {
	cases := []struct {
		largestReceived packetNumber
		full            packetNumber
		pnLen           int
	}{
		{0, 0, 1},
		{0, 1, 1},
		{0xabe8b3, 0xac5c02, 2},
		{200, 150, 1},
		{1000000, 1000050, 2},
		{1<<20 - 1, 1 << 20, 2},
	}
	for _, c := range cases {
		buf := make([]byte, 4)
		encodePacketNumber(buf, c.full, c.pnLen)
		truncated := truncatedPacketNumber(buf, c.pnLen)
		got := decodePacketNumber(c.largestReceived, truncated, c.pnLen)
		assert.Equal(t, c.full, got, "largestReceived=%d pnLen=%d", c.largestReceived, c.pnLen)
	}
}

func TestPacketNumberLenGrowsWithGap(t *testing.T) {
	assert.Equal(t, 1, packetNumberLen(127, invalidPacketNumber))
	assert.Equal(t, 2, packetNumberLen(128, invalidPacketNumber))
}

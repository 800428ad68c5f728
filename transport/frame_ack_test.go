package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAckFrameEncodeDecodeRoundTripSingleRange(t *testing.T) {
	f := &ackFrame{
		largestAcked: 9,
		ackDelay:     20 * time.Microsecond,
		ackDelayExp:  3,
		ranges:       []ackRange{{smallest: 0, largest: 9}},
	}
	buf := f.encode(nil)
	assert.Equal(t, f.encodeLen(), len(buf))

	decoded, n, err := decodeAckFrame(buf[1:], 3)
	require.NoError(t, err)
	assert.Equal(t, len(buf)-1, n)
	assert.Equal(t, f.largestAcked, decoded.largestAcked)
	assert.Equal(t, f.ranges, decoded.ranges)
}

func TestAckFrameEncodeDecodeRoundTripWithGaps(t *testing.T) {
	f := &ackFrame{
		largestAcked: 9,
		ackDelay:     0,
		ackDelayExp:  3,
		ranges: []ackRange{
			{smallest: 9, largest: 9},
			{smallest: 5, largest: 6},
			{smallest: 0, largest: 2},
		},
	}
	buf := f.encode(nil)
	decoded, _, err := decodeAckFrame(buf[1:], 3)
	require.NoError(t, err)
	assert.Equal(t, f.ranges, decoded.ranges)
}

func TestAckDelayEncodingRoundTrip(t *testing.T) {
	f := &ackFrame{ackDelay: 800 * time.Microsecond, ackDelayExp: 3}
	encoded := f.ackDelayEncoded()
	assert.Equal(t, 800*time.Microsecond, decodeAckDelay(encoded, 3))
}

package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario 1 of spec.md section 8: exact wire bytes for a RETIRE_CONNECTION_ID
// frame with sequence number 0x1234.
func TestRetireConnectionIDFrameExactWireBytes(t *testing.T) {
	f := &retireConnectionIDFrame{sequenceNumber: 0x1234}
	buf := f.encode(nil)
	assert.Equal(t, []byte{0x19, 0x52, 0x34}, buf)
}

func TestRetireConnectionIDFrameDecodeRoundTrip(t *testing.T) {
	f := &retireConnectionIDFrame{sequenceNumber: 0x1234}
	buf := f.encode(nil)

	decoded, n, err := decodeRetireConnectionIDFrame(buf[1:])
	require.NoError(t, err)
	assert.Equal(t, len(buf)-1, n)
	assert.Equal(t, f.sequenceNumber, decoded.sequenceNumber)
}

func TestNewConnectionIDFrameEncodeDecodeRoundTrip(t *testing.T) {
	f := &newConnectionIDFrame{
		sequenceNumber: 2,
		retirePriorTo:  1,
		connectionID:   []byte{0xde, 0xad, 0xbe, 0xef},
	}
	copy(f.statelessResetToken[:], []byte("0123456789abcdef"))

	buf := f.encode(nil)
	assert.Equal(t, f.encodeLen(), len(buf))

	decoded, n, err := decodeNewConnectionIDFrame(buf[1:])
	require.NoError(t, err)
	assert.Equal(t, len(buf)-1, n)
	assert.Equal(t, f.sequenceNumber, decoded.sequenceNumber)
	assert.Equal(t, f.retirePriorTo, decoded.retirePriorTo)
	assert.Equal(t, f.connectionID, decoded.connectionID)
	assert.Equal(t, f.statelessResetToken, decoded.statelessResetToken)
}

func TestPathChallengeResponseRoundTrip(t *testing.T) {
	f := &pathChallengeFrame{}
	copy(f.data[:], []byte{1, 2, 3, 4, 5, 6, 7, 8})
	buf := f.encode(nil)

	data, n, err := decodePathFrame(buf[1:])
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, f.data, data)
}

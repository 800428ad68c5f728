package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParametersEncodeDecodeRoundTrip(t *testing.T) {
	p := defaultParameters()
	p.InitialMaxData = 1 << 20
	p.InitialMaxStreamDataBidiLocal = 1 << 16
	p.InitialMaxStreamsBidi = 100
	p.MaxIdleTimeout = 30 * time.Second
	p.InitialSourceConnectionID = []byte{1, 2, 3, 4}

	buf := encodeParameters(&p)
	decoded, err := decodeParameters(buf)
	require.NoError(t, err)

	assert.Equal(t, p.InitialMaxData, decoded.InitialMaxData)
	assert.Equal(t, p.InitialMaxStreamDataBidiLocal, decoded.InitialMaxStreamDataBidiLocal)
	assert.Equal(t, p.InitialMaxStreamsBidi, decoded.InitialMaxStreamsBidi)
	assert.Equal(t, p.MaxIdleTimeout, decoded.MaxIdleTimeout)
	assert.Equal(t, p.InitialSourceConnectionID, decoded.InitialSourceConnectionID)
	assert.Equal(t, p.AckDelayExponent, decoded.AckDelayExponent)
}

func TestValidatePeerTransportParamsRejectsLowConnectionIDLimit(t *testing.T) {
	p := defaultParameters()
	p.ActiveConnectionIDLimit = 1
	assert.Error(t, validatePeerTransportParams(&p))
}

func TestValidatePeerTransportParamsRejectsOutOfRangeAckDelayExponent(t *testing.T) {
	p := defaultParameters()
	p.AckDelayExponent = 21
	assert.Error(t, validatePeerTransportParams(&p))
}

func TestValidatePeerTransportParamsAcceptsDefaults(t *testing.T) {
	p := defaultParameters()
	assert.NoError(t, validatePeerTransportParams(&p))
}

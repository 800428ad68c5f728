package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamFrameEncodeDecodeRoundTrip(t *testing.T) {
	f := &streamFrame{streamID: 4, offset: 10, data: []byte("hello"), fin: true}
	buf := f.encode(nil)
	assert.Equal(t, f.encodeLen(), len(buf))

	decoded, n, err := decodeStreamFrame(buf[0], buf[1:])
	require.NoError(t, err)
	assert.Equal(t, len(buf)-1, n)
	assert.Equal(t, f.streamID, decoded.streamID)
	assert.Equal(t, f.offset, decoded.offset)
	assert.Equal(t, f.data, decoded.data)
	assert.True(t, decoded.fin)
}

func TestStreamFrameZeroOffsetOmitsOffsetField(t *testing.T) {
	f := &streamFrame{streamID: 0, offset: 0, data: []byte("x")}
	buf := f.encode(nil)
	decoded, _, err := decodeStreamFrame(buf[0], buf[1:])
	require.NoError(t, err)
	assert.Equal(t, VarInt(0), decoded.offset)
}

func TestResetStreamFrameRoundTrip(t *testing.T) {
	f := &resetStreamFrame{streamID: 7, errorCode: 1, finalSize: 42}
	buf := f.encode(nil)
	decoded, n, err := decodeResetStreamFrame(buf[1:])
	require.NoError(t, err)
	assert.Equal(t, len(buf)-1, n)
	assert.Equal(t, *f, *decoded)
}

func TestStopSendingFrameRoundTrip(t *testing.T) {
	f := &stopSendingFrame{streamID: 3, errorCode: 5}
	buf := f.encode(nil)
	decoded, _, err := decodeStopSendingFrame(buf[1:])
	require.NoError(t, err)
	assert.Equal(t, *f, *decoded)
}

func TestMaxStreamDataFrameRoundTrip(t *testing.T) {
	f := &maxStreamDataFrame{streamID: 1, maximumData: 1000}
	buf := f.encode(nil)
	decoded, _, err := decodeMaxStreamDataFrame(buf[1:])
	require.NoError(t, err)
	assert.Equal(t, *f, *decoded)
}

func TestMaxStreamsFrameBidiVsUni(t *testing.T) {
	bidi := &maxStreamsFrame{bidi: true, maximumStreams: 10}
	uni := &maxStreamsFrame{bidi: false, maximumStreams: 10}
	assert.Equal(t, byte(frameTypeMaxStreamsBidi), bidi.encode(nil)[0])
	assert.Equal(t, byte(frameTypeMaxStreamsUni), uni.encode(nil)[0])
}

func TestCryptoFrameRoundTrip(t *testing.T) {
	f := &cryptoFrame{offset: 100, data: []byte("clienthello")}
	buf := f.encode(nil)
	decoded, n, err := decodeCryptoFrame(buf[1:])
	require.NoError(t, err)
	assert.Equal(t, len(buf)-1, n)
	assert.Equal(t, f.offset, decoded.offset)
	assert.Equal(t, f.data, decoded.data)
}

func TestConnectionCloseFrameTransportVariant(t *testing.T) {
	f := &connectionCloseFrame{errorCode: 0x0a, triggeringFrameType: 0x08, reason: "boom"}
	buf := f.encode(nil)
	decoded, n, err := decodeConnectionCloseFrame(false, buf[1:])
	require.NoError(t, err)
	assert.Equal(t, len(buf)-1, n)
	assert.Equal(t, f.errorCode, decoded.errorCode)
	assert.Equal(t, f.triggeringFrameType, decoded.triggeringFrameType)
	assert.Equal(t, f.reason, decoded.reason)
}

func TestConnectionCloseFrameApplicationVariantOmitsTriggeringFrame(t *testing.T) {
	f := &connectionCloseFrame{isApplication: true, errorCode: 1, reason: "bye"}
	buf := f.encode(nil)
	assert.Equal(t, byte(frameTypeConnectionCloseApp), buf[0])
	decoded, _, err := decodeConnectionCloseFrame(true, buf[1:])
	require.NoError(t, err)
	assert.Equal(t, VarInt(0), decoded.triggeringFrameType)
}

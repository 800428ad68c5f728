package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendBufferDrainBasic(t *testing.T) {
	s := newSendBuffer()
	s.write([]byte("hello"), false)

	f := s.drain(4, 100)
	require.NotNil(t, f)
	assert.Equal(t, VarInt(0), f.offset)
	assert.Equal(t, "hello", string(f.data))
	assert.False(t, f.fin)
	assert.Nil(t, s.drain(4, 100))
}

func TestSendBufferDrainChunked(t *testing.T) {
	s := newSendBuffer()
	s.write([]byte("0123456789"), false)

	f1 := s.drain(0, 4)
	assert.Equal(t, "0123", string(f1.data))
	f2 := s.drain(0, 4)
	assert.Equal(t, VarInt(4), f2.offset)
	assert.Equal(t, "4567", string(f2.data))
}

func TestSendBufferFinOnLastFrame(t *testing.T) {
	s := newSendBuffer()
	s.write([]byte("bye"), true)

	f := s.drain(0, 100)
	require.NotNil(t, f)
	assert.True(t, f.fin)
	assert.Equal(t, sendStateDataSent, s.currentState())
}

func TestSendBufferOnAckedAdvancesToDataRecvd(t *testing.T) {
	s := newSendBuffer()
	s.write([]byte("bye"), true)
	f := s.drain(0, 100)
	s.onAcked(f.offset, len(f.data), f.fin)
	assert.True(t, s.isFinished())
}

func TestSendBufferOnLostRewindsForRetransmit(t *testing.T) {
	s := newSendBuffer()
	s.write([]byte("0123456789"), false)
	s.drain(0, 5) // sends "01234"
	s.onLost(0)
	f := s.drain(0, 5)
	assert.Equal(t, VarInt(0), f.offset)
	assert.Equal(t, "01234", string(f.data))
}

func TestSendBufferReset(t *testing.T) {
	s := newSendBuffer()
	s.write([]byte("data"), false)
	s.reset(7)
	assert.Equal(t, sendStateResetSent, s.currentState())
	assert.Equal(t, 0, s.pending())
}

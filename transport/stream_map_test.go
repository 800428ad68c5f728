package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStreamMap(isClient bool) *streamMap {
	m := newStreamMap(isClient, newFlowController(1<<20, 0), newFlowController(0, 1<<20))
	m.setLimits(10, 10, 10, 10)
	return m
}

func TestStreamMapOpenLocalAllocatesSequentialIDs(t *testing.T) {
	m := newTestStreamMap(true)
	s1, err := m.openLocal(true)
	require.NoError(t, err)
	s2, err := m.openLocal(true)
	require.NoError(t, err)

	assert.Equal(t, StreamID(0), s1.ID())
	assert.Equal(t, StreamID(4), s2.ID())
}

func TestStreamMapOpenLocalRespectsLimit(t *testing.T) {
	m := newTestStreamMap(true)
	m.setLimits(1, 10, 10, 10)
	_, err := m.openLocal(true)
	require.NoError(t, err)
	_, err = m.openLocal(true)
	assert.Error(t, err)
}

func TestStreamMapOpenRemoteCreatesLowerStreamsLazily(t *testing.T) {
	m := newTestStreamMap(true) // client endpoint, remote is server-initiated
	// server-initiated bidi stream id 1, then 5 (2nd) referenced directly
	id := streamIDSequence(1, false, true)
	s, err := m.openRemote(id)
	require.NoError(t, err)
	assert.Equal(t, id, s.ID())

	lower := streamIDSequence(0, false, true)
	_, ok := m.get(lower)
	assert.True(t, ok, "lower-numbered stream in the same class must be lazily created")
}

func TestStreamMapOpenRemoteRejectsOverLimit(t *testing.T) {
	m := newTestStreamMap(true)
	m.setLimits(10, 10, 1, 10)
	id := streamIDSequence(5, false, true) // far beyond the granted limit
	_, err := m.openRemote(id)
	assert.Error(t, err)
}

func TestStreamMapScheduleRoundRobin(t *testing.T) {
	m := newTestStreamMap(true)
	s1, _ := m.openLocal(true)
	s2, _ := m.openLocal(true)
	require.NoError(t, s1.Write([]byte("a"), false))
	require.NoError(t, s2.Write([]byte("b"), false))

	first, ok := m.scheduleNext()
	require.True(t, ok)
	second, ok := m.scheduleNext()
	require.True(t, ok)
	assert.NotEqual(t, first.ID(), second.ID())
}

func TestStreamMapScheduleSkipsStreamsWithNothingPending(t *testing.T) {
	m := newTestStreamMap(true)
	s1, _ := m.openLocal(true)
	m.openLocal(true) // s2 has nothing queued
	require.NoError(t, s1.Write([]byte("a"), false))

	s, ok := m.scheduleNext()
	require.True(t, ok)
	assert.Equal(t, s1.ID(), s.ID())
	s.send.drain(s.ID(), 0)

	_, ok = m.scheduleNext()
	assert.False(t, ok)
}

func TestStreamMapSchedulePriorityOrdering(t *testing.T) {
	m := newTestStreamMap(true)
	s1, _ := m.openLocal(true)
	s2, _ := m.openLocal(true)
	require.NoError(t, s1.Write([]byte("a"), false))
	require.NoError(t, s2.Write([]byte("b"), false))
	s2.SetPriority(5)

	s, ok := m.scheduleNext()
	require.True(t, ok)
	assert.Equal(t, s2.ID(), s.ID())
}

func TestStreamMapStopSendingAlwaysUsesZeroErrorCode(t *testing.T) {
	m := newTestStreamMap(true)
	s, _ := m.openLocal(true)
	require.NoError(t, s.Write([]byte("data"), false))

	frame, ok := m.stopSending(s.ID())
	require.True(t, ok)
	assert.Equal(t, VarInt(0), frame.errorCode)
}

package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecvJournalDuplicateDetection(t *testing.T) {
	j := newRecvJournal()
	now := time.Unix(0, 0)
	j.register(5, now, true)
	assert.True(t, j.isDuplicate(5))
	assert.False(t, j.isDuplicate(6))
}

func TestRecvJournalMergesAdjacentRanges(t *testing.T) {
	j := newRecvJournal()
	now := time.Unix(0, 0)
	j.register(1, now, true)
	j.register(2, now, true)
	j.register(3, now, true)
	require.Equal(t, 1, j.rangeCount())

	_, _, ranges, ok := j.genAck(now, 3)
	require.True(t, ok)
	require.Len(t, ranges, 1)
	assert.Equal(t, packetNumber(1), ranges[0].smallest)
	assert.Equal(t, packetNumber(3), ranges[0].largest)
}

// Scenario 2 of spec.md section 8: ACK generation with gaps.
func TestRecvJournalGenAckWithGaps(t *testing.T) {
	j := newRecvJournal()
	now := time.Unix(0, 0)
	for _, pn := range []packetNumber{0, 1, 2, 5, 6, 9} {
		j.register(pn, now, true)
	}

	largest, _, ranges, ok := j.genAck(now, 3)
	require.True(t, ok)
	assert.Equal(t, packetNumber(9), largest)
	require.Len(t, ranges, 3)
	assert.Equal(t, ackRange{smallest: 9, largest: 9}, ranges[0])
	assert.Equal(t, ackRange{smallest: 5, largest: 6}, ranges[1])
	assert.Equal(t, ackRange{smallest: 0, largest: 2}, ranges[2])
}

func TestRecvJournalOutOfOrderMerge(t *testing.T) {
	j := newRecvJournal()
	now := time.Unix(0, 0)
	j.register(5, now, true)
	j.register(3, now, true)
	j.register(4, now, true)

	_, _, ranges, ok := j.genAck(now, 3)
	require.True(t, ok)
	require.Len(t, ranges, 1)
	assert.Equal(t, ackRange{smallest: 3, largest: 5}, ranges[0])
}

func TestRecvJournalRetireDropsBelowThreshold(t *testing.T) {
	j := newRecvJournal()
	now := time.Unix(0, 0)
	j.register(1, now, true)
	j.register(2, now, true)
	j.register(10, now, true)

	j.retire(2)
	_, _, ranges, ok := j.genAck(now, 3)
	require.True(t, ok)
	require.Len(t, ranges, 2)
	assert.Equal(t, ackRange{smallest: 10, largest: 10}, ranges[0])
	assert.Equal(t, ackRange{smallest: 2, largest: 2}, ranges[1])
}

func TestRecvJournalAckDelay(t *testing.T) {
	j := newRecvJournal()
	t0 := time.Unix(0, 0)
	j.register(1, t0, true)

	later := t0.Add(20 * time.Millisecond)
	_, ackDelay, _, ok := j.genAck(later, 3)
	require.True(t, ok)
	assert.Equal(t, 20*time.Millisecond, ackDelay)
}

func TestRecvJournalNeedsAckResetsAfterGenAck(t *testing.T) {
	j := newRecvJournal()
	now := time.Unix(0, 0)
	j.register(1, now, true)
	assert.True(t, j.needsAck())
	j.genAck(now, 3)
	assert.False(t, j.needsAck())
}

func TestRecvJournalEmptyHasNoAck(t *testing.T) {
	j := newRecvJournal()
	_, _, _, ok := j.genAck(time.Unix(0, 0), 3)
	assert.False(t, ok)
}

func TestSortRangesDescendingHelper(t *testing.T) {
	ranges := []ackRange{{smallest: 0, largest: 1}, {smallest: 5, largest: 5}}
	sortRangesDescending(ranges)
	assert.Equal(t, packetNumber(5), ranges[0].largest)
}

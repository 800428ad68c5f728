package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentJournalNewPacketTracksBytesInFlight(t *testing.T) {
	j := newSentJournal()
	now := time.Unix(0, 0)
	j.newPacket(0, now, 100, true, true, nil)
	j.newPacket(1, now, 200, true, true, nil)
	assert.Equal(t, 300, j.inFlightBytes())
	assert.Equal(t, []packetNumber{0, 1}, j.outstanding())
}

func TestSentJournalOnAckRemovesAckedAndFreesBytes(t *testing.T) {
	j := newSentJournal()
	now := time.Unix(0, 0)
	j.newPacket(0, now, 100, true, true, nil)
	j.newPacket(1, now, 100, true, true, nil)
	j.newPacket(2, now, 100, true, true, nil)

	acked, largestNew := j.onAck([]ackRange{{smallest: 1, largest: 2}}, now)
	require.Len(t, acked, 2)
	assert.True(t, largestNew)
	assert.Equal(t, 100, j.inFlightBytes())
	assert.Equal(t, []packetNumber{0}, j.outstanding())
}

func TestSentJournalOnAckLargestNewlyAckedFalseWhenAlreadySeen(t *testing.T) {
	j := newSentJournal()
	now := time.Unix(0, 0)
	j.newPacket(0, now, 50, true, true, nil)
	j.newPacket(1, now, 50, true, true, nil)

	j.onAck([]ackRange{{smallest: 1, largest: 1}}, now)
	j.newPacket(2, now, 50, true, true, nil)
	_, largestNew := j.onAck([]ackRange{{smallest: 1, largest: 1}}, now)
	assert.False(t, largestNew)
}

// Scenario from spec.md section 8: exact surviving PN set after a mixed
// ack/loss sequence. PNs 0-4 sent; 0 and 4 are acked; 1 is packetThreshold
// behind the largest acked (4) so it is lost by count; 2
// and 3 are within the reorder threshold and survive.
func TestSentJournalMayLossPacketThreshold(t *testing.T) {
	j := newSentJournal()
	now := time.Unix(0, 0)
	for pn := packetNumber(0); pn <= 4; pn++ {
		j.newPacket(pn, now, 100, true, true, nil)
	}
	j.onAck([]ackRange{{smallest: 0, largest: 0}, {smallest: 4, largest: 4}}, now)

	lost, _ := j.mayLoss(now, time.Hour) // time threshold far in the future
	require.Len(t, lost, 1)
	assert.Equal(t, packetNumber(1), lost[0].pn)
	assert.Equal(t, []packetNumber{2, 3}, j.outstanding())
}

func TestSentJournalMayLossTimeThreshold(t *testing.T) {
	j := newSentJournal()
	t0 := time.Unix(0, 0)
	j.newPacket(0, t0, 100, true, true, nil)
	j.newPacket(1, t0, 100, true, true, nil)
	j.onAck([]ackRange{{smallest: 1, largest: 1}}, t0)

	// Packet 0 is within the packet threshold of largestAcked (1) but its
	// loss delay has elapsed.
	later := t0.Add(50 * time.Millisecond)
	lost, lossTime := j.mayLoss(later, 10*time.Millisecond)
	require.Len(t, lost, 1)
	assert.Equal(t, packetNumber(0), lost[0].pn)
	assert.True(t, lossTime.IsZero())
}

func TestSentJournalMayLossArmsTimerForUndecidedPacket(t *testing.T) {
	j := newSentJournal()
	t0 := time.Unix(0, 0)
	j.newPacket(0, t0, 100, true, true, nil)
	j.newPacket(1, t0, 100, true, true, nil)
	j.onAck([]ackRange{{smallest: 1, largest: 1}}, t0)

	soon := t0.Add(1 * time.Millisecond)
	lost, lossTime := j.mayLoss(soon, 10*time.Millisecond)
	assert.Empty(t, lost)
	assert.Equal(t, t0.Add(10*time.Millisecond), lossTime)
}

func TestSentJournalNoLossBeforeAnyAck(t *testing.T) {
	j := newSentJournal()
	now := time.Unix(0, 0)
	j.newPacket(0, now, 100, true, true, nil)
	lost, lossTime := j.mayLoss(now.Add(time.Hour), time.Millisecond)
	assert.Empty(t, lost)
	assert.True(t, lossTime.IsZero())
}

func TestSentJournalHasOutstandingAckEliciting(t *testing.T) {
	j := newSentJournal()
	now := time.Unix(0, 0)
	assert.False(t, j.hasOutstandingAckEliciting())
	j.newPacket(0, now, 10, false, false, nil)
	assert.False(t, j.hasOutstandingAckEliciting())
	j.newPacket(1, now, 10, true, true, nil)
	assert.True(t, j.hasOutstandingAckEliciting())
}

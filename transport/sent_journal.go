package transport

import (
	"sync"
	"time"
)

// packetThreshold is the reordering threshold in packets below which a gap
// between an acknowledged and an unacknowledged packet number does not yet
// imply loss (RFC 9002 section 6.1.1).
const packetThreshold = 3

// sentPacket records everything the loss-detection logic needs to know
// about a single packet after it has been sent: when, how large, whether
// its loss matters for congestion control, and the frames it carried so
// they can be requeued if it is lost.
type sentPacket struct {
	pn           packetNumber
	sentAt       time.Time
	size         int
	ackEliciting bool
	inFlight     bool
	frames       []frame
}

// sentJournal tracks one packet-number space's outstanding sent packets,
// supporting the three operations loss recovery needs: record a new packet,
// fold in an incoming ACK, and sweep for packets that should be declared
// lost. Mirrors the role a sent-packet bookkeeping structure plays in
// RFC 9002's reference loss-detection algorithm, kept as a flat ascending
// slice rather than a BTree since packet numbers only ever grow.
type sentJournal struct {
	mu sync.Mutex

	packets []*sentPacket // ascending by pn
	largestAcked packetNumber

	nextPN packetNumber // next packet number to issue; never decreases or repeats

	bytesInFlight int
}

func newSentJournal() *sentJournal {
	return &sentJournal{largestAcked: invalidPacketNumber}
}

// nextPacketNumber allocates and returns the next packet number this space
// will send, starting at 0 and incrementing by exactly one per call for the
// lifetime of the space (RFC 9000 section 12.3: packet numbers in a given
// space are strictly increasing and never reused). It is independent of how
// many packets are currently outstanding, since acks and losses shrink that
// count and must not cause a packet number to be issued twice — issuing the
// same pn twice would also mean reusing an AEAD nonce under the same key.
func (j *sentJournal) nextPacketNumber() packetNumber {
	j.mu.Lock()
	defer j.mu.Unlock()
	pn := j.nextPN
	j.nextPN++
	return pn
}

// newPacket registers a freshly sent packet.
func (j *sentJournal) newPacket(pn packetNumber, sentAt time.Time, size int, ackEliciting, inFlight bool, frames []frame) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.packets = append(j.packets, &sentPacket{
		pn:           pn,
		sentAt:       sentAt,
		size:         size,
		ackEliciting: ackEliciting,
		inFlight:     inFlight,
		frames:       frames,
	})
	if inFlight {
		j.bytesInFlight += size
	}
}

// onAck removes every packet named by ranges (descending, as produced by
// genAck/an incoming ACK frame) from the outstanding set, updates
// largestAcked, and returns the newly-acked packets plus whether the
// largest packet number in the whole ACK frame was newly acknowledged here
// (the signal that a fresh RTT sample can be taken from it).
func (j *sentJournal) onAck(ranges []ackRange, now time.Time) (acked []*sentPacket, largestNewlyAcked bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(ranges) == 0 {
		return nil, false
	}

	remaining := j.packets[:0]
	var overallLargest packetNumber = invalidPacketNumber
	for _, r := range ranges {
		if r.largest > overallLargest {
			overallLargest = r.largest
		}
	}

	for _, p := range j.packets {
		if inAnyRange(p.pn, ranges) {
			acked = append(acked, p)
			if p.inFlight {
				j.bytesInFlight -= p.size
			}
			if p.pn == overallLargest {
				largestNewlyAcked = true
			}
			continue
		}
		remaining = append(remaining, p)
	}
	j.packets = remaining

	if overallLargest > j.largestAcked {
		j.largestAcked = overallLargest
	}
	return acked, largestNewlyAcked
}

func inAnyRange(pn packetNumber, ranges []ackRange) bool {
	for _, r := range ranges {
		if pn >= r.smallest && pn <= r.largest {
			return true
		}
	}
	return false
}

// mayLoss sweeps the outstanding set for packets that should be declared
// lost under either the packet-reorder threshold or the time threshold
// (RFC 9002 section 6.1), given the current lossDelay from the RTT
// estimator. Lost packets are removed from the outstanding set (their
// frames are the caller's responsibility to requeue) and returned together
// with the earliest time at which an as-yet-undecided packet would become
// lost purely by the time threshold, so the caller can arm a loss-detection
// timer for it.
func (j *sentJournal) mayLoss(now time.Time, lossDelay time.Duration) (lost []*sentPacket, lossTime time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.largestAcked == invalidPacketNumber {
		return nil, time.Time{}
	}

	remaining := j.packets[:0]
	for _, p := range j.packets {
		if p.pn > j.largestAcked {
			remaining = append(remaining, p)
			continue
		}

		byCount := int64(j.largestAcked-p.pn) >= packetThreshold
		lossAt := p.sentAt.Add(lossDelay)
		byTime := !now.Before(lossAt)

		switch {
		case byCount || byTime:
			lost = append(lost, p)
			if p.inFlight {
				j.bytesInFlight -= p.size
			}
		default:
			remaining = append(remaining, p)
			if lossTime.IsZero() || lossAt.Before(lossTime) {
				lossTime = lossAt
			}
		}
	}
	j.packets = remaining
	return lost, lossTime
}

// outstanding returns the packet numbers still tracked as sent-but-unacked,
// ascending. Exposed for tests asserting the exact surviving set after a
// sequence of onAck/mayLoss calls.
func (j *sentJournal) outstanding() []packetNumber {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]packetNumber, len(j.packets))
	for i, p := range j.packets {
		out[i] = p.pn
	}
	return out
}

func (j *sentJournal) inFlightBytes() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.bytesInFlight
}

// hasOutstandingAckEliciting reports whether any ack-eliciting packet is
// still awaiting acknowledgment, used to decide whether a PTO timer needs
// to be armed at all.
func (j *sentJournal) hasOutstandingAckEliciting() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, p := range j.packets {
		if p.ackEliciting {
			return true
		}
	}
	return false
}

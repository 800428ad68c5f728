package transport

import "time"

// packetSpace bundles everything a connection tracks once per
// packet-number space: its own sent/received packet journals, its own
// CRYPTO stream, and the AEAD/header-protection keys for that epoch.
// Grounded on the per-epoch driver shape of the handshake space in
// original_source/qconnection/src/conn/space/handshake.rs: each epoch
// runs an independent receive-then-send loop against its own journals,
// only sharing the connection-wide RTT estimator and congestion
// controller. That reference implementation has a latent bug where an
// ACK frame arriving in the Handshake space's receive loop is folded into
// the Initial epoch's sent journal instead of the Handshake epoch's own;
// handleAck below is always called by conn.go with this space's own
// sentJournal, so qcore does not reproduce it.
type packetSpace struct {
	epoch Epoch

	recv   *recvJournal
	sent   *sentJournal
	crypto *cryptoStream

	seal   sealer
	open   opener
	sealIV []byte
	openIV []byte

	discarded bool
}

func newPacketSpace(epoch Epoch) *packetSpace {
	return &packetSpace{
		epoch:  epoch,
		recv:   newRecvJournal(),
		sent:   newSentJournal(),
		crypto: newCryptoStream(),
	}
}

// installKeys attaches the AEAD/header-protection capability and IVs for
// this epoch, derived once the corresponding TLS secret becomes
// available. sealIV/openIV are combined with each packet number at
// seal/open time to form the AEAD nonce (RFC 9001 section 5.3).
func (s *packetSpace) installKeys(seal sealer, open opener, sealIV, openIV []byte) {
	s.seal = seal
	s.open = open
	s.sealIV = sealIV
	s.openIV = openIV
}

// discard drops this space's keys (its journals are kept) once the epoch is
// retired (RFC 9001 section 4.9: Initial keys are discarded once
// Handshake keys are available, Handshake keys once the handshake is
// confirmed).
func (s *packetSpace) discard() {
	s.discarded = true
	s.seal = nil
	s.open = nil
	s.sealIV = nil
	s.openIV = nil
}

// onPacketReceived folds a successfully decrypted packet into this
// space's receive journal.
func (s *packetSpace) onPacketReceived(pn packetNumber, now time.Time, ackEliciting bool) {
	s.recv.register(pn, now, ackEliciting)
}

// onPacketSent folds a freshly sent packet into this space's sent
// journal.
func (s *packetSpace) onPacketSent(pn packetNumber, now time.Time, size int, ackEliciting, inFlight bool, frames []frame) {
	s.sent.newPacket(pn, now, size, ackEliciting, inFlight, frames)
}

// handleAck processes an ACK frame received in this space: it always
// folds the acknowledged ranges into this space's own sent journal (see
// the type doc above for why that matters), and feeds a fresh RTT sample
// to rtt when the frame's largest acknowledged packet number is newly
// acked and was itself ack-eliciting.
func (s *packetSpace) handleAck(f *ackFrame, rtt *rttEstimator, now time.Time, handshakeConfirmed bool) (acked []*sentPacket) {
	acked, largestNewlyAcked := s.sent.onAck(f.ranges, now)
	if !largestNewlyAcked {
		return acked
	}
	for _, p := range acked {
		if p.pn == f.largestAcked && p.ackEliciting {
			rtt.update(now.Sub(p.sentAt), f.ackDelay, handshakeConfirmed)
			break
		}
	}
	return acked
}

// detectLoss sweeps this space's sent journal for lost packets given the
// current loss delay, returning the lost packets and the earliest time at
// which a still-undecided packet would become lost by the time threshold
// alone (used to arm the loss-detection timer).
func (s *packetSpace) detectLoss(now time.Time, lossDelay time.Duration) (lost []*sentPacket, lossTime time.Time) {
	return s.sent.mayLoss(now, lossDelay)
}

// readyForAck reports whether this space owes the peer an ACK.
func (s *packetSpace) readyForAck() bool {
	return s.recv.needsAck()
}

// buildAck produces the ACK frame for this space, or ok=false if nothing
// has been received yet. maxBytes caps the frame's encoded size (0 means
// unbounded, used by tests); ranges beyond maxAckRangesReported are already
// dropped by genAck, but a single packet's budget can still be smaller than
// that, so buildAck trims further ranges from the least-recent end until
// the frame fits, per spec.md section 4.3's budget-bounding requirement.
func (s *packetSpace) buildAck(now time.Time, ackDelayExponent uint8, maxBytes int) (*ackFrame, bool) {
	largest, ackDelay, ranges, ok := s.recv.genAck(now, ackDelayExponent)
	if !ok {
		return nil, false
	}
	f := &ackFrame{
		largestAcked: largest,
		ackDelay:     ackDelay,
		ranges:       ranges,
		ackDelayExp:  ackDelayExponent,
	}
	if maxBytes <= 0 {
		return f, true
	}
	for len(f.ranges) > 1 && f.encodeLen() > maxBytes {
		f.ranges = f.ranges[:len(f.ranges)-1]
	}
	if f.encodeLen() > maxBytes {
		return nil, false // not even the largest single range fits this packet
	}
	return f, true
}

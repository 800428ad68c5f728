package transport

import "time"

// ackFrame is the decoded form of an ACK frame (RFC 9000 section 19.3).
// ranges is descending by packet number, matching recvJournal.genAck's
// output order.
type ackFrame struct {
	largestAcked packetNumber
	ackDelay     time.Duration
	ranges       []ackRange
	ackDelayExp  uint8
}

// ackDelayEncoded returns the wire-format ACK Delay: the raw microsecond
// duration right-shifted by the negotiated ack_delay_exponent
// (RFC 9000 section 19.3).
func (f *ackFrame) ackDelayEncoded() uint64 {
	micros := uint64(f.ackDelay / time.Microsecond)
	return micros >> f.ackDelayExp
}

func decodeAckDelay(encoded uint64, exp uint8) time.Duration {
	return time.Duration(encoded<<exp) * time.Microsecond
}

func (f *ackFrame) encodeLen() int {
	n := 1
	n += VarInt(f.largestAcked).encodedSize()
	n += VarInt(f.ackDelayEncoded()).encodedSize()
	n += VarInt(len(f.ranges) - 1).encodedSize()
	n += VarInt(f.ranges[0].largest - f.ranges[0].smallest).encodedSize()
	for i := 1; i < len(f.ranges); i++ {
		gap := f.ranges[i-1].smallest - f.ranges[i].largest - 2
		ackLen := f.ranges[i].largest - f.ranges[i].smallest
		n += VarInt(gap).encodedSize() + VarInt(ackLen).encodedSize()
	}
	return n
}

func (f *ackFrame) encode(b []byte) []byte {
	b = append(b, byte(frameTypeAck))
	b = appendVarInt(b, uint64(f.largestAcked))
	b = appendVarInt(b, f.ackDelayEncoded())
	b = appendVarInt(b, uint64(len(f.ranges)-1))
	b = appendVarInt(b, uint64(f.ranges[0].largest-f.ranges[0].smallest))

	for i := 1; i < len(f.ranges); i++ {
		gap := uint64(f.ranges[i-1].smallest - f.ranges[i].largest - 2)
		ackLen := uint64(f.ranges[i].largest - f.ranges[i].smallest)
		b = appendVarInt(b, gap)
		b = appendVarInt(b, ackLen)
	}
	return b
}

func (*ackFrame) ackEliciting() bool { return false }

// decodeAckFrame parses an ACK frame body (the type byte already
// consumed) from b, reconstructing the descending ackRange list.
func decodeAckFrame(b []byte, ackDelayExp uint8) (*ackFrame, int, error) {
	largestAcked, n, err := decodeVarInt(b)
	if err != nil {
		return nil, 0, err
	}
	pos := n

	ackDelayRaw, n, err := decodeVarInt(b[pos:])
	if err != nil {
		return nil, 0, err
	}
	pos += n

	rangeCount, n, err := decodeVarInt(b[pos:])
	if err != nil {
		return nil, 0, err
	}
	pos += n

	firstAckLen, n, err := decodeVarInt(b[pos:])
	if err != nil {
		return nil, 0, err
	}
	pos += n

	f := &ackFrame{
		largestAcked: packetNumber(largestAcked),
		ackDelay:     decodeAckDelay(uint64(ackDelayRaw), ackDelayExp),
		ackDelayExp:  ackDelayExp,
	}
	largest := packetNumber(largestAcked)
	smallest := largest - packetNumber(firstAckLen)
	f.ranges = append(f.ranges, ackRange{smallest: smallest, largest: largest})

	for i := uint64(0); i < uint64(rangeCount); i++ {
		gap, n, err := decodeVarInt(b[pos:])
		if err != nil {
			return nil, 0, err
		}
		pos += n
		ackLen, n, err := decodeVarInt(b[pos:])
		if err != nil {
			return nil, 0, err
		}
		pos += n

		largest = smallest - packetNumber(gap) - 2
		smallest = largest - packetNumber(ackLen)
		f.ranges = append(f.ranges, ackRange{smallest: smallest, largest: largest})
	}

	return f, pos, nil
}

func appendVarInt(b []byte, v uint64) []byte {
	buf := make([]byte, varintLen(v))
	putVarint(buf, v)
	return append(b, buf...)
}

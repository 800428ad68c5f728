package transport

// newConnectionIDFrame offers the peer an additional connection ID to use
// (RFC 9000 section 19.15).
type newConnectionIDFrame struct {
	sequenceNumber VarInt
	retirePriorTo  VarInt
	connectionID   []byte
	statelessResetToken [16]byte
}

func (f *newConnectionIDFrame) encodeLen() int {
	return 1 + f.sequenceNumber.encodedSize() + f.retirePriorTo.encodedSize() + 1 + len(f.connectionID) + 16
}

func (f *newConnectionIDFrame) encode(b []byte) []byte {
	b = append(b, byte(frameTypeNewConnectionID))
	b = appendVarInt(b, uint64(f.sequenceNumber))
	b = appendVarInt(b, uint64(f.retirePriorTo))
	b = append(b, byte(len(f.connectionID)))
	b = append(b, f.connectionID...)
	return append(b, f.statelessResetToken[:]...)
}

func (*newConnectionIDFrame) ackEliciting() bool { return true }

func decodeNewConnectionIDFrame(b []byte) (*newConnectionIDFrame, int, error) {
	seq, n1, err := decodeVarInt(b)
	if err != nil {
		return nil, 0, err
	}
	retirePriorTo, n2, err := decodeVarInt(b[n1:])
	if err != nil {
		return nil, 0, err
	}
	pos := n1 + n2
	if pos >= len(b) {
		return nil, 0, errTruncated
	}
	cidLen := int(b[pos])
	pos++
	if pos+cidLen+16 > len(b) {
		return nil, 0, errTruncated
	}
	f := &newConnectionIDFrame{
		sequenceNumber: seq,
		retirePriorTo:  retirePriorTo,
		connectionID:   b[pos : pos+cidLen],
	}
	pos += cidLen
	copy(f.statelessResetToken[:], b[pos:pos+16])
	pos += 16
	return f, pos, nil
}

// retireConnectionIDFrame tells the peer to stop using a connection ID
// (RFC 9000 section 19.16).
type retireConnectionIDFrame struct {
	sequenceNumber VarInt
}

func (f *retireConnectionIDFrame) encodeLen() int {
	return 1 + f.sequenceNumber.encodedSize()
}

func (f *retireConnectionIDFrame) encode(b []byte) []byte {
	b = append(b, byte(frameTypeRetireConnectionID))
	return appendVarInt(b, uint64(f.sequenceNumber))
}

func (*retireConnectionIDFrame) ackEliciting() bool { return true }

func decodeRetireConnectionIDFrame(b []byte) (*retireConnectionIDFrame, int, error) {
	seq, n, err := decodeVarInt(b)
	if err != nil {
		return nil, 0, err
	}
	return &retireConnectionIDFrame{sequenceNumber: seq}, n, nil
}

// pathChallengeFrame/pathResponseFrame implement path validation
// (RFC 9000 sections 19.17-19.18): an 8-byte opaque payload the receiver
// must echo back verbatim in a PATH_RESPONSE.
type pathChallengeFrame struct {
	data [8]byte
}

func (f *pathChallengeFrame) encodeLen() int { return 1 + 8 }
func (f *pathChallengeFrame) encode(b []byte) []byte {
	b = append(b, byte(frameTypePathChallenge))
	return append(b, f.data[:]...)
}
func (*pathChallengeFrame) ackEliciting() bool { return true }

type pathResponseFrame struct {
	data [8]byte
}

func (f *pathResponseFrame) encodeLen() int { return 1 + 8 }
func (f *pathResponseFrame) encode(b []byte) []byte {
	b = append(b, byte(frameTypePathResponse))
	return append(b, f.data[:]...)
}
func (*pathResponseFrame) ackEliciting() bool { return true }

func decodePathFrame(b []byte) (data [8]byte, n int, err error) {
	if len(b) < 8 {
		return data, 0, errTruncated
	}
	copy(data[:], b[:8])
	return data, 8, nil
}

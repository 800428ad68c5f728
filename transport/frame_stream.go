package transport

// streamFrame carries a contiguous chunk of one stream's byte sequence
// (RFC 9000 section 19.8). The wire type's low three bits encode which of
// offset/length/fin are present; qcore always sets the LEN bit and sets
// the OFF bit only for a nonzero offset, but decode accepts any
// combination a peer may send.
type streamFrame struct {
	streamID StreamID
	offset   VarInt
	data     []byte
	fin      bool
}

func (f *streamFrame) encodeLen() int {
	n := 1
	n += VarInt(f.streamID).encodedSize()
	if f.offset != 0 {
		n += f.offset.encodedSize()
	}
	n += VarInt(len(f.data)).encodedSize()
	n += len(f.data)
	return n
}

func (f *streamFrame) encode(b []byte) []byte {
	typ := byte(frameTypeStream) | 0x02 // LEN bit always set
	if f.offset != 0 {
		typ |= 0x04 // OFF bit
	}
	if f.fin {
		typ |= 0x01 // FIN bit
	}
	b = append(b, typ)
	b = appendVarInt(b, uint64(f.streamID))
	if f.offset != 0 {
		b = appendVarInt(b, uint64(f.offset))
	}
	b = appendVarInt(b, uint64(len(f.data)))
	return append(b, f.data...)
}

func (*streamFrame) ackEliciting() bool { return true }

// decodeStreamFrame parses a STREAM frame body given the type byte already
// read (its flag bits select which fields are present).
func decodeStreamFrame(typ byte, b []byte) (*streamFrame, int, error) {
	f := &streamFrame{fin: typ&0x01 != 0}
	hasOffset := typ&0x04 != 0
	hasLen := typ&0x02 != 0

	streamID, n, err := decodeVarInt(b)
	if err != nil {
		return nil, 0, err
	}
	pos := n
	f.streamID = StreamID(streamID)

	if hasOffset {
		offset, n, err := decodeVarInt(b[pos:])
		if err != nil {
			return nil, 0, err
		}
		pos += n
		f.offset = offset
	}

	var length int
	if hasLen {
		l, n, err := decodeVarInt(b[pos:])
		if err != nil {
			return nil, 0, err
		}
		pos += n
		length = int(l)
	} else {
		length = len(b) - pos
	}
	if pos+length > len(b) {
		return nil, 0, errTruncated
	}
	f.data = b[pos : pos+length]
	pos += length

	return f, pos, nil
}

package transport

// resetStreamFrame abruptly terminates the sending part of a stream
// (RFC 9000 section 19.4).
type resetStreamFrame struct {
	streamID     StreamID
	errorCode    VarInt
	finalSize    VarInt
}

func (f *resetStreamFrame) encodeLen() int {
	return 1 + VarInt(f.streamID).encodedSize() + f.errorCode.encodedSize() + f.finalSize.encodedSize()
}

func (f *resetStreamFrame) encode(b []byte) []byte {
	b = append(b, byte(frameTypeResetStream))
	b = appendVarInt(b, uint64(f.streamID))
	b = appendVarInt(b, uint64(f.errorCode))
	b = appendVarInt(b, uint64(f.finalSize))
	return b
}

func (*resetStreamFrame) ackEliciting() bool { return true }

func decodeResetStreamFrame(b []byte) (*resetStreamFrame, int, error) {
	streamID, n1, err := decodeVarInt(b)
	if err != nil {
		return nil, 0, err
	}
	errorCode, n2, err := decodeVarInt(b[n1:])
	if err != nil {
		return nil, 0, err
	}
	finalSize, n3, err := decodeVarInt(b[n1+n2:])
	if err != nil {
		return nil, 0, err
	}
	return &resetStreamFrame{
		streamID:  StreamID(streamID),
		errorCode: errorCode,
		finalSize: finalSize,
	}, n1 + n2 + n3, nil
}

// stopSendingFrame asks the peer to stop sending on a stream
// (RFC 9000 section 19.5).
type stopSendingFrame struct {
	streamID  StreamID
	errorCode VarInt
}

func (f *stopSendingFrame) encodeLen() int {
	return 1 + VarInt(f.streamID).encodedSize() + f.errorCode.encodedSize()
}

func (f *stopSendingFrame) encode(b []byte) []byte {
	b = append(b, byte(frameTypeStopSending))
	b = appendVarInt(b, uint64(f.streamID))
	return appendVarInt(b, uint64(f.errorCode))
}

func (*stopSendingFrame) ackEliciting() bool { return true }

func decodeStopSendingFrame(b []byte) (*stopSendingFrame, int, error) {
	streamID, n1, err := decodeVarInt(b)
	if err != nil {
		return nil, 0, err
	}
	errorCode, n2, err := decodeVarInt(b[n1:])
	if err != nil {
		return nil, 0, err
	}
	return &stopSendingFrame{streamID: StreamID(streamID), errorCode: errorCode}, n1 + n2, nil
}

// maxStreamDataFrame raises a stream's flow control limit
// (RFC 9000 section 19.10).
type maxStreamDataFrame struct {
	streamID    StreamID
	maximumData VarInt
}

func (f *maxStreamDataFrame) encodeLen() int {
	return 1 + VarInt(f.streamID).encodedSize() + f.maximumData.encodedSize()
}

func (f *maxStreamDataFrame) encode(b []byte) []byte {
	b = append(b, byte(frameTypeMaxStreamData))
	b = appendVarInt(b, uint64(f.streamID))
	return appendVarInt(b, uint64(f.maximumData))
}

func (*maxStreamDataFrame) ackEliciting() bool { return true }

func decodeMaxStreamDataFrame(b []byte) (*maxStreamDataFrame, int, error) {
	streamID, n1, err := decodeVarInt(b)
	if err != nil {
		return nil, 0, err
	}
	max, n2, err := decodeVarInt(b[n1:])
	if err != nil {
		return nil, 0, err
	}
	return &maxStreamDataFrame{streamID: StreamID(streamID), maximumData: max}, n1 + n2, nil
}

// maxStreamsFrame raises the limit on streams the peer may open
// (RFC 9000 section 19.11). bidi distinguishes the bidirectional and
// unidirectional variants, which are separate frame types on the wire.
type maxStreamsFrame struct {
	bidi           bool
	maximumStreams VarInt
}

func (f *maxStreamsFrame) encodeLen() int {
	return 1 + f.maximumStreams.encodedSize()
}

func (f *maxStreamsFrame) encode(b []byte) []byte {
	typ := frameTypeMaxStreamsUni
	if f.bidi {
		typ = frameTypeMaxStreamsBidi
	}
	b = append(b, byte(typ))
	return appendVarInt(b, uint64(f.maximumStreams))
}

func (*maxStreamsFrame) ackEliciting() bool { return true }

func decodeMaxStreamsFrame(bidi bool, b []byte) (*maxStreamsFrame, int, error) {
	max, n, err := decodeVarInt(b)
	if err != nil {
		return nil, 0, err
	}
	return &maxStreamsFrame{bidi: bidi, maximumStreams: max}, n, nil
}

// streamDataBlockedFrame tells the peer the sender is stream-flow-control
// limited (RFC 9000 section 19.13).
type streamDataBlockedFrame struct {
	streamID    StreamID
	maximumData VarInt
}

func (f *streamDataBlockedFrame) encodeLen() int {
	return 1 + VarInt(f.streamID).encodedSize() + f.maximumData.encodedSize()
}

func (f *streamDataBlockedFrame) encode(b []byte) []byte {
	b = append(b, byte(frameTypeStreamDataBlocked))
	b = appendVarInt(b, uint64(f.streamID))
	return appendVarInt(b, uint64(f.maximumData))
}

func (*streamDataBlockedFrame) ackEliciting() bool { return true }

func decodeStreamDataBlockedFrame(b []byte) (*streamDataBlockedFrame, int, error) {
	streamID, n1, err := decodeVarInt(b)
	if err != nil {
		return nil, 0, err
	}
	max, n2, err := decodeVarInt(b[n1:])
	if err != nil {
		return nil, 0, err
	}
	return &streamDataBlockedFrame{streamID: StreamID(streamID), maximumData: max}, n1 + n2, nil
}

// streamsBlockedFrame tells the peer the sender wanted to open a stream
// but is blocked by the streams limit (RFC 9000 section 19.14).
type streamsBlockedFrame struct {
	bidi           bool
	maximumStreams VarInt
}

func (f *streamsBlockedFrame) encodeLen() int {
	return 1 + f.maximumStreams.encodedSize()
}

func (f *streamsBlockedFrame) encode(b []byte) []byte {
	typ := frameTypeStreamsBlockedUni
	if f.bidi {
		typ = frameTypeStreamsBlockedBidi
	}
	b = append(b, byte(typ))
	return appendVarInt(b, uint64(f.maximumStreams))
}

func (*streamsBlockedFrame) ackEliciting() bool { return true }

func decodeStreamsBlockedFrame(bidi bool, b []byte) (*streamsBlockedFrame, int, error) {
	max, n, err := decodeVarInt(b)
	if err != nil {
		return nil, 0, err
	}
	return &streamsBlockedFrame{bidi: bidi, maximumStreams: max}, n, nil
}

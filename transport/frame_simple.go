package transport

// paddingFrame is a single PADDING frame; each byte is its own frame on
// the wire, and conn.go skips them one byte at a time on receipt.
type paddingFrame struct{}

func (paddingFrame) encodeLen() int             { return 1 }
func (paddingFrame) encode(b []byte) []byte      { return append(b, byte(frameTypePadding)) }
func (paddingFrame) ackEliciting() bool          { return false }

type pingFrame struct{}

func (pingFrame) encodeLen() int        { return 1 }
func (pingFrame) encode(b []byte) []byte { return append(b, byte(frameTypePing)) }
func (pingFrame) ackEliciting() bool     { return true }

type handshakeDoneFrame struct{}

func (handshakeDoneFrame) encodeLen() int        { return 1 }
func (handshakeDoneFrame) encode(b []byte) []byte { return append(b, byte(frameTypeHandshakeDone)) }
func (handshakeDoneFrame) ackEliciting() bool     { return true }

// newTokenFrame carries an address-validation token for the client to
// present on a future connection (RFC 9000 section 19.7).
type newTokenFrame struct {
	token []byte
}

func (f *newTokenFrame) encodeLen() int {
	return 1 + varintLen(uint64(len(f.token))) + len(f.token)
}

func (f *newTokenFrame) encode(b []byte) []byte {
	b = append(b, byte(frameTypeNewToken))
	lenBuf := make([]byte, varintLen(uint64(len(f.token))))
	putVarint(lenBuf, uint64(len(f.token)))
	b = append(b, lenBuf...)
	return append(b, f.token...)
}

func (*newTokenFrame) ackEliciting() bool { return true }

// maxDataFrame raises the connection-level flow control limit
// (RFC 9000 section 19.9).
type maxDataFrame struct {
	maximumData VarInt
}

func (f *maxDataFrame) encodeLen() int {
	return 1 + f.maximumData.encodedSize()
}

func (f *maxDataFrame) encode(b []byte) []byte {
	b = append(b, byte(frameTypeMaxData))
	buf := make([]byte, f.maximumData.encodedSize())
	putVarint(buf, uint64(f.maximumData))
	return append(b, buf...)
}

func (*maxDataFrame) ackEliciting() bool { return true }

// dataBlockedFrame tells the peer the sender is connection-flow-control
// limited (RFC 9000 section 19.12).
type dataBlockedFrame struct {
	maximumData VarInt
}

func (f *dataBlockedFrame) encodeLen() int {
	return 1 + f.maximumData.encodedSize()
}

func (f *dataBlockedFrame) encode(b []byte) []byte {
	b = append(b, byte(frameTypeDataBlocked))
	buf := make([]byte, f.maximumData.encodedSize())
	putVarint(buf, uint64(f.maximumData))
	return append(b, buf...)
}

func (*dataBlockedFrame) ackEliciting() bool { return true }

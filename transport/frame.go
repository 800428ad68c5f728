package transport

// frame is implemented by every QUIC frame type. Concrete frame types live
// in frame_simple.go, frame_ack.go, frame_stream.go, frame_stream_ctl.go,
// frame_conn_id.go, frame_crypto.go and frame_close.go; this file only
// holds the shared interface and the handful of predicates conn.go and the
// sent/recv journals need without caring which concrete frame they hold.
type frame interface {
	// encodeLen returns the number of bytes encode would write.
	encodeLen() int
	// encode appends the wire form of the frame to b and returns the result.
	encode(b []byte) []byte
	// ackEliciting reports whether receipt of this frame obligates the
	// receiver to eventually acknowledge the packet carrying it (RFC 9000
	// section 13.2).
	ackEliciting() bool
}

// frameType identifies a frame's wire type for logging and dispatch.
type frameType uint64

const (
	frameTypePadding frameType = 0x00
	frameTypePing    frameType = 0x01
	frameTypeAck     frameType = 0x02
	frameTypeAckECN  frameType = 0x03

	frameTypeResetStream  frameType = 0x04
	frameTypeStopSending  frameType = 0x05
	frameTypeCrypto       frameType = 0x06
	frameTypeNewToken     frameType = 0x07
	frameTypeStream       frameType = 0x08 // through 0x0f, low 3 bits are flags
	frameTypeStreamMax    frameType = 0x0f
	frameTypeMaxData      frameType = 0x10
	frameTypeMaxStreamData frameType = 0x11
	frameTypeMaxStreamsBidi frameType = 0x12
	frameTypeMaxStreamsUni  frameType = 0x13

	frameTypeDataBlocked        frameType = 0x14
	frameTypeStreamDataBlocked  frameType = 0x15
	frameTypeStreamsBlockedBidi frameType = 0x16
	frameTypeStreamsBlockedUni  frameType = 0x17

	frameTypeNewConnectionID    frameType = 0x18
	frameTypeRetireConnectionID frameType = 0x19
	frameTypePathChallenge      frameType = 0x1a
	frameTypePathResponse       frameType = 0x1b
	frameTypeConnectionClose    frameType = 0x1c
	frameTypeConnectionCloseApp frameType = 0x1d
	frameTypeHandshakeDone      frameType = 0x1e
)

// isStreamFrameType reports whether t falls in the STREAM frame type range
// 0x08-0x0f.
func isStreamFrameType(t frameType) bool {
	return t >= frameTypeStream && t <= frameTypeStreamMax
}

package transport

import "sync"

// sendState is the send-side stream state machine of RFC 9000 section 3.1.
type sendState uint8

const (
	sendStateReady sendState = iota
	sendStateSend
	sendStateDataSent
	sendStateDataRecvd
	sendStateResetSent
	sendStateResetRecvd
)

// sendBuffer holds one stream's outgoing data and send-side state machine.
// Data queued by the application accumulates in buf; drain slices off
// frame-sized chunks for packing, tracking what has been sent vs acked so
// a loss can rewind and re-offer data from the lost frame's offset on.
type sendBuffer struct {
	mu sync.Mutex

	state sendState

	buf        []byte
	bufOffset  VarInt // stream offset of buf[0]
	sentOffset VarInt // offset up to which data has been packed into a packet
	ackedUpTo  VarInt // offset below which all bytes are acked

	finOffset    VarInt // valid once finSet
	finSet       bool
	finSent      bool
	finAcked     bool

	resetErrorCode VarInt
}

func newSendBuffer() *sendBuffer {
	return &sendBuffer{state: sendStateReady}
}

// write appends application data; setFin marks the stream's final size.
func (s *sendBuffer) write(data []byte, fin bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, data...)
	if s.state == sendStateReady {
		s.state = sendStateSend
	}
	if fin {
		s.finSet = true
		s.finOffset = s.bufOffset + VarInt(len(s.buf))
	}
}

// pending reports how many unset bytes remain to be packed into a frame.
func (s *sendBuffer) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf) - int(s.sentOffset-s.bufOffset)
}

// drain produces a STREAM frame carrying up to maxLen bytes of the
// not-yet-sent tail, setting FIN when the stream's end has been reached
// and fully drained. Returns nil if there is nothing new to send.
func (s *sendBuffer) drain(id StreamID, maxLen int) *streamFrame {
	s.mu.Lock()
	defer s.mu.Unlock()

	unsentStart := int(s.sentOffset - s.bufOffset)
	unsent := s.buf[unsentStart:]
	fin := false
	if len(unsent) == 0 {
		if s.finSet && !s.finSent && s.sentOffset == s.finOffset {
			fin = true
		} else {
			return nil
		}
	}
	if maxLen > 0 && len(unsent) > maxLen {
		unsent = unsent[:maxLen]
	} else if s.finSet && s.sentOffset+VarInt(len(unsent)) == s.finOffset {
		fin = true
	}

	f := &streamFrame{streamID: id, offset: s.sentOffset, data: append([]byte(nil), unsent...), fin: fin}
	s.sentOffset += VarInt(len(unsent))
	if fin {
		s.finSent = true
		s.state = sendStateDataSent
	}
	return f
}

// onAcked marks [offset, offset+n) acked, compacting buf once the
// contiguous acked prefix grows, and advances the state machine to
// DataRecvd once every byte up to finOffset is acked.
func (s *sendBuffer) onAcked(offset VarInt, n int, finAcked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	end := offset + VarInt(n)
	if end > s.ackedUpTo && offset <= s.ackedUpTo {
		s.ackedUpTo = end
	}
	if finAcked {
		s.finAcked = true
	}

	drop := int(s.ackedUpTo - s.bufOffset)
	if drop > 0 && drop <= len(s.buf) {
		s.buf = s.buf[drop:]
		s.bufOffset = s.ackedUpTo
	}

	if s.finSet && s.ackedUpTo >= s.finOffset && s.finAcked {
		s.state = sendStateDataRecvd
	}
}

// onLost re-offers everything from offset onward for retransmission by
// rewinding sentOffset if offset precedes it; data already compacted out of
// buf (because it was acked) is never re-sent.
func (s *sendBuffer) onLost(offset VarInt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if offset < s.sentOffset && offset >= s.bufOffset {
		s.sentOffset = offset
		if s.state == sendStateDataSent {
			s.state = sendStateSend
		}
	}
}

// reset transitions to ResetSent, discarding any buffered data; the
// caller is responsible for emitting the RESET_STREAM frame.
func (s *sendBuffer) reset(errorCode VarInt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = sendStateResetSent
	s.resetErrorCode = errorCode
	s.buf = nil
}

func (s *sendBuffer) currentState() sendState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *sendBuffer) isFinished() bool {
	st := s.currentState()
	return st == sendStateDataRecvd || st == sendStateResetRecvd
}

package transport

import "sync"

// Stream is one QUIC stream: independent send and receive halves (for a
// bidirectional stream) or just the applicable half (for a unidirectional
// one), each with its own state machine and flow control budget.
type Stream struct {
	id StreamID

	send *sendBuffer // nil if this endpoint cannot send on id
	recv *recvBuffer // nil if this endpoint cannot receive on id

	sendFlow *flowController
	recvFlow *flowController

	mu       sync.Mutex
	priority int // higher runs first in the fairness scheduler, default 0
}

func newStream(id StreamID, canSend, canRecv bool, sendFlow, recvFlow *flowController) *Stream {
	s := &Stream{id: id, sendFlow: sendFlow, recvFlow: recvFlow}
	if canSend {
		s.send = newSendBuffer()
	}
	if canRecv {
		s.recv = newRecvBuffer()
	}
	return s
}

// ID returns the stream's identifier.
func (s *Stream) ID() StreamID { return s.id }

// Write queues data to be sent on the stream, consuming stream-level flow
// control budget as it does; it returns errFlowControl if data would
// exceed the peer-granted limit (the caller should instead emit
// STREAM_DATA_BLOCKED and wait for a MAX_STREAM_DATA).
func (s *Stream) Write(data []byte, fin bool) error {
	if s.send == nil {
		return newError(StreamStateError, "stream is not sendable")
	}
	if VarInt(len(data)) > s.sendFlow.canSend() {
		return errFlowControl
	}
	s.sendFlow.consumeSend(VarInt(len(data)))
	s.send.write(data, fin)
	return nil
}

// Read copies reassembled, in-order data into p.
func (s *Stream) Read(p []byte) (n int, done bool, err error) {
	if s.recv == nil {
		return 0, false, newError(StreamStateError, "stream is not receivable")
	}
	n, done = s.recv.read(p)
	return n, done, nil
}

// SetPriority adjusts the stream's weight in the fairness scheduler;
// higher values are served first when multiple streams have data ready.
func (s *Stream) SetPriority(p int) {
	s.mu.Lock()
	s.priority = p
	s.mu.Unlock()
}

func (s *Stream) getPriority() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.priority
}

// readyToSend reports whether this stream has queued data not yet packed
// into a frame. Flow control is not checked here: Write already consumed
// the budget for every queued byte.
func (s *Stream) readyToSend() bool {
	return s.send != nil && s.send.pending() > 0
}

func (s *Stream) isSendFinished() bool {
	return s.send == nil || s.send.isFinished()
}

func (s *Stream) isRecvFinished() bool {
	if s.recv == nil {
		return true
	}
	st := s.recv.currentState()
	return st == recvStateDataRead || st == recvStateResetRead
}

package transport

import (
	"sort"
	"sync"
)

// defaultStreamSendWindow/defaultStreamRecvWindow seed each new stream's
// flow control budget until transport parameters or explicit limits say
// otherwise.
const (
	defaultStreamSendWindow VarInt = 1 << 16
	defaultStreamRecvWindow VarInt = 1 << 16
)

// streamMap owns every stream on a connection, enforces the peer-granted
// and locally-granted stream count limits, and implements a fair
// round-robin scheduler for deciding which ready stream's data to pack
// into the next outgoing packet. The rotation is grounded on gm-quic's
// raw.rs try_read_data, which walks streams in a fixed rotation rather
// than draining one stream dry before considering the next (which would
// starve low-index streams of packet budget under a bulk transfer). Each
// scheduleNext call hands out one stream's turn; there is no per-stream
// byte budget, and the size of that stream's frame is set by the caller.
type streamMap struct {
	mu sync.Mutex

	isClient bool
	streams  map[StreamID]*Stream

	nextLocalBidi  uint64
	nextLocalUni   uint64
	nextRemoteBidi uint64
	nextRemoteUni  uint64

	maxLocalBidi  VarInt
	maxLocalUni   VarInt
	maxRemoteBidi VarInt
	maxRemoteUni  VarInt

	// schedule is the round-robin order streams become eligible in; it is
	// appended to on creation and rotated by scheduleNext.
	schedule []StreamID

	connSendFlow *flowController
	connRecvFlow *flowController
}

func newStreamMap(isClient bool, connSendFlow, connRecvFlow *flowController) *streamMap {
	return &streamMap{
		isClient:     isClient,
		streams:      make(map[StreamID]*Stream),
		connSendFlow: connSendFlow,
		connRecvFlow: connRecvFlow,
	}
}

func (m *streamMap) setLimits(maxLocalBidi, maxLocalUni, maxRemoteBidi, maxRemoteUni VarInt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxLocalBidi, m.maxLocalUni = maxLocalBidi, maxLocalUni
	m.maxRemoteBidi, m.maxRemoteUni = maxRemoteBidi, maxRemoteUni
}

// openLocal allocates the next stream ID this endpoint may open for the
// given directionality, failing with StreamLimitError if the peer's
// MAX_STREAMS has not granted room for it.
func (m *streamMap) openLocal(bidi bool) (*Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var next *uint64
	var max VarInt
	if bidi {
		next, max = &m.nextLocalBidi, m.maxLocalBidi
	} else {
		next, max = &m.nextLocalUni, m.maxLocalUni
	}
	if VarInt(*next) >= max {
		return nil, newError(StreamLimitError, "local stream limit reached")
	}

	id := streamIDSequence(*next, m.isClient, bidi)
	*next++
	return m.create(id, true, bidi)
}

// openRemote is called the first time a frame references a stream ID the
// peer opened; it validates the ID against the locally-granted limit and
// lazily creates every lower-numbered stream in the same class, per
// RFC 9000 section 2.1.
func (m *streamMap) openRemote(id StreamID) (*Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isStreamLocal(id, m.isClient) {
		return nil, newError(StreamStateError, "peer referenced a locally-initiated stream id")
	}
	bidi := isStreamBidi(id)
	idx := streamIDIndex(id)

	var next *uint64
	var max VarInt
	if bidi {
		next, max = &m.nextRemoteBidi, m.maxRemoteBidi
	} else {
		next, max = &m.nextRemoteUni, m.maxRemoteUni
	}
	if VarInt(idx) >= max {
		return nil, newError(StreamLimitError, "remote stream limit exceeded")
	}

	if existing, ok := m.streams[id]; ok {
		return existing, nil
	}
	for i := *next; i <= idx; i++ {
		streamID := streamIDSequence(i, !m.isClient, bidi)
		if _, ok := m.streams[streamID]; !ok {
			if _, err := m.create(streamID, false, bidi); err != nil {
				return nil, err
			}
		}
	}
	*next = idx + 1
	return m.streams[id], nil
}

// create must be called with m.mu held.
func (m *streamMap) create(id StreamID, local, bidi bool) (*Stream, error) {
	canSend := bidi || local
	canRecv := bidi || !local

	sendFlow := m.connSendFlow
	recvFlow := m.connRecvFlow
	if canSend {
		sendFlow = newFlowController(defaultStreamSendWindow, 0)
	}
	if canRecv {
		recvFlow = newFlowController(0, defaultStreamRecvWindow)
	}

	s := newStream(id, canSend, canRecv, sendFlow, recvFlow)
	m.streams[id] = s
	m.schedule = append(m.schedule, id)
	return s, nil
}

func (m *streamMap) get(id StreamID) (*Stream, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.streams[id]
	return s, ok
}

// scheduleNext returns, in round-robin fairness order, the next stream
// with data ready to send, rotating the schedule so repeated calls cycle
// through every ready stream rather than favoring one. Streams are
// ordered by descending priority first, then by round-robin within a
// priority tier.
func (m *streamMap) scheduleNext() (*Stream, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.schedule) == 0 {
		return nil, false
	}

	ordered := make([]StreamID, len(m.schedule))
	copy(ordered, m.schedule)
	sort.SliceStable(ordered, func(i, j int) bool {
		si, oki := m.streams[ordered[i]]
		sj, okj := m.streams[ordered[j]]
		if !oki || !okj {
			return false
		}
		return si.getPriority() > sj.getPriority()
	})

	for n := 0; n < len(ordered); n++ {
		id := ordered[n]
		s, ok := m.streams[id]
		if !ok || !s.readyToSend() {
			continue
		}
		m.rotate(id)
		return s, true
	}
	return nil, false
}

// rotate moves id to the back of the schedule so the next scheduleNext
// call starts past it, giving every other ready stream a turn first.
func (m *streamMap) rotate(id StreamID) {
	for i, sid := range m.schedule {
		if sid == id {
			m.schedule = append(m.schedule[:i], m.schedule[i+1:]...)
			m.schedule = append(m.schedule, id)
			return
		}
	}
}

// stopSending implements the STOP_SENDING -> RESET_STREAM bridge: when
// the peer asks us to stop sending on a stream we control, we answer with
// a RESET_STREAM. Following gm-quic's raw.rs, the application error code
// on that RESET_STREAM is always 0, since there is no application-level
// callback in scope here to supply the real one; this is a known,
// intentionally preserved simplification rather than an oversight.
func (m *streamMap) stopSending(id StreamID) (*resetStreamFrame, bool) {
	s, ok := m.get(id)
	if !ok || s.send == nil {
		return nil, false
	}
	s.send.reset(0)
	return &resetStreamFrame{streamID: id, errorCode: 0, finalSize: s.send.sentOffset}, true
}

func (m *streamMap) remove(id StreamID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.streams, id)
	for i, sid := range m.schedule {
		if sid == id {
			m.schedule = append(m.schedule[:i], m.schedule[i+1:]...)
			break
		}
	}
}

func (m *streamMap) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.streams)
}

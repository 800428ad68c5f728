package transport

import "sync"

// flowController tracks one flow-control budget: a peer-advertised maximum
// offset and how much has been consumed against it. The same shape serves
// both the connection-wide limit and each stream's per-stream limit.
// Grounded on the max-data/max-stream-data bookkeeping a QUIC endpoint
// keeps to decide when to emit MAX_DATA/MAX_STREAM_DATA and
// DATA_BLOCKED/STREAM_DATA_BLOCKED.
type flowController struct {
	mu sync.Mutex

	sendMax   VarInt // the limit the peer has granted us for sending
	sendUsed  VarInt // how much of sendMax we have consumed
	sendBlockedAt VarInt // sendMax value at which we last sent a *_BLOCKED frame (0 = never)

	recvMax     VarInt // the limit we have granted the peer for receiving
	recvUsed    VarInt // highest offset received so far
	windowSize  VarInt // the window size new recvMax grants are stepped by
}

func newFlowController(initialSendMax, initialRecvMax VarInt) *flowController {
	return &flowController{
		sendMax:    initialSendMax,
		recvMax:    initialRecvMax,
		windowSize: initialRecvMax,
	}
}

// canSend reports how many more bytes may be sent without exceeding
// sendMax.
func (f *flowController) canSend() VarInt {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendUsed >= f.sendMax {
		return 0
	}
	return f.sendMax - f.sendUsed
}

// consumeSend records n bytes as sent against the send budget.
func (f *flowController) consumeSend(n VarInt) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendUsed += n
}

// updateSendMax processes a MAX_DATA/MAX_STREAM_DATA frame from the peer;
// per RFC 9000 section 4.1 a lower or stale value must never shrink the
// limit.
func (f *flowController) updateSendMax(max VarInt) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if max > f.sendMax {
		f.sendMax = max
	}
}

// shouldSendBlocked reports whether a *_BLOCKED frame is owed: the sender
// is at its limit and hasn't already reported being blocked at this exact
// limit value.
func (f *flowController) shouldSendBlocked() (VarInt, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendUsed < f.sendMax || f.sendBlockedAt == f.sendMax {
		return 0, false
	}
	f.sendBlockedAt = f.sendMax
	return f.sendMax, true
}

// recordReceived checks the end offset of newly received data against
// recvMax, reporting false if it exceeds it, and raises recvUsed to it.
// conn.go calls it with each STREAM frame's end offset, whether or not the
// data is contiguous yet.
func (f *flowController) recordReceived(offset VarInt) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if offset > f.recvMax {
		return false
	}
	if offset > f.recvUsed {
		f.recvUsed = offset
	}
	return true
}

// needsWindowUpdate reports whether the highest received offset has crossed
// half of the current receive window, the point at which a new
// MAX_DATA/MAX_STREAM_DATA should be sent to keep the peer from stalling.
// Grounded on gm-quic's raw.rs need_update_window/create_recver lazy
// window-growth behavior (a feature the distilled transport spec omitted).
func (f *flowController) needsWindowUpdate() (newMax VarInt, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	threshold := f.recvMax - f.windowSize/2
	if f.recvUsed < threshold {
		return 0, false
	}
	newMax = f.recvUsed + f.windowSize
	f.recvMax = newMax
	return newMax, true
}

func (f *flowController) receiveMax() VarInt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recvMax
}

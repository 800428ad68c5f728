package transport

// EventType classifies an Event a connection surfaces to its owner after
// each Write call, mirroring the teacher's "drain the event queue after
// every ingest" pattern rather than a callback-per-event API.
type EventType uint8

const (
	EventConnAccept EventType = iota
	EventConnEstablished
	EventConnClose
	EventStreamReadable
	EventStreamWritable
	EventStreamReset
	EventStreamStop
	EventStreamComplete
)

// Event is a single connection- or stream-level notification produced
// while processing received packets. Callers drain Conn.Events() after
// each Write.
type Event struct {
	Type EventType

	StreamID  StreamID
	ErrorCode VarInt
	Reason    string
}

func newEventConnAccept() Event { return Event{Type: EventConnAccept} }
func newEventConnEstablished() Event { return Event{Type: EventConnEstablished} }

func newEventConnClose(code VarInt, reason string) Event {
	return Event{Type: EventConnClose, ErrorCode: code, Reason: reason}
}

func newStreamReadableEvent(id StreamID) Event {
	return Event{Type: EventStreamReadable, StreamID: id}
}

func newStreamResetEvent(id StreamID, code VarInt) Event {
	return Event{Type: EventStreamReset, StreamID: id, ErrorCode: code}
}

func newStreamStopEvent(id StreamID, code VarInt) Event {
	return Event{Type: EventStreamStop, StreamID: id, ErrorCode: code}
}

func newStreamCompleteEvent(id StreamID) Event {
	return Event{Type: EventStreamComplete, StreamID: id}
}

package quic

import "github.com/netglass/qcore/transport"

// Handler reacts to the events a connection produces: new streams
// becoming readable, resets, and connection establishment/close. Engine
// calls Serve once per poll with whatever events accumulated since the
// previous call, mirroring the teacher's "batch of events per Serve call"
// shape rather than a callback per event.
type Handler interface {
	Serve(c Conn, events []transport.Event)
}

// Conn is the application-facing view of a connection: stream access and
// lifecycle, with the wire-level machinery (transport.Conn) and socket
// address kept behind it.
type Conn interface {
	RemoteAddr() string
	Stream(id transport.StreamID) (*transport.Stream, bool)
	OpenStream(bidi bool) (*transport.Stream, error)
	Close(code transport.VarInt, reason string)
}

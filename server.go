package quic

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/pkg/errors"

	"github.com/netglass/qcore/transport"
)

// Server accepts inbound QUIC connections on a listening UDP socket.
// Grounded on the teacher's Server (ListenAndServe/SetHandler/Close),
// rebuilt on top of engine; new-connection acceptance is wired through
// engine.accept rather than a dedicated listener goroutine since the same
// UDP socket serves every established connection too.
type Server struct {
	*engine
}

// NewServer builds a Server from config. config.TLS must carry at least
// one certificate.
func NewServer(config *Config) *Server {
	s := &Server{engine: newEngine(config)}
	s.accept = s.acceptConn
	return s
}

// SetHandler registers the callback invoked with each connection's
// accumulated events.
func (s *Server) SetHandler(h Handler) { s.setHandler(h) }

// ListenAndServe opens the UDP socket and begins accepting connections.
func (s *Server) ListenAndServe(addr string) error {
	return s.listen(addr)
}

// Close shuts down the server's socket and every connection on it.
func (s *Server) Close() error {
	s.mu.Lock()
	conns := make([]*remoteConn, 0, len(s.conns))
	for _, rc := range s.conns {
		conns = append(conns, rc)
	}
	s.mu.Unlock()
	for _, rc := range conns {
		rc.conn.Close(transport.VarInt(transport.NoError), "")
	}
	return s.close()
}

// acceptConn builds a fresh remoteConn for a client's first Initial
// packet. It does not itself parse the packet's header (transport.Accept
// and the subsequent conn.Write do that); it only needs a source
// connection ID of its own before a transport.Conn can exist at all.
func (s *Server) acceptConn(data []byte, addr net.Addr) (*remoteConn, error) {
	scid, err := randomConnID(8)
	if err != nil {
		return nil, err
	}

	params := s.config.params()
	params.InitialSourceConnectionID = scid

	// The client's scid becomes our dcid for the rest of the handshake;
	// transport.Accept only needs a placeholder here to derive Initial
	// keys symmetrically with the client's choice, which conn.Write's
	// header parsing on the first packet will reconcile.
	tconn, err := transport.Accept(scid, scid, params)
	if err != nil {
		return nil, errors.Wrap(err, "quic: accept")
	}

	tlsConfig := s.config.TLS
	if tlsConfig == nil {
		return nil, errors.New("quic: server requires TLS config")
	}
	qconn := tls.QUICServer(&tls.QUICConfig{TLSConfig: tlsConfig})
	qconn.SetTransportParameters(transport.EncodeParameters(params))

	rc := &remoteConn{
		addr: addr,
		scid: scid,
		conn: tconn,
		tls:  qconn,
		log:  s.log,
	}
	attachLogger(rc, s.metrics)
	if err := qconn.Start(context.Background()); err != nil {
		return nil, errors.Wrap(err, "quic: start handshake")
	}
	return rc, nil
}

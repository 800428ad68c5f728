package quic

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/netglass/qcore/transport"
)

// Client dials outbound QUIC connections. Grounded on the teacher's
// Client (NewClient/SetHandler/ListenAndServe/Connect/Close), rebuilt on
// top of engine and crypto/tls's QUIC handshake driver.
type Client struct {
	*engine
}

// NewClient builds a Client from config. TLS.ServerName should be set by
// the caller per destination, the same way the teacher's cmd/quince
// client derives it from the dial address.
func NewClient(config *Config) *Client {
	return &Client{engine: newEngine(config)}
}

// SetHandler registers the callback invoked with each connection's
// accumulated events.
func (c *Client) SetHandler(h Handler) { c.setHandler(h) }

// ListenAndServe opens the local UDP socket Connect will dial from.
func (c *Client) ListenAndServe(localAddr string) error {
	return c.listen(localAddr)
}

// Close shuts down the client's socket and every connection on it.
func (c *Client) Close() error {
	c.mu.Lock()
	conns := make([]*remoteConn, 0, len(c.conns))
	for _, rc := range c.conns {
		conns = append(conns, rc)
	}
	c.mu.Unlock()
	for _, rc := range conns {
		rc.conn.Close(transport.VarInt(transport.NoError), "")
	}
	return c.close()
}

// Connect dials addr, starting the QUIC handshake. It returns once the
// Initial packet has been sent; establishment completes asynchronously
// and is reported to the Handler as an EventConnEstablished event.
func (c *Client) Connect(addr string) error {
	remote, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return errors.Wrap(err, "quic: resolve")
	}

	dcid, err := randomConnID(8)
	if err != nil {
		return err
	}
	scid, err := randomConnID(8)
	if err != nil {
		return err
	}

	params := c.config.params()
	params.InitialSourceConnectionID = scid

	tconn, err := transport.Connect(dcid, scid, params)
	if err != nil {
		return err
	}

	tlsConfig := c.config.TLS
	if tlsConfig == nil {
		tlsConfig = &tls.Config{}
	}
	qconn := tls.QUICClient(&tls.QUICConfig{TLSConfig: tlsConfig})
	qconn.SetTransportParameters(transport.EncodeParameters(params))

	rc := &remoteConn{
		addr: remote,
		scid: scid,
		dcid: dcid,
		conn: tconn,
		tls:  qconn,
		log:  c.log,
	}
	attachLogger(rc, c.metrics)
	c.register(rc)

	if err := qconn.Start(context.Background()); err != nil {
		return errors.Wrap(err, "quic: start handshake")
	}
	if err := rc.driveHandshake(); err != nil {
		return err
	}
	c.pump(rc, time.Now())
	return nil
}

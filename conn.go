package quic

import (
	"crypto/tls"
	"net"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/netglass/qcore/transport"
)

// remoteConn is one UDP peer's connection: the wire-level transport.Conn,
// the crypto/tls QUIC handshake driver feeding it keys and handshake
// bytes, and the socket address Engine's read loop demultiplexes
// incoming datagrams by. Grounded on the teacher's remoteConn (addr +
// scid + conn fields, same role), extended with the tls field the
// teacher's truncated retrieval didn't carry.
type remoteConn struct {
	addr net.Addr
	scid []byte
	dcid []byte

	conn *transport.Conn
	tls  *tls.QUICConn

	pending [3]*pendingSecrets // indexed by transport.Epoch

	log *zap.Logger
}

// quicEpochFromLevel maps crypto/tls's QUIC encryption levels onto this
// core's packet-number-space epochs. QUICEncryptionLevelEarly (0-RTT) has
// no corresponding epoch: 0-RTT is a declared non-goal, so early data
// events are logged and discarded rather than mapped.
func quicEpochFromLevel(level tls.QUICEncryptionLevel) (transport.Epoch, bool) {
	switch level {
	case tls.QUICEncryptionLevelInitial:
		return transport.EpochInitial, true
	case tls.QUICEncryptionLevelHandshake:
		return transport.EpochHandshake, true
	case tls.QUICEncryptionLevelApplication:
		return transport.EpochOneRTT, true
	default:
		return 0, false
	}
}

// driveHandshake pumps crypto/tls's QUIC event loop: feeds it any newly
// reassembled CRYPTO bytes, then drains every event it produces in
// response (new keys, more outgoing handshake data, completion) until it
// reports QUICNoEvent. The TLS record exchange and key schedule
// themselves are entirely crypto/tls's responsibility, per spec's
// "external collaborator" boundary; this method is the seam.
func (rc *remoteConn) driveHandshake() error {
	for _, epoch := range []transport.Epoch{transport.EpochInitial, transport.EpochHandshake, transport.EpochOneRTT} {
		if data := rc.conn.ReadCrypto(epoch); len(data) > 0 {
			level := quicLevelFromEpoch(epoch)
			if err := rc.tls.HandleData(level, data); err != nil {
				return errors.Wrap(err, "quic: tls handshake data")
			}
		}
	}

	for {
		ev := rc.tls.NextEvent()
		switch ev.Kind {
		case tls.QUICNoEvent:
			return nil
		case tls.QUICSetReadSecret:
			epoch, ok := quicEpochFromLevel(ev.Level)
			if !ok {
				continue
			}
			if err := rc.installReadSecret(epoch, ev.Data); err != nil {
				return err
			}
		case tls.QUICSetWriteSecret:
			epoch, ok := quicEpochFromLevel(ev.Level)
			if !ok {
				continue
			}
			if err := rc.installWriteSecret(epoch, ev.Data); err != nil {
				return err
			}
		case tls.QUICWriteData:
			epoch, ok := quicEpochFromLevel(ev.Level)
			if !ok {
				continue
			}
			rc.conn.WriteCrypto(epoch, ev.Data)
		case tls.QUICHandshakeDone:
			rc.conn.OnHandshakeComplete()
		case tls.QUICTransportParameters:
			params, err := transport.DecodeParameters(ev.Data)
			if err != nil {
				return errors.Wrap(err, "quic: peer transport parameters")
			}
			if err := rc.conn.ApplyPeerParameters(params); err != nil {
				return err
			}
		}
	}
}

// pendingSecrets buffers one direction's secret until both read and
// write secrets for an epoch have arrived, since transport.Conn.InstallKeys
// wants both at once. crypto/tls delivers them as two separate events, not
// necessarily back to back.
type pendingSecrets struct {
	read, write []byte
}

func (rc *remoteConn) installReadSecret(epoch transport.Epoch, secret []byte) error {
	p := rc.secretsFor(epoch)
	p.read = secret
	return rc.maybeInstall(epoch, p)
}

func (rc *remoteConn) installWriteSecret(epoch transport.Epoch, secret []byte) error {
	p := rc.secretsFor(epoch)
	p.write = secret
	return rc.maybeInstall(epoch, p)
}

func (rc *remoteConn) secretsFor(epoch transport.Epoch) *pendingSecrets {
	if rc.pending[int(epoch)] == nil {
		rc.pending[int(epoch)] = &pendingSecrets{}
	}
	return rc.pending[int(epoch)]
}

func (rc *remoteConn) maybeInstall(epoch transport.Epoch, p *pendingSecrets) error {
	if p.read == nil || p.write == nil {
		return nil
	}
	// transport.Conn.InstallKeys wants (localSecret, remoteSecret): the
	// secret this side writes with, and the one it reads with.
	err := rc.conn.InstallKeys(epoch, p.write, p.read)
	rc.pending[int(epoch)] = nil
	return err
}

func quicLevelFromEpoch(epoch transport.Epoch) tls.QUICEncryptionLevel {
	switch epoch {
	case transport.EpochInitial:
		return tls.QUICEncryptionLevelInitial
	case transport.EpochHandshake:
		return tls.QUICEncryptionLevelHandshake
	default:
		return tls.QUICEncryptionLevelApplication
	}
}

// RemoteAddr satisfies Conn.
func (rc *remoteConn) RemoteAddr() string { return rc.addr.String() }

// Stream satisfies Conn.
func (rc *remoteConn) Stream(id transport.StreamID) (*transport.Stream, bool) {
	return rc.conn.Stream(id)
}

// OpenStream satisfies Conn.
func (rc *remoteConn) OpenStream(bidi bool) (*transport.Stream, error) {
	return rc.conn.OpenStream(bidi)
}

// Close satisfies Conn.
func (rc *remoteConn) Close(code transport.VarInt, reason string) {
	rc.conn.Close(code, reason)
}

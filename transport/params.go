package transport

import (
	"time"

	"github.com/pkg/errors"
)

// Parameters holds the subset of QUIC transport parameters (RFC 9000
// section 18.2) this core consults; parameters this core treats as
// out-of-scope (e.g. preferred_address, disable_active_migration) are
// parsed opaquely and never interpreted in validatePeerTransportParams.
type Parameters struct {
	MaxIdleTimeout time.Duration

	MaxUDPPayloadSize VarInt

	InitialMaxData                 VarInt
	InitialMaxStreamDataBidiLocal   VarInt
	InitialMaxStreamDataBidiRemote  VarInt
	InitialMaxStreamDataUni         VarInt
	InitialMaxStreamsBidi           VarInt
	InitialMaxStreamsUni            VarInt

	AckDelayExponent uint8
	MaxAckDelay      time.Duration

	DisableActiveMigration bool

	ActiveConnectionIDLimit VarInt

	InitialSourceConnectionID []byte
	OriginalDestinationConnectionID []byte
	RetrySourceConnectionID []byte
}

// defaultParameters returns the RFC 9000 section 18.2 default values for
// parameters that have one, before any peer value has been applied.
func defaultParameters() Parameters {
	return Parameters{
		MaxIdleTimeout:          0, // disabled
		MaxUDPPayloadSize:       65527,
		AckDelayExponent:        3,
		MaxAckDelay:             25 * time.Millisecond,
		ActiveConnectionIDLimit: 2,
	}
}

// transport parameter IDs this core reads/writes, per RFC 9000
// section 18.2.
const (
	paramOriginalDestinationConnectionID VarInt = 0x00
	paramMaxIdleTimeout                  VarInt = 0x01
	paramMaxUDPPayloadSize               VarInt = 0x03
	paramInitialMaxData                  VarInt = 0x04
	paramInitialMaxStreamDataBidiLocal   VarInt = 0x05
	paramInitialMaxStreamDataBidiRemote  VarInt = 0x06
	paramInitialMaxStreamDataUni         VarInt = 0x07
	paramInitialMaxStreamsBidi           VarInt = 0x08
	paramInitialMaxStreamsUni            VarInt = 0x09
	paramAckDelayExponent                VarInt = 0x0a
	paramMaxAckDelay                     VarInt = 0x0b
	paramDisableActiveMigration          VarInt = 0x0c
	paramActiveConnectionIDLimit         VarInt = 0x0e
	paramInitialSourceConnectionID       VarInt = 0x0f
	paramRetrySourceConnectionID         VarInt = 0x10
)

// EncodeParameters serializes p into the RFC 9000 section 18.2 transport
// parameter extension wire format, for the engine to hand to its TLS key
// schedule collaborator as the quic_transport_parameters extension body.
func EncodeParameters(p Parameters) []byte {
	return encodeParameters(&p)
}

// DecodeParameters parses a peer's quic_transport_parameters extension
// body, as delivered by the engine's TLS key schedule collaborator.
func DecodeParameters(b []byte) (Parameters, error) {
	return decodeParameters(b)
}

// encodeParameters serializes p into the transport parameter extension
// wire format: a flat sequence of (id, length, value) tuples.
func encodeParameters(p *Parameters) []byte {
	var out []byte
	appendVarIntParam := func(id, v VarInt) {
		if v == 0 && id != paramInitialMaxData {
			return
		}
		out = appendVarInt(out, uint64(id))
		out = appendVarInt(out, uint64(v.encodedSize()))
		out = appendVarInt(out, uint64(v))
	}
	appendBytesParam := func(id VarInt, v []byte) {
		if len(v) == 0 {
			return
		}
		out = appendVarInt(out, uint64(id))
		out = appendVarInt(out, uint64(len(v)))
		out = append(out, v...)
	}

	if p.MaxIdleTimeout > 0 {
		appendVarIntParam(paramMaxIdleTimeout, VarInt(p.MaxIdleTimeout/time.Millisecond))
	}
	appendVarIntParam(paramMaxUDPPayloadSize, p.MaxUDPPayloadSize)
	appendVarIntParam(paramInitialMaxData, p.InitialMaxData)
	appendVarIntParam(paramInitialMaxStreamDataBidiLocal, p.InitialMaxStreamDataBidiLocal)
	appendVarIntParam(paramInitialMaxStreamDataBidiRemote, p.InitialMaxStreamDataBidiRemote)
	appendVarIntParam(paramInitialMaxStreamDataUni, p.InitialMaxStreamDataUni)
	appendVarIntParam(paramInitialMaxStreamsBidi, p.InitialMaxStreamsBidi)
	appendVarIntParam(paramInitialMaxStreamsUni, p.InitialMaxStreamsUni)
	appendVarIntParam(paramAckDelayExponent, VarInt(p.AckDelayExponent))
	appendVarIntParam(paramMaxAckDelay, VarInt(p.MaxAckDelay/time.Millisecond))
	appendVarIntParam(paramActiveConnectionIDLimit, p.ActiveConnectionIDLimit)
	appendBytesParam(paramInitialSourceConnectionID, p.InitialSourceConnectionID)
	appendBytesParam(paramOriginalDestinationConnectionID, p.OriginalDestinationConnectionID)
	appendBytesParam(paramRetrySourceConnectionID, p.RetrySourceConnectionID)

	return out
}

// decodeParameters parses the transport parameter extension wire format,
// starting from RFC 9000 section 18.2's defaults and overwriting whatever
// the peer sent.
func decodeParameters(b []byte) (Parameters, error) {
	p := defaultParameters()

	pos := 0
	for pos < len(b) {
		id, n, err := decodeVarInt(b[pos:])
		if err != nil {
			return p, errors.Wrap(err, "params: id")
		}
		pos += n
		length, n, err := decodeVarInt(b[pos:])
		if err != nil {
			return p, errors.Wrap(err, "params: length")
		}
		pos += n
		if pos+int(length) > len(b) {
			return p, errTruncated
		}
		val := b[pos : pos+int(length)]
		pos += int(length)

		switch id {
		case paramMaxIdleTimeout:
			v, _, _ := decodeVarInt(val)
			p.MaxIdleTimeout = time.Duration(v) * time.Millisecond
		case paramMaxUDPPayloadSize:
			v, _, _ := decodeVarInt(val)
			p.MaxUDPPayloadSize = v
		case paramInitialMaxData:
			v, _, _ := decodeVarInt(val)
			p.InitialMaxData = v
		case paramInitialMaxStreamDataBidiLocal:
			v, _, _ := decodeVarInt(val)
			p.InitialMaxStreamDataBidiLocal = v
		case paramInitialMaxStreamDataBidiRemote:
			v, _, _ := decodeVarInt(val)
			p.InitialMaxStreamDataBidiRemote = v
		case paramInitialMaxStreamDataUni:
			v, _, _ := decodeVarInt(val)
			p.InitialMaxStreamDataUni = v
		case paramInitialMaxStreamsBidi:
			v, _, _ := decodeVarInt(val)
			p.InitialMaxStreamsBidi = v
		case paramInitialMaxStreamsUni:
			v, _, _ := decodeVarInt(val)
			p.InitialMaxStreamsUni = v
		case paramAckDelayExponent:
			v, _, _ := decodeVarInt(val)
			p.AckDelayExponent = uint8(v)
		case paramMaxAckDelay:
			v, _, _ := decodeVarInt(val)
			p.MaxAckDelay = time.Duration(v) * time.Millisecond
		case paramDisableActiveMigration:
			p.DisableActiveMigration = true
		case paramActiveConnectionIDLimit:
			v, _, _ := decodeVarInt(val)
			p.ActiveConnectionIDLimit = v
		case paramInitialSourceConnectionID:
			p.InitialSourceConnectionID = val
		case paramOriginalDestinationConnectionID:
			p.OriginalDestinationConnectionID = val
		case paramRetrySourceConnectionID:
			p.RetrySourceConnectionID = val
		}
	}
	return p, nil
}

// validatePeerTransportParams checks the subset of RFC 9000 section 7.3's
// consistency rules this core enforces: the peer's active_connection_id_limit
// must be at least 2, and ack_delay_exponent must fit within the protocol's
// allowed range.
func validatePeerTransportParams(p *Parameters) error {
	if p.ActiveConnectionIDLimit < 2 {
		return newError(TransportParameterError, "active_connection_id_limit below minimum of 2")
	}
	if p.AckDelayExponent > 20 {
		return newError(TransportParameterError, "ack_delay_exponent exceeds maximum of 20")
	}
	return nil
}

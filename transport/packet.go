package transport

import (
	"github.com/pkg/errors"
)

// packetType identifies the long-header packet types plus the short
// (1-RTT) header, per RFC 9000 section 17.
type packetType uint8

const (
	packetTypeInitial packetType = iota
	packetTypeZeroRTT
	packetTypeHandshake
	packetTypeRetry
	packetTypeVersionNegotiation
	packetTypeShort
)

func (t packetType) String() string {
	switch t {
	case packetTypeInitial:
		return "initial"
	case packetTypeZeroRTT:
		return "0-rtt"
	case packetTypeHandshake:
		return "handshake"
	case packetTypeRetry:
		return "retry"
	case packetTypeVersionNegotiation:
		return "version_negotiation"
	case packetTypeShort:
		return "short"
	default:
		return "unknown"
	}
}

// longHeaderTypeBits maps a long-header packetType to the 2-bit type field
// of RFC 9000 section 17.2's first byte.
func longHeaderTypeBits(t packetType) byte {
	switch t {
	case packetTypeInitial:
		return 0x00
	case packetTypeZeroRTT:
		return 0x01
	case packetTypeHandshake:
		return 0x02
	case packetTypeRetry:
		return 0x03
	default:
		panic("not a long header type")
	}
}

const (
	longHeaderForm  = 0x80
	fixedBit        = 0x40
	shortHeaderSpin = 0x20
	keyPhaseBit     = 0x04
)

// MaxCIDLength is the largest connection ID QUIC version 1 allows
// (RFC 9000 section 17.2).
const MaxCIDLength = 20

// header holds the fields common to both long and short packet headers
// after parsing, before the payload has been decrypted.
type header struct {
	typ       packetType
	version   uint32
	dcid      []byte
	scid      []byte // long header only
	token     []byte // Initial only
	length    int    // long header only: remaining length (PN + payload)
	pnOffset  int    // byte offset where the (still protected) packet number begins
	pnLen     int    // decoded only after header protection is removed; 0 until then
}

// isLongHeader reports whether b's first byte indicates a long header.
func isLongHeader(b []byte) bool {
	return len(b) > 0 && b[0]&longHeaderForm != 0
}

// encodeLongHeader builds a long-header packet's unprotected prefix, up to
// and including the Length field (pnLen is only recorded in the first
// byte; the packet number bytes themselves are left to the caller), and
// returns it with the offset at which the packet number field begins.
func encodeLongHeader(typ packetType, version uint32, dcid, scid, token []byte, length int, pnLen int) (hdr []byte, pnOffset int) {
	hdr = append(hdr, longHeaderForm|fixedBit|longHeaderTypeBits(typ)<<4|byte(pnLen-1))
	hdr = appendUint32(hdr, version)
	hdr = append(hdr, byte(len(dcid)))
	hdr = append(hdr, dcid...)
	hdr = append(hdr, byte(len(scid)))
	hdr = append(hdr, scid...)

	if typ == packetTypeInitial {
		tokLenBuf := make([]byte, varintLen(uint64(len(token))))
		putVarint(tokLenBuf, uint64(len(token)))
		hdr = append(hdr, tokLenBuf...)
		hdr = append(hdr, token...)
	}

	lenBuf := make([]byte, varintLen(uint64(length)))
	putVarint(lenBuf, uint64(length))
	hdr = append(hdr, lenBuf...)

	pnOffset = len(hdr)
	return hdr, pnOffset
}

// decodeLongHeader parses a long header from the front of b, stopping
// before the (still-protected) packet number field. It does not validate
// that enough bytes remain for the packet number itself, since its width
// is only known after header protection is removed.
func decodeLongHeader(b []byte) (h header, consumed int, err error) {
	if len(b) < 6 {
		return header{}, 0, errors.New("packet: short header buffer")
	}
	h.typ = longHeaderTypeFromBits((b[0] >> 4) & 0x3)

	pos := 1
	h.version = uint32(b[pos])<<24 | uint32(b[pos+1])<<16 | uint32(b[pos+2])<<8 | uint32(b[pos+3])
	pos += 4

	if h.version == 0 {
		h.typ = packetTypeVersionNegotiation
	}

	dcidLen := int(b[pos])
	pos++
	if dcidLen > MaxCIDLength || pos+dcidLen > len(b) {
		return header{}, 0, errors.New("packet: invalid destination connection id length")
	}
	h.dcid = b[pos : pos+dcidLen]
	pos += dcidLen

	if pos >= len(b) {
		return header{}, 0, errors.New("packet: truncated before source connection id")
	}
	scidLen := int(b[pos])
	pos++
	if scidLen > MaxCIDLength || pos+scidLen > len(b) {
		return header{}, 0, errors.New("packet: invalid source connection id length")
	}
	h.scid = b[pos : pos+scidLen]
	pos += scidLen

	if h.typ == packetTypeVersionNegotiation {
		return h, pos, nil
	}

	if h.typ == packetTypeInitial {
		tokLen, n, err := decodeVarInt(b[pos:])
		if err != nil {
			return header{}, 0, errors.Wrap(err, "packet: token length")
		}
		pos += n
		if pos+int(tokLen) > len(b) {
			return header{}, 0, errors.New("packet: truncated token")
		}
		h.token = b[pos : pos+int(tokLen)]
		pos += int(tokLen)
	}

	length, n, err := decodeVarInt(b[pos:])
	if err != nil {
		return header{}, 0, errors.Wrap(err, "packet: length")
	}
	pos += n
	h.length = int(length)
	h.pnOffset = pos

	return h, pos, nil
}

func longHeaderTypeFromBits(bits byte) packetType {
	switch bits {
	case 0x00:
		return packetTypeInitial
	case 0x01:
		return packetTypeZeroRTT
	case 0x02:
		return packetTypeHandshake
	case 0x03:
		return packetTypeRetry
	default:
		return packetTypeInitial
	}
}

// encodeShortHeader writes a 1-RTT packet's unprotected prefix: the first
// byte (spin bit and key phase left to the caller via spinBit/keyPhase) and
// the destination connection ID, with no length field (RFC 9000 section
// 17.3.1 — short-header packets run to the end of the datagram).
func encodeShortHeader(dcid []byte, pnLen int, spinBit, keyPhase bool) (hdr []byte, pnOffset int) {
	first := fixedBit | byte(pnLen-1)
	if spinBit {
		first |= shortHeaderSpin
	}
	if keyPhase {
		first |= keyPhaseBit
	}
	hdr = append(hdr, first)
	hdr = append(hdr, dcid...)
	return hdr, len(hdr)
}

func appendUint32(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// applyHeaderProtection XORs the header-protection mask into the first
// byte and the packet number field of a packet already assembled in buf,
// per RFC 9001 section 5.4.1. sampleOffset is the offset (pnOffset+4) at
// which the 16-byte sample is taken.
func applyHeaderProtection(hp sealer, buf []byte, pnOffset, pnLen int, isLongHeader bool) error {
	sampleOffset := pnOffset + 4
	if sampleOffset+16 > len(buf) {
		return errors.New("packet: buffer too short for header protection sample")
	}
	mask, err := hp.headerProtectionMask(buf[sampleOffset : sampleOffset+16])
	if err != nil {
		return err
	}

	if isLongHeader {
		buf[0] ^= mask[0] & 0x0f
	} else {
		buf[0] ^= mask[0] & 0x1f
	}
	for i := 0; i < pnLen; i++ {
		buf[pnOffset+i] ^= mask[1+i]
	}
	return nil
}

// removeHeaderProtection reverses applyHeaderProtection given the raw
// (still-protected) packet bytes, returning the decoded packet number
// length so the caller can then parse the truncated packet number.
func removeHeaderProtection(hp opener, buf []byte, pnOffset int, isLongHeader bool) (pnLen int, err error) {
	sampleOffset := pnOffset + 4
	if sampleOffset+16 > len(buf) {
		return 0, errors.New("packet: buffer too short for header protection sample")
	}
	mask, err := hp.headerProtectionMask(buf[sampleOffset : sampleOffset+16])
	if err != nil {
		return 0, err
	}

	if isLongHeader {
		buf[0] ^= mask[0] & 0x0f
	} else {
		buf[0] ^= mask[0] & 0x1f
	}
	pnLen = int(buf[0]&0x03) + 1
	for i := 0; i < pnLen; i++ {
		buf[pnOffset+i] ^= mask[1+i]
	}
	return pnLen, nil
}

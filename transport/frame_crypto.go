package transport

// cryptoFrame carries a contiguous chunk of TLS handshake data in a
// reliable, ordered stream independent of the application stream space
// (RFC 9000 section 19.6). crypto_stream.go reassembles these per epoch.
type cryptoFrame struct {
	offset VarInt
	data   []byte
}

func (f *cryptoFrame) encodeLen() int {
	return 1 + f.offset.encodedSize() + VarInt(len(f.data)).encodedSize() + len(f.data)
}

func (f *cryptoFrame) encode(b []byte) []byte {
	b = append(b, byte(frameTypeCrypto))
	b = appendVarInt(b, uint64(f.offset))
	b = appendVarInt(b, uint64(len(f.data)))
	return append(b, f.data...)
}

func (*cryptoFrame) ackEliciting() bool { return true }

func decodeCryptoFrame(b []byte) (*cryptoFrame, int, error) {
	offset, n1, err := decodeVarInt(b)
	if err != nil {
		return nil, 0, err
	}
	length, n2, err := decodeVarInt(b[n1:])
	if err != nil {
		return nil, 0, err
	}
	pos := n1 + n2
	if pos+int(length) > len(b) {
		return nil, 0, errTruncated
	}
	return &cryptoFrame{offset: offset, data: b[pos : pos+int(length)]}, pos + int(length), nil
}

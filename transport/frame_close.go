package transport

// connectionCloseFrame signals that the sender is closing the connection
// (RFC 9000 section 19.19). isApplication distinguishes the
// application-level variant (0x1d, error codes are application-defined)
// from the transport-level one (0x1c, error codes are the shared
// transport error space and triggeringFrameType is meaningful).
type connectionCloseFrame struct {
	isApplication      bool
	errorCode          VarInt
	triggeringFrameType VarInt
	reason             string
}

func (f *connectionCloseFrame) encodeLen() int {
	n := 1 + f.errorCode.encodedSize()
	if !f.isApplication {
		n += f.triggeringFrameType.encodedSize()
	}
	n += VarInt(len(f.reason)).encodedSize() + len(f.reason)
	return n
}

func (f *connectionCloseFrame) encode(b []byte) []byte {
	typ := frameTypeConnectionClose
	if f.isApplication {
		typ = frameTypeConnectionCloseApp
	}
	b = append(b, byte(typ))
	b = appendVarInt(b, uint64(f.errorCode))
	if !f.isApplication {
		b = appendVarInt(b, uint64(f.triggeringFrameType))
	}
	b = appendVarInt(b, uint64(len(f.reason)))
	return append(b, f.reason...)
}

func (*connectionCloseFrame) ackEliciting() bool { return false }

func decodeConnectionCloseFrame(isApplication bool, b []byte) (*connectionCloseFrame, int, error) {
	f := &connectionCloseFrame{isApplication: isApplication}

	errorCode, n, err := decodeVarInt(b)
	if err != nil {
		return nil, 0, err
	}
	f.errorCode = errorCode
	pos := n

	if !isApplication {
		triggering, n, err := decodeVarInt(b[pos:])
		if err != nil {
			return nil, 0, err
		}
		f.triggeringFrameType = triggering
		pos += n
	}

	reasonLen, n, err := decodeVarInt(b[pos:])
	if err != nil {
		return nil, 0, err
	}
	pos += n
	if pos+int(reasonLen) > len(b) {
		return nil, 0, errTruncated
	}
	f.reason = string(b[pos : pos+int(reasonLen)])
	pos += int(reasonLen)

	return f, pos, nil
}

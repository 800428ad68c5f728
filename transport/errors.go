package transport

import "github.com/pkg/errors"

// TransportErrorCode is one of the transport error codes defined in
// RFC 9000 section 20.1, carried in CONNECTION_CLOSE frames and used
// locally to decide how to react to a protocol violation.
type TransportErrorCode VarInt

const (
	NoError                  TransportErrorCode = 0x00
	InternalError            TransportErrorCode = 0x01
	ConnectionRefused        TransportErrorCode = 0x02
	FlowControlError         TransportErrorCode = 0x03
	StreamLimitError         TransportErrorCode = 0x04
	StreamStateError         TransportErrorCode = 0x05
	FinalSizeError           TransportErrorCode = 0x06
	FrameEncodingError       TransportErrorCode = 0x07
	TransportParameterError  TransportErrorCode = 0x08
	ConnectionIDLimitError   TransportErrorCode = 0x09
	ProtocolViolation        TransportErrorCode = 0x0a
	InvalidToken             TransportErrorCode = 0x0b
	ApplicationError         TransportErrorCode = 0x0c
	CryptoBufferExceeded     TransportErrorCode = 0x0d
	KeyUpdateError           TransportErrorCode = 0x0e
	AEADLimitReached         TransportErrorCode = 0x0f
	NoViablePath             TransportErrorCode = 0x10
)

func (c TransportErrorCode) String() string {
	switch c {
	case NoError:
		return "NO_ERROR"
	case InternalError:
		return "INTERNAL_ERROR"
	case ConnectionRefused:
		return "CONNECTION_REFUSED"
	case FlowControlError:
		return "FLOW_CONTROL_ERROR"
	case StreamLimitError:
		return "STREAM_LIMIT_ERROR"
	case StreamStateError:
		return "STREAM_STATE_ERROR"
	case FinalSizeError:
		return "FINAL_SIZE_ERROR"
	case FrameEncodingError:
		return "FRAME_ENCODING_ERROR"
	case TransportParameterError:
		return "TRANSPORT_PARAMETER_ERROR"
	case ConnectionIDLimitError:
		return "CONNECTION_ID_LIMIT_ERROR"
	case ProtocolViolation:
		return "PROTOCOL_VIOLATION"
	case InvalidToken:
		return "INVALID_TOKEN"
	case ApplicationError:
		return "APPLICATION_ERROR"
	case CryptoBufferExceeded:
		return "CRYPTO_BUFFER_EXCEEDED"
	case KeyUpdateError:
		return "KEY_UPDATE_ERROR"
	case AEADLimitReached:
		return "AEAD_LIMIT_REACHED"
	case NoViablePath:
		return "NO_VIABLE_PATH"
	default:
		return "UNKNOWN_ERROR"
	}
}

// connError pairs a transport error code with a human-readable reason, the
// shape a connection-level failure takes internally before being folded
// into an outgoing CONNECTION_CLOSE frame.
type connError struct {
	code   TransportErrorCode
	reason string
}

func (e *connError) Error() string {
	if e.reason == "" {
		return e.code.String()
	}
	return e.code.String() + ": " + e.reason
}

func newError(code TransportErrorCode, reason string) error {
	return &connError{code: code, reason: reason}
}

// Sentinel errors for conditions internal packages need to distinguish by
// identity rather than by transport error code.
var (
	errFinalSizeMismatch = newError(FinalSizeError, "final size mismatch")
	errFlowControl       = newError(FlowControlError, "flow control limit exceeded")
	errInvalidToken      = newError(InvalidToken, "invalid retry/address-validation token")
	errShortBuffer       = errors.New("transport: buffer too short")
)

// errorCodeString renders a raw application or transport error code for
// logging, without assuming which space it belongs to.
func errorCodeString(code VarInt) string {
	return TransportErrorCode(code).String()
}

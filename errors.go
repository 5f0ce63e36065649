package wsgate

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHandshake is wrapped by every opening-handshake validation
	// failure on either side.
	ErrInvalidHandshake = errors.New("handshake is invalid")

	// ErrConnectionClosed is returned by Send and Receive once the
	// connection has been torn down.
	ErrConnectionClosed = errors.New("connection is closed")
)

// InvalidFrame reports a protocol violation in a received frame. CloseCode is
// the status code sent to the peer before the connection is dropped.
type InvalidFrame struct {
	Reason    string
	CloseCode StatusCode
}

func (e *InvalidFrame) Error() string {
	return "invalid frame: " + e.Reason
}

func errOpcode(op byte) *InvalidFrame {
	return &InvalidFrame{
		Reason:    fmt.Sprintf("unknown opcode 0x%X", op),
		CloseCode: StatusProtocolError,
	}
}

func errCloseCode(code uint16) *InvalidFrame {
	return &InvalidFrame{
		Reason:    fmt.Sprintf("invalid close status code %d", code),
		CloseCode: StatusProtocolError,
	}
}

func errInconsistent(reason string) *InvalidFrame {
	return &InvalidFrame{Reason: reason, CloseCode: StatusProtocolError}
}

func errTooBig(n uint64) *InvalidFrame {
	return &InvalidFrame{
		Reason:    fmt.Sprintf("payload of %d bytes exceeds limit", n),
		CloseCode: StatusMessageTooBig,
	}
}

func errBadUTF8() *InvalidFrame {
	return &InvalidFrame{
		Reason:    "text payload is not valid UTF-8",
		CloseCode: StatusInvalidPayload,
	}
}

package wsgate

import (
	"bufio"
	"crypto/rand"
	"encoding/binary"
	"io"
	"unicode/utf8"
)

// Size limits enforced on the wire. A frame above the frame limit or a
// reassembled message above the message limit fails the connection with
// status 1009.
const (
	maxFramePayloadSize   = 16 * 1024 * 1024
	maxControlPayloadSize = 125
)

// maxMessageSize caps a reassembled message. A variable so tests can lower
// it without pushing 64 MiB through a pipe.
var maxMessageSize = 64 * 1024 * 1024

type opcode byte

const (
	opContinuation opcode = 0x0
	opText         opcode = 0x1
	opBinary       opcode = 0x2
	opClose        opcode = 0x8
	opPing         opcode = 0x9
	opPong         opcode = 0xA
)

func (o opcode) isControl() bool { return o >= opClose }

// StatusCode is a close frame status code.
type StatusCode uint16

const (
	StatusNormalClosure   StatusCode = 1000
	StatusGoingAway       StatusCode = 1001
	StatusProtocolError   StatusCode = 1002
	StatusUnsupportedData StatusCode = 1003
	StatusInvalidPayload     StatusCode = 1007
	StatusPolicyViolation    StatusCode = 1008
	StatusMessageTooBig      StatusCode = 1009
	StatusMandatoryExtension StatusCode = 1010
	StatusInternalError      StatusCode = 1011
)

// validStatusCode reports whether a received close code may appear on the
// wire. Besides the defined codes, the 3000-4999 range is reserved for
// applications and always legal.
func validStatusCode(code uint16) bool {
	switch StatusCode(code) {
	case StatusNormalClosure, StatusGoingAway, StatusProtocolError,
		StatusUnsupportedData, StatusInvalidPayload, StatusPolicyViolation,
		StatusMessageTooBig, StatusMandatoryExtension, StatusInternalError:
		return true
	}
	return code >= 3000 && code <= 4999
}

// role determines the masking direction: clients mask every outgoing frame
// with a fresh random key, servers send unmasked frames, and each side
// rejects frames masked the wrong way round.
type role uint8

const (
	roleClient role = iota
	roleServer
)

// frame is a single frame on the wire.
type frame struct {
	fin     bool
	op      opcode
	payload []byte
}

func maskPayload(key [4]byte, p []byte) {
	for i := range p {
		p[i] ^= key[i%4]
	}
}

// readFrame decodes one frame, enforcing RSV bits, masking direction,
// control frame rules, and the frame payload limit.
func readFrame(br *bufio.Reader, myRole role) (frame, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return frame{}, err
	}

	fin := hdr[0]&0x80 != 0
	if hdr[0]&0x70 != 0 {
		return frame{}, errInconsistent("nonzero RSV bits")
	}
	op := opcode(hdr[0] & 0x0F)
	switch op {
	case opContinuation, opText, opBinary, opClose, opPing, opPong:
	default:
		return frame{}, errOpcode(byte(op))
	}
	if op.isControl() && !fin {
		return frame{}, errInconsistent("fragmented control frame")
	}

	masked := hdr[1]&0x80 != 0
	if masked != (myRole == roleServer) {
		return frame{}, errInconsistent("wrong masking direction")
	}

	length := uint64(hdr[1] & 0x7F)
	switch length {
	case 126:
		var ext [2]byte
		if _, err := io.ReadFull(br, ext[:]); err != nil {
			return frame{}, err
		}
		length = uint64(binary.BigEndian.Uint16(ext[:]))
	case 127:
		var ext [8]byte
		if _, err := io.ReadFull(br, ext[:]); err != nil {
			return frame{}, err
		}
		length = binary.BigEndian.Uint64(ext[:])
		if length&(1<<63) != 0 {
			return frame{}, errInconsistent("negative payload length")
		}
	}
	if op.isControl() && length > maxControlPayloadSize {
		return frame{}, errInconsistent("oversized control frame")
	}
	if length > maxFramePayloadSize {
		return frame{}, errTooBig(length)
	}

	var key [4]byte
	if masked {
		if _, err := io.ReadFull(br, key[:]); err != nil {
			return frame{}, err
		}
	}

	var payload []byte
	if length > 0 {
		payload = make([]byte, length)
		if _, err := io.ReadFull(br, payload); err != nil {
			return frame{}, err
		}
		if masked {
			maskPayload(key, payload)
		}
	}

	return frame{fin: fin, op: op, payload: payload}, nil
}

// writeFrame encodes one frame and flushes it. The payload slice is left
// untouched; clients mask a copy.
func writeFrame(bw *bufio.Writer, myRole role, f frame) error {
	b0 := byte(f.op)
	if f.fin {
		b0 |= 0x80
	}
	bw.WriteByte(b0) // bufio write errors surface on Flush

	var b1 byte
	if myRole == roleClient {
		b1 = 0x80
	}
	n := len(f.payload)
	switch {
	case n <= 125:
		bw.WriteByte(b1 | byte(n))
	case n <= 0xFFFF:
		bw.WriteByte(b1 | 126)
		var ext [2]byte
		binary.BigEndian.PutUint16(ext[:], uint16(n))
		bw.Write(ext[:])
	default:
		bw.WriteByte(b1 | 127)
		var ext [8]byte
		binary.BigEndian.PutUint64(ext[:], uint64(n))
		bw.Write(ext[:])
	}

	if myRole == roleClient {
		var key [4]byte
		if _, err := rand.Read(key[:]); err != nil {
			return err
		}
		bw.Write(key[:])
		masked := make([]byte, n)
		copy(masked, f.payload)
		maskPayload(key, masked)
		bw.Write(masked)
	} else {
		bw.Write(f.payload)
	}

	return bw.Flush()
}

// closePayload encodes a close frame body for the given status code.
func closePayload(code StatusCode, reason string) []byte {
	buf := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(buf, uint16(code))
	copy(buf[2:], reason)
	return buf
}

// parseClosePayload validates a received close body. An empty body is legal
// and treated as a normal closure.
func parseClosePayload(p []byte) (StatusCode, string, error) {
	switch {
	case len(p) == 0:
		return StatusNormalClosure, "", nil
	case len(p) == 1:
		return 0, "", errInconsistent("close payload of a single byte")
	}
	code := binary.BigEndian.Uint16(p)
	if !validStatusCode(code) {
		return 0, "", errCloseCode(code)
	}
	reason := p[2:]
	if !utf8.Valid(reason) {
		return 0, "", errBadUTF8()
	}
	return StatusCode(code), string(reason), nil
}
